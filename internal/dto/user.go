package dto

import "github.com/noah-isme/storyninja-api/internal/models"

// CreateUserRequest is the admin payload for provisioning an account.
type CreateUserRequest struct {
	Email          string          `json:"email" validate:"required,email"`
	Password       string          `json:"password" validate:"required,min=8,max=72"`
	Name           string          `json:"name" validate:"required,max=120"`
	Username       string          `json:"username" validate:"omitempty,max=60"`
	Role           models.UserRole `json:"role" validate:"required,oneof=admin teacher student"`
	Active         *bool           `json:"active"`
	Verified       bool            `json:"verified"`
	SchoolID       *string         `json:"schoolID" validate:"omitempty,uuid"`
	ProfilePicture string          `json:"profilePicture" validate:"omitempty,url"`
}

// UpdateUserRequest is the admin payload for editing an account. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Name           *string          `json:"name" validate:"omitempty,max=120"`
	Username       *string          `json:"username" validate:"omitempty,max=60"`
	Role           *models.UserRole `json:"role" validate:"omitempty,oneof=admin teacher student"`
	Active         *bool            `json:"active"`
	Verified       *bool            `json:"verified"`
	SchoolID       *string          `json:"schoolID" validate:"omitempty,uuid"`
	ProfilePicture *string          `json:"profilePicture" validate:"omitempty,url"`
	Password       *string          `json:"password" validate:"omitempty,min=8,max=72"`
}

// UserClassesRequest replaces the classes a user belongs to.
type UserClassesRequest struct {
	ClassIDs []string `json:"classIds" validate:"dive,uuid"`
}
