package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
// AssignedClasses is derived from class_memberships.
type User struct {
	ID              string         `db:"id" json:"id"`
	Email           string         `db:"email" json:"email"`
	PasswordHash    *string        `db:"password_hash" json:"-"`
	Name            string         `db:"name" json:"name"`
	Username        string         `db:"username" json:"username"`
	ProfilePicture  string         `db:"profile_picture" json:"profilePicture"`
	Role            UserRole       `db:"role" json:"role"`
	Active          bool           `db:"active" json:"active"`
	Verified        bool           `db:"verified" json:"verified"`
	SchoolID        *string        `db:"school_id" json:"schoolID,omitempty"`
	NinjaGold       int            `db:"ninja_gold" json:"ninjaGold"`
	NinjaLevel      int            `db:"ninja_level" json:"ninjaLevel"`
	StoriesUploaded int            `db:"stories_uploaded" json:"storiesUploaded"`
	AssignedClasses pq.StringArray `db:"assigned_classes" json:"assignedClasses"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	SchoolID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}

// Identity is what a successful credential check yields.
type Identity struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
	Active   bool     `json:"active"`
	Verified bool     `json:"verified"`
}

// Reward level thresholds.
const (
	GoldPerLevel = 100
)

// LevelForGold derives the ninja level from accumulated gold.
func LevelForGold(gold int) int {
	if gold < 0 {
		gold = 0
	}
	return gold/GoldPerLevel + 1
}
