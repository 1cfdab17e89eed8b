package dto

import "github.com/noah-isme/storyninja-api/internal/models"

// CreateStoryRequest uploads a new story. Submit moves it straight to waiting_revision.
type CreateStoryRequest struct {
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"max=5000"`
	CoverImage    string `json:"coverImage" validate:"omitempty,url"`
	CoverPublicID string `json:"coverPublicId" validate:"max=300"`
	PDFURL        string `json:"pdfUrl" validate:"omitempty,url"`
	PDFPublicID   string `json:"pdfPublicId" validate:"max=300"`
	PageCount     int    `json:"pageCount" validate:"min=0,max=10000"`
	Submit        bool   `json:"submit"`
}

// UpdateStoryRequest edits story metadata. Nil fields are left unchanged.
type UpdateStoryRequest struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string `json:"description" validate:"omitempty,max=5000"`
	CoverImage    *string `json:"coverImage" validate:"omitempty,url"`
	CoverPublicID *string `json:"coverPublicId" validate:"omitempty,max=300"`
	PDFURL        *string `json:"pdfUrl" validate:"omitempty,url"`
	PDFPublicID   *string `json:"pdfPublicId" validate:"omitempty,max=300"`
	PageCount     *int    `json:"pageCount" validate:"omitempty,min=0,max=10000"`
}

// StoryStatusRequest is the admin moderation call.
type StoryStatusRequest struct {
	Status models.StoryStatus `json:"status" validate:"required,oneof=draft waiting_revision published"`
}

// DiscussionTextRequest carries comment or reply text.
type DiscussionTextRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}

// LikeResponse reports the state after a like toggle.
type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}
