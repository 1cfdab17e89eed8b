package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
)

// StoryStatus is the moderation state of a story.
type StoryStatus string

const (
	StoryDraft           StoryStatus = "draft"
	StoryWaitingRevision StoryStatus = "waiting_revision"
	StoryPublished       StoryStatus = "published"
)

// Valid reports whether s is a known moderation state.
func (s StoryStatus) Valid() bool {
	switch s {
	case StoryDraft, StoryWaitingRevision, StoryPublished:
		return true
	}
	return false
}

// Story is authored reading content plus its discussion.
type Story struct {
	ID            string         `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Description   string         `db:"description" json:"description"`
	AuthorID      string         `db:"author_id" json:"authorId"`
	AuthorName    string         `db:"author_name" json:"authorName,omitempty"`
	CoverImage    string         `db:"cover_image" json:"coverImage"`
	CoverPublicID string         `db:"cover_public_id" json:"coverPublicId"`
	PDFURL        string         `db:"pdf_url" json:"pdfUrl"`
	PDFPublicID   string         `db:"pdf_public_id" json:"pdfPublicId"`
	PageCount     int            `db:"page_count" json:"pageCount"`
	Status        StoryStatus    `db:"status" json:"status"`
	IsPublished   bool           `db:"is_published" json:"isPublished"`
	ReadCount     int            `db:"read_count" json:"readCount"`
	LikeCount     int            `db:"like_count" json:"likeCount"`
	CompleteCount int            `db:"complete_count" json:"completeCount"`
	Likes         pq.StringArray `db:"likes" json:"likes"`
	Comments      Comments       `db:"comments" json:"comments,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// StoryFilter defines filter criteria for listing stories.
type StoryFilter struct {
	Status        *StoryStatus
	AuthorID      string
	Search        string
	PublishedOnly bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// Comment is a top-level discussion entry on a story.
type Comment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	UserPicture string    `json:"userPicture"`
	Text        string    `json:"text"`
	Likes       []string  `json:"likes"`
	Replies     []Reply   `json:"replies"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Reply is a response nested under a comment.
type Reply struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	UserPicture string    `json:"userPicture"`
	Text        string    `json:"text"`
	Likes       []string  `json:"likes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Comments is the ordered discussion stored as a JSONB document.
type Comments []Comment

// Value implements driver.Valuer.
func (c Comments) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return jsonValue([]Comment(c))
}

// Scan implements sql.Scanner.
func (c *Comments) Scan(src interface{}) error {
	return scanJSON(src, (*[]Comment)(c))
}
