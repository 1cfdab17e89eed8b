package models

import "time"

// School is the top of the School > Grade > Class hierarchy.
type School struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Address    string    `db:"address" json:"address"`
	GradeCount int       `db:"grade_count" json:"gradeCount"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// SchoolFilter defines filter criteria for listing schools.
type SchoolFilter struct {
	Search   string
	Page     int
	PageSize int
}
