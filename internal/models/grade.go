package models

import "time"

// Grade is a year level within a school.
type Grade struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    string    `db:"school_id" json:"schoolID"`
	GradeNumber int       `db:"grade_number" json:"gradeNumber"`
	Name        string    `db:"name" json:"name"`
	SchoolName  string    `db:"school_name" json:"schoolName,omitempty"`
	ClassCount  int       `db:"class_count" json:"classCount"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// GradeDetail carries the grade's school for single-grade responses.
type GradeDetail struct {
	Grade
	School *School `json:"school,omitempty"`
}

// GradeFilter defines filter criteria for listing grades.
type GradeFilter struct {
	SchoolID string
	Page     int
	PageSize int
}
