package models

import "time"

// ClassStats aggregates reading activity for one class.
type ClassStats struct {
	ClassID         string  `db:"class_id" json:"classId"`
	ClassName       string  `db:"class_name" json:"className"`
	GradeName       string  `db:"grade_name" json:"gradeName"`
	Students        int     `db:"students" json:"students"`
	Assignments     int     `db:"assignments" json:"assignments"`
	Completions     int     `db:"completions" json:"completions"`
	AverageProgress float64 `db:"average_progress" json:"averageProgress"`
}

// TeacherStats is the dashboard summary across a teacher's classes.
type TeacherStats struct {
	TeacherID        string       `json:"teacherId"`
	Classes          []ClassStats `json:"classes"`
	TotalStudents    int          `json:"totalStudents"`
	TotalAssignments int          `json:"totalAssignments"`
	TotalCompletions int          `json:"totalCompletions"`
	GeneratedAt      time.Time    `json:"generatedAt"`
}
