package models

import "time"

// BookAssignment links a teacher, class and story. A nil StudentID targets the whole class.
type BookAssignment struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacherId"`
	ClassID     string    `db:"class_id" json:"classId"`
	StudentID   *string   `db:"student_id" json:"studentId"`
	StoryID     string    `db:"story_id" json:"storyId"`
	StoryTitle  string    `db:"story_title" json:"storyTitle,omitempty"`
	ClassName   string    `db:"class_name" json:"className,omitempty"`
	StudentName *string   `db:"student_name" json:"studentName,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// AssignedBook is a story assigned to a reader together with their progress.
type AssignedBook struct {
	AssignmentID string           `db:"assignment_id" json:"assignmentId"`
	ClassID      string           `db:"class_id" json:"classId"`
	ClassName    string           `db:"class_name" json:"className"`
	Direct       bool             `db:"direct" json:"direct"`
	AssignedAt   time.Time        `db:"assigned_at" json:"assignedAt"`
	Story        Story            `db:"story" json:"story"`
	Progress     *ReadingProgress `db:"-" json:"progress"`
}

// ReadingProgress tracks how far a reader is through a story.
type ReadingProgress struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"userId"`
	StoryID     string     `db:"story_id" json:"storyId"`
	CurrentPage int        `db:"current_page" json:"currentPage"`
	TotalPages  int        `db:"total_pages" json:"totalPages"`
	Progress    int        `db:"progress" json:"progress"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// PercentComplete clamps current/total into 0..100.
func PercentComplete(current, total int) int {
	if total <= 0 || current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	return current * 100 / total
}
