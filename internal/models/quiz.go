package models

import (
	"database/sql/driver"
	"time"
)

// Quiz is a teacher-authored question set, optionally tied to a story.
type Quiz struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacherId"`
	StoryID     *string   `db:"story_id" json:"storyId"`
	StoryTitle  *string   `db:"story_title" json:"storyTitle,omitempty"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Questions   Questions `db:"questions" json:"questions"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Question is a single multiple-choice item.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// Option is one answer choice.
type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Questions is stored as a JSONB document.
type Questions []Question

// Value implements driver.Valuer.
func (q Questions) Value() (driver.Value, error) {
	if q == nil {
		return []byte("[]"), nil
	}
	return jsonValue([]Question(q))
}

// Scan implements sql.Scanner.
func (q *Questions) Scan(src interface{}) error {
	return scanJSON(src, (*[]Question)(q))
}

// WithoutAnswers returns a copy with every IsCorrect flag cleared.
func (q Questions) WithoutAnswers() Questions {
	out := make(Questions, len(q))
	for i, question := range q {
		options := make([]Option, len(question.Options))
		for j, opt := range question.Options {
			options[j] = Option{ID: opt.ID, Text: opt.Text}
		}
		out[i] = Question{ID: question.ID, Text: question.Text, Options: options}
	}
	return out
}

// Answers maps question id to the chosen option id.
type Answers map[string]string

// Value implements driver.Valuer.
func (a Answers) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	return jsonValue(map[string]string(a))
}

// Scan implements sql.Scanner.
func (a *Answers) Scan(src interface{}) error {
	return scanJSON(src, (*map[string]string)(a))
}

// QuizAttempt records a submitted answer sheet and its score.
type QuizAttempt struct {
	ID        string    `db:"id" json:"id"`
	QuizID    string    `db:"quiz_id" json:"quizId"`
	UserID    string    `db:"user_id" json:"userId"`
	Answers   Answers   `db:"answers" json:"answers"`
	Score     int       `db:"score" json:"score"`
	Total     int       `db:"total" json:"total"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Perfect reports whether every question was answered correctly.
func (a *QuizAttempt) Perfect() bool {
	return a.Total > 0 && a.Score == a.Total
}
