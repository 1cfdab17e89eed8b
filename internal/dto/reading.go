package dto

// AssignBookRequest assigns a published story to a class or one of its students.
type AssignBookRequest struct {
	StoryID   string  `json:"storyId" validate:"required,uuid"`
	ClassID   string  `json:"classId" validate:"required,uuid"`
	StudentID *string `json:"studentId" validate:"omitempty,uuid"`
}

// ProgressRequest records the reader's current page.
type ProgressRequest struct {
	StoryID     string `json:"storyId" validate:"required,uuid"`
	CurrentPage int    `json:"currentPage" validate:"min=0"`
	TotalPages  int    `json:"totalPages" validate:"required,min=1"`
}

// OptionInput is an answer choice in a quiz payload.
type OptionInput struct {
	ID        string `json:"id" validate:"omitempty,max=64"`
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"isCorrect"`
}

// QuestionInput is a question in a quiz payload.
type QuestionInput struct {
	ID      string        `json:"id" validate:"omitempty,max=64"`
	Text    string        `json:"text" validate:"required,max=1000"`
	Options []OptionInput `json:"options" validate:"required,min=2,dive"`
}

// QuizRequest creates or replaces a quiz.
type QuizRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	StoryID     *string         `json:"storyId" validate:"omitempty,uuid"`
	Questions   []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// QuizAttemptRequest submits answers keyed by question id.
type QuizAttemptRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

// UploadResponse is returned by the upload endpoint.
type UploadResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}
