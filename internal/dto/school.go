package dto

// SchoolRequest creates or updates a school.
type SchoolRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
}

// GradeRequest creates or updates a grade.
type GradeRequest struct {
	GradeNumber int    `json:"gradeNumber" validate:"required,min=1,max=12"`
	Name        string `json:"name" validate:"required,max=120"`
	SchoolID    string `json:"schoolID" validate:"required,uuid"`
}

// ClassRequest creates or updates a class.
type ClassRequest struct {
	ClassName string `json:"className" validate:"required,max=120"`
	GradeID   string `json:"grade" validate:"required,uuid"`
}

// ClassTeachersRequest replaces the teachers of a class.
type ClassTeachersRequest struct {
	TeacherIDs []string `json:"teacherIds" validate:"dive,uuid"`
}

// ClassStudentsRequest replaces the students of a class.
type ClassStudentsRequest struct {
	StudentIDs []string `json:"studentIds" validate:"dive,uuid"`
}
