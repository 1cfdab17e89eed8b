package models

import "time"

// MemberRole is the role a user holds inside a class.
type MemberRole string

const (
	MemberTeacher MemberRole = "teacher"
	MemberStudent MemberRole = "student"
)

// MemberRoleFor maps a user role onto a class membership role. Admins cannot be members.
func MemberRoleFor(role UserRole) (MemberRole, bool) {
	switch role {
	case RoleTeacher:
		return MemberTeacher, true
	case RoleStudent:
		return MemberStudent, true
	}
	return "", false
}

// Class represents a class within a grade.
type Class struct {
	ID           string    `db:"id" json:"id"`
	GradeID      string    `db:"grade_id" json:"grade"`
	ClassName    string    `db:"class_name" json:"className"`
	GradeName    string    `db:"grade_name" json:"gradeName,omitempty"`
	GradeNumber  int       `db:"grade_number" json:"gradeNumber,omitempty"`
	SchoolID     string    `db:"school_id" json:"schoolID,omitempty"`
	SchoolName   string    `db:"school_name" json:"schoolName,omitempty"`
	TeacherCount int       `db:"teacher_count" json:"teacherCount"`
	StudentCount int       `db:"student_count" json:"studentCount"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// ClassMember is a user as listed under a class.
type ClassMember struct {
	ID             string     `db:"id" json:"id"`
	ClassID        string     `db:"class_id" json:"classId,omitempty"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	Username       string     `db:"username" json:"username"`
	ProfilePicture string     `db:"profile_picture" json:"profilePicture"`
	MemberRole     MemberRole `db:"member_role" json:"memberRole"`
	NinjaGold      int        `db:"ninja_gold" json:"ninjaGold"`
	NinjaLevel     int        `db:"ninja_level" json:"ninjaLevel"`
}

// ClassDetail extends Class with its members.
type ClassDetail struct {
	Class
	Teachers []ClassMember `json:"teachers"`
	Students []ClassMember `json:"students"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	GradeID  string
	SchoolID string
	Search   string
	Page     int
	PageSize int
}
