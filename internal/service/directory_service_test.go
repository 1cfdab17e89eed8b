package service

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storyninja-api/internal/dto"
	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

const (
	schoolA  = "5b8c3c4e-3a3b-4c1d-9f00-000000000001"
	gradeOne = "5b8c3c4e-3a3b-4c1d-9f00-000000000011"
	gradeTwo = "5b8c3c4e-3a3b-4c1d-9f00-000000000012"
	teacherA = "5b8c3c4e-3a3b-4c1d-9f00-0000000000a1"
	teacherB = "5b8c3c4e-3a3b-4c1d-9f00-0000000000a2"
	teacherC = "5b8c3c4e-3a3b-4c1d-9f00-0000000000a3"
	studentA = "5b8c3c4e-3a3b-4c1d-9f00-0000000000b1"
)

func TestGradeCreateRejectsDuplicateNumber(t *testing.T) {
	grades := newFakeGrades()
	schools := &fakeSchools{items: map[string]*models.School{schoolA: {ID: schoolA, Name: "North"}}}
	svc := NewGradeService(grades, schools, nil, nil)
	ctx := context.Background()

	req := dto.GradeRequest{GradeNumber: 3, Name: "Third Grade", SchoolID: schoolA}
	grade, err := svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, grade.GradeNumber)
	assert.Equal(t, "North", grade.SchoolName)

	_, err = svc.Create(ctx, req)
	require.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "Grade 3 already exists for this school", appErrors.FromError(err).Message)
	assert.Len(t, grades.items, 1)
}

func TestGradeCreateRequiresSchool(t *testing.T) {
	svc := NewGradeService(newFakeGrades(), &fakeSchools{items: map[string]*models.School{}}, nil, nil)
	_, err := svc.Create(context.Background(), dto.GradeRequest{GradeNumber: 1, Name: "First", SchoolID: schoolA})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Create(context.Background(), dto.GradeRequest{GradeNumber: 13, Name: "Too high", SchoolID: schoolA})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestGradeDeleteRefusedWhileClassesExist(t *testing.T) {
	grades := newFakeGrades()
	grades.items[gradeOne] = &models.Grade{ID: gradeOne, SchoolID: schoolA, GradeNumber: 1}
	grades.classes[gradeOne] = 1
	svc := NewGradeService(grades, &fakeSchools{}, nil, nil)

	err := svc.Delete(context.Background(), gradeOne)
	require.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "Cannot delete grade with associated classes", appErrors.FromError(err).Message)
	assert.Contains(t, grades.items, gradeOne)

	grades.classes[gradeOne] = 0
	require.NoError(t, svc.Delete(context.Background(), gradeOne))
	assert.NotContains(t, grades.items, gradeOne)
}

func newClassFixture() (*ClassService, *fakeClasses) {
	users := newFakeUsers(
		models.User{ID: teacherA, Role: models.RoleTeacher, Name: "A"},
		models.User{ID: teacherB, Role: models.RoleTeacher, Name: "B"},
		models.User{ID: teacherC, Role: models.RoleTeacher, Name: "C"},
		models.User{ID: studentA, Role: models.RoleStudent, Name: "S"},
	)
	grades := newFakeGrades()
	grades.items[gradeOne] = &models.Grade{ID: gradeOne}
	grades.items[gradeTwo] = &models.Grade{ID: gradeTwo}
	classes := newFakeClasses(users)
	return NewClassService(classes, grades, users, nil, nil), classes
}

func TestClassNameUniqueWithinGrade(t *testing.T) {
	svc, _ := newClassFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.ClassRequest{ClassName: "Falcons", GradeID: gradeOne})
	require.NoError(t, err)

	_, err = svc.Create(ctx, dto.ClassRequest{ClassName: "Falcons", GradeID: gradeOne})
	require.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "Class name already exists in this grade", appErrors.FromError(err).Message)

	other, err := svc.Create(ctx, dto.ClassRequest{ClassName: "Falcons", GradeID: gradeTwo})
	require.NoError(t, err)
	assert.Equal(t, gradeTwo, other.GradeID)
}

func memberIDs(members []models.ClassMember) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestClassReplaceTeachersIsExact(t *testing.T) {
	svc, classes := newClassFixture()
	ctx := context.Background()
	class, err := svc.Create(ctx, dto.ClassRequest{ClassName: "Owls", GradeID: gradeOne})
	require.NoError(t, err)
	classes.join(class.ID, studentA, models.MemberStudent)

	detail, err := svc.ReplaceTeachers(ctx, class.ID, dto.ClassTeachersRequest{TeacherIDs: []string{teacherA, teacherB}})
	require.NoError(t, err)
	assert.Equal(t, []string{teacherA, teacherB}, memberIDs(detail.Teachers))

	detail, err = svc.ReplaceTeachers(ctx, class.ID, dto.ClassTeachersRequest{TeacherIDs: []string{teacherB, teacherC}})
	require.NoError(t, err)
	assert.Equal(t, []string{teacherB, teacherC}, memberIDs(detail.Teachers))
	assert.Equal(t, []string{studentA}, memberIDs(detail.Students))
}

func TestClassReplaceTeachersRejectsWrongRole(t *testing.T) {
	svc, classes := newClassFixture()
	ctx := context.Background()
	class, err := svc.Create(ctx, dto.ClassRequest{ClassName: "Owls", GradeID: gradeOne})
	require.NoError(t, err)

	_, err = svc.ReplaceTeachers(ctx, class.ID, dto.ClassTeachersRequest{TeacherIDs: []string{teacherA, studentA}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, classes.members[class.ID])
}

func TestTeacherWithoutClassesGetsEmptyList(t *testing.T) {
	svc, _ := newClassFixture()
	classes, err := svc.ForTeacher(context.Background(), teacherA)
	require.NoError(t, err)
	assert.NotNil(t, classes)
	assert.Empty(t, classes)
}

func TestStudentsForTeacherScopedToOwnClasses(t *testing.T) {
	svc, classes := newClassFixture()
	ctx := context.Background()
	class, err := svc.Create(ctx, dto.ClassRequest{ClassName: "Owls", GradeID: gradeOne})
	require.NoError(t, err)
	classes.join(class.ID, teacherA, models.MemberTeacher)
	classes.join(class.ID, studentA, models.MemberStudent)

	students, err := svc.StudentsForTeacher(ctx, teacherA, class.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{studentA}, memberIDs(students))

	_, err = svc.StudentsForTeacher(ctx, teacherB, class.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestUserDeleteGuards(t *testing.T) {
	users := newFakeUsers(
		models.User{ID: "admin", Role: models.RoleAdmin},
		models.User{ID: "author", Role: models.RoleTeacher},
		models.User{ID: "reader", Role: models.RoleStudent},
	)
	stories := newFakeStories(models.Story{ID: "s1", AuthorID: "author"})
	audit := &fakeAudit{}
	svc := NewUserService(UserDeps{Users: users, Stories: stories, Audit: audit}, nil, nil)
	ctx := context.Background()

	err := svc.Delete(ctx, "admin", "admin", dto.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	err = svc.Delete(ctx, "author", "admin", dto.RequestMeta{})
	require.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "User has authored stories", appErrors.FromError(err).Message)

	require.NoError(t, svc.Delete(ctx, "reader", "admin", dto.RequestMeta{}))
	assert.Equal(t, []string{"reader"}, users.deleted)
	assert.Len(t, audit.logs, 1)

	err = svc.Delete(ctx, "ghost", "admin", dto.RequestMeta{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestUserCreateSendsVerificationWhenUnverified(t *testing.T) {
	users := newFakeUsers(models.User{ID: "existing", Email: "taken@example.com"})
	mailer := &fakeMailer{}
	svc := NewUserService(UserDeps{Users: users, Verification: mailer, Audit: &fakeAudit{}}, nil, nil)
	ctx := context.Background()

	user, err := svc.Create(ctx, dto.CreateUserRequest{Email: "new@example.com", Password: "password1", Name: "New", Role: models.RoleTeacher}, "admin", dto.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.Equal(t, []string{user.ID}, mailer.sent)

	_, err = svc.Create(ctx, dto.CreateUserRequest{Email: "verified@example.com", Password: "password1", Name: "V", Role: models.RoleStudent, Verified: true}, "admin", dto.RequestMeta{})
	require.NoError(t, err)
	assert.Len(t, mailer.sent, 1)

	_, err = svc.Create(ctx, dto.CreateUserRequest{Email: "taken@example.com", Password: "password1", Name: "Dup", Role: models.RoleStudent}, "admin", dto.RequestMeta{})
	require.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "Email already exists", appErrors.FromError(err).Message)
}
