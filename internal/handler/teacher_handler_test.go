package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storyninja-api/internal/middleware"
	"github.com/noah-isme/storyninja-api/internal/models"
	"github.com/noah-isme/storyninja-api/internal/service"
)

func teacherContext(path string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestTeacherWithoutClassesGetsEmptyList(t *testing.T) {
	classes := service.NewClassService(&classStore{}, nil, nil, nil, nil)
	h := NewTeacherHandler(classes, nil, nil)

	c, w := teacherContext("/teacher/classes", &models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher, Active: true})
	h.Classes(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"classes":[]}`, w.Body.String())
}

func TestTeacherClassesListed(t *testing.T) {
	store := &classStore{byMember: map[string][]models.Class{
		"t-1": {{ID: "c-1", ClassName: "3A"}},
	}}
	h := NewTeacherHandler(service.NewClassService(store, nil, nil, nil, nil), nil, nil)

	c, w := teacherContext("/teacher/classes", &models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher, Active: true})
	h.Classes(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"className":"3A"`)
}

func TestTeacherStudentsForeignClassForbidden(t *testing.T) {
	h := NewTeacherHandler(service.NewClassService(&classStore{}, nil, nil, nil, nil), nil, nil)

	c, w := teacherContext("/teacher/students?classId=9d3c1f7e-5a2b-4c6d-8e9f-0a1b2c3d4e5f", &models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher, Active: true})
	h.Students(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTeacherStudentsRejectsMalformedClassID(t *testing.T) {
	h := NewTeacherHandler(service.NewClassService(&classStore{}, nil, nil, nil, nil), nil, nil)

	c, w := teacherContext("/teacher/students?classId=abc", &models.JWTClaims{UserID: "t-1", Role: models.RoleTeacher, Active: true})
	h.Students(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherClassesWithoutClaims(t *testing.T) {
	h := NewTeacherHandler(service.NewClassService(&classStore{}, nil, nil, nil, nil), nil, nil)

	c, w := teacherContext("/teacher/classes", nil)
	h.Classes(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
