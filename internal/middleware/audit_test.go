package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storyninja-api/internal/models"
)

type recordedAudit struct {
	entries []*models.AuditLog
	err     error
}

func (r *recordedAudit) Create(_ context.Context, log *models.AuditLog) error {
	r.entries = append(r.entries, log)
	return r.err
}

func auditRouter(rec *recordedAudit, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Active: true})
		c.Next()
	})
	group := r.Group("/schools", Audit(rec, "school", nil))
	handler := func(c *gin.Context) { c.Status(status) }
	group.GET("/:id", handler)
	group.PUT("/:id", handler)
	group.DELETE("/:id", handler)
	return r
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	rec := &recordedAudit{}
	r := auditRouter(rec, http.StatusOK)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, "/schools/s1", nil))
	}

	require.Len(t, rec.entries, 2)
	assert.Equal(t, models.AuditActionUpdate, rec.entries[0].Action)
	assert.Equal(t, models.AuditActionDelete, rec.entries[1].Action)
	assert.Equal(t, "school", rec.entries[0].Resource)
	require.NotNil(t, rec.entries[0].ResourceID)
	assert.Equal(t, "s1", *rec.entries[0].ResourceID)
	require.NotNil(t, rec.entries[0].UserID)
	assert.Equal(t, "admin-1", *rec.entries[0].UserID)
}

func TestAuditIgnoresFailuresAndWriteErrors(t *testing.T) {
	rec := &recordedAudit{}
	r := auditRouter(rec, http.StatusConflict)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/schools/s1", nil))
	assert.Empty(t, rec.entries)

	rec = &recordedAudit{err: errors.New("db down")}
	r = auditRouter(rec, http.StatusNoContent)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/schools/s1", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, rec.entries, 1)
}
