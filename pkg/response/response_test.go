package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Clone(appErrors.ErrConflict, "Grade 3 already exists for this school"))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Grade 3 already exists for this school", body["error"])
	assert.Equal(t, "CONFLICT", body["code"])
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestListRendersEmptyArray(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var classes []models.Class
	List(c, "classes", classes, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"classes":[]}`, w.Body.String())
}

func TestListWithPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	List(c, "schools", []string{"a"}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1})

	assert.JSONEq(t, `{"schools":["a"],"pagination":{"page":1,"pageSize":20,"totalCount":1}}`, w.Body.String())
}
