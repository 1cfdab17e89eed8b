package response

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/models"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
)

// ErrorBody documents the error envelope.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// JSON sends a success body as-is. Bodies are keyed by resource name, e.g. {"grade": {...}}.
func JSON(c *gin.Context, status int, body interface{}) {
	noStore(c)
	c.JSON(status, body)
}

// Resource writes a single keyed resource.
func Resource(c *gin.Context, status int, key string, data interface{}) {
	JSON(c, status, gin.H{key: data})
}

// List writes a keyed collection, attaching pagination when provided. Nil
// slices are rendered as empty arrays.
func List(c *gin.Context, key string, items interface{}, pagination *models.Pagination) {
	if isNil(items) {
		items = []struct{}{}
	}
	body := gin.H{key: items}
	if pagination != nil {
		body["pagination"] = pagination
	}
	JSON(c, http.StatusOK, body)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, key string, data interface{}) {
	Resource(c, http.StatusCreated, key, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, gin.H{"error": appErr.Message, "code": appErr.Code})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.IsNil()
}
