package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/storyninja-api/internal/service"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
	"github.com/noah-isme/storyninja-api/pkg/response"
)

// UploadHandler accepts cover images and story PDFs.
type UploadHandler struct {
	service *service.UploadService
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Upload godoc
// @Summary Upload a cover image or story PDF
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File"
// @Param kind formData string false "cover or pdf"
// @Success 201 {object} dto.UploadResponse
// @Failure 400 {object} response.ErrorBody
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	actor, ok := claimsFromContext(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file"))
		return
	}
	defer file.Close()

	res, err := h.service.Upload(c.Request.Context(), actor.UserID, c.PostForm("kind"), header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, res)
}
