package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"upload-relay/internal/domain/upload"
	"upload-relay/internal/services"
	"upload-relay/internal/transport/httpdto"
	relay_errors "upload-relay/pkg/errors"

	"github.com/gin-gonic/gin"
)

// PublicUploader is the part of the upload service the public endpoint needs.
type PublicUploader interface {
	PublicUpload(ctx context.Context, in services.PublicUploadInput) (*upload.UploadResult, error)
}

type PublicUploadHandler struct {
	service   PublicUploader
	maxMemory int64
}

func NewPublicUploadHandler(service PublicUploader, maxMemory int64) *PublicUploadHandler {
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	return &PublicUploadHandler{service: service, maxMemory: maxMemory}
}

// Options answers preflights. CORS headers come from the route middleware.
func (h *PublicUploadHandler) Options(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *PublicUploadHandler) Create(c *gin.Context) {
	if !strings.Contains(c.GetHeader("Content-Type"), "multipart/form-data") {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Content-Type must be multipart/form-data with a 'file' field"))
		return
	}

	if err := c.Request.ParseMultipartForm(h.maxMemory); err != nil {
		writeError(c, relay_errors.Unexpected(fmt.Errorf("parse multipart form: %w", err)))
		return
	}
	form := c.Request.MultipartForm

	description := c.GetHeader(services.DescriptionHeader)
	if values, ok := form.Value["description"]; ok && len(values) > 0 {
		description = values[0]
	}

	headers := form.File["file"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Missing 'file' in multipart form data"))
		return
	}
	header := headers[0]

	f, err := header.Open()
	if err != nil {
		writeError(c, relay_errors.Unexpected(fmt.Errorf("open %s: %w", header.Filename, err)))
		return
	}
	defer f.Close()

	res, err := h.service.PublicUpload(c.Request.Context(), services.PublicUploadInput{
		File: upload.FileInput{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Body:        f,
		},
		Description: upload.TruncateDescription(description),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.PublicUploadResponse{
		URL:  res.URL,
		Key:  res.Key,
		Name: res.Name,
		Size: res.Size,
	})
}

func writeError(c *gin.Context, err error) {
	status, body := httpdto.FromError(err)
	c.JSON(status, body)
}
