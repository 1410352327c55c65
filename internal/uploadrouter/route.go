package uploadrouter

import (
	"context"
	"net/http"
	"strings"

	"upload-relay/internal/domain/upload"
)

// Metadata is request-scoped data returned by a route's middleware and
// handed to its upload-complete hook.
type Metadata map[string]string

// Profile limits the files of one type accepted by a route.
type Profile struct {
	MaxFileSize  uint64
	MaxFileCount int
}

// MiddlewareFunc runs before anything is uploaded. Returning an error
// rejects the request.
type MiddlewareFunc func(r *http.Request) (Metadata, error)

// UploadCompleteFunc runs once per stored file. Its return value is sent to
// the client as serverData.
type UploadCompleteFunc func(ctx context.Context, file upload.FileRecord, metadata Metadata) (any, error)

type Route struct {
	Slug             string
	Profiles         map[upload.FileType]Profile
	Middleware       MiddlewareFunc
	OnUploadComplete UploadCompleteFunc
}

// Uploader stores one file with the hosted provider.
type Uploader interface {
	Upload(ctx context.Context, file upload.FileInput) (*upload.UploadResult, error)
}

// ClassifyContentType maps a MIME type to the profile it belongs to.
func ClassifyContentType(contentType string) (upload.FileType, bool) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return upload.FileTypeImage, true
	case mediaType == "application/pdf":
		return upload.FileTypePDF, true
	case strings.HasPrefix(mediaType, "video/"):
		return upload.FileTypeVideo, true
	default:
		return "", false
	}
}
