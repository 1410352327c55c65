package services

import (
	"context"
	"net/http"
	"time"

	"upload-relay/internal/domain/upload"
	"upload-relay/internal/notify"
	"upload-relay/internal/uploadrouter"
	relay_errors "upload-relay/pkg/errors"
	"upload-relay/pkg/logger"
)

const (
	FileUploaderSlug = "fileUploader"

	APIKeyHeader      = "x-api-key"
	DescriptionHeader = "x-description"

	metadataDescription = "description"
)

// ProfileLimits are the per-type size limits of the fileUploader route.
type ProfileLimits struct {
	Image uint64
	PDF   uint64
	Video uint64
}

func DefaultProfileLimits() ProfileLimits {
	return ProfileLimits{
		Image: 256 << 20,
		PDF:   128 << 20,
		Video: 1024 << 20,
	}
}

type UploadService struct {
	uploader uploadrouter.Uploader
	notifier *notify.Notifier
	apiKey   APIKey
	logger   *logger.Logger
	now      func() time.Time
}

func NewUploadService(uploader uploadrouter.Uploader, notifier *notify.Notifier, apiKey APIKey, l *logger.Logger) *UploadService {
	if l == nil {
		l = logger.GetGlobalLogger()
	}
	return &UploadService{
		uploader: uploader,
		notifier: notifier,
		apiKey:   apiKey,
		logger:   l,
		now:      time.Now,
	}
}

type PublicUploadInput struct {
	File        upload.FileInput
	Description string
}

// PublicUpload stores one file and sends the notification. Only the upload
// itself can fail; notification problems are logged.
func (s *UploadService) PublicUpload(ctx context.Context, in PublicUploadInput) (*upload.UploadResult, error) {
	res, err := s.uploader.Upload(ctx, in.File)
	if err == nil && res == nil {
		err = relay_errors.ErrEmptyResult
	}
	if err != nil {
		s.logger.Ctx(ctx).Errorf("public upload of %s failed: %v", in.File.Name, err)
		return nil, relay_errors.Upload("Upload failed", err)
	}

	s.notifier.Notify(ctx, notify.FileInfo{
		URL:         res.URL,
		Name:        res.Name,
		Size:        res.Size,
		Description: upload.TruncateDescription(in.Description),
	}, s.now())

	return res, nil
}

// FileRoute is the fileUploader route with its profiles and hooks.
func (s *UploadService) FileRoute(limits ProfileLimits) *uploadrouter.Route {
	return &uploadrouter.Route{
		Slug: FileUploaderSlug,
		Profiles: map[upload.FileType]uploadrouter.Profile{
			upload.FileTypeImage: {MaxFileSize: limits.Image, MaxFileCount: 1},
			upload.FileTypePDF:   {MaxFileSize: limits.PDF, MaxFileCount: 1},
			upload.FileTypeVideo: {MaxFileSize: limits.Video, MaxFileCount: 1},
		},
		Middleware:       s.Authorize,
		OnUploadComplete: s.OnUploadComplete,
	}
}

// Authorize is the pre-upload hook. A request without x-api-key is trusted;
// one carrying a key must present the configured secret.
func (s *UploadService) Authorize(r *http.Request) (uploadrouter.Metadata, error) {
	apiKey := r.Header.Get(APIKeyHeader)
	description := upload.TruncateDescription(r.Header.Get(DescriptionHeader))

	if apiKey != "" && !s.apiKey.Matches(apiKey) {
		return nil, relay_errors.Auth("Invalid API key")
	}

	return uploadrouter.Metadata{metadataDescription: description}, nil
}

// OnUploadComplete is the post-upload hook.
func (s *UploadService) OnUploadComplete(ctx context.Context, file upload.FileRecord, metadata uploadrouter.Metadata) (any, error) {
	description := metadata[metadataDescription]
	s.logger.Ctx(ctx).Infow("Upload complete", "url", file.URL, "name", file.Name, "description", description)

	if !s.notifier.Enabled() {
		s.logger.Ctx(ctx).Warnf("DISCORD_WEBHOOK_URL is not set; skipping Discord notification.")
	} else {
		s.notifier.Notify(ctx, notify.FileInfo{
			URL:         file.URL,
			Name:        file.Name,
			Size:        file.Size,
			Description: description,
		}, s.now())
	}

	return map[string]string{"url": file.URL}, nil
}
