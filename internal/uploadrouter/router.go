package uploadrouter

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"upload-relay/internal/domain/upload"
	"upload-relay/internal/transport/httpdto"
	relay_errors "upload-relay/pkg/errors"
	"upload-relay/pkg/logger"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// Router serves a set of file routes: GET lists their limits, POST runs the
// middleware, enforces the profiles, uploads and calls the completion hook.
type Router struct {
	routes    map[string]*Route
	order     []string
	uploader  Uploader
	maxMemory int64
	logger    *logger.Logger
}

func New(uploader Uploader, maxMemory int64, l *logger.Logger, routes ...*Route) *Router {
	if l == nil {
		l = logger.GetGlobalLogger()
	}
	r := &Router{
		routes:    make(map[string]*Route, len(routes)),
		uploader:  uploader,
		maxMemory: maxMemory,
		logger:    l,
	}
	for _, route := range routes {
		r.routes[route.Slug] = route
		r.order = append(r.order, route.Slug)
	}
	return r
}

// Config handles GET: the declared profiles of every route.
func (r *Router) Config(c *gin.Context) {
	out := make([]httpdto.RouteConfigResponse, 0, len(r.order))
	for _, slug := range r.order {
		route := r.routes[slug]
		cfg := make(map[string]httpdto.ProfileResponse, len(route.Profiles))
		for fileType, profile := range route.Profiles {
			cfg[string(fileType)] = httpdto.ProfileResponse{
				MaxFileSize:  humanize.IBytes(profile.MaxFileSize),
				MaxFileBytes: profile.MaxFileSize,
				MaxFileCount: profile.maxCount(),
			}
		}
		out = append(out, httpdto.RouteConfigResponse{Slug: slug, Config: cfg})
	}
	c.JSON(http.StatusOK, out)
}

// Upload handles POST ?slug=<route>. Files are stored one by one; when a later
// file fails, the ones already stored are listed next to the error.
func (r *Router) Upload(c *gin.Context) {
	files, err := r.handleUpload(c)
	if err != nil {
		status, body := httpdto.FromError(err)
		if status >= http.StatusInternalServerError {
			r.logger.Ctx(c.Request.Context()).Errorf("file route upload failed (%s) after %d stored files: %v",
				relay_errors.As(err).Kind, len(files), err)
		}
		if len(files) > 0 {
			c.JSON(status, httpdto.RouteUploadErrorResponse{ErrorResponse: body, Files: files})
			return
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, files)
}

type preparedFile struct {
	header      *multipart.FileHeader
	file        multipart.File
	contentType string
	fileType    upload.FileType
}

func (r *Router) handleUpload(c *gin.Context) ([]httpdto.RouteFileResponse, error) {
	route, err := r.resolve(c.Query("slug"))
	if err != nil {
		return nil, err
	}

	if !strings.Contains(c.GetHeader("Content-Type"), "multipart/form-data") {
		return nil, relay_errors.Validation("Content-Type must be multipart/form-data")
	}

	metadata := Metadata{}
	if route.Middleware != nil {
		if metadata, err = route.Middleware(c.Request); err != nil {
			return nil, err
		}
	}

	if err := c.Request.ParseMultipartForm(r.maxMemory); err != nil {
		return nil, relay_errors.Validation("Invalid multipart form data")
	}
	form := c.Request.MultipartForm
	headers := make([]*multipart.FileHeader, 0, len(form.File["files"])+len(form.File["file"]))
	headers = append(headers, form.File["files"]...)
	headers = append(headers, form.File["file"]...)
	if len(headers) == 0 {
		return nil, relay_errors.Validation("No files provided")
	}

	prepared := make([]preparedFile, 0, len(headers))
	defer func() {
		for _, p := range prepared {
			_ = p.file.Close()
		}
	}()
	counts := map[upload.FileType]int{}
	for _, header := range headers {
		p, err := prepare(header)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, p)

		profile, ok := route.Profiles[p.fileType]
		if !ok {
			return nil, relay_errors.Validation(fmt.Sprintf("File type %s is not allowed", p.contentType))
		}
		counts[p.fileType]++
		if counts[p.fileType] > profile.maxCount() {
			return nil, relay_errors.Validation(fmt.Sprintf("Too many %s files, at most %d allowed", p.fileType, profile.maxCount()))
		}
		if profile.MaxFileSize > 0 && uint64(header.Size) > profile.MaxFileSize {
			return nil, relay_errors.Validation(fmt.Sprintf("File %s exceeds the %s limit for %s files",
				header.Filename, humanize.IBytes(profile.MaxFileSize), p.fileType))
		}
	}

	ctx := c.Request.Context()
	out := make([]httpdto.RouteFileResponse, 0, len(prepared))
	for _, p := range prepared {
		res, err := r.uploader.Upload(ctx, upload.FileInput{
			Name:        p.header.Filename,
			Size:        p.header.Size,
			ContentType: p.contentType,
			Body:        p.file,
		})
		if err == nil && res == nil {
			err = relay_errors.ErrEmptyResult
		}
		if err != nil {
			return out, relay_errors.Upload("Upload failed", err)
		}

		record := upload.FileRecord{UploadResult: *res, ContentType: p.contentType, Type: p.fileType}
		var serverData any
		if route.OnUploadComplete != nil {
			if serverData, err = route.OnUploadComplete(ctx, record, metadata); err != nil {
				return out, relay_errors.Unexpected(err)
			}
		}

		out = append(out, httpdto.RouteFileResponse{
			Key:        res.Key,
			Name:       res.Name,
			Size:       res.Size,
			URL:        res.URL,
			Type:       p.contentType,
			ServerData: serverData,
		})
	}
	return out, nil
}

func (r *Router) resolve(slug string) (*Route, error) {
	if slug == "" && len(r.order) == 1 {
		slug = r.order[0]
	}
	route, ok := r.routes[slug]
	if !ok {
		return nil, relay_errors.NotFound(fmt.Sprintf("No file route named %q", slug))
	}
	return route, nil
}

// prepare opens the part and sniffs its type, falling back to the declared
// part Content-Type when sniffing is inconclusive.
func prepare(header *multipart.FileHeader) (preparedFile, error) {
	f, err := header.Open()
	if err != nil {
		return preparedFile{}, relay_errors.Unexpected(fmt.Errorf("open %s: %w", header.Filename, err))
	}

	mtype, err := mimetype.DetectReader(f)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		_ = f.Close()
		return preparedFile{}, relay_errors.Unexpected(fmt.Errorf("inspect %s: %w", header.Filename, err))
	}

	contentType := mtype.String()
	fileType, ok := ClassifyContentType(contentType)
	if !ok {
		if declared := header.Header.Get("Content-Type"); declared != "" {
			if t, declaredOK := ClassifyContentType(declared); declaredOK && mtype.Is("application/octet-stream") {
				contentType, fileType, ok = declared, t, true
			}
		}
	}
	if !ok {
		_ = f.Close()
		return preparedFile{}, relay_errors.Validation(fmt.Sprintf("File type %s is not allowed", contentType))
	}

	return preparedFile{header: header, file: f, contentType: contentType, fileType: fileType}, nil
}

func (p Profile) maxCount() int {
	if p.MaxFileCount < 1 {
		return 1
	}
	return p.MaxFileCount
}
