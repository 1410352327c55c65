package httpdto

// PublicUploadResponse is returned by POST /api/public-upload
type PublicUploadResponse struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// RouteFileResponse is one uploaded file in the POST /api/uploadthing response
type RouteFileResponse struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	URL        string `json:"url"`
	Type       string `json:"type"`
	ServerData any    `json:"serverData"`
}

// RouteConfigResponse describes one file route for GET /api/uploadthing
type RouteConfigResponse struct {
	Slug   string                     `json:"slug"`
	Config map[string]ProfileResponse `json:"config"`
}

// ProfileResponse is the limit set of one file type
type ProfileResponse struct {
	MaxFileSize  string `json:"maxFileSize"`
	MaxFileBytes uint64 `json:"maxFileBytes"`
	MaxFileCount int    `json:"maxFileCount"`
}

// RouteUploadErrorResponse is a failed POST /api/uploadthing where some files
// were already stored before the failure.
type RouteUploadErrorResponse struct {
	ErrorResponse
	Files []RouteFileResponse `json:"files"`
}
