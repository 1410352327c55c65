package upload

import (
	"io"
	"unicode/utf8"
)

// MaxDescriptionLength is the longest description forwarded anywhere.
const MaxDescriptionLength = 1024

// FileInput is one file handed to the uploader.
type FileInput struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.ReadSeeker
}

// UploadResult is what the hosted provider returns for a stored file.
type UploadResult struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// FileType names an upload profile of the integrated route.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypePDF   FileType = "pdf"
	FileTypeVideo FileType = "video"
)

// FileRecord is the finalized file passed to upload-complete hooks.
type FileRecord struct {
	UploadResult
	ContentType string
	Type        FileType
}

// TruncateDescription keeps at most MaxDescriptionLength characters.
func TruncateDescription(description string) string {
	if utf8.RuneCountInString(description) <= MaxDescriptionLength {
		return description
	}
	runes := []rune(description)
	return string(runes[:MaxDescriptionLength])
}
