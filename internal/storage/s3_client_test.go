package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"upload-relay/internal/domain/upload"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestBuildObjectKey(t *testing.T) {
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	tests := []struct {
		name string
		file string
		want string
	}{
		{"lower cases extension", "Photo.PNG", "uploads/7d444840-9dc0-11d1-b245-5ffdce74fad2.png"},
		{"no extension", "README", "uploads/7d444840-9dc0-11d1-b245-5ffdce74fad2"},
		{"last extension only", "archive.tar.gz", "uploads/7d444840-9dc0-11d1-b245-5ffdce74fad2.gz"},
		{"trailing dot", "odd.", "uploads/7d444840-9dc0-11d1-b245-5ffdce74fad2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildObjectKey(id, tt.file))
		})
	}
}

func TestFileURL(t *testing.T) {
	c := &Client{cfg: S3Config{Bucket: "drops", Region: "eu-west-1", PublicBase: "https://cdn.example"}}
	assert.Equal(t, "https://cdn.example/uploads/a.png", c.FileURL("uploads/a.png"))

	c = &Client{cfg: S3Config{Bucket: "drops", Region: "eu-west-1", PublicBase: "https://cdn.example/files//"}}
	assert.Equal(t, "https://cdn.example/files/uploads/a.png", c.FileURL("uploads/a.png"))

	c = &Client{cfg: S3Config{Bucket: "drops", Region: "eu-west-1", Endpoint: "http://minio:9000/"}}
	assert.Equal(t, "http://minio:9000/drops/uploads/a.png", c.FileURL("uploads/a.png"))

	c = &Client{cfg: S3Config{Bucket: "drops", Region: "eu-west-1"}}
	assert.Equal(t, "https://drops.s3.eu-west-1.amazonaws.com/uploads/a.png", c.FileURL("uploads/a.png"))

	assert.Equal(t, "", c.FileURL(""))
	var nilClient *Client
	assert.Equal(t, "", nilClient.FileURL("k"))
}

func TestValidateContentTypeSniffsAndRewinds(t *testing.T) {
	c := &Client{}
	body := bytes.NewReader(append(append([]byte{}, pngHeader...), make([]byte, 64)...))

	contentType, err := c.ValidateContentType(upload.FileInput{Name: "photo", Body: body, ContentType: "application/octet-stream"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	pos, err := body.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)

	contentType, err = c.ValidateContentType(upload.FileInput{Body: body, ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), S3Config{Region: "us-east-1", Bucket: "b", Endpoint: "::not a url"})
	assert.Error(t, err)
}

func TestUploadPutsObject(t *testing.T) {
	type captured struct {
		method, path, contentType, expires string
	}
	reqs := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		reqs <- captured{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			expires:     r.Header.Get("Expires"),
		}
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), S3Config{
		Region:     "us-east-1",
		Bucket:     "drops",
		AccessKey:  "AKIDEXAMPLE",
		SecretKey:  "secret",
		Endpoint:   srv.URL,
		PublicBase: "https://cdn.example",
		FileTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	data := append(append([]byte{}, pngHeader...), make([]byte, 10240-len(pngHeader))...)
	res, err := c.Upload(context.Background(), upload.FileInput{
		Name: "photo.png",
		Size: int64(len(data)),
		Body: bytes.NewReader(data),
	})
	require.NoError(t, err)

	got := <-reqs
	assert.Equal(t, http.MethodPut, got.method)
	assert.True(t, strings.HasPrefix(got.path, "/drops/uploads/"), got.path)
	assert.True(t, strings.HasSuffix(got.path, ".png"), got.path)
	assert.Equal(t, "image/png", got.contentType)
	assert.NotEmpty(t, got.expires)

	assert.Equal(t, "photo.png", res.Name)
	assert.Equal(t, int64(10240), res.Size)
	assert.True(t, strings.HasPrefix(res.Key, "uploads/"))
	assert.Equal(t, "https://cdn.example/"+res.Key, res.URL)
}

func TestUploadReportsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), S3Config{
		Region: "us-east-1", Bucket: "drops", AccessKey: "a", SecretKey: "s", Endpoint: srv.URL,
	})
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), upload.FileInput{
		Name: "doc.pdf", Size: 4, ContentType: "application/pdf", Body: bytes.NewReader([]byte("%PDF")),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put object")
}
