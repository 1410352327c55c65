package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"upload-relay/internal/domain/upload"
	relay_errors "upload-relay/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
	// Objects are stamped to expire this long after upload.
	FileTTL time.Duration
}

type Client struct {
	cfg S3Config
	s3  *s3.Client
	now func() time.Time
}

func NewClient(ctx context.Context, cfg S3Config) (*Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := ""
	if cfg.Endpoint != "" {
		parsed, err := url.Parse(cfg.Endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid s3 endpoint %q", cfg.Endpoint)
		}
		endpoint = parsed.String()
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		cfg: cfg,
		s3:  s3Client,
		now: time.Now,
	}, nil
}

// Upload stores the file under a fresh key and returns its public location.
func (c *Client) Upload(ctx context.Context, file upload.FileInput) (*upload.UploadResult, error) {
	if c == nil {
		return nil, relay_errors.ErrNotConfigured
	}
	if file.Body == nil {
		return nil, errors.New("file body is required")
	}

	contentType, err := c.ValidateContentType(file)
	if err != nil {
		return nil, err
	}

	key := BuildObjectKey(uuid.New(), file.Name)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		Body:        file.Body,
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"original-name": url.PathEscape(file.Name)},
	}
	if file.Size > 0 {
		input.ContentLength = aws.Int64(file.Size)
	}
	if c.cfg.FileTTL > 0 {
		input.Expires = aws.Time(c.now().Add(c.cfg.FileTTL))
	}

	if _, err := c.s3.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &upload.UploadResult{
		URL:  c.FileURL(key),
		Key:  key,
		Name: file.Name,
		Size: file.Size,
	}, nil
}

// FileURL is the public URL of key, falling back to the virtual-hosted S3 URL.
func (c *Client) FileURL(key string) string {
	if c == nil || key == "" {
		return ""
	}
	if c.cfg.PublicBase != "" {
		return strings.TrimRight(c.cfg.PublicBase, "/") + "/" + key
	}
	if c.cfg.Endpoint != "" {
		return strings.TrimRight(c.cfg.Endpoint, "/") + "/" + c.cfg.Bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.cfg.Bucket, c.cfg.Region, key)
}

// ValidateContentType returns the declared content type, sniffing the body
// when none was declared. The body is rewound afterwards.
func (c *Client) ValidateContentType(file upload.FileInput) (string, error) {
	if file.ContentType != "" && file.ContentType != "application/octet-stream" {
		return file.ContentType, nil
	}
	mtype, err := mimetype.DetectReader(file.Body)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if _, err := file.Body.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind file: %w", err)
	}
	return mtype.String(), nil
}

// BuildObjectKey returns uploads/<id><.ext> with the extension lower-cased.
func BuildObjectKey(id uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	base := "uploads/" + id.String()
	if ext == "" || ext == "." {
		return base
	}
	return base + ext
}
