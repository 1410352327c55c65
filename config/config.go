package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string
	LogMode string

	DiscordWebhookURL string
	WebhookTimeout    time.Duration

	// Shared secret for the x-api-key header. Either the plain value or a
	// bcrypt hash of it; never compiled into the binary.
	UploadAPIKey     string
	UploadAPIKeyHash string

	FileTTL            time.Duration
	MaxMultipartMemory int64
	MaxImageSize       uint64
	MaxPDFSize         uint64
	MaxVideoSize       uint64

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	RateLimitUploads int
	RateLimitWindow  time.Duration

	CORSAllowedOrigins []string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:            getEnv("APP_PORT", "8080"),
		AppMode:            getEnv("APP_MODE", "debug"),
		LogMode:            getEnv("LOG_MODE", "development"),
		DiscordWebhookURL:  getEnv("DISCORD_WEBHOOK_URL", ""),
		WebhookTimeout:     getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		UploadAPIKey:       getEnv("UPLOAD_API_KEY", ""),
		UploadAPIKeyHash:   getEnv("UPLOAD_API_KEY_HASH", ""),
		FileTTL:            getEnvAsDuration("FILE_TTL", 24*time.Hour),
		MaxMultipartMemory: int64(getEnvAsBytes("MAX_MULTIPART_MEMORY", 32<<20)),
		MaxImageSize:       getEnvAsBytes("UPLOAD_MAX_IMAGE", 256<<20),
		MaxPDFSize:         getEnvAsBytes("UPLOAD_MAX_PDF", 128<<20),
		MaxVideoSize:       getEnvAsBytes("UPLOAD_MAX_VIDEO", 1024<<20),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:        getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3PublicBase:       strings.TrimRight(getEnv("S3_PUBLIC_BASE", ""), "/"),
		RedisHost:          getEnv("REDIS_HOST", ""),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		RateLimitUploads:   getEnvAsInt("RATE_LIMIT_UPLOADS", 30),
		RateLimitWindow:    getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return fallback
}

// getEnvAsBytes accepts human sizes such as "256MiB" or "128MB".
func getEnvAsBytes(key string, fallback uint64) uint64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := humanize.ParseBytes(valueStr)
	if err != nil || value == 0 {
		log.Printf("Invalid size %q for %s, using default", valueStr, key)
		return fallback
	}
	return value
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
