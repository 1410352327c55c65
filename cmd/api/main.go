package main

import (
	"context"
	"log"

	"upload-relay/config"
	"upload-relay/internal/handler"
	"upload-relay/internal/middleware"
	"upload-relay/internal/notify"
	"upload-relay/internal/redis"
	"upload-relay/internal/server"
	"upload-relay/internal/services"
	"upload-relay/internal/storage"
	"upload-relay/internal/uploadrouter"
	"upload-relay/pkg/logger"
	"upload-relay/web"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx := context.Background()

	// Hosted file storage
	store, err := storage.NewClient(ctx, storage.S3Config{
		Region:     cfg.S3Region,
		Bucket:     cfg.S3Bucket,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		Endpoint:   cfg.S3Endpoint,
		PublicBase: cfg.S3PublicBase,
		FileTTL:    cfg.FileTTL,
	})
	if err != nil {
		log.Fatalf("Failed to configure storage: %v", err)
	}

	notifier := notify.NewNotifier(notify.Config{
		WebhookURL: cfg.DiscordWebhookURL,
		Timeout:    cfg.WebhookTimeout,
		Retention:  cfg.FileTTL,
	}, l)
	if !notifier.Enabled() {
		l.Warnf("DISCORD_WEBHOOK_URL is not set; upload notifications are disabled")
	}

	apiKey := services.NewAPIKey(cfg.UploadAPIKey, cfg.UploadAPIKeyHash)
	if !apiKey.Configured() {
		l.Warnf("No upload API key configured; requests presenting x-api-key will be rejected")
	}

	svc := services.NewUploadService(store, notifier, apiKey, l)
	fileRouter := uploadrouter.New(store, cfg.MaxMultipartMemory, l, svc.FileRoute(services.ProfileLimits{
		Image: cfg.MaxImageSize,
		PDF:   cfg.MaxPDFSize,
		Video: cfg.MaxVideoSize,
	}))

	widget, err := handler.NewWidgetHandler(web.Static())
	if err != nil {
		log.Fatalf("Failed to load widget: %v", err)
	}

	handlers := &server.Handlers{
		PublicUpload: handler.NewPublicUploadHandler(svc, cfg.MaxMultipartMemory),
		FileRouter:   fileRouter,
		Widget:       widget,
	}

	// Rate limiting: shared across instances through Redis when configured
	limits := redis.RateLimitConfig{
		UploadLimit:  cfg.RateLimitUploads,
		UploadWindow: cfg.RateLimitWindow,
	}.WithDefaults()
	if cfg.RedisEnabled() {
		redisClient := redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		if err := redis.Ping(ctx, redisClient); err != nil {
			l.Warnf("Redis is unreachable, rate limit checks will fail open: %v", err)
		}

		handlers.Limiter = redis.NewRateLimiter(redisClient, limits)
		handlers.HealthCheck = func(ctx context.Context) error {
			return redis.Ping(ctx, redisClient)
		}
	} else {
		handlers.Limiter = middleware.NewLocalRateLimiter(limits.UploadLimit, limits.UploadWindow)
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %v", err)
	}
}
