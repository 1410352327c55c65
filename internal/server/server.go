package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"upload-relay/config"
	"upload-relay/internal/handler"
	"upload-relay/internal/middleware"
	"upload-relay/internal/transport/httpdto"
	"upload-relay/internal/uploadrouter"
	"upload-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	PublicUpload *handler.PublicUploadHandler
	FileRouter   *uploadrouter.Router
	Widget       *handler.WidgetHandler
	// Optional. Nil disables upload rate limiting.
	Limiter middleware.UploadLimiter
	// Optional dependency check for /health.
	HealthCheck func(ctx context.Context) error
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if l == nil {
		l = logger.GetGlobalLogger()
	}

	engine := gin.New()
	engine.Use(middleware.RecoveryMiddleware(l))
	engine.MaxMultipartMemory = cfg.MaxMultipartMemory

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Handler exposes the engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if handlers.HealthCheck != nil {
			if err := handlers.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.Response[any]{Error: err.Error(), Code: "UNHEALTHY"})
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	if handlers.Widget != nil {
		s.engine.GET("/", handlers.Widget.Index)
		s.engine.StaticFS("/static", handlers.Widget.Assets())
	}

	rateLimit := middleware.UploadRateLimitMiddleware(handlers.Limiter, s.logger)

	public := s.engine.Group("/api/public-upload", middleware.CORSMiddleware(), rateLimit)
	{
		public.OPTIONS("", handlers.PublicUpload.Options)
		public.POST("", handlers.PublicUpload.Create)
	}

	files := s.engine.Group("/api/uploadthing", middleware.RouterCORSMiddleware(s.config.CORSAllowedOrigins), rateLimit)
	{
		files.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		files.GET("", handlers.FileRouter.Config)
		files.POST("", handlers.FileRouter.Upload)
	}
}

func (s *Server) Start() error {
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	s.logger.Infof("Server is running on :%s", s.config.AppPort)

	<-quit

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")

	return nil
}
