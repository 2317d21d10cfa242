package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/cuistot-app/backend/config"
	"github.com/cuistot-app/backend/internal/api"
	"github.com/cuistot-app/backend/internal/database"
	"github.com/cuistot-app/backend/internal/llm"
	"github.com/cuistot-app/backend/internal/middleware"
	"github.com/cuistot-app/backend/internal/router"
	"github.com/cuistot-app/backend/internal/service"
	"github.com/cuistot-app/backend/internal/session"
)

// Server owns the HTTP listener and every long-lived dependency behind it.
type Server struct {
	cfg      *config.Config
	http     *http.Server
	db       *database.DB
	redis    *redis.Client
	sessions *session.Manager
}

// unavailableImages stands in for the image service when S3 credentials are
// absent. It always errors, so expansions take the fallback image URL.
type unavailableImages struct{}

func (unavailableImages) GenerateRecipeImage(ctx context.Context, title string) (string, error) {
	return "", fmt.Errorf("image hosting is not configured")
}

// New builds a fully wired server from configuration: database pools,
// Redis, the inference and image clients, stores and the session manager.
func New(cfg *config.Config) (*Server, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := database.NewGorm(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	if err := database.Migrate(gormDB); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	var images session.ImageGenerator = unavailableImages{}
	s3Ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s3Config, err := config.NewS3Config(s3Ctx); err != nil {
		log.Printf("[Server] image hosting disabled: %v", err)
	} else {
		images = service.NewImageService(cfg, s3Config)
	}

	sessions := session.NewManager(session.Deps{
		Inference: llm.NewClient(cfg),
		Images:    images,
		Recipes:   service.NewRecipeStore(gormDB),
		Chats:     service.NewChatStore(gormDB),
		Profiles:  service.NewProfileStore(gormDB),
		Snapshots: session.NewRedisSnapshotStore(redisClient),
	})

	auth := service.NewAuthService(gormDB, cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
		Window:    time.Minute,
		Limit:     10,
		KeyPrefix: "ratelimit:generate",
	})

	s := &Server{
		cfg:      cfg,
		db:       db,
		redis:    redisClient,
		sessions: sessions,
	}

	engine := router.SetupRouter(
		api.NewAuthHandler(auth),
		api.NewKitchenHandler(sessions),
		auth,
		limiter,
		s.healthHandler(),
	)

	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler: engine,
	}

	return s, nil
}

// Start runs the HTTP listener until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("[Server] Listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener, flushes pending session writes and closes
// the connection pools.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := s.http.Shutdown(ctx)

	s.sessions.Close(ctx)

	if cerr := s.redis.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := s.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// healthHandler reports liveness of the database and Redis.
func (s *Server) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		if err := s.db.HealthCheck(ctx); err != nil {
			dbStatus = "unreachable"
			status = http.StatusServiceUnavailable
		}

		redisStatus := "ok"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unreachable"
			status = http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":   overall,
			"database": dbStatus,
			"redis":    redisStatus,
		})
	}
}
