// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/wellmota/go-gym-backend/internal/config"
	"github.com/wellmota/go-gym-backend/internal/domain"
	"github.com/wellmota/go-gym-backend/internal/http/handlers"
	"github.com/wellmota/go-gym-backend/internal/http/middleware"
	"github.com/wellmota/go-gym-backend/internal/repo"
	"github.com/wellmota/go-gym-backend/internal/services"
)

// gymRepoShim adapts the repository free functions to the gym interfaces
// expected by the services. This keeps services decoupled from the concrete
// repo package while reusing existing functions.
type gymRepoShim struct{}

// CreateGym proxies repo.CreateGym.
func (gymRepoShim) CreateGym(ctx context.Context, db *gorm.DB, f repo.GymFields) (*domain.Gym, error) {
	return repo.CreateGym(ctx, db, f)
}

// ListGyms proxies repo.ListGyms.
func (gymRepoShim) ListGyms(ctx context.Context, db *gorm.DB) ([]domain.Gym, error) {
	return repo.ListGyms(ctx, db)
}

// FindGym proxies repo.FindGym.
func (gymRepoShim) FindGym(ctx context.Context, db *gorm.DB, id string) (*domain.Gym, error) {
	return repo.FindGym(ctx, db, id)
}

// CountGyms proxies repo.CountGyms.
func (gymRepoShim) CountGyms(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountGyms(ctx, db)
}

// checkInRepoShim adapts the check-in repository functions to the service
// interfaces.
type checkInRepoShim struct{}

// FindCheckIn proxies repo.FindCheckIn.
func (checkInRepoShim) FindCheckIn(ctx context.Context, db *gorm.DB, id string) (*domain.CheckIn, error) {
	return repo.FindCheckIn(ctx, db, id)
}

// FindCheckInOnDate proxies repo.FindCheckInOnDate.
func (checkInRepoShim) FindCheckInOnDate(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (*domain.CheckIn, error) {
	return repo.FindCheckInOnDate(ctx, db, userID, from, to)
}

// CreateCheckIn proxies repo.CreateCheckIn.
func (checkInRepoShim) CreateCheckIn(ctx context.Context, db *gorm.DB, userID, gymID string) (*domain.CheckIn, error) {
	return repo.CreateCheckIn(ctx, db, userID, gymID)
}

// MarkValidated proxies repo.MarkValidated.
func (checkInRepoShim) MarkValidated(ctx context.Context, db *gorm.DB, id string, at time.Time) (*domain.CheckIn, error) {
	return repo.MarkValidated(ctx, db, id, at)
}

// ListCheckInsPage proxies repo.ListCheckInsPage (pagination support).
func (checkInRepoShim) ListCheckInsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int, order string) ([]domain.CheckIn, error) {
	return repo.ListCheckInsPage(ctx, db, userID, offset, limit, order)
}

// CountCheckIns proxies repo.CountCheckIns (pagination support).
func (checkInRepoShim) CountCheckIns(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountCheckIns(ctx, db, userID)
}

// ListCheckInsByUser proxies repo.ListCheckInsByUser (summary support).
func (checkInRepoShim) ListCheckInsByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.CheckIn, error) {
	return repo.ListCheckInsByUser(ctx, db, userID)
}

// ListCheckInsInRange proxies repo.ListCheckInsInRange (metrics support).
func (checkInRepoShim) ListCheckInsInRange(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.CheckIn, error) {
	return repo.ListCheckInsInRange(ctx, db, from, to)
}

// userRepoShim adapts the user repository functions to the service
// interfaces.
type userRepoShim struct{}

// FindUser proxies repo.FindUser.
func (userRepoShim) FindUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.FindUser(ctx, db, id)
}

// CountUsers proxies repo.CountUsers.
func (userRepoShim) CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUsers(ctx, db)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
//  10. Response compression
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, gymID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, gymID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// 10) Compress responses
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	gymSvc := services.NewGymService(db, gymRepoShim{})

	checkInSvc := services.NewCheckInService(db, checkInRepoShim{}, gymRepoShim{}, userRepoShim{})
	checkInSvc.MaxDistanceMeters = cfg.CheckIn.MaxDistanceMeters
	checkInSvc.ValidationWindow = cfg.CheckIn.ValidationWindow

	reportSvc := services.NewReportService(db, checkInRepoShim{}, gymRepoShim{}, userRepoShim{})
	reportSvc.HistoryRange = cfg.CheckIn.HistoryRange

	h := handlers.New(gymSvc, checkInSvc, reportSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Gyms
		api.POST("/gyms", h.CreateGym)
		api.GET("/gyms/search", h.SearchGyms)

		// Check-ins
		api.POST("/gyms/:gymId/check-ins", h.CreateCheckIn)
		api.POST("/gyms/:gymId/distance", h.ProbeDistance)
		api.PATCH("/check-ins/:checkInId/validate", h.ValidateCheckIn)

		// Reports
		api.GET("/check-ins/history", h.History)
		api.GET("/check-ins/metrics", h.Metrics)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
