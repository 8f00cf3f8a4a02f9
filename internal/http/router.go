package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/unmablr/meetreg/internal/auth"
	"github.com/unmablr/meetreg/internal/cache"
	"github.com/unmablr/meetreg/internal/config"
	"github.com/unmablr/meetreg/internal/http/handlers"
	"github.com/unmablr/meetreg/internal/http/middlewares"
	"github.com/unmablr/meetreg/internal/notifications"
	"github.com/unmablr/meetreg/internal/observability"
	"github.com/unmablr/meetreg/internal/repo/postgres"
	"github.com/unmablr/meetreg/internal/variant"
)

const maxBodyBytes = 1 << 20 // 1 MiB is plenty for a registration payload

// Deps is everything the router needs wired in by main.
type Deps struct {
	Cfg      config.Config
	Event    variant.Config
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Notifier notifications.Notifier
	PromReg  *prometheus.Registry
	Prom     *observability.Prom
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	r.Use(otelgin.Middleware("meetreg"))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	ping := func() error {
		if d.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return d.Pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/health", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.PromReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.PromReg, promhttp.HandlerOpts{})))
	}

	// wire up repositories
	registrationsRepo := postgres.NewRegistrationsRepo(d.Pool, d.Prom)
	usersRepo := postgres.NewUsersRepo(d.Pool)

	// auth
	jwtManager := auth.NewManager(d.Cfg.JWTSecret, d.Cfg.TokenTTL)
	authMw := middlewares.NewAuthMiddleware(jwtManager)
	adminOnly := []gin.HandlerFunc{authMw.RequireAuth(), authMw.RequireRole("admin")}

	// public create is the abuse target, so it gets the rate limiter
	limiter := middlewares.NewRateLimiter(d.Redis, d.Cfg.RateLimitMax, d.Cfg.RateLimitWindow)

	// handlers
	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager)
	regHandler := handlers.NewRegistrationHandler(registrationsRepo, d.Event, d.Notifier, d.Prom)
	statsHandler := handlers.NewStatsHandler(registrationsRepo, d.Event, cache.New(30*time.Second))

	api := r.Group("/api")

	api.POST("/users/login", authHandler.Login)

	regs := api.Group("/registrations")

	regs.POST("", limiter.RateLimiterMiddleware(middlewares.KeyByIP), regHandler.Create)
	regs.GET("/search/:query", regHandler.Search)

	regs.GET("", append(adminOnly, regHandler.List)...)
	regs.GET("/download", append(adminOnly, regHandler.Download)...)
	regs.GET("/stats/summary", append(adminOnly, statsHandler.Summary)...)
	regs.POST("/notify/sweep", append(adminOnly, regHandler.NotifySweep)...)
	regs.GET("/:id", append(adminOnly, regHandler.Get)...)
	regs.PUT("/:id", append(adminOnly, regHandler.Update)...)
	regs.DELETE("/:id", append(adminOnly, regHandler.Delete)...)
	regs.PATCH("/:id/verify", append(adminOnly, regHandler.Verify)...)
	regs.PATCH("/:id/payment", append(adminOnly, regHandler.Payment)...)

	return r
}
