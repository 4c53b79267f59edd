package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/Reinhardt254/online-bookstore/internal/auth"
	"github.com/Reinhardt254/online-bookstore/internal/config"
	"github.com/Reinhardt254/online-bookstore/internal/http/handlers"
	"github.com/Reinhardt254/online-bookstore/internal/http/middlewares"
	"github.com/Reinhardt254/online-bookstore/internal/observability"
	"github.com/Reinhardt254/online-bookstore/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterDeps carries the shared infrastructure the router wires together.
type RouterDeps struct {
	Log       *slog.Logger
	Pool      *pgxpool.Pool
	Cfg       config.Config
	Prom      *observability.Prom
	PromReg   *prometheus.Registry
	BookCache handlers.RecordCache
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Cfg

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("bookstore"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if deps.Pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return deps.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.PromReg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.PromReg, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// wire up repositories and the auth core
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	booksRepo := postgres.NewBooksRepo(deps.Pool, deps.Prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL())
	authService := auth.NewService(usersRepo, jwtManager, cfg.BcryptCost)

	var googleFlow handlers.GoogleFlow

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		googleFlow = auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	authHandler := handlers.NewAuthHandler(authService, googleFlow, deps.Prom, cfg)
	booksHandler := handlers.NewBooksHandler(booksRepo, deps.BookCache, 10*time.Second)

	authMw := middlewares.NewAuthMiddleware(jwtManager, usersRepo)

	// credential endpoints get an IP-keyed limiter
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)

	authGroup := r.Group("/auth")
	authGroup.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.POST("/register", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
	authGroup.GET("/google", authHandler.GoogleRedirect)
	authGroup.GET("/google/callback", authHandler.GoogleCallback)

	authed := authGroup.Group("")
	authed.Use(authMw.RequireAuth())
	authed.GET("/profile", authHandler.Profile)
	authed.POST("/change-password", authHandler.ChangePassword)

	books := r.Group("/books")
	books.GET("", booksHandler.ListBooks)
	books.GET("/:id", booksHandler.GetBookByID)

	// catalog writes are admin-only
	adminBooks := books.Group("")
	adminBooks.Use(authMw.RequireAuth(), authMw.RequireRole("admin"))
	adminBooks.POST("", booksHandler.CreateBook)
	adminBooks.PUT("/:id", booksHandler.UpdateBook)
	adminBooks.PATCH("/:id/stock", booksHandler.AdjustStock)
	adminBooks.DELETE("/:id", booksHandler.DeleteBook)

	return r
}
