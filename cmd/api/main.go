package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Reinhardt254/online-bookstore/internal/cache"
	"github.com/Reinhardt254/online-bookstore/internal/config"
	"github.com/Reinhardt254/online-bookstore/internal/db"
	httpx "github.com/Reinhardt254/online-bookstore/internal/http"
	"github.com/Reinhardt254/online-bookstore/internal/observability"
	"github.com/Reinhardt254/online-bookstore/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	// tracing is optional; only wired when a collector endpoint is configured
	if cfg.OTLPEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)

		shutdownTracer, err := observability.InitTracer(ctx, "bookstore-api", cfg.OTLPEndpoint)

		cancel()

		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}

		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()

			_ = shutdownTracer(ctx)
		}()
	}

	// run migrations over a short-lived database/sql handle
	sqlDB, err := db.OpenSQL(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	if err := migrations.Migrate(sqlDB); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	_ = sqlDB.Close()

	// the pgx pool the app actually runs on
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("pgx pool failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	seedCtx, seedCancel := config.WithTimeout(5 * time.Second)

	if err := db.EnsureAdminUser(seedCtx, pool, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
	}

	seedCancel()

	// metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	prom := observability.NewProm(reg)

	// optional redis cache for catalog reads
	var bookCache *cache.BookCache

	if cfg.RedisAddr != "" {
		bookCache = cache.NewBookCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, pingCancel := config.WithTimeout(2 * time.Second)

		if err := bookCache.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, catalog cache disabled", "err", err)
			bookCache = nil
		}

		pingCancel()

		if bookCache != nil {
			defer bookCache.Close()
		}
	}

	// set up routers
	deps := httpx.RouterDeps{
		Log:     log,
		Pool:    pool,
		Cfg:     cfg,
		Prom:    prom,
		PromReg: reg,
	}

	if bookCache != nil {
		deps.BookCache = bookCache
	}

	router := httpx.NewRouter(deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
