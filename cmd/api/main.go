package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paricus-portal/internal/audit"
	"paricus-portal/internal/auth"
	"paricus-portal/internal/cache"
	"paricus-portal/internal/cdrstore"
	"paricus-portal/internal/config"
	"paricus-portal/internal/httpapi"
	"paricus-portal/internal/recordings"
	"paricus-portal/internal/reporting"
	"paricus-portal/pkg/logger"
	"paricus-portal/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	layer := cache.NewMemoryLayer(cfg.Cache)
	if cfg.Cache.Backend == config.CacheBackendRedis {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		layer = cache.NewRedisLayer(rdb, "paricus:recordings", cfg.Cache)
	}

	// The pool opens lazily on the first query. Closing it flushes every cache category.
	handle := cdrstore.NewHandle(cfg.CDR, cdrstore.WithCloseHook(layer.FlushAll))
	if ok, reason := cfg.CDR.Configured(); !ok {
		log.Warn("cdr store not configured, serving synthetic recordings", "reason", reason)
	}
	prometheus.MustRegister(cdrstore.NewCollector(handle))

	gateway := recordings.NewGateway(handle, layer)
	recentAudit := audit.NewMemoryRepo()
	h := httpapi.Handlers{
		Recordings: gateway,
		Reporting:  reporting.NewService(gateway),
		Audit:      audit.NewService(audit.Tee(audit.NewLogRepo(log), recentAudit)),
		AuditLog:   recentAudit,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, handle)
	registerProtectedRoutes(r, auth.RequireAccessToken(authManager), h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.CDR.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "cache", cfg.Cache.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if err := handle.Close(shutdownCtx); err != nil {
		log.Error("cdr pool close failed", "err", err)
	}
}
