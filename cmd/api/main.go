package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/unmablr/meetreg/internal/config"
	"github.com/unmablr/meetreg/internal/db"
	httpx "github.com/unmablr/meetreg/internal/http"
	"github.com/unmablr/meetreg/internal/notifications"
	"github.com/unmablr/meetreg/internal/observability"
	"github.com/unmablr/meetreg/internal/redisclient"
	"github.com/unmablr/meetreg/internal/variant"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	event, err := variant.ByTag(cfg.EventVariant)
	if err != nil {
		log.Error("invalid event variant", "err", err)
		os.Exit(1)
	}

	// tracing
	shutdownTracer, err := observability.InitTracer(context.Background(), "meetreg-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing disabled", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(promReg)

	// database
	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	// redis is optional; without it the rate limiter runs in-memory
	var rds *redisclient.Client
	if cfg.RedisAddr != "" {
		rds = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := config.WithTimeout(2 * time.Second)
		if err := rds.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, rate limiting falls back to in-memory", "err", err)
		}
		cancel()
		defer rds.Close()
	}

	notifier := buildNotifier(cfg, log)

	deps := httpx.Deps{
		Cfg:      cfg,
		Event:    event,
		Pool:     pool,
		Notifier: notifier,
		PromReg:  promReg,
		Prom:     prom,
	}
	if rds != nil {
		deps.Redis = rds.Raw()
	}

	router := httpx.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "event", event.Tag)
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

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		_ = shutdownTracer(ctx)
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func buildNotifier(cfg config.Config, log *slog.Logger) notifications.Notifier {
	var inner notifications.Notifier

	switch cfg.MailProvider {
	case "ses":
		inner = notifications.NewSESNotifier(notifications.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKey,
			SecretAccessKey: cfg.SESSecretKey,
			FromAddress:     cfg.MailFrom,
			FromName:        cfg.MailFromName,
		})
	default:
		log.Info("using log notifier, confirmation emails are not sent")
		inner = notifications.NewLogNotifier()
	}

	return notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{})
}
