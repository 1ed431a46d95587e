package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kislikjeka/zapfeed/internal/app"
	"github.com/kislikjeka/zapfeed/internal/transport/httpapi"
	"github.com/kislikjeka/zapfeed/internal/transport/httpapi/handler"
	"github.com/kislikjeka/zapfeed/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/zapfeed/pkg/config"
	"github.com/kislikjeka/zapfeed/pkg/logger"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.Env)
	log.Info("Starting zapfeed API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"lnbits_url", cfg.LNbitsURL,
	)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	routerCfg := httpapi.Config{
		Logger:           log,
		AllowedOrigins:   cfg.AllowedOrigins,
		HealthHandler:    handler.NewHealthHandler(a.Gateway, version),
		FeedHandler:      handler.NewFeedHandler(a.Feed),
		WalletHandler:    handler.NewWalletHandler(a.Directory, a.Feed),
		TransferHandler:  handler.NewTransferHandler(a.Transfers),
		AllowanceHandler: handler.NewAllowanceHandler(a.Allowance),
	}
	if cfg.MetricsEnabled {
		routerCfg.MetricsMiddleware = a.Metrics.HTTPServer().Middleware
		routerCfg.MetricsHandler = a.Metrics.Handler()
	}
	if cfg.JWTSecret != "" {
		routerCfg.JWTMiddleware = middleware.JWTMiddleware(middleware.NewJWTService(cfg.JWTSecret))
		log.Info("Bearer token validation enabled for /api/v1")
	} else {
		log.Warn("JWT_SECRET not configured, /api/v1 is unauthenticated")
	}
	r := httpapi.NewRouter(routerCfg)

	// a feed request waits on several LNbits round trips
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.LNbitsTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.AllowanceEnabled {
		go a.Allowance.Run(ctx)
		log.Info("Allowance job started", "interval", cfg.AllowanceInterval)
	}

	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	a.Allowance.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
