package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sumire/guildcloner/internal/cloner"
	"github.com/sumire/guildcloner/internal/config"
	"github.com/sumire/guildcloner/internal/discord"
	"github.com/sumire/guildcloner/internal/domain"
	"github.com/sumire/guildcloner/internal/events"
	"github.com/sumire/guildcloner/internal/handler"
	"github.com/sumire/guildcloner/internal/metrics"
	"github.com/sumire/guildcloner/internal/repository"
	"github.com/sumire/guildcloner/internal/service"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("database connected")

	if err := repository.Migrate(context.Background(), db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	runRepo := repository.NewCloneRunRepository(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := events.NewHub()

	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		DiscordClientID:     cfg.DiscordClientID,
		DiscordClientSecret: cfg.DiscordClientSecret,
		DiscordAPIBase:      cfg.DiscordAPIBase,
		DiscordCDNBase:      cfg.DiscordCDNBase,
		JWTSecret:           cfg.JWTSecret,
		FrontendURL:         cfg.FrontendURL,
	})

	policy := domain.RateLimitRetry
	if !cfg.CloneRetryCreates {
		policy = domain.RateLimitSkip
	}

	newAPI := func(token string) cloner.API {
		return discord.NewClient(discord.Config{
			APIBase:           cfg.DiscordAPIBase,
			CDNBase:           cfg.DiscordCDNBase,
			Token:             token,
			Timeout:           cfg.DiscordHTTPTimeout,
			DefaultRetryAfter: cfg.CloneDefaultRetryAfter,
		})
	}

	cloneSvc := service.NewCloneService(runRepo, newAPI, service.CloneConfig{
		DefaultToken:      cfg.DiscordBotToken,
		BaseDelay:         cfg.CloneBaseDelay,
		MessageLimit:      cfg.CloneMessageLimit,
		Policy:            policy,
		AllowSharedTarget: cfg.CloneAllowSharedTarget,
	}, hub, metrics.NewSink(reg), events.NewLogSink(slog.Default()))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewAppValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(middleware.RequestID())
	e.Use(handler.RequestLogger("/health", "/metrics"))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType, "X-Discord-Token"},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return handler.JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	handler.Routes{
		Auth:    handler.NewAuthHandler(authSvc),
		Clones:  handler.NewCloneHandler(cloneSvc, hub, cfg.FrontendURL),
		Protect: handler.JWTAuth(authSvc),
	}.Register(e)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     e,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cloneSvc.Shutdown(ctx); err != nil {
		slog.Warn("clone jobs did not stop in time", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
