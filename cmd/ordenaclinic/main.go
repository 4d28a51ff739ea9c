package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ordenaclinic/ordenaclinic/internal/config"
	"github.com/ordenaclinic/ordenaclinic/internal/domain/triage"
	"github.com/ordenaclinic/ordenaclinic/internal/platform/middleware"
	"github.com/ordenaclinic/ordenaclinic/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ordenaclinic",
		Short:        "Triage queue ordering for clinic waiting rooms",
		SilenceUsage: true,
		Version:      version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(sortCmd())
	rootCmd.AddCommand(intakeCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the triage queue API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w})
	} else {
		logger = zerolog.New(w)
	}
	return logger.Level(cfg.Level()).With().Timestamp().Logger()
}

// loadExample reads the EXAMPLE_FILE override, if any.
func loadExample(cfg *config.Config) (*triage.Dataset, error) {
	if cfg.ExampleFile == "" {
		return nil, nil
	}
	ds, err := triage.LoadDatasetFile(cfg.ExampleFile)
	if err != nil {
		return nil, fmt.Errorf("load example dataset: %w", err)
	}
	return ds, nil
}

type server struct {
	echo     *echo.Echo
	sessions *triage.SessionStore
	hub      *websocket.Hub
}

func newServer(cfg *config.Config, logger zerolog.Logger) (*server, error) {
	example, err := loadExample(cfg)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Content-Type", middleware.RequestIDHeader, triage.SessionHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, triage.SessionHeader},
	}))

	hub := websocket.NewHub(logger)
	sessions := triage.NewSessionStore(triage.SessionConfig{
		TTL:         cfg.SessionTTL,
		MaxSessions: cfg.MaxSessions,
	}, logger)
	sessions.SetPublisher(hub)
	if example != nil {
		sessions.SetExample(example)
	}

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "ok",
			"version":  version,
			"sessions": sessions.Len(),
			"clients":  hub.ClientCount(),
		})
	})

	triage.NewHandler(sessions).RegisterRoutes(apiV1)
	websocket.NewHandler(hub).RegisterRoutes(e)

	return &server{echo: e, sessions: sessions, hub: hub}, nil
}

// sweepSessions expires idle queue sessions until ctx is done.
func sweepSessions(ctx context.Context, sessions *triage.SessionStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep()
		}
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl < 2*time.Minute {
		return ttl / 2
	}
	return time.Minute
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stdout, cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	srv, err := newServer(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build server")
		return err
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepSessions(sweepCtx, srv.sessions, sweepInterval(cfg.SessionTTL))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
