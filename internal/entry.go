// Package internal wires configuration, the event service and the HTTP
// server together and owns the process lifecycle.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/darvall/gistcal/internal/api"
	"github.com/darvall/gistcal/internal/eventservice"
	"github.com/darvall/gistcal/internal/inbox"
	"github.com/darvall/gistcal/internal/sse"
)

func newLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// buildRouter assembles the full HTTP surface: health probes, the
// authenticated API under /api and the open calendar feed.
func buildRouter(cfg *Config, svc *eventservice.Service, broker *sse.Broker) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// The feed and the JSON payloads compress well for subscribers that
	// poll frequently. The SSE stream stays uncompressed.
	r.Use(middleware.Compress(5, "application/json", "text/calendar"))

	r.Get("/health/live", healthHandler())
	r.Get("/health/ready", healthHandler())

	r.Mount("/api", api.NewRouter(svc, cfg.Auth.Enabled(), cfg.Auth.Token, broker))

	// Subscription clients cannot attach auth headers, so the feed itself
	// stays outside the token middleware.
	r.Get("/calendar.ics", api.CalendarHandler(svc))

	return r
}

// Run starts the server and blocks until the context is cancelled or a
// shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.cfg == nil {
		return fmt.Errorf("config is required")
	}
	cfg := s.cfg

	logger := newLogger(cfg.App.LogLevel.Level())

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.String("publish_mode", cfg.Publish.Mode),
		slog.String("log_level", cfg.App.LogLevel.Level().String()))

	svc, st, err := openService(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// The service reports calendar changes through the SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	svc.SetNotify(broker.PublishPipelineEvent)

	// Optional CSV drop directory.
	var drop *inbox.Dir
	if cfg.Ingest.Inbox != "" {
		if err := os.MkdirAll(cfg.Ingest.Inbox, 0o755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
		drop, err = inbox.New(cfg.Ingest.Inbox, svc, logger)
		if err != nil {
			return fmt.Errorf("init inbox: %w", err)
		}
		// Pick up files dropped while the server was down.
		if err := drop.Sweep(ctx); err != nil {
			logger.Warn("Initial inbox sweep failed", slog.String("error", err.Error()))
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           buildRouter(cfg, svc, broker),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Scheduled republish keeps the feed tracking the rolling window even
	// when no new imports arrive.
	var scheduler *cron.Cron
	if cfg.Publish.Enabled() && cfg.Publish.Refresh != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Publish.Refresh, func() {
			report, err := svc.PublishCalendar(ctx, time.Now())
			if err != nil {
				logger.Warn("Scheduled publish failed", slog.String("error", err.Error()))
				return
			}
			logger.Info("Scheduled publish complete",
				slog.String("raw_url", report.RawURL),
				slog.Int("events", report.Events),
				slog.Bool("skipped", report.Skipped))
		})
		if err != nil {
			return fmt.Errorf("schedule republish: %w", err)
		}
		scheduler.Start()
		logger.Info("Republish scheduled", slog.String("cron", cfg.Publish.Refresh))
	}

	g, gCtx := errgroup.WithContext(ctx)

	if drop != nil {
		g.Go(func() error {
			return drop.Watch(gCtx)
		})
	}

	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve on %s: %w", httpServer.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Shutdown signal received", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Run context cancelled, shutting down")
		}

		if scheduler != nil {
			scheduler.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
		}

		broker.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Pipeline exited with error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}
