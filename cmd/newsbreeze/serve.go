package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/MrWong99/newsbreeze/internal/config"
	"github.com/MrWong99/newsbreeze/internal/health"
	"github.com/MrWong99/newsbreeze/internal/httpapi"
	"github.com/MrWong99/newsbreeze/internal/observe"
	"github.com/MrWong99/newsbreeze/internal/web"
)

const shutdownTimeout = 15 * time.Second

// writeMargin is the slack on top of the slowest provider path, left for
// encoding and sending the response.
const writeMargin = 15 * time.Second

// writeTimeout covers the slowest request the server answers: a speech chain
// that exhausts every TTS backend, or a headline fetch whose summaries exhaust
// every summarizer.
func writeTimeout(cfg *config.Config, svc *services) time.Duration {
	speech := chainBudget(len(svc.Synthesizer.Backends()), cfg.TTS.Timeout)
	headlines := cfg.News.Timeout + chainBudget(len(svc.Summarizer.Backends()), cfg.Summarize.Timeout)
	return max(speech, headlines) + writeMargin
}

func chainBudget(backends int, perAttempt time.Duration) time.Duration {
	return time.Duration(max(backends, 1)) * perAttempt
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the NewsBreeze API and web UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("newsbreeze starting",
		"version", version,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"news_source", cfg.News.Source,
	)

	// ── Sentry ────────────────────────────────────────────────────────────────
	if cfg.Server.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Server.SentryDSN,
			Environment:      cfg.Server.Environment,
			Release:          "newsbreeze@" + version,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		})
		if err != nil {
			slog.Warn("sentry init failed", "err", err)
		} else {
			slog.Info("sentry initialized")
			defer sentry.Flush(2 * time.Second)
		}
	}

	// ── Telemetry ─────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "newsbreeze",
		ServiceVersion: version,
		Environment:    cfg.Server.Environment,
		Registry:       reg,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	registry := config.NewRegistry()
	registerBuiltinProviders(registry)
	svc, err := buildServices(cfg, registry, metrics)
	if err != nil {
		if cfg.Server.SentryDSN != "" {
			sentry.CaptureException(err)
		}
		return err
	}

	ui, err := web.Handler(web.Options{
		APIBaseURL:    cfg.Server.APIURL,
		MinAudioBytes: cfg.TTS.MinAudioBytes,
		AutoFallback:  cfg.UI.AutoFallback,
	})
	if err != nil {
		return fmt.Errorf("build web ui: %w", err)
	}

	handler := httpapi.NewRouter(httpapi.Config{
		News:           svc.Aggregator,
		Speech:         svc.Synthesizer,
		Health:         health.New(svc.Checkers...),
		UI:             ui,
		Metrics:        observe.MetricsHandler(reg),
		Observe:        metrics,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxTextRunes:   cfg.Server.MaxTextRunes,
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout(cfg, svc),
		IdleTimeout:       2 * time.Minute,
	}

	printStartupSummary(cfg, svc)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("goodbye")
	return nil
}
