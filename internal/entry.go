// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/govcal/internal/api"
	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/linebot"
	"github.com/starford/govcal/internal/mcpserver"
	"github.com/starford/govcal/internal/pipeline"
	"github.com/starford/govcal/internal/sse"
	"github.com/starford/govcal/internal/vision"
)

const sseKeepAlive = 30 * time.Second

// services are the collaborators shared by every front door.
type services struct {
	prompt *vision.Prompt
	orch   *pipeline.Orchestrator
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("failure_policy", cfg.Calendar.FailurePolicy),
		slog.Bool("line_enabled", cfg.LINE.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(sseKeepAlive)

	svc, err := app.services(ctx, logger, broker)
	if err != nil {
		broker.Close()
		return err
	}

	handler, err := app.router(svc, broker, logger)
	if err != nil {
		broker.Close()
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.OpenAI.PromptFile != "" {
		g.Go(func() error {
			return svc.prompt.Watch(gCtx, logger)
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Open event streams never finish on their own.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, app.config.App.LogLevel)
	slog.SetDefault(logger)

	svc, err := app.services(ctx, logger, nil)
	if err != nil {
		return err
	}

	if app.config.OpenAI.PromptFile != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := svc.prompt.Watch(watchCtx, logger); err != nil {
				logger.Error("prompt watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("Starting MCP server on stdio")
	return mcpserver.New(svc.orch, app.version).ServeStdio()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// services builds the prompt, the collaborators and the orchestrator. A nil
// notifier disables created-entry announcements.
func (a *application) services(ctx context.Context, logger *slog.Logger, notifier pipeline.Notifier) (*services, error) {
	cfg := a.config

	prompt, err := vision.NewPrompt(cfg.OpenAI.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("init prompt: %w", err)
	}

	extractor := a.extractor
	if extractor == nil {
		extractor, err = vision.NewOpenAI(vision.OpenAIConfig{
			APIKey:    cfg.OpenAI.APIKey,
			Model:     cfg.OpenAI.Model,
			BaseURL:   cfg.OpenAI.BaseURL,
			MaxTokens: cfg.OpenAI.MaxTokens,
		}, prompt)
		if err != nil {
			return nil, fmt.Errorf("init vision: %w", err)
		}
	}

	creator := a.creator
	if creator == nil {
		creator, err = calendar.NewGoogle(ctx, cfg.Google.Calendar())
		if err != nil {
			return nil, fmt.Errorf("init calendar: %w", err)
		}
	}

	materializer := calendar.NewMaterializer(creator, calendar.Policy(cfg.Calendar.FailurePolicy), logger)

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMaxBytes(cfg.Upload.MaxBytes),
	}
	if notifier != nil {
		opts = append(opts, pipeline.WithNotifier(notifier))
	}

	return &services{
		prompt: prompt,
		orch:   pipeline.New(extractor, materializer, opts...),
	}, nil
}

func (a *application) router(svc *services, broker *sse.Broker, logger *slog.Logger) (http.Handler, error) {
	cfg := a.config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	auth := api.AuthConfig{
		Enabled:    cfg.Auth.AuthEnabled(),
		Passkey:    cfg.Auth.Passkey,
		CookieName: cfg.Auth.CookieName,
		MaxAge:     cfg.Auth.CookieMaxAge,
		Secure:     cfg.Auth.SecureCookie,
	}
	r.Mount("/api", api.NewRouter(svc.orch, auth, broker))

	if cfg.LINE.Enabled {
		replier, fetcher := a.replier, a.fetcher
		if replier == nil || fetcher == nil {
			client, err := linebot.NewClient(linebot.ClientConfig{ChannelAccessToken: cfg.LINE.ChannelAccessToken})
			if err != nil {
				return nil, fmt.Errorf("init line: %w", err)
			}
			replier, fetcher = client, client
		}
		r.Post("/webhook/line", linebot.NewHandler(cfg.LINE.ChannelSecret, svc.orch, replier, fetcher, logger).ServeHTTP)
	}

	return r, nil
}
