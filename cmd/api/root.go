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

	"github.com/spf13/cobra"

	"github.com/ThePyWizard/subgenie/internal/api"
	"github.com/ThePyWizard/subgenie/internal/api/middleware"
	"github.com/ThePyWizard/subgenie/internal/cache"
	"github.com/ThePyWizard/subgenie/internal/config"
	"github.com/ThePyWizard/subgenie/internal/llm"
	"github.com/ThePyWizard/subgenie/internal/logging"
	"github.com/ThePyWizard/subgenie/internal/multimodal/stt"
	"github.com/ThePyWizard/subgenie/internal/transcription"
	"github.com/ThePyWizard/subgenie/internal/translate"
)

type serveFlags struct {
	host     string
	port     int
	envFiles []string
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(serve)
}

func newRootCommandWith(run func(context.Context, *config.Config) error) *cobra.Command {
	var flags serveFlags

	rootCmd := &cobra.Command{
		Use:           "subgenie",
		Short:         "Transcribe, subtitle and translate uploaded audio over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	rootCmd.Flags().StringVar(&flags.host, "host", "", "Interface to listen on (overrides SERVER_HOST)")
	rootCmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Port to listen on (overrides SERVER_PORT)")
	rootCmd.Flags().StringArrayVar(&flags.envFiles, "env-file", nil, "Environment file to load; repeatable (default .env when present)")

	return rootCmd
}

// loadConfig reads the environment and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, flags serveFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.envFiles...)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flags.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flags.port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tmpl := cfg.Translation.PromptTemplate; tmpl != "" {
		if err := translate.ValidateTemplate(tmpl); err != nil {
			return nil, fmt.Errorf("invalid TRANSLATION_PROMPT: %w", err)
		}
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	sttProvider, err := stt.New(cfg.STT)
	if err != nil {
		return err
	}
	chat, err := llm.NewProvider(cfg.Translation)
	if err != nil {
		return err
	}
	translator := translate.NewTranslator(chat, cfg.Translation.Model, translate.WithPromptTemplate(cfg.Translation.PromptTemplate))

	svc := transcription.NewService(sttProvider, translator, transcription.ServiceConfig{
		UploadDir:          cfg.Upload.Dir,
		STTTimeout:         cfg.STT.Timeout,
		TranslationTimeout: cfg.Translation.Timeout,
	})

	deps := api.Deps{Service: svc, Backend: sttProvider.Name()}

	// Redis is optional; without it the limiter is per process.
	limiter, counter, closeLimiter := buildLimiter(ctx, cfg)
	defer closeLimiter()
	deps.Limiter = limiter
	if counter != nil {
		deps.Redis = counter
	}

	router := api.NewRouter(cfg, deps)
	handler := router.Setup()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.STT.Timeout + cfg.Translation.Timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting API server",
			"addr", cfg.Addr(),
			"stt_backend", sttProvider.Name(),
			"segments", sttProvider.SupportsSegments(),
			"translation_provider", chat.Name(),
			"translation_model", cfg.Translation.Model,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}

func buildLimiter(ctx context.Context, cfg *config.Config) (middleware.Limiter, *cache.Counter, func()) {
	memory := func() (middleware.Limiter, *cache.Counter, func()) {
		ml := middleware.NewMemoryLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		return ml, nil, ml.Close
	}
	if cfg.Redis.Addr == "" {
		return memory()
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := cache.NewClient(pingCtx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, rate limiting in memory", "error", err)
		return memory()
	}
	slog.Info("rate limiting via redis", "addr", cfg.Redis.Addr)
	counter := cache.NewCounter(rdb, "subgenie:ratelimit")
	return middleware.NewRedisLimiter(counter, cfg.RateLimit.Burst, time.Second), counter, func() { rdb.Close() }
}
