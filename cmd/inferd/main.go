package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"inferd/internal/admission"
	"inferd/internal/artifact"
	"inferd/internal/config"
	"inferd/internal/dispatch"
	"inferd/internal/engine"
	"inferd/internal/health"
	"inferd/internal/httpapi"
)

func main() {
	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		cfgPath string
		addr    string
	)
	root := &cobra.Command{
		Use:           "inferd",
		Short:         "Single-model inference server with an OpenAI-compatible chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Acquire the model and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), &cfg)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (yaml, json or toml)")
	serve.Flags().StringVar(&addr, "addr", "", "HTTP listen address, overrides config")
	root.AddCommand(serve)
	return root
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

func run(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg.LogLevel)

	// Acquire and verify the model before anything listens. A fatal
	// acquisition error means we exit non-zero without serving a byte.
	guard, err := artifact.NewGuard(artifact.Options{
		Path:           cfg.ModelPath,
		URL:            cfg.ModelURL,
		ExpectedSHA256: cfg.ModelSHA256,
		Attempts:       cfg.DownloadAttempts,
		Backoff:        cfg.DownloadBackoff.Std(),
		AttemptTimeout: cfg.DownloadTimeout.Std(),
		Logger:         log,
	})
	if err != nil {
		return err
	}
	art, err := guard.Ensure(ctx)
	if err != nil {
		log.Error().Err(err).Msg("model acquisition failed")
		return err
	}
	log.Info().Str("path", art.Path).Str("sha256", art.SHA256).Msg("model ready")

	eng, err := engine.Open(art.Path, cfg.LlamaCtx, cfg.LlamaThreads)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	defer eng.Close()

	disp := dispatch.New(eng, cfg.Workers, cfg.QueueWait.Std(), cfg.GenerateTimeout.Std(), httpapi.PromRecorder{}, log)
	verifier := health.New(disp, cfg.ProbeTimeout.Std(), cfg.HealthCacheTTL.Std(), log)

	limiter := admission.NewWindowLimiter(cfg.RateLimit, cfg.RateWindow.Std())
	filter, err := admission.NewFilter(cfg.APIKey, limiter, admission.Limits{
		MaxMessages:    cfg.MaxMessages,
		MaxPromptChars: cfg.MaxPromptChars,
		MaxTokens:      cfg.MaxTokensLimit,
	}, cfg.InjectionPatterns)
	if err != nil {
		return fmt.Errorf("admission filter: %w", err)
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	if len(cfg.CORSOrigins) > 0 {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins)
	}

	mux := httpapi.NewMux(&httpapi.Coordinator{
		Filter:   filter,
		Dispatch: disp,
		Verifier: verifier,
		Model:    modelName(art.Path),
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Int("workers", disp.Width()).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	cancelBase() // in-flight generations stop at the next token boundary
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// modelName derives the served model identifier from the artifact filename.
func modelName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
