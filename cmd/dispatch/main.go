// Command dispatch is a terminal logistics assistant: a shipment dashboard,
// tracking lookups and a chat backed by IBM watsonx.ai or Google Gemini.
//
// Usage:
//
//	WATSONX_API_KEY=... WATSONX_PROJECT_ID=... dispatch [flags]
//	GEMINI_API_KEY=... dispatch -provider gemini [flags]
//
// Flags:
//
//	-config string        Path to TOML config file (default: ~/.dispatch/config.toml)
//	-provider string      Provider: watsonx, gemini (overrides config and DISPATCH_PROVIDER)
//	-system-prompt string System prompt (overrides config and DISPATCH_SYSTEM_PROMPT)
//	-log-file string      Log file path (default: ~/.dispatch/dispatch.log)
//	-metrics-addr string  Serve Prometheus metrics on this address, e.g. :9090
//
// A .env file in the working directory is loaded before the environment is
// read.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fwojciec/dispatch"
	bt "github.com/fwojciec/dispatch/bubbletea"
	"github.com/fwojciec/dispatch/config"
	"github.com/fwojciec/dispatch/logging"
	"github.com/fwojciec/dispatch/metrics"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dispatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = flag.String("config", defaultPath("config.toml"), "Path to TOML config file")
		providerFlag = flag.String("provider", "", "Provider: watsonx, gemini")
		promptFlag   = flag.String("system-prompt", "", "System prompt sent with every turn")
		logFile      = flag.String("log-file", "", "Log file path")
		metricsAddr  = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	)
	flag.Parse()

	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	// Env is read here and passed down as a lookup func.
	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		return err
	}
	applyFlags(cfg, *providerFlag, *promptFlag, *logFile, *metricsAddr)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer f.Close()
	logger := logging.New(cfg.Log.Level, f)

	var recorder *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		recorder = metrics.New(reg)
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		defer srv.Close()
	}

	tokens, gen, err := resolveBackend(ctx, cfg, recorder)
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	feed := bt.NewStateFeed(0)
	chat := dispatch.NewChat(tokens, gen,
		dispatch.WithSessionID(sessionID),
		dispatch.WithLogger(logger.Logger),
		dispatch.WithStateHandler(feed.Handle),
		dispatch.WithDecoding(cfg.Chat.DecodingParams()),
		dispatch.WithModeration(cfg.Chat.ModerationConfig()),
		dispatch.WithSanitizer(cfg.Chat.Sanitizer()),
	)
	logger.Info("session started", "session", sessionID, "provider", cfg.Provider)

	tuiModel := bt.New(chat, cfg.Chat.SystemPrompt, dispatch.DefaultTheme(), bt.WithStateFeed(feed))
	if err := bt.Run(ctx, tuiModel); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}
	logger.Info("session ended", "session", sessionID, "messages", len(chat.Transcript()))
	return nil
}

// applyFlags overrides cfg with non-empty flag values and fills the default
// log path.
func applyFlags(cfg *config.Config, provider, prompt, logFile, metricsAddr string) {
	if provider != "" {
		cfg.Provider = provider
	}
	if prompt != "" {
		cfg.Chat.SystemPrompt = prompt
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if cfg.Log.File == "" {
		cfg.Log.File = defaultPath("dispatch.log")
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".dispatch", name)
}
