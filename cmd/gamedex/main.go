package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gamedex/internal/config"
)

const usage = `usage: gamedex [-config path] <command> [args]

commands:
  listing <trending|last30|best|platform> [-id N] [-pages N]
  search <query> [-pages N]
  favorites <list|add|remove> [slug|id]
  searches <list|save|delete> [query|id]
  profile <get|set> [-email E] [-name N] [-photo path]
  platforms
  sync
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	a, err := newApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.run(ctx, flag.Args()); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("command failed", "command", flag.Arg(0), "error", err)
		a.Close()
		os.Exit(1)
	}
}

// setupLogger writes JSON logs to stderr so command output on stdout stays clean.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}
