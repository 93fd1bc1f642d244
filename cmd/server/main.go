package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gyaneshwarpardhi/flatten/internal/api"
	"github.com/gyaneshwarpardhi/flatten/internal/config"
	"github.com/gyaneshwarpardhi/flatten/internal/engine"
	"github.com/gyaneshwarpardhi/flatten/internal/event"
	"github.com/gyaneshwarpardhi/flatten/internal/flatten"
	"github.com/gyaneshwarpardhi/flatten/internal/sink"
	"github.com/gyaneshwarpardhi/flatten/internal/source"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/flatten.yaml", "Path to flatten YAML config")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	tr, err := cfg.Flatten.Transform(logger)
	if err != nil {
		if errors.Is(err, flatten.ErrConfig) {
			slog.Error("invalid flatten config", "err", err)
		} else {
			slog.Error("failed to build transform", "err", err)
		}
		os.Exit(1)
	}
	slog.Info("transform ready",
		"key", cfg.Flatten.Key,
		"inner_key", tr.Config().InnerKey,
		"parse_json", tr.Config().ParseJSON,
		"tag_rules", cfg.Flatten.Rules.Count())

	// ── Output ────────────────────────────────────────────────────────────────
	var (
		out   event.Emitter
		outNC *nats.Conn
	)
	switch cfg.Output.Type {
	case config.OutputNATS:
		outNC, err = nats.Connect(cfg.Output.NATSURL, nats.Name("flatten-output"))
		if err != nil {
			slog.Error("failed to connect output NATS", "url", cfg.Output.NATSURL, "err", err)
			os.Exit(1)
		}
		out = sink.NewNATSEmitter(outNC, cfg.Output.SubjectPrefix, logger)
	default:
		out = sink.NewStdoutEmitter(os.Stdout, logger)
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(ctx, tr, out, cfg.Engine, logger)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	// The loader only publishes configs that passed validation.
	loader.OnChange(func(newCfg *config.Config) {
		next, err := newCfg.Flatten.Transform(logger)
		if err != nil {
			slog.Warn("hot-reload skipped: transform build failed", "err", err)
			return
		}
		eng.SwapTransform(next)
		slog.Info("transform hot-reloaded", "version", newCfg.Version, "key", newCfg.Flatten.Key)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── NATS input ────────────────────────────────────────────────────────────
	var (
		src  *source.NATSSource
		inNC *nats.Conn
	)
	if in := cfg.Input.NATS; in != nil {
		inNC, err = nats.Connect(in.URL, nats.Name("flatten-input"))
		if err != nil {
			slog.Error("failed to connect input NATS", "url", in.URL, "err", err)
			os.Exit(1)
		}
		src = source.NewNATSSource(inNC, in.Subjects, eng, logger)
		if err := src.Start(); err != nil {
			slog.Error("failed to start NATS source", "err", err)
			os.Exit(1)
		}
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.New(eng, loader, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	if src != nil {
		src.Stop()
	}
	if inNC != nil {
		_ = inNC.Drain()
	}
	eng.Shutdown() // drains queued batches
	cancel()
	if outNC != nil {
		if err := outNC.Flush(); err != nil {
			slog.Warn("output flush failed", "err", err)
		}
		outNC.Close()
	}
	slog.Info("goodbye")
}
