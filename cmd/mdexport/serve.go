package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alnah/go-mdexport/internal/server"
)

// runServe runs the HTTP adapter until ctx is cancelled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if len(positional) > 0 {
		return fmt.Errorf("%w: serve takes no arguments, got %q", ErrUsage, positional[0])
	}

	cfg, err := loadConfig(flags.common.config)
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.rateLimit != rateLimitUnset {
		cfg.Server.RateLimit = flags.rateLimit
	}
	if err := mergeEngineFlags(&flags.engine, cfg); err != nil {
		return err
	}

	// A server never exports outside a root; default to the working directory.
	if cfg.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
		cfg.Root = wd
	}

	logger := newLogger(env.Stderr, flags.common.verbose, flags.common.quiet, slog.LevelInfo)

	svc, err := env.NewService(cfg.Workers, exporterOptions(cfg, logger)...)
	if err != nil {
		return withHint(err, cfg)
	}
	defer func() { _ = svc.Close() }()

	srv := server.New(svc, server.Config{
		Addr:       cfg.Server.Addr,
		Root:       cfg.Root,
		RateLimit:  cfg.Server.RateLimit,
		RateWindow: cfg.Server.RateWindow,
		Version:    Version,
		Logger:     logger,
	})

	if !flags.common.quiet {
		fmt.Fprintf(env.Stderr, "Serving %s on http://%s\n", cfg.Root, cfg.Server.Addr)
	}
	return srv.ListenAndServe(ctx)
}
