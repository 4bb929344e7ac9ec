package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"watchpost/internal/daemon"
	"watchpost/internal/logging"
)

func runDaemon(parent context.Context, ctx *commandContext, recordOnly bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}

	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, daemon.Options{RecordOnly: recordOnly})
	if err != nil {
		logging.NewStderr(cfg.LevelFor("")).Error("daemon init failed", logging.Error(err))
		return fmt.Errorf("create daemon: %w", err)
	}
	return d.Run(signalCtx)
}
