package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"voucherdesk/internal/terminal"
	"voucherdesk/internal/voucher"
	"voucherdesk/pkg/config"
	"voucherdesk/pkg/formdef"
)

const ServiceName = "voucher-cli"

func main() {
	// stdout belongs to the prompts.
	cfg := config.LoadTo(ServiceName, os.Stderr)

	def, err := formdef.Load(cfg.FormDefinitionFile, voucher.Fields)
	if err != nil {
		cfg.Log.Fatal("Failed to load form definition", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := voucher.NewController(cfg.Client.Voucher, cfg.Log)
	screen := voucher.NewScreen(controller, nil, cfg.Log)
	defer screen.Close()

	runner := terminal.NewRunner(screen, def, terminal.NewSurveyDriver(os.Stdout), cfg.Log)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, terminal.ErrAborted) && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Voucher prompt failed", "error", err)
		os.Exit(1)
	}
}
