package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/vmorsell/microrail-remote/internal/config"
	"github.com/vmorsell/microrail-remote/internal/link"
	"github.com/vmorsell/microrail-remote/internal/logging"
	"github.com/vmorsell/microrail-remote/internal/ratelimit"
	"github.com/vmorsell/microrail-remote/internal/remote"
	"github.com/vmorsell/microrail-remote/internal/telemetry"
	"github.com/vmorsell/microrail-remote/internal/ui"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.Flags("microrail-remote"), os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	fmt.Println("🚂 MicroRail Remote")
	fmt.Println("────────────────────────────")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []link.Option
	opts = append(opts, link.WithHandshakeTimeout(cfg.HandshakeTimeout))

	if cfg.MQTT.Broker != "" {
		client, err := telemetry.Dial(logger, cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			logger.Warn("status mirror disabled", zap.Error(err))
		} else {
			defer telemetry.Disconnect(client)
			mirror := telemetry.NewMirror(logger, client, cfg.MQTT.Topic)
			opts = append(opts, link.WithObserver(mirror.Publish))
		}
	}

	terminal := ui.NewTerminal(os.Stdout)
	l := link.New(logger, cfg.Endpoint, terminal, opts...)
	if err := l.Connect(ctx); err != nil {
		return err
	}
	defer l.Close()

	controller := remote.NewController(logger, l,
		ratelimit.NewRateLimiter(cfg.CommandRate, ratelimit.DefaultWindowSize))

	runErr := make(chan error, 1)
	go func() { runErr <- l.Run(ctx) }()

	keysDone := make(chan error, 1)
	go func() { keysDone <- controller.ReadKeys(ctx, os.Stdin) }()

	select {
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Println("\n[INFO] Connection closed, restart to reconnect")
	case err := <-keysDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("input failed", zap.Error(err))
		}
		fmt.Println("\n[INFO] Shutting down...")
	case <-ctx.Done():
		fmt.Println("\n[INFO] Shutting down...")
	}
	return nil
}
