package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/vmorsell/microrail-remote/internal/config"
	"github.com/vmorsell/microrail-remote/internal/devicesim"
	"github.com/vmorsell/microrail-remote/internal/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(config.Flags("microrail-sim"), os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := devicesim.NewServer(logger, devicesim.NewDevice(), devicesim.DefaultTickInterval)
	go sim.Run(ctx)

	server := &http.Server{
		Addr:         cfg.SimListen,
		Handler:      sim.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("device simulator started", zap.String("addr", cfg.SimListen))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down simulator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
