package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ammclob/config"
	"ammclob/internal/service"
	"ammclob/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// viper config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.Start(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start service", zap.Error(err))
	}

	if err := svc.Run(ctx); err != nil {
		log.Error("service stopped with error", zap.Error(err))
		return
	}
	log.Info("shutdown complete")
}
