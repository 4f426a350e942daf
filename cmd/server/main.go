// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Corphon/DLLArchitect/internal/app"
	"github.com/Corphon/DLLArchitect/internal/config"
	"github.com/Corphon/DLLArchitect/internal/utils"
)

func main() {
	configDir := flag.String("config", ".", "directory holding config.yaml")
	flag.Parse()

	// 1. load configuration
	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// 2. logger
	if err := utils.InitLogger(utils.LogOptions{
		Dir:        cfg.Log.Dir,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	logger := utils.GetLogger()
	defer logger.Sync()

	// 3. a missing key is not fatal; the UI shows setup instructions
	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrMissingAPIKey) {
			logger.Fatal("invalid configuration", map[string]interface{}{"error": err.Error()})
		}
		logger.Warn("GEMINI_API_KEY is not set; generation is disabled until it is configured", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. services and routes
	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("init application", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("services initialised", map[string]interface{}{
		"services": application.Container().GetNames(),
		"port":     cfg.Server.Port,
	})

	// 5. serve until interrupted
	if err := application.Run(ctx); err != nil {
		logger.Error("server stopped with error", map[string]interface{}{"error": err.Error()})
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("server stopped", nil)
}
