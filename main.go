package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/marwamagdy-create/DEPI/config"
	dhttp "github.com/marwamagdy-create/DEPI/http"
	"github.com/marwamagdy-create/DEPI/logging"
	"github.com/marwamagdy-create/DEPI/ml"
	"github.com/marwamagdy-create/DEPI/registry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 3. Load the model once; it stays read-only for the life of the process
	resolver, closeRegistry, err := registry.Open(cfg.Registry)
	if err != nil {
		logger.Fatal("open model registry", zap.Error(err))
	}
	defer closeRegistry()

	ctx := context.Background()
	model, err := ml.LoadModel(ctx, resolver, cfg.LoadOptions())
	if err != nil {
		if errors.Is(err, ml.ErrArtifactMissing) {
			logger.Fatal("model artifacts not found; check model.artifact, model.scaler and model.columns",
				zap.String("artifact", cfg.Model.Artifact), zap.Error(err))
		}
		logger.Fatal("load model", zap.Error(err))
	}
	logger.Info("model loaded",
		zap.String("source", model.Source()),
		zap.Int("columns", model.Schema().Len()),
		zap.Bool("probabilistic", model.Probabilistic()),
	)

	predictor, err := ml.NewPredictor(model, cfg.Model.Naming)
	if err != nil {
		logger.Fatal("build predictor", zap.Error(err))
	}

	// 4. Start HTTP server
	handler, err := dhttp.NewHandler(ctx, predictor, dhttp.HandlerOptions{
		Title:          cfg.Page.Title,
		Notice:         cfg.Page.Notice,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, logger)
	if err != nil {
		logger.Fatal("build handler", zap.Error(err))
	}
	server := dhttp.NewServer(dhttp.ServerConfig{
		Port:         cfg.HTTP.Port,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}, handler, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}
