package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/marwamagdy-create/DEPI/cli"
	"github.com/marwamagdy-create/DEPI/config"
	"github.com/marwamagdy-create/DEPI/logging"
	"github.com/marwamagdy-create/DEPI/ml"
	"github.com/marwamagdy-create/DEPI/registry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		if errors.Is(err, cli.ErrAborted) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// keep the prompt screen clean
	cfg.Log.Format = "console"
	cfg.Log.Level = "error"
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver, closeRegistry, err := registry.Open(cfg.Registry)
	if err != nil {
		return err
	}
	defer closeRegistry()

	model, err := ml.LoadModel(ctx, resolver, cfg.LoadOptions())
	if err != nil {
		logger.Error("load model", zap.String("artifact", cfg.Model.Artifact), zap.Error(err))
		if errors.Is(err, ml.ErrArtifactMissing) {
			return fmt.Errorf("model artifacts not found (model.artifact=%s): %w", cfg.Model.Artifact, err)
		}
		return err
	}

	predictor, err := ml.NewPredictor(model, cfg.Model.Naming)
	if err != nil {
		return err
	}
	form, err := cli.NewForm(cli.NewSurveyDriver(os.Stdout), predictor)
	if err != nil {
		return err
	}
	return form.Run(ctx)
}
