package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/marwamagdy-create/DEPI/config"
	dhttp "github.com/marwamagdy-create/DEPI/http"
	"github.com/marwamagdy-create/DEPI/logging"
	"github.com/marwamagdy-create/DEPI/ml"
	"github.com/marwamagdy-create/DEPI/registry"
)

const usage = `usage: modelctl <command> [flags]

commands:
  publish   register model, scaler and column files as a new version
  promote   move a version into a stage
  list      show the versions of a model
  serve     expose the registry over HTTP
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "publish":
		err = publish(ctx, os.Args[2:], os.Stdout)
	case "promote":
		err = promote(ctx, os.Args[2:], os.Stdout)
	case "list":
		err = list(ctx, os.Args[2:], os.Stdout)
	case "serve":
		err = serve(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "modelctl:", err)
		os.Exit(1)
	}
}

func publish(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	dbPath := fs.String("db", "data/registry.db", "registry database")
	name := fs.String("name", "diabetes", "model name")
	stage := fs.String("stage", registry.StageNone, "stage for the new version")
	modelPath := fs.String("model", "models/diabetes_model.json", "model artifact file")
	scalerPath := fs.String("scaler", "", "scaler artifact file")
	columnsPath := fs.String("columns", "", "column list file")
	schemaSource := fs.String("schema-source", string(ml.SchemaFromColumns), "schema source used to check the files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	source, err := ml.ParseSchemaSource(*schemaSource)
	if err != nil {
		return err
	}
	// the files must load together before they are registered
	if _, err := ml.LoadModel(ctx, registry.LocalFiles{}, ml.LoadOptions{
		Artifact:     *modelPath,
		Scaler:       *scalerPath,
		Columns:      *columnsPath,
		SchemaSource: source,
	}); err != nil {
		return fmt.Errorf("check artifacts: %w", err)
	}

	artifacts := make(map[string][]byte)
	for artifact, path := range map[string]string{
		registry.ArtifactModel:   *modelPath,
		registry.ArtifactScaler:  *scalerPath,
		registry.ArtifactColumns: *columnsPath,
	} {
		if path == "" {
			continue
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		artifacts[artifact] = payload
	}

	store, err := registry.OpenSQLite(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	version, err := store.Publish(ctx, *name, *stage, artifacts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "published %s version %d (%s)\n", *name, version, *stage)
	return nil
}

func promote(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	dbPath := fs.String("db", "data/registry.db", "registry database")
	name := fs.String("name", "diabetes", "model name")
	version := fs.Int("version", 0, "version to promote")
	stage := fs.String("stage", registry.StageProduction, "target stage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version <= 0 {
		return errors.New("-version is required")
	}
	switch *stage {
	case registry.StageNone, registry.StageStaging, registry.StageProduction, registry.StageArchived:
	default:
		return fmt.Errorf("unknown stage %q", *stage)
	}

	store, err := registry.OpenSQLite(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Promote(ctx, *name, *version, *stage); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s version %d is now %s\n", *name, *version, *stage)
	return nil
}

func list(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	dbPath := fs.String("db", "data/registry.db", "registry database")
	name := fs.String("name", "diabetes", "model name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := registry.OpenSQLite(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	versions, err := store.List(ctx, *name)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTAGE\tARTIFACTS\tCREATED")
	for _, v := range versions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.Version, v.Stage, strings.Join(v.Artifacts, ","), v.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML config file")
	dbPath := fs.String("db", "data/registry.db", "registry database")
	addr := fs.String("addr", ":8600", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logConfig := config.Default().Log
	if cfg, err := config.Load(*configPath); err == nil {
		logConfig = cfg.Log
	}
	logger, err := logging.New(logConfig)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := registry.OpenSQLite(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	chain := dhttp.Chain(
		dhttp.RecoveryMiddleware(logger),
		dhttp.LoggerMiddleware(logger),
		dhttp.SecurityHeadersMiddleware,
	)
	server := &http.Server{
		Addr:              *addr,
		Handler:           chain(registry.NewHandler(store)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving model registry", zap.String("addr", *addr), zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
