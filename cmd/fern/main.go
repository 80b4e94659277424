// fern links incoming CRM batches against reference account and contact
// corpora. It runs either as an HTTP service (serve) or as a one-shot
// batch job (batch).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gobusters/ectologger"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/database"
	accountrepo "github.com/Ramsey-B/fern/internal/repositories/account"
	contactrepo "github.com/Ramsey-B/fern/internal/repositories/contact"
	"github.com/Ramsey-B/fern/pkg/linkage"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/modelcache"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	linkageroute "github.com/Ramsey-B/fern/pkg/routes/linkage"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	mode := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		mode = args[0]
		args = args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, sync := newLogger(cfg)
	defer sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		tracing.SetTracer(tp.Tracer(cfg.AppName))
		defer tp.Shutdown(context.Background())
	}

	switch mode {
	case "serve":
		err = serve(ctx, logger, cfg)
	case "batch":
		err = batch(ctx, logger, cfg, args)
	default:
		err = fmt.Errorf("unknown mode %q (expected serve or batch)", mode)
	}
	if err != nil {
		logger.WithError(err).Error("fern exited with error")
		os.Exit(1)
	}
}

// newLogger builds the structured logger, sinking every entry through zap.
func newLogger(cfg *config.Config) (ectologger.Logger, func()) {
	var zlog *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		zlog.Info("log", zap.Any("entry", msg))
	})
	return logger, func() { _ = zlog.Sync() }
}

// buildPipeline loads configuration and corpora and assembles the linkage
// pipeline shared by both modes.
func buildPipeline(ctx context.Context, logger ectologger.Logger, cfg *config.Config) (*linkage.Pipeline, database.DB, error) {
	accountCfg, contactCfg, blockCfg, err := config.LoadScoring(cfg.ScoringConfigPath)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Connect(ctx, logger, cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}

	accounts := accountrepo.NewRepository(db, logger)
	contacts := contactrepo.NewRepository(db, logger)
	if err := accounts.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	if err := contacts.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	accountCorpus, err := accounts.Load(ctx)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	contactCorpus, err := contacts.Load(ctx)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if contactCorpus.Len() == 0 {
		logger.Warn("Contact corpus is empty; contact pass and email joins are disabled")
		contactCorpus = nil
	}

	var cache *modelcache.Store
	if cfg.ModelCacheDir != "" {
		cache, err = modelcache.NewStore(cfg.ModelCacheDir, logger)
		if err != nil {
			logger.WithError(err).Warn("Model cache unavailable; fitting indexes fresh")
			cache = nil
		}
	}

	pipeline, err := linkage.NewPipeline(logger, accountCorpus, contactCorpus, cache, linkage.Config{
		Account:  accountCfg,
		Contact:  contactCfg,
		Blocking: blockCfg,
	})
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return pipeline, db, nil
}

func serve(ctx context.Context, logger ectologger.Logger, cfg *config.Config) error {
	pipeline, db, err := buildPipeline(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	checker := health.NewChecker(db, version)
	checker.RegisterRoutes(e)
	linkageroute.NewHandler(logger, pipeline).RegisterRoutes(e)

	e.Server.ReadTimeout = cfg.HTTPServerReadTimeout
	e.Server.WriteTimeout = cfg.HTTPServerWriteTimeout
	e.Server.IdleTimeout = cfg.HTTPServerIdleTimeout

	checker.SetReady(true)

	errc := make(chan error, 1)
	go func() {
		errc <- e.Start(fmt.Sprintf(":%d", cfg.Port))
	}()
	logger.WithField("port", cfg.Port).Info("fern listening")

	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServerWriteTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func batch(ctx context.Context, logger ectologger.Logger, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	input := fs.String("input", "", "path to a JSON array of query records (default stdin)")
	output := fs.String("output", "", "path for the JSON run report (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := readRecords(*input)
	if err != nil {
		return err
	}

	pipeline, db, err := buildPipeline(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := pipeline.Run(ctx, records)
	if err != nil {
		return err
	}

	logger.WithFields(map[string]any{
		"run_id":        report.RunID,
		"record_count":  len(records),
		"manual_review": len(report.Account.ManualReview),
	}).Info("Batch run complete")

	return writeReport(*output, report)
}

func readRecords(path string) ([]models.Record, error) {
	var raw []byte
	var err error
	if path == "" {
		raw, err = readAllStdin()
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read query records: %w", err)
	}

	var records []models.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse query records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no query records provided")
	}
	return records, nil
}

func readAllStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err == nil && info.Mode()&os.ModeCharDevice != 0 {
		return nil, fmt.Errorf("no -input file and nothing piped on stdin")
	}
	return io.ReadAll(os.Stdin)
}

func writeReport(path string, report *linkage.RunReport) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err = os.Stdout.Write(append(raw, '\n'))
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
