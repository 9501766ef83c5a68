package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"energy-tracker/internal/notify"
	"energy-tracker/internal/observability/metrics"
	"energy-tracker/internal/report"
	"energy-tracker/internal/series/application"
	series "energy-tracker/internal/series/domain"
	"energy-tracker/internal/series/infrastructure/memory"
	"energy-tracker/internal/series/infrastructure/postgres"
	"energy-tracker/internal/series/interfaces"
	settlement "energy-tracker/internal/settlement/domain"
	"energy-tracker/internal/staging"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Printf("dotenv load error: %v", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	logger.Printf("config: staging_dir=%s s3_bucket=%s s3_access_key=%s dry_run=%t",
		cfg.StagingDir, cfg.S3.Bucket, obscure(cfg.S3.AccessKey), cfg.DryRun)
	os.Exit(run(cfg, logger))
}

func run(cfg config, logger *log.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
	defer cancel()
	clock := settlement.SystemClock{}
	logger.Printf("run starting: settlement_period=%d previous_period=%d",
		settlement.CurrentPeriod(clock, false), settlement.CurrentPeriod(clock, true))

	source, err := buildSource(cfg)
	if err != nil {
		logger.Printf("staging source error: %v", err)
		return 1
	}
	collector, err := staging.NewCollector(source,
		staging.WithCollectorLogger(logger),
		staging.WithDeleteAfterRead(!cfg.KeepStaged),
	)
	if err != nil {
		logger.Printf("staging collector error: %v", err)
		return 1
	}
	raws, err := collector.Collect(ctx)
	if err != nil {
		logger.Printf("staging collect error: %v", err)
		return 1
	}

	runMetrics := metrics.New()
	metricsObserver := interfaces.NewMetricsObserver(runMetrics)
	observers := []series.LoadObserver{interfaces.NewLoggingObserver(logger), metricsObserver}

	loader, closeLoader, err := buildLoader(ctx, cfg, logger, observers)
	if err != nil {
		logger.Printf("loader error: %v", err)
		return 1
	}
	defer closeLoader()

	pipeline, err := application.NewPipeline(loader,
		application.WithReconciler(application.NewReconciler(application.WithPriorDayPeriods(cfg.PriorDayPeriods...))),
		application.WithMetrics(runMetrics),
		application.WithLogger(logger),
		application.WithClock(clock),
	)
	if err != nil {
		logger.Printf("pipeline error: %v", err)
		return 1
	}
	result, loadErr := pipeline.Run(ctx, raws)
	metricsObserver.RecordFailures(result.Load)

	var reports []string
	if cfg.ReportDir != "" {
		reports, err = report.WriteRunReport(cfg.ReportDir, result)
		if err != nil {
			logger.Printf("run report error: run=%s err=%v", result.RunID, err)
		}
	}
	if cfg.WebhookURL != "" {
		notifier := notify.NewWebhookNotifier(cfg.WebhookURL, notify.WithSecret(cfg.WebhookSecret))
		if err := notifier.Notify(ctx, notify.MessageFromRun(result, reports)); err != nil {
			logger.Printf("run notify error: run=%s err=%v", result.RunID, err)
		}
	}
	if cfg.PushgatewayURL != "" {
		grouping := map[string]string{"instance": hostname()}
		if err := runMetrics.Push(ctx, cfg.PushgatewayURL, "energy_pipeline", grouping); err != nil {
			logger.Printf("metrics push error: run=%s err=%v", result.RunID, err)
		}
	}

	if loadErr != nil {
		logger.Printf("pipeline load error: run=%s err=%v", result.RunID, loadErr)
		return 1
	}
	collector.Cleanup(ctx)
	return 0
}

func buildSource(cfg config) (staging.Source, error) {
	if cfg.S3.Bucket != "" {
		return staging.NewS3Source(staging.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
	}
	return staging.NewLocalSource(cfg.StagingDir)
}

// buildLoader opens one database connection for the run. Dry runs load into
// an in-memory store.
func buildLoader(ctx context.Context, cfg config, logger *log.Logger, observers []series.LoadObserver) (series.Loader, func(), error) {
	if cfg.DryRun {
		return memory.NewStore(observers...), func() {}, nil
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	closeFn := func() {
		_ = conn.Close()
		_ = db.Close()
	}
	opts := []postgres.LoaderOption{postgres.WithBatchSize(cfg.BatchSize), postgres.WithLogger(logger)}
	for _, observer := range observers {
		opts = append(opts, postgres.WithObserver(observer))
	}
	loader, err := postgres.NewLoader(conn, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return loader, closeFn, nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}
