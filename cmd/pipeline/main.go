package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"weather-etl/internal/accuweather"
	"weather-etl/internal/config"
	"weather-etl/internal/notify"
	"weather-etl/internal/pipeline"
	"weather-etl/internal/repository"
	"weather-etl/internal/services"
	"weather-etl/pkg/database"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

const version = "1.0.0"

func main() {
	pipelinePath := flag.String("pipeline", "configs/accuweather.yaml", "Path to the pipeline YAML file")
	flag.Parse()

	os.Exit(run(*pipelinePath))
}

func run(pipelinePath string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	p, err := config.LoadPipeline(pipelinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load pipeline: %v\n", err)
		return 1
	}

	logger := logging.NewStructuredLogger("weather-etl-pipeline", version, logging.ParseLevel(cfg.LogLevel))

	ctx := context.Background()
	logger.Info(ctx, "[PIPELINE_STARTUP] Starting weather ETL", logging.Fields{
		"version":     version,
		"pipeline":    p.Name,
		"config_file": pipelinePath,
		"db_host":     cfg.Database.Host,
		"db_name":     cfg.Database.Name,
		"environment": cfg.Environment,
	})

	registry := prometheus.NewRegistry()
	metricsCollector := metrics.NewCollector("weather_etl", registry)

	db, err := database.NewPostgresDB(cfg.Database.ToDatabase(), logger, metricsCollector)
	if err != nil {
		logger.Error(ctx, "[PIPELINE_STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		return 1
	}
	defer db.Close()

	client, err := accuweather.NewClient(cfg.APIKey, logger, metricsCollector,
		accuweather.WithBaseURL(cfg.APIBaseURL),
		accuweather.WithTimeout(cfg.APITimeout),
	)
	if err != nil {
		logger.Error(ctx, "[PIPELINE_STARTUP_ERROR] Failed to create API client", logging.Fields{}, err)
		return 1
	}

	conn := repository.NewConnector(db, logger, metricsCollector, p.Config.BatchSize)

	driver := pipeline.New(p, pipeline.Dependencies{
		Ingester:    services.NewIngestionService(client, conn, logger),
		Transformer: services.NewTransformService(conn, logger, metricsCollector),
		Runs:        repository.NewRunLogRepository(conn, db, p.LogTableName(), logger),
		Notifier:    notify.New(cfg.Redis, logger),
		Logger:      logger,
		Metrics:     metricsCollector,
	})
	defer driver.Close()

	result, runErr := driver.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, p.Name, registry); err != nil {
			logger.Warn(ctx, "[PIPELINE_METRICS_PUSH_ERROR] Failed to push metrics", logging.Fields{
				"gateway": cfg.PushgatewayURL,
				"error":   err.Error(),
			})
		}
		cancel()
	}

	printSummary(result, runErr)
	if runErr != nil {
		return 1
	}
	return 0
}

func printSummary(result *pipeline.Result, runErr error) {
	fmt.Println(strings.Repeat("=", 80))
	if runErr != nil {
		fmt.Println("PIPELINE FAILED")
	} else {
		fmt.Println("PIPELINE COMPLETE")
	}
	fmt.Println(strings.Repeat("=", 80))

	if result == nil {
		fmt.Printf("Error:              %v\n", runErr)
		return
	}

	fmt.Printf("Run ID:             %s\n", result.RunID)
	fmt.Printf("Status:             %s\n", result.Status)
	fmt.Printf("Duration:           %v\n", result.Duration)
	if result.Forecast != nil {
		fmt.Printf("Forecast Rows:      %d -> %s\n", result.Forecast.Upserted, result.Forecast.Table)
	}
	if result.Current != nil {
		fmt.Printf("Current Rows:       %d -> %s\n", result.Current.Upserted, result.Current.Table)
	}
	for _, tr := range append(result.ForecastTemplates, result.CurrentTemplates...) {
		state := string(tr.State)
		if tr.Skipped {
			state = "skipped"
		}
		fmt.Printf("Template %-20s %s (%d rows)\n", tr.Template, state, tr.Rows)
	}
	if result.LogPath != "" {
		fmt.Printf("Log File:           %s\n", result.LogPath)
	}
	if runErr != nil {
		fmt.Printf("Error:              %v\n", runErr)
	}
}
