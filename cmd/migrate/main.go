package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"weather-etl/internal/config"
	"weather-etl/internal/repository"
	"weather-etl/pkg/database"
	"weather-etl/pkg/logging"
	"weather-etl/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	pipelinePath := flag.String("pipeline", "configs/accuweather.yaml", "Pipeline YAML naming the tables")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Unknown direction %q, expected up or down\n", *direction)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	p, err := config.LoadPipeline(*pipelinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load pipeline: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("weather-etl-migrate", "1.0.0", logging.ParseLevel(cfg.LogLevel))
	metricsCollector := metrics.NewCollector("weather_etl", prometheus.NewRegistry())

	db, err := database.NewPostgresDB(cfg.Database.ToDatabase(), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully")

	conn := repository.NewConnector(db, logger, metricsCollector, p.Config.BatchSize)
	ctx := context.Background()

	for _, table := range declaredTables(p) {
		if *direction == "up" {
			err = conn.EnsureTable(ctx, table)
		} else {
			err = conn.DropTable(ctx, table)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", *direction, err)
			os.Exit(1)
		}
		fmt.Printf("%-4s %s\n", *direction, table.Name)
	}

	fmt.Println("Migration completed successfully")
}

func declaredTables(p *config.Pipeline) []repository.Table {
	tables := []repository.Table{
		repository.ForecastStagingTable(p.Config.StagingTableName),
		repository.ForecastServingTable(p.Config.ServingTableName),
	}
	if p.CurrentConditionsEnabled() {
		tables = append(tables,
			repository.CurrentConditionsStagingTable(p.Config.StagingTableNameCurrentConditions),
			repository.CurrentConditionsServingTable(p.Config.ServingTableNameCurrentConditions),
		)
	}
	return append(tables, repository.RunLogTable(p.LogTableName()))
}
