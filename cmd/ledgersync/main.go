package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"ledgersync/internal/amqp"
	"ledgersync/internal/analytics"
	"ledgersync/internal/config"
	"ledgersync/internal/log"
	"ledgersync/internal/services"
	"ledgersync/internal/source"
	"ledgersync/internal/source/gsheets"
	"ledgersync/internal/storage"
)

func main() {
	// Load .env for local development; absence is fine in production.
	_ = godotenv.Load()

	var (
		filePath      = flag.String("file", "", "CSV export to import (overrides SOURCE_BACKEND)")
		owner         = flag.String("owner", "", "owner scope (default LEDGER_OWNER)")
		force         = flag.Bool("force", false, "re-import a file that was already imported")
		skipAnalytics = flag.Bool("skip-analytics", false, "leave the aggregate refresh to the worker")
	)
	flag.Parse()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if *owner != "" {
		cfg.Owner = *owner
	}
	if *filePath != "" {
		cfg.SourceBackend = "csv"
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var src source.Source
	switch cfg.SourceBackend {
	case "csv":
		if *filePath == "" {
			logger.Error("No input file; pass -file or set SOURCE_BACKEND=sheets")
			os.Exit(1)
		}
		src = &source.CSVFile{Path: *filePath}
	case "sheets":
		client, err := gsheets.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		src = client
	}

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without events", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	engine := analytics.NewEngine(repo)
	svc := services.NewImportService(repo, engine, publisher)

	outcome, err := svc.Import(ctx, cfg.Owner, src, services.ImportOptions{
		Force:         *force,
		SkipAnalytics: *skipAnalytics,
	})
	if err != nil {
		logger.Error("Import failed", log.FieldError, err)
		os.Exit(1)
	}
	if outcome.Status == services.StatusAlreadyImported {
		logger.Warn("File already imported, use -force to re-import",
			"file", outcome.FileName,
			"imported_at", outcome.ImportedAt)
		os.Exit(2)
	}

	fmt.Printf("imported %s: processed=%d inserted=%d updated=%d deleted=%d skipped=%d\n",
		outcome.FileName, outcome.Stats.Processed, outcome.Stats.Inserted,
		outcome.Stats.Updated, outcome.Stats.Deleted, outcome.Stats.Skipped)
	if outcome.AnalyticsCounts != nil {
		fmt.Printf("analytics: monthly=%d recurring=%d anomalies=%d\n",
			outcome.AnalyticsCounts["monthly_summaries"],
			outcome.AnalyticsCounts["recurring_patterns"],
			outcome.AnalyticsCounts["anomalies"])
	}
}
