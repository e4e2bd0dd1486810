package main

import (
	"flag"
	"os"
	"time"

	"tradedash/internal/amqp"
	"tradedash/internal/backend"
	"tradedash/internal/cli"
	applog "tradedash/internal/log"
	"tradedash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	source := flag.String("source", cfg.DatasetPath, "CSV file path or gs://bucket/object URI to import")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite snapshot database")
	once := flag.Bool("once", false, "import a single time and exit")
	every := flag.Duration("every", cfg.ImportInterval, "interval between scheduled imports")
	strict := flag.Bool("strict", cfg.DatasetStrict, "treat non-numeric Value, Quantity or Weight cells as load errors")
	flag.Parse()

	if !*once && *every < time.Second {
		logger.Error("Import interval must be at least one second", "every", every.String())
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	result, err := backend.NewFactory(logger).CreateSource(ctx, backend.Config{
		Type:        backend.CSVBackend,
		DatasetPath: *source,
		Strict:      *strict,
	})
	if err != nil {
		logger.Error("Failed to create import source", "error", err, "source", *source)
		os.Exit(1)
	}
	defer result.Close()

	repo := cli.InitSQLite(logger, *dbPath)
	defer repo.Close()

	var publisher worker.Publisher
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, dashboards will not be notified", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	w := worker.NewImportWorker(result.Source, repo, publisher, logger)

	if *once {
		// RunOnce logs both outcomes; a publish failure still exits non-zero.
		if _, err := w.RunOnce(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := w.Schedule(ctx, *every); err != nil {
		logger.Error("Import scheduler failed", "error", err)
		os.Exit(1)
	}
	runs, failures := w.Stats()
	logger.Info("Importer stopped", "runs", runs, "failures", failures)
}
