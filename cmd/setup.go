package cmd

import (
	"fmt"
	"os"

	"meet-importer/core/config"
	"meet-importer/core/database"
	"meet-importer/core/logger"
	"meet-importer/core/storage"
	"meet-importer/feature/meet"

	"go.uber.org/zap"
)

// buildService is the shared bootstrap of the pipeline CLI commands:
// configuration, logger, database, storage, migrations, service. Mutators
// apply command-line overrides to the loaded configuration.
func buildService(mutators ...func(*config.Config)) (*meet.Service, *config.Config, *zap.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	for _, mutate := range mutators {
		mutate(cfg)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logg.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := meet.Migrate(db); err != nil {
		logg.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Archive storage is optional for CLI runs; commits then skip the
	// artifact upload.
	var store storage.Client
	if client, err := storage.NewClient(cfg.Storage); err != nil {
		logg.Warn("Optional storage connection failed", zap.Error(err))
	} else {
		store = client
	}

	svc := meet.NewService(db, logg, store, cfg.Storage.Bucket, cfg.Matcher, cfg.Importer)
	return svc, cfg, logg
}
