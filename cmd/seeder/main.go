package main

import (
	"context"
	"flag"
	"time"

	"cropadvisor/internal/adapters/config"
	pgclient "cropadvisor/internal/adapters/postgres"
	"cropadvisor/internal/adapters/tabular"
	pgrepo "cropadvisor/internal/repository/postgres"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Parse flags
	trainingPath := flag.String("training", cfg.Model.TrainingPath(), "Training CSV (labelled samples)")
	idealPath := flag.String("ideal", cfg.Model.IdealPath(), "Ideal-value CSV indexed by crop coefficient stage")
	dryRun := flag.Bool("dry-run", false, "Parse the CSV files without writing to the database")
	flag.Parse()

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	log := logger.Get()

	log.Infow("Starting dataset import",
		"training", *trainingPath,
		"ideal", *idealPath,
		"dry_run", *dryRun,
		"database", cfg.Postgres.Database,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store := tabular.NewCSVStore(*trainingPath, *idealPath, log)

	training, err := store.LoadTrainingSet(ctx)
	if err != nil {
		log.Fatalf("Failed to read training set: %v", err)
	}

	ideals, err := store.LoadIdealTable(ctx)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		log.Warnw("Ideal-value file not found, skipping", "path", *idealPath)
	case err != nil:
		log.Fatalf("Failed to read ideal-value table: %v", err)
	}

	log.Infow("Parsed datasets",
		"samples", training.Len(),
		"columns", training.Columns,
		"stages", len(ideals),
	)

	if *dryRun {
		log.Info("✅ Dry-run mode: datasets validated")
		return
	}

	// Connect to database
	client, err := pgclient.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer client.Close()

	if err := pgrepo.Migrate(ctx, client.DB()); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	repo := pgrepo.NewDatasetRepository(client.DB())

	n, err := repo.ReplaceTrainingSet(ctx, training)
	if err != nil {
		log.Errorw("Failed to import training set", "error", err)
		return
	}
	log.Infow("✅ Training set imported", "rows", n)

	if ideals != nil {
		n, err := repo.ReplaceIdealTable(ctx, ideals)
		if err != nil {
			log.Errorw("Failed to import ideal-value table", "error", err)
			return
		}
		log.Infow("✅ Ideal-value table imported", "stages", n)
	}

	log.Info("✅ Dataset import complete")
}
