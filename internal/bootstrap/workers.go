package bootstrap

import (
	"cropadvisor/internal/adapters/config"
	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/services/recommendation"
	"cropadvisor/internal/workers"
	modelworkers "cropadvisor/internal/workers/model"
	"cropadvisor/pkg/logger"
)

// provideWorkers initializes all background workers
func provideWorkers(
	cfg *config.Config,
	engine *recommendation.Engine,
	store suitability.TabularStore,
	log *logger.Logger,
) *workers.Scheduler {
	log.Info("Initializing workers...")

	scheduler := workers.NewScheduler(log)

	// ========================================
	// Model Workers
	// ========================================

	// Periodic reload of training set and ideal table (disabled when interval is 0)
	scheduler.RegisterWorker(modelworkers.NewReloadWorker(
		engine,
		store,
		cfg.Model.ReloadInterval,
		log,
	))

	log.Infow("✓ Workers initialized", "reload_interval", cfg.Model.ReloadInterval)
	return scheduler
}
