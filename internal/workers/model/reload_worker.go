package model

import (
	"context"
	"time"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/metrics"
	"cropadvisor/internal/services/recommendation"
	"cropadvisor/internal/workers"
	"cropadvisor/pkg/logger"
)

// Loader retrains the served model from a tabular store
type Loader interface {
	Load(ctx context.Context, store suitability.TabularStore) (recommendation.State, error)
	Version() uint64
}

// ReloadWorker periodically reloads the training set and ideal-value table.
// A failed reload keeps the previous snapshot in service.
type ReloadWorker struct {
	*workers.BaseWorker
	engine Loader
	store  suitability.TabularStore
}

// NewReloadWorker creates a reload worker. interval <= 0 disables it.
func NewReloadWorker(engine Loader, store suitability.TabularStore, interval time.Duration, log *logger.Logger) *ReloadWorker {
	base := workers.NewBaseWorker("model_reload", interval, interval > 0)
	base.SetLogger(log)
	base.SetDeferFirstRun(true)

	return &ReloadWorker{
		BaseWorker: base,
		engine:     engine,
		store:      store,
	}
}

// Run performs one reload
func (w *ReloadWorker) Run(ctx context.Context) error {
	before := w.engine.Version()

	state, err := w.engine.Load(ctx, w.store)
	if err != nil {
		metrics.RecordModelReload("failed")
		return err
	}
	metrics.RecordModelReload(state.String())

	w.Log().Infow("Model reloaded",
		"state", state,
		"previous_version", before,
		"version", w.engine.Version(),
	)
	return nil
}
