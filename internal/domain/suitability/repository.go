package suitability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TabularStore supplies the training set and the ideal-value table.
// Implementations return errors.ErrNotFound when a source is absent.
type TabularStore interface {
	LoadTrainingSet(ctx context.Context) (*TrainingSet, error)
	LoadIdealTable(ctx context.Context) (IdealTable, error)
}

// AnalysisRepository persists analysis history
type AnalysisRepository interface {
	Store(ctx context.Context, a *Analysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Analysis, error)
	ListRecent(ctx context.Context, limit int) ([]*Analysis, error)
}

// ResultCache caches analysis results per trained snapshot
type ResultCache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, result *Result, ttl time.Duration) error
}

// Notifier forwards a finished analysis to the notification server
type Notifier interface {
	Notify(ctx context.Context, result *Result, plant PlantMeta) error
}
