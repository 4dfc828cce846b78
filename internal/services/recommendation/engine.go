package recommendation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/ml/knn"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

// State is the engine lifecycle state
type State string

const (
	StateUninitialized  State = "uninitialized"
	StateLoading        State = "loading"
	StateReady          State = "ready"
	StatePartiallyReady State = "partially_ready" // classification only, no ideal table
	StateFailed         State = "failed"
)

// Serving reports whether analyze calls are accepted in this state
func (s State) Serving() bool {
	return s == StateReady || s == StatePartiallyReady
}

// String returns string representation
func (s State) String() string {
	return string(s)
}

// Config holds engine parameters
type Config struct {
	K int // neighbour count, defaults to knn.DefaultK
}

// snapshot is everything a load produces. It is published with a single
// atomic store so readers never observe a half-updated model.
type snapshot struct {
	classifier *knn.Classifier
	columns    []string
	ideals     suitability.IdealTable
	version    uint64
	loadedAt   time.Time
}

// Status describes the currently served model
type Status struct {
	State    State     `json:"state"`
	Version  uint64    `json:"version"`
	Samples  int       `json:"samples"`
	K        int       `json:"k"`
	Columns  []string  `json:"columns"`
	Stages   int       `json:"stages"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Engine classifies conditions and derives recommendations.
// Load may run again while serving; Analyze always sees a complete snapshot.
type Engine struct {
	cfg Config
	log *logger.Logger

	loadMu  sync.Mutex
	state   atomic.Value // State
	snap    atomic.Pointer[snapshot]
	version atomic.Uint64
}

// NewEngine creates an engine in the Uninitialized state
func NewEngine(cfg Config, log *logger.Logger) *Engine {
	if cfg.K <= 0 {
		cfg.K = knn.DefaultK
	}
	e := &Engine{
		cfg: cfg,
		log: log.With("component", "recommendation_engine"),
	}
	e.state.Store(StateUninitialized)
	return e
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	return e.state.Load().(State)
}

// Version identifies the served snapshot; 0 until the first successful load
func (e *Engine) Version() uint64 {
	if s := e.snap.Load(); s != nil {
		return s.version
	}
	return 0
}

// Status returns a description of the served model
func (e *Engine) Status() Status {
	st := Status{State: e.State(), K: e.cfg.K}
	s := e.snap.Load()
	if s == nil {
		return st
	}
	st.Version = s.version
	st.Samples = s.classifier.Size()
	st.Columns = append([]string(nil), s.columns...)
	st.Stages = len(s.ideals)
	st.LoadedAt = s.loadedAt
	return st
}

// Load reads the ideal table and training set from store and trains a new
// classifier. A missing ideal table degrades to PartiallyReady; a missing or
// unusable training set fails the load. When a previous snapshot exists a
// failed load keeps serving it.
func (e *Engine) Load(ctx context.Context, store suitability.TabularStore) (State, error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	if e.snap.Load() == nil {
		e.state.Store(StateLoading)
	}
	start := time.Now()

	partial := false
	ideals, err := store.LoadIdealTable(ctx)
	if err != nil {
		partial = true
		ideals = nil
		if errors.Is(err, errors.ErrNotFound) {
			e.log.Warnw("Ideal-value table not found, recommendations disabled", "error", err)
		} else {
			e.log.Errorw("Failed to load ideal-value table, recommendations disabled", "error", err)
		}
	}

	ts, err := store.LoadTrainingSet(ctx)
	if err != nil {
		return e.fail(errors.Wrap(err, "load training set"))
	}
	if ts.Len() == 0 {
		return e.fail(errors.ErrEmptyTrainingSet)
	}

	columns := suitability.IntersectSchema(ts.Columns)
	if len(columns) == 0 {
		return e.fail(errors.Wrapf(errors.ErrInvalidInput, "training set has none of the %d schema features", len(suitability.Schema)))
	}
	if len(columns) < len(suitability.Schema) {
		e.log.Warnw("Training set is missing schema features",
			"available", len(columns),
			"expected", len(suitability.Schema),
		)
	}

	e.log.Infow("Training KNN model", "samples", ts.Len(), "features", len(columns), "k", e.cfg.K)

	X, y := ts.Project(columns)
	clf := knn.New(e.cfg.K)
	if err := clf.Fit(X, y); err != nil {
		return e.fail(errors.Wrap(err, "fit classifier"))
	}

	next := &snapshot{
		classifier: clf,
		columns:    columns,
		ideals:     ideals,
		version:    e.version.Add(1),
		loadedAt:   time.Now(),
	}
	e.snap.Store(next)

	state := StateReady
	if partial {
		state = StatePartiallyReady
	}
	e.state.Store(state)

	e.log.Infow("Model trained successfully",
		"state", state,
		"version", next.version,
		"stages", len(ideals),
		"duration", time.Since(start),
	)
	return state, nil
}

func (e *Engine) fail(err error) (State, error) {
	if e.snap.Load() == nil {
		e.state.Store(StateFailed)
	} else {
		e.log.Warnw("Reload failed, keeping previous model", "version", e.Version(), "error", err)
	}
	e.log.Errorw("Model load failed", "error", err)
	return e.State(), err
}

// Analyze classifies features and builds recommendations. Missing schema
// features count as 0.0. The only failure is ErrNotReady.
func (e *Engine) Analyze(features *suitability.Features) (*suitability.Result, error) {
	s := e.snap.Load()
	if s == nil {
		return nil, errors.Wrapf(errors.ErrNotReady, "state %s", e.State())
	}
	if features == nil {
		features = suitability.NewFeatures()
	}

	label, proba, err := s.classifier.PredictOne(features.Vector(s.columns))
	if err != nil {
		return nil, errors.Wrap(err, "predict")
	}

	verdict := suitability.VerdictFromLabel(label)
	confidence := proba
	if verdict != suitability.VerdictSuitable {
		confidence = 1 - proba
	}

	recs, err := deviations(s.ideals, features)
	if err != nil && s.ideals != nil {
		e.log.Debugw("No ideal values for stage", "error", err)
	}
	if len(recs) == 0 {
		recs = append(recs, fallback(verdict))
	}

	return &suitability.Result{
		Prediction:      verdict,
		Confidence:      roundPercent(confidence),
		IsSuitable:      verdict == suitability.VerdictSuitable,
		Recommendations: recs,
	}, nil
}
