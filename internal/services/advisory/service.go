// Package advisory serves analyses to the transports: cache lookup,
// classification, history recording and notification forwarding.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/internal/metrics"
	"cropadvisor/pkg/errors"
	"cropadvisor/pkg/logger"
)

// Analyzer is the recommendation engine as seen by the service
type Analyzer interface {
	Analyze(features *suitability.Features) (*suitability.Result, error)
	Version() uint64
}

// Request is one analysis request
type Request struct {
	Features *suitability.Features
	Source   suitability.Source
	Plant    *suitability.PlantMeta // nil means no notification
}

// Deps are the service collaborators. Only Engine is required.
type Deps struct {
	Engine   Analyzer
	Cache    suitability.ResultCache
	Recorder suitability.AnalysisRepository
	Notifier suitability.Notifier
}

// Config holds service options
type Config struct {
	CacheTTL      time.Duration
	NotifyTimeout time.Duration
}

// Service handles analysis requests
type Service struct {
	deps Deps
	cfg  Config
	log  *logger.Logger

	notifyWG sync.WaitGroup
}

// NewService creates a new advisory service
func NewService(deps Deps, cfg Config, log *logger.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}

	return &Service{
		deps: deps,
		cfg:  cfg,
		log:  log.With("component", "advisory_service"),
	}
}

// Analyze runs one analysis. Only engine errors are returned; cache,
// recording and notification failures are logged.
func (s *Service) Analyze(ctx context.Context, req Request) (*suitability.Result, error) {
	start := time.Now()
	features := req.Features
	if features == nil {
		features = suitability.NewFeatures()
	}

	key := cacheKey(s.deps.Engine.Version(), features)
	result, cached := s.lookup(ctx, key)

	if !cached {
		var err error
		result, err = s.deps.Engine.Analyze(features)
		if err != nil {
			metrics.RecordAnalysis(string(req.Source), "", time.Since(start))
			return nil, err
		}
		s.store(ctx, key, result)
	}

	metrics.RecordAnalysis(string(req.Source), result.Prediction.String(), time.Since(start))
	for _, rec := range result.Recommendations {
		metrics.RecordRecommendation(direction(rec))
	}

	s.record(ctx, req, features, result)

	if req.Plant != nil && s.deps.Notifier != nil {
		s.notify(result, *req.Plant)
	}

	return result, nil
}

// Wait blocks until in-flight notifications finish or ctx is done
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifyWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for notifications")
	}
}

func (s *Service) lookup(ctx context.Context, key string) (*suitability.Result, bool) {
	if s.deps.Cache == nil || key == "" {
		return nil, false
	}

	result, ok, err := s.deps.Cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordCacheLookup("error")
		s.log.Warnw("Analysis cache lookup failed", "error", err)
		return nil, false
	case !ok:
		metrics.RecordCacheLookup("miss")
		return nil, false
	default:
		metrics.RecordCacheLookup("hit")
		return result, true
	}
}

func (s *Service) store(ctx context.Context, key string, result *suitability.Result) {
	if s.deps.Cache == nil || key == "" {
		return
	}
	if err := s.deps.Cache.Set(ctx, key, result, s.cfg.CacheTTL); err != nil {
		s.log.Warnw("Failed to cache analysis", "error", err)
	}
}

func (s *Service) record(ctx context.Context, req Request, features *suitability.Features, result *suitability.Result) {
	if s.deps.Recorder == nil {
		return
	}

	raw, err := json.Marshal(features)
	if err != nil {
		s.log.Warnw("Failed to encode features for history", "error", err)
		return
	}

	a := &suitability.Analysis{
		Prediction:      result.Prediction,
		Confidence:      result.Confidence,
		IsSuitable:      result.IsSuitable,
		Recommendations: result.Recommendations,
		Features:        raw,
		Source:          req.Source,
	}
	if req.Plant != nil {
		id := req.Plant.PlantID
		a.PlantID = &id
	}

	if err := s.deps.Recorder.Store(ctx, a); err != nil {
		s.log.Errorw("Failed to record analysis", "error", err)
	}
}

// notify forwards in the background; the caller's response never waits on it
func (s *Service) notify(result *suitability.Result, plant suitability.PlantMeta) {
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
		defer cancel()

		err := s.deps.Notifier.Notify(ctx, result, plant)
		metrics.RecordNotify(err)
		if err != nil {
			s.log.Warnw("Failed to contact notify server",
				"plant_id", plant.PlantID,
				"error", err,
			)
		}
	}()
}

// cacheKey is empty until a model is served so nothing is cached against version 0
func cacheKey(version uint64, features *suitability.Features) string {
	if version == 0 {
		return ""
	}
	return fmt.Sprintf("v%d|%s", version, features.Fingerprint())
}

func direction(rec string) string {
	switch {
	case strings.HasPrefix(rec, "INCREASE "):
		return "increase"
	case strings.HasPrefix(rec, "DECREASE "):
		return "decrease"
	default:
		return "fallback"
	}
}
