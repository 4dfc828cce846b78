package metrics

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"cropadvisor/pkg/logger"
)

// ModelStatus is the subset of engine status exported at scrape time
type ModelStatus struct {
	State   string
	Version uint64
	Samples int
	Stages  int
}

// ModelStatusFunc returns the current model status
type ModelStatusFunc func() ModelStatus

// engineStates lists every state so the state gauge is one-hot
var engineStates = []string{"uninitialized", "loading", "ready", "partially_ready", "failed"}

// CustomCollector exports model status and stored analysis counts
type CustomCollector struct {
	log      *logger.Logger
	status   ModelStatusFunc
	postgres *sqlx.DB

	engineState    *prometheus.Desc
	modelVersion   *prometheus.Desc
	modelSamples   *prometheus.Desc
	modelStages    *prometheus.Desc
	storedAnalyses *prometheus.Desc
}

// NewCustomCollector creates a collector. postgres may be nil when persistence is disabled.
func NewCustomCollector(log *logger.Logger, status ModelStatusFunc, postgres *sqlx.DB) *CustomCollector {
	return &CustomCollector{
		log:      log,
		status:   status,
		postgres: postgres,

		engineState: prometheus.NewDesc(
			"cropadvisor_engine_state",
			"Recommendation engine state (1 for the current state)",
			[]string{"state"}, nil,
		),
		modelVersion: prometheus.NewDesc(
			"cropadvisor_model_version",
			"Version of the served model snapshot",
			nil, nil,
		),
		modelSamples: prometheus.NewDesc(
			"cropadvisor_model_samples",
			"Training samples in the served model",
			nil, nil,
		),
		modelStages: prometheus.NewDesc(
			"cropadvisor_model_stages",
			"Growth stages with ideal values",
			nil, nil,
		),
		storedAnalyses: prometheus.NewDesc(
			"cropadvisor_stored_analyses",
			"Analyses stored in Postgres by verdict",
			[]string{"prediction"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.engineState
	ch <- c.modelVersion
	ch <- c.modelSamples
	ch <- c.modelStages
	ch <- c.storedAnalyses
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	c.collectModelStatus(ch)

	if c.postgres != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.collectStoredAnalyses(ctx, ch)
	}
}

func (c *CustomCollector) collectModelStatus(ch chan<- prometheus.Metric) {
	st := c.status()

	for _, s := range engineStates {
		value := 0.0
		if s == st.State {
			value = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.engineState, prometheus.GaugeValue, value, s)
	}

	ch <- prometheus.MustNewConstMetric(c.modelVersion, prometheus.GaugeValue, float64(st.Version))
	ch <- prometheus.MustNewConstMetric(c.modelSamples, prometheus.GaugeValue, float64(st.Samples))
	ch <- prometheus.MustNewConstMetric(c.modelStages, prometheus.GaugeValue, float64(st.Stages))
}

func (c *CustomCollector) collectStoredAnalyses(ctx context.Context, ch chan<- prometheus.Metric) {
	type AnalysisStat struct {
		Prediction string `db:"prediction"`
		Count      int    `db:"count"`
	}

	var stats []AnalysisStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT prediction, COUNT(*) as count
		FROM analyses
		GROUP BY prediction
	`)
	if err != nil {
		c.log.Warnw("Failed to collect stored analyses", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.storedAnalyses,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Prediction,
		)
	}
}

// RegisterCustomCollector registers the custom collector
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
