package suitability

import (
	"time"

	"github.com/google/uuid"
)

// Verdict is the suitability label returned to callers
type Verdict string

const (
	VerdictSuitable   Verdict = "SUITABLE"
	VerdictUnsuitable Verdict = "UNSUITABLE"
)

// Valid checks if verdict is one of the known values
func (v Verdict) Valid() bool {
	return v == VerdictSuitable || v == VerdictUnsuitable
}

// String returns string representation
func (v Verdict) String() string {
	return string(v)
}

// VerdictFromLabel maps a binary classifier label to a verdict
func VerdictFromLabel(label int) Verdict {
	if label == 1 {
		return VerdictSuitable
	}
	return VerdictUnsuitable
}

// Result is the outcome of one analysis
type Result struct {
	Prediction      Verdict  `json:"prediction"`
	Confidence      float64  `json:"confidence"` // percentage, 2 decimals
	IsSuitable      bool     `json:"is_suitable"`
	Recommendations []string `json:"recommendations"`
}

// Sample is one labelled training row
type Sample struct {
	Values []float64
	Label  int
}

// TrainingSet holds rows whose values follow Columns
type TrainingSet struct {
	Columns []string
	Samples []Sample
}

// Len returns the number of rows
func (ts *TrainingSet) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.Samples)
}

// Project returns X restricted to columns (which must be a subset of ts.Columns) and y
func (ts *TrainingSet) Project(columns []string) ([][]float64, []int) {
	index := make(map[string]int, len(ts.Columns))
	for i, c := range ts.Columns {
		index[c] = i
	}

	X := make([][]float64, len(ts.Samples))
	y := make([]int, len(ts.Samples))
	for r, s := range ts.Samples {
		row := make([]float64, len(columns))
		for j, c := range columns {
			if i, ok := index[c]; ok && i < len(s.Values) {
				row[j] = s.Values[i]
			}
		}
		X[r] = row
		y[r] = s.Label
	}
	return X, y
}

// IdealRow maps feature name to its ideal value for one stage
type IdealRow map[string]float64

// IdealTable maps growth-stage id to its ideal row
type IdealTable map[int]IdealRow

// Row returns the ideal row for stage
func (t IdealTable) Row(stage int) (IdealRow, bool) {
	row, ok := t[stage]
	return row, ok
}

// Source names where an analysis request came from
type Source string

const (
	SourceHTTP  Source = "http"
	SourceKafka Source = "kafka"
)

// PlantMeta identifies the plant an analysis is for; used for notifications
type PlantMeta struct {
	PlantID   int64  `json:"plantId"`
	PlantName string `json:"plantName"`
	UserEmail string `json:"userEmail"`
}

// Analysis is a persisted analysis record
type Analysis struct {
	ID              uuid.UUID `db:"id"`
	Prediction      Verdict   `db:"prediction"`
	Confidence      float64   `db:"confidence"`
	IsSuitable      bool      `db:"is_suitable"`
	Recommendations []string  `db:"-"`
	Features        []byte    `db:"features"` // JSON in caller order
	Source          Source    `db:"source"`
	PlantID         *int64    `db:"plant_id"`
	CreatedAt       time.Time `db:"created_at"`
}
