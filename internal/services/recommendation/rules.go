package recommendation

import (
	"fmt"
	"math"

	"cropadvisor/internal/domain/suitability"
	"cropadvisor/pkg/errors"
)

// Tolerance is the relative deviation from the ideal value that is accepted
// without a recommendation. The check is strict: |delta| must exceed it.
const Tolerance = 0.1

const (
	// MessageUnsuitableFallback is returned when the verdict is UNSUITABLE but no
	// single feature deviates beyond tolerance
	MessageUnsuitableFallback = "Condition unsuitable but no single factor has huge deviation. Check all parameters."

	// MessageOptimal is returned when the verdict is SUITABLE and nothing deviates
	MessageOptimal = "Conditions are optimal."
)

// deviations diffs every query feature that also has an ideal value for the
// query's stage. Iteration follows the caller's key order, and the stage
// key itself is not excluded. An ideal of 0 recommends on any deviation.
func deviations(ideals suitability.IdealTable, features *suitability.Features) ([]string, error) {
	recs := make([]string, 0)

	stage, ok := features.Stage()
	if !ok {
		return recs, nil
	}
	row, ok := ideals.Row(stage)
	if !ok {
		return recs, errors.Wrapf(errors.ErrStageNotFound, "stage %d", stage)
	}

	for _, name := range features.Keys() {
		ideal, ok := row[name]
		if !ok {
			continue
		}
		current, _ := features.Get(name)

		delta := ideal - current
		if !(math.Abs(delta) > ideal*Tolerance) {
			continue
		}
		if delta > 0 {
			recs = append(recs, fmt.Sprintf("INCREASE %s by %.2f (Ideal: %.2f)", name, delta, ideal))
		} else {
			recs = append(recs, fmt.Sprintf("DECREASE %s by %.2f (Ideal: %.2f)", name, math.Abs(delta), ideal))
		}
	}
	return recs, nil
}

// fallback supplies the single message used when no deviation was found
func fallback(verdict suitability.Verdict) string {
	if verdict == suitability.VerdictSuitable {
		return MessageOptimal
	}
	return MessageUnsuitableFallback
}

// roundPercent converts a probability to a percentage with two decimals
func roundPercent(p float64) float64 {
	return math.Round(p*100*100) / 100
}
