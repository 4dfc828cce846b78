package knn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/pkg/errors"
)

func TestClassifier_FitEmpty(t *testing.T) {
	c := New(3)
	err := c.Fit(nil, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyTrainingSet))
	assert.False(t, c.Trained())
}

func TestClassifier_FitValidation(t *testing.T) {
	tests := []struct {
		name   string
		X      [][]float64
		y      []int
		target error
	}{
		{
			name:   "label count mismatch",
			X:      [][]float64{{1}, {2}},
			y:      []int{1},
			target: errors.ErrDimensionMismatch,
		},
		{
			name:   "ragged rows",
			X:      [][]float64{{1, 2}, {2}},
			y:      []int{1, 0},
			target: errors.ErrDimensionMismatch,
		},
		{
			name:   "non binary label",
			X:      [][]float64{{1}, {2}},
			y:      []int{1, 2},
			target: errors.ErrInvalidLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(1).Fit(tt.X, tt.y)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestClassifier_PredictBeforeFit(t *testing.T) {
	_, _, err := New(5).PredictOne([]float64{1, 2})
	assert.True(t, errors.Is(err, errors.ErrNotTrained))
}

func TestClassifier_PredictDimensionMismatch(t *testing.T) {
	c := New(1)
	require.NoError(t, c.Fit([][]float64{{0, 0}, {1, 1}}, []int{0, 1}))

	_, _, err := c.PredictOne([]float64{1})
	assert.True(t, errors.Is(err, errors.ErrDimensionMismatch))
}

func TestClassifier_DefaultK(t *testing.T) {
	assert.Equal(t, DefaultK, New(0).K())
	assert.Equal(t, DefaultK, New(-2).K())
	assert.Equal(t, 7, New(7).K())
}

func TestClassifier_NormalizationBounds(t *testing.T) {
	c := New(1)
	X := [][]float64{{0, 5, 10}, {10, 5, 20}}
	require.NoError(t, c.Fit(X, []int{0, 1}))

	assert.Equal(t, []float64{0, 5, 10}, c.min)
	assert.Equal(t, []float64{10, 5, 20}, c.max)
	// constant column gets range 1
	assert.Equal(t, []float64{10, 1, 10}, c.rng)
	assert.Equal(t, []float64{0, 0, 0, 1, 0, 1}, c.matrix)

	// fit must not alias the caller's rows
	X[0][0] = 100
	assert.Equal(t, 0.0, c.matrix[0])
}

func TestClassifier_ConstantFeatureIsUnbounded(t *testing.T) {
	c := New(1)
	require.NoError(t, c.Fit([][]float64{{0, 3}, {1, 3}}, []int{0, 1}))

	// second feature contributes value-min (=4) to both distances equally
	label, _, err := c.PredictOne([]float64{0.9, 7})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
}

func TestClassifier_TieAtHalfResolvesToZero(t *testing.T) {
	c := New(4)
	X := [][]float64{{0}, {0.1}, {0.2}, {0.3}, {1}}
	y := []int{1, 0, 1, 0, 1}
	require.NoError(t, c.Fit(X, y))

	label, proba, err := c.PredictOne([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, 0, label, "sum == k/2 must not be suitable")
	assert.Equal(t, 0.5, proba)
}

func TestClassifier_TieBreakByTrainingOrder(t *testing.T) {
	c := New(1)
	// rows 0 and 1 are equidistant from the query; first seen wins
	X := [][]float64{{0}, {2}, {4}}
	require.NoError(t, c.Fit(X, []int{1, 0, 0}))

	label, proba, err := c.PredictOne([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.Equal(t, 1.0, proba)

	c2 := New(1)
	require.NoError(t, c2.Fit(X, []int{0, 1, 0}))
	label, _, err = c2.PredictOne([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
}

func TestClassifier_SelfConsistency(t *testing.T) {
	c := New(3)
	X := [][]float64{{0, 0}, {0.1, 0}, {0, 0.1}, {1, 1}, {0.9, 1}, {1, 0.9}}
	y := []int{1, 1, 0, 0, 0, 0}
	require.NoError(t, c.Fit(X, y))

	// neighbours of row 0: itself (1), row 1 (1), row 2 (0)
	label, proba, err := c.PredictOne([]float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.InDelta(t, 2.0/3.0, proba, 1e-12)
}

func TestClassifier_ProbabilityDividesByKWhenFewerRows(t *testing.T) {
	c := New(5)
	require.NoError(t, c.Fit([][]float64{{0}, {1}}, []int{1, 1}))

	label, proba, err := c.PredictOne([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, 0, label, "2 of 5 is not a majority")
	assert.Equal(t, 0.4, proba)
}

func TestClassifier_ClusterSeparation(t *testing.T) {
	c := New(5)
	var X [][]float64
	var y []int
	for i := 0; i < 5; i++ {
		X = append(X, []float64{24 + float64(i)*0.5, 60})
		y = append(y, 1)
		X = append(X, []float64{34 + float64(i)*0.5, 60})
		y = append(y, 0)
	}
	require.NoError(t, c.Fit(X, y))

	label, proba, err := c.PredictOne([]float64{25, 60})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.Equal(t, 1.0, proba)

	label, proba, err = c.PredictOne([]float64{35, 60})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	assert.Equal(t, 0.0, proba)
}

func TestClassifier_ConcurrentPredict(t *testing.T) {
	c := New(3)
	require.NoError(t, c.Fit([][]float64{{0}, {1}, {2}, {3}, {4}}, []int{1, 1, 1, 0, 0}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			label, proba, err := c.PredictOne([]float64{0.5})
			assert.NoError(t, err)
			assert.Equal(t, 1, label)
			assert.Equal(t, 1.0, proba)
		}()
	}
	wg.Wait()
}

func TestClassifier_PredictOneDoesNotAllocate(t *testing.T) {
	c := New(5)
	X := [][]float64{{20, 60}, {21, 62}, {22, 58}, {35, 40}, {36, 42}, {37, 41}, {23, 61}}
	y := []int{1, 1, 1, 0, 0, 0, 1}
	require.NoError(t, c.Fit(X, y))

	x := []float64{22, 60}
	allocs := testing.AllocsPerRun(100, func() {
		_, _, _ = c.PredictOne(x)
	})
	assert.Equal(t, 0.0, allocs)
}

func TestClassifier_LargeKMatchesSmallModelPath(t *testing.T) {
	var X [][]float64
	var y []int
	for i := 0; i < 40; i++ {
		X = append(X, []float64{float64(i)})
		if i < 25 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}

	c := New(21)
	require.NoError(t, c.Fit(X, y))

	// 21 nearest to 0 are rows 0..20, all labelled 1
	label, proba, err := c.PredictOne([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, 1, label)
	assert.Equal(t, 1.0, proba)

	// 21 nearest to 39 are rows 19..39: six 1s
	label, proba, err = c.PredictOne([]float64{39})
	require.NoError(t, err)
	assert.Equal(t, 0, label)
	assert.InDelta(t, 6.0/21.0, proba, 1e-12)
}
