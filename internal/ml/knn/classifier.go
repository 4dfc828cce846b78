package knn

import (
	"math"

	"cropadvisor/pkg/errors"
)

// DefaultK is the neighbour count used when none is configured
const DefaultK = 5

// Classifier is a brute-force k-nearest-neighbour binary classifier over
// min-max normalized features. It is immutable after Fit and safe for
// concurrent PredictOne calls.
type Classifier struct {
	k int

	dims   int
	min    []float64
	max    []float64
	rng    []float64 // max - min, zero replaced by 1
	matrix []float64 // normalized rows, row-major: matrix[r*dims+j]
	labels []int
}

// New creates an untrained classifier with k neighbours
func New(k int) *Classifier {
	if k <= 0 {
		k = DefaultK
	}
	return &Classifier{k: k}
}

// K returns the neighbour count
func (c *Classifier) K() int { return c.k }

// Size returns the number of training rows
func (c *Classifier) Size() int { return len(c.labels) }

// Dims returns the feature count seen at fit time
func (c *Classifier) Dims() int { return c.dims }

// Trained reports whether Fit has completed
func (c *Classifier) Trained() bool { return c.matrix != nil }

// Fit computes the normalization bounds and stores the normalized training matrix.
// A feature constant across all rows gets range 1, so at inference it contributes
// value-min instead of a bounded [0,1] value.
func (c *Classifier) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.ErrEmptyTrainingSet
	}
	if len(y) != len(X) {
		return errors.Wrapf(errors.ErrDimensionMismatch, "%d rows but %d labels", len(X), len(y))
	}

	dims := len(X[0])
	minV := make([]float64, dims)
	maxV := make([]float64, dims)
	copy(minV, X[0])
	copy(maxV, X[0])

	for r, row := range X {
		if len(row) != dims {
			return errors.Wrapf(errors.ErrDimensionMismatch, "row %d has %d features, want %d", r, len(row), dims)
		}
		if y[r] != 0 && y[r] != 1 {
			return errors.Wrapf(errors.ErrInvalidLabel, "row %d label %d", r, y[r])
		}
		for j, v := range row {
			if v < minV[j] {
				minV[j] = v
			}
			if v > maxV[j] {
				maxV[j] = v
			}
		}
	}

	rng := make([]float64, dims)
	for j := range rng {
		rng[j] = maxV[j] - minV[j]
		if rng[j] == 0 {
			rng[j] = 1
		}
	}

	matrix := make([]float64, len(X)*dims)
	for r, row := range X {
		base := r * dims
		for j, v := range row {
			matrix[base+j] = (v - minV[j]) / rng[j]
		}
	}

	labels := make([]int, len(y))
	copy(labels, y)

	c.dims = dims
	c.min = minV
	c.max = maxV
	c.rng = rng
	c.matrix = matrix
	c.labels = labels
	return nil
}

// stackLimit bounds the dimensions and k served from call-local arrays.
// Larger models fall back to heap buffers.
const stackLimit = 16

// PredictOne classifies x. label is 1 iff the neighbour label sum is strictly
// greater than k/2; probability is that sum divided by k. It does not
// allocate while the feature count and k are at most 16.
func (c *Classifier) PredictOne(x []float64) (int, float64, error) {
	if !c.Trained() {
		return 0, 0, errors.ErrNotTrained
	}
	if len(x) != c.dims {
		return 0, 0, errors.Wrapf(errors.ErrDimensionMismatch, "got %d features, want %d", len(x), c.dims)
	}

	var scaledBuf [stackLimit]float64
	var scaled []float64
	if c.dims <= stackLimit {
		scaled = scaledBuf[:c.dims]
	} else {
		scaled = make([]float64, c.dims)
	}
	for j, v := range x {
		scaled[j] = (v - c.min[j]) / c.rng[j]
	}

	n := len(c.labels)
	k := c.k
	if k > n {
		k = n
	}

	var distBuf [stackLimit]float64
	var idxBuf [stackLimit]int
	var nearDist []float64
	var nearIdx []int
	if k <= stackLimit {
		nearDist, nearIdx = distBuf[:k], idxBuf[:k]
	} else {
		nearDist, nearIdx = make([]float64, k), make([]int, k)
	}

	// nearDist[:m] is sorted by distance; ties keep training order because
	// only a strictly smaller distance displaces an earlier row.
	m := 0
	for r := 0; r < n; r++ {
		d := c.distance(scaled, r)

		if m == k && d >= nearDist[k-1] {
			continue
		}

		pos := m
		for pos > 0 && nearDist[pos-1] > d {
			pos--
		}

		if m < k {
			m++
		}
		copy(nearDist[pos+1:m], nearDist[pos:m-1])
		copy(nearIdx[pos+1:m], nearIdx[pos:m-1])
		nearDist[pos] = d
		nearIdx[pos] = r
	}

	sum := 0
	for _, idx := range nearIdx[:m] {
		sum += c.labels[idx]
	}

	label := 0
	if float64(sum) > float64(c.k)/2 {
		label = 1
	}
	return label, float64(sum) / float64(c.k), nil
}

func (c *Classifier) distance(scaled []float64, row int) float64 {
	base := row * c.dims
	var sum float64
	for j, v := range scaled {
		diff := c.matrix[base+j] - v
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
