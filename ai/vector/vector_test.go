package vector

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity_Identity(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -0.7, 2.1},
		{1e-3, 1e-3, 1e-3},
	}

	for _, v := range vectors {
		sim, err := CosineSimilarity(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-6, "cos(v, v) should be 1 for %v", v)
	}
}

func TestCosineSimilarity_Symmetry(t *testing.T) {
	a := []float32{0.2, -1.5, 3.0, 0.0}
	b := []float32{1.1, 0.4, -0.9, 2.2}

	ab, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	ba, err := CosineSimilarity(b, a)
	require.NoError(t, err)

	assert.InDelta(t, float64(ab), float64(ba), 1e-9)
}

func TestCosineSimilarity_Bounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 100; n++ {
		a := make([]float32, 16)
		b := make([]float32, 16)
		for i := range a {
			a[i] = rng.Float32()*2 - 1
			// Near-parallel with small perturbation to provoke rounding past 1.0.
			b[i] = a[i] + rng.Float32()*1e-7
		}
		sim, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		assert.LessOrEqual(t, sim, float32(1.0))
		assert.GreaterOrEqual(t, sim, float32(-1.0))
	}
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-1, -2, -3}

	sim, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-6)
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	v := []float32{1, 2, 3}

	sim, err := CosineSimilarity(zero, v)
	require.NoError(t, err)
	assert.Equal(t, float32(0), sim)

	sim, err = CosineSimilarity(v, zero)
	require.NoError(t, err)
	assert.Equal(t, float32(0), sim)

	sim, err = CosineSimilarity(zero, zero)
	require.NoError(t, err)
	assert.Equal(t, float32(0), sim)
}

func TestCosineSimilarity_Errors(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = CosineSimilarity([]float32{}, []float32{1})
	assert.ErrorIs(t, err, ErrEmptyVector)

	_, err = CosineSimilarity([]float32{1}, nil)
	assert.ErrorIs(t, err, ErrEmptyVector)
}

func TestBatchTopK_Ordering(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{
		{0, 1},    // orthogonal, 0.0
		{1, 0},    // identical, 1.0
		{1, 1},    // ~0.707
		{-1, 0},   // opposite, -1.0
		{0.5, 0},  // identical direction, 1.0 (tie with index 1)
		{0, 0},    // zero vector, 0.0 (tie with index 0)
	}

	results, err := BatchTopK(query, corpus, 0)
	require.NoError(t, err)
	require.Len(t, results, len(corpus))

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score, "scores must be descending")
	}

	// Ties broken by original index ascending: 1 before 4, 0 before 5.
	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, 4, results[1].Index)
	assert.Equal(t, 0, results[3].Index)
	assert.Equal(t, 5, results[4].Index)
	assert.Equal(t, 3, results[5].Index)
}

func TestBatchTopK_Truncation(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{{1, 0}, {0, 1}, {1, 1}}

	results, err := BatchTopK(query, corpus, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = BatchTopK(query, corpus, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestBatchTopK_EmptyCorpus(t *testing.T) {
	results, err := BatchTopK([]float32{1}, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBatchTopK_ZeroQuery(t *testing.T) {
	results, err := BatchTopK([]float32{0, 0}, [][]float32{{1, 0}, {0, 1}}, 0)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, float32(0), r.Score)
	}
}

func TestBatchTopK_DimensionMismatch(t *testing.T) {
	_, err := BatchTopK([]float32{1, 0}, [][]float32{{1, 0, 0}}, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
	assert.InDelta(t, 1.0, float64(Magnitude(v)), 1e-6)
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestWeightedAverage(t *testing.T) {
	vectors := [][]float32{
		{1, 0},
		{0, 1},
	}

	// Unnormalized weights; 3:1 should land at (0.75, 0.25).
	out, err := WeightedAverage(vectors, []float32{3, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, float64(out[0]), 1e-6)
	assert.InDelta(t, 0.25, float64(out[1]), 1e-6)
}

func TestWeightedAverage_Errors(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}}

	_, err := WeightedAverage(vectors, []float32{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = WeightedAverage(vectors, []float32{0, 0})
	assert.ErrorIs(t, err, ErrInvalidWeights)

	_, err = WeightedAverage(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyVector)

	_, err = WeightedAverage([][]float32{{1, 0}, {1}}, []float32{1, 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestWeightedAverage_NegativeWeightsCancel(t *testing.T) {
	// Weight sum exactly zero must error even when individual weights are nonzero.
	_, err := WeightedAverage([][]float32{{1}, {2}}, []float32{1, -1})
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestMagnitude(t *testing.T) {
	assert.InDelta(t, 5.0, float64(Magnitude([]float32{3, 4})), 1e-6)
	assert.Equal(t, float32(0), Magnitude(nil))
}

func TestClampHandlesFloatDrift(t *testing.T) {
	// Direct check that near-parallel vectors never exceed the bound.
	a := []float32{float32(math.Sqrt(2)) / 2, float32(math.Sqrt(2)) / 2}
	sim, err := CosineSimilarity(a, a)
	require.NoError(t, err)
	assert.LessOrEqual(t, sim, float32(1.0))
}

func TestErrorsAreDistinguishable(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.False(t, errors.Is(err, ErrEmptyVector))
}
