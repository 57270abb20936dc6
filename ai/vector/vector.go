// Package vector provides the similarity math used by the matching pipeline:
// cosine similarity, batch top-K scoring, normalization and weighted averaging.
// All operations work on raw []float32 slices as returned by the embedding
// provider.
package vector

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyVector is returned when an operation receives a zero-length vector.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrDimensionMismatch is returned when two vectors have different lengths.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrLengthMismatch is returned when a vectors slice and its weights slice differ in length.
	ErrLengthMismatch = errors.New("number of vectors must match number of weights")

	// ErrInvalidWeights is returned when the weight sum is zero.
	ErrInvalidWeights = errors.New("sum of weights cannot be zero")
)

// Scored is one batch top-K result: the corpus index and its similarity score.
type Scored struct {
	Index int
	Score float32
}

// CosineSimilarity computes the cosine similarity between two vectors.
//
// Returns a value in [-1, 1]: 1 for identical direction, 0 for orthogonal,
// -1 for opposite. A zero vector on either side scores 0.0 rather than
// erroring, so degenerate embeddings rank as "unrelated" instead of aborting
// the batch.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	if len(a) != len(b) {
		return 0, errors.Wrapf(ErrDimensionMismatch, "%d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return clamp(sim), nil
}

// BatchTopK scores a query vector against a corpus and returns the top-K
// results sorted by score descending. Ties keep the lower original index
// first, so repeated runs over identical input produce identical output.
// Zero vectors in the corpus (and a zero query) score 0.0, consistent with
// CosineSimilarity.
func BatchTopK(query []float32, corpus [][]float32, k int) ([]Scored, error) {
	if len(corpus) == 0 {
		return []Scored{}, nil
	}
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}

	results := make([]Scored, 0, len(corpus))
	for i, v := range corpus {
		if len(v) != len(query) {
			return nil, errors.Wrapf(ErrDimensionMismatch, "corpus[%d]: %d vs %d", i, len(v), len(query))
		}
		sim, err := CosineSimilarity(query, v)
		if err != nil {
			return nil, err
		}
		results = append(results, Scored{Index: i, Score: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Normalize scales a vector to unit length. The zero vector is returned
// unchanged; it has no direction to preserve.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}

	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// WeightedAverage combines vectors with the given weights. Weights are
// normalized to sum to 1 before combining.
func WeightedAverage(vectors [][]float32, weights []float32) ([]float32, error) {
	if len(vectors) != len(weights) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d vectors, %d weights", len(vectors), len(weights))
	}
	if len(vectors) == 0 {
		return nil, ErrEmptyVector
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, ErrEmptyVector
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, errors.Wrapf(ErrDimensionMismatch, "vectors[%d]: %d vs %d", i, len(v), dim)
		}
	}

	var sum float64
	for _, w := range weights {
		sum += float64(w)
	}
	if sum == 0 {
		return nil, ErrInvalidWeights
	}

	out := make([]float32, dim)
	acc := make([]float64, dim)
	for i, v := range vectors {
		w := float64(weights[i]) / sum
		for j, x := range v {
			acc[j] += w * float64(x)
		}
	}
	for j, x := range acc {
		out[j] = float32(x)
	}
	return out, nil
}

// Magnitude computes the L2 norm of a vector.
func Magnitude(v []float32) float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	return float32(math.Sqrt(norm))
}

func clamp(v float64) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return float32(v)
}
