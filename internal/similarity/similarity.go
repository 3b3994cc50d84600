// Package similarity provides the vector similarity math shared by the
// deduplicator and the relevance scorer.
package similarity

import (
	"errors"
	"math"
)

var (
	// ErrDimensionMismatch is returned when the two vectors have different lengths.
	ErrDimensionMismatch = errors.New("similarity: vectors have different dimensions")
	// ErrZeroVector is returned when either vector is empty or has zero magnitude.
	ErrZeroVector = errors.New("similarity: zero-magnitude vector")
)

// Cosine calculates the cosine similarity between two vectors (range: -1 to 1).
// Degenerate input is an explicit error rather than a silent 0: a zero-norm
// vector has no direction, so its similarity to anything is undefined.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	if len(a) == 0 {
		return 0, ErrZeroVector
	}

	dotProduct := 0.0
	magA := 0.0
	magB := 0.0

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)

	if magA == 0.0 || magB == 0.0 {
		return 0, ErrZeroVector
	}

	return dotProduct / (magA * magB), nil
}
