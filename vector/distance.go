package vector

import (
	"fmt"
	"math"

	"github.com/viant/vec/search"
	"github.com/viterin/vek/vek32"
)

// Magnitude returns the Euclidean norm of v.
func Magnitude(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return search.Float32s(v).Magnitude()
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	if len(a) == 0 {
		return 0
	}
	return vek32.Dot(a, b)
}

// Cosine returns dot(a,b) / (|a| * |b|) in float32. Callers must pass vectors
// of equal length. A zero-magnitude operand yields NaN, which never compares
// greater than any score.
func Cosine(a, b []float32) float32 {
	return CosineWithMagnitude(a, b, Magnitude(a), Magnitude(b))
}

// CosineWithMagnitude is Cosine with precomputed norms.
func CosineWithMagnitude(a, b []float32, am, bm float32) float32 {
	return Dot(a, b) / (am * bm)
}

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns an error if the vectors have different lengths or if either vector
// has zero magnitude (ErrZeroMagnitude).
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Want: len(a), Got: len(b)}
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine similarity on empty vectors")
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, ErrZeroMagnitude
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}
