package utils

import (
	"fmt"
	"math"
)

// CosineSimilarity computes the cosine of the angle between two equal-length
// vectors.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length")
	}

	var dotProduct, normA, normB float64

	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero vector encountered")
	}

	return dotProduct / (normA * normB), nil
}

// EuclideanDistance computes the L2 distance between two equal-length vectors.
func EuclideanDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length")
	}

	var sumOfSquares float64
	for i := 0; i < len(a); i++ {
		diff := float64(a[i] - b[i])
		sumOfSquares += diff * diff
	}

	return math.Sqrt(sumOfSquares), nil
}

// Clamp01 clamps v into the closed interval [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
