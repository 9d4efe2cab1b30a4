package match

import "math"

// Euclidean computes the Euclidean distance between two vectors.
// Vectors of different or zero length yield +Inf, which no threshold
// accepts.
func Euclidean(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
