package utils

import "math"

// NormalizeL2 scales the vector in place to unit L2 norm so that cosine
// similarity reduces to a dot product. A zero vector is left as is.
func NormalizeL2(vec []float32) {
	var sumSquares float32
	for _, v := range vec {
		sumSquares += v * v
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sumSquares)))
	for i := range vec {
		vec[i] *= inv
	}
}

// Round3 rounds to three decimal places. Similarity scores are reported at
// this precision.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
