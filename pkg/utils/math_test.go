package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	vec := []float32{3, 4}
	NormalizeL2(vec)
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1.0) > 1e-6 {
		t.Errorf("expected unit norm, got %f", norm)
	}

	zero := []float32{0, 0, 0}
	NormalizeL2(zero)
	for i, v := range zero {
		if v != 0 {
			t.Errorf("zero vector changed at %d: %f", i, v)
		}
	}
}

func TestRound3(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.12345, 0.123},
		{0.9996, 1.0},
		{0.0004, 0.0},
		{1.0, 1.0},
	}
	for _, tt := range tests {
		if got := Round3(tt.in); got != tt.want {
			t.Errorf("Round3(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
