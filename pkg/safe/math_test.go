package safe

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name       string
		v, lo, hi  float64
		want       float64
	}{
		{"Below", -2, -1, 1, -1},
		{"Above", 2, -1, 1, 1},
		{"Inside", 0.5, -1, 1, 0.5},
		{"AtBound", 1, -1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("Clamp(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestFinite(t *testing.T) {
	if got := Finite(math.NaN(), 0.5); got != 0.5 {
		t.Errorf("Finite(NaN) = %v, want 0.5", got)
	}
	if got := Finite(math.Inf(1), 0); got != 0 {
		t.Errorf("Finite(+Inf) = %v, want 0", got)
	}
	if got := Finite(1.25, 0); got != 1.25 {
		t.Errorf("Finite(1.25) = %v, want 1.25", got)
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio(1, 0, 0.5); got != 0.5 {
		t.Errorf("Ratio div by zero = %v, want fallback", got)
	}
	if got := Ratio(3, 2, 0); got != 1.5 {
		t.Errorf("Ratio(3,2) = %v, want 1.5", got)
	}
}
