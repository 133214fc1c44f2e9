package quant

import (
	"math"
	"testing"
)

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		tick  float64
		want  float64
	}{
		{"ExactMultiple", 4320.00, 0.01, 4320.00},
		{"RoundUp", 4310.025, 0.01, 4310.03},
		{"RoundDown", 4314.301, 0.01, 4314.30},
		{"LargeTick", 101.3, 0.5, 101.5},
		{"ZeroTick", 123.456, 0, 123.456},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundToTick(tt.price, tt.tick)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("RoundToTick(%v, %v) = %v, want %v", tt.price, tt.tick, got, tt.want)
			}
		})
	}
}

// Rounding must be idempotent: rounding an already-rounded price is a no-op.
func TestRoundToTick_Idempotent(t *testing.T) {
	ticks := []float64{0.01, 0.001, 0.5, 1, 0.0001}
	prices := []float64{4314.2975, 0.123456, 99999.999, 1e-5, 7}
	for _, tick := range ticks {
		for _, price := range prices {
			once := RoundToTick(price, tick)
			twice := RoundToTick(once, tick)
			if once != twice {
				t.Errorf("tick=%v price=%v: RoundToTick not idempotent: %v != %v", tick, price, once, twice)
			}
		}
	}
}

func TestRoundToStep_FloorsNeverUp(t *testing.T) {
	tests := []struct {
		qty, step, want float64
	}{
		{0.0199, 0.001, 0.019},
		{0.01, 0.001, 0.01},
		{0.0009, 0.001, 0},
		{1.5, 0.1, 1.5},
	}
	for _, tt := range tests {
		got := RoundToStep(tt.qty, tt.step)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("RoundToStep(%v, %v) = %v, want %v", tt.qty, tt.step, got, tt.want)
		}
		if RoundToStep(got, tt.step) != got {
			t.Errorf("RoundToStep not idempotent for qty=%v step=%v", tt.qty, tt.step)
		}
	}
}

func TestAligned(t *testing.T) {
	if !AlignedToTick(4320.00, 0.01) {
		t.Error("4320.00 should align to 0.01")
	}
	if AlignedToTick(4320.005, 0.01) {
		t.Error("4320.005 should not align to 0.01")
	}
	if !AlignedToStep(0.019, 0.001) {
		t.Error("0.019 should align to 0.001")
	}
}

func TestApplyBps(t *testing.T) {
	// Buy fill at 4320.00 with 12 bps take profit -> sell at 4325.184.
	got := ApplyBps(4320.00, 12, true)
	if math.Abs(got-4325.184) > 1e-9 {
		t.Errorf("ApplyBps(4320, 12, up) = %v, want 4325.184", got)
	}
	got = ApplyBps(4320.00, 12, false)
	if math.Abs(got-4314.816) > 1e-9 {
		t.Errorf("ApplyBps(4320, 12, down) = %v, want 4314.816", got)
	}
}

func TestNotional(t *testing.T) {
	if got := Notional(4320.00, 0.01); math.Abs(got-43.20) > 1e-12 {
		t.Errorf("Notional = %v, want 43.20", got)
	}
}
