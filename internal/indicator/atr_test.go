package indicator

import (
	"math"
	"testing"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

func candle(high, low, close float64) domain.Candle {
	return domain.Candle{Symbol: "ETHUSDT", High: high, Low: low, Close: close, Open: close}
}

func TestATR_WarmupAndMean(t *testing.T) {
	atr := NewATR(3)

	// Fewer than period+1 candles: not ready.
	candles := []domain.Candle{
		candle(102, 98, 100), // seed, no TR counted yet
		candle(104, 100, 103),
		candle(105, 101, 102),
	}
	for i, c := range candles {
		if _, ok := atr.Update(c); ok {
			t.Fatalf("candle %d: ATR reported ready before period+1 candles", i)
		}
	}

	// 4th candle: ready. True ranges for candles 2..4:
	// TR2 = max(104-100, |104-100|, |100-100|) = 4
	// TR3 = max(105-101, |105-103|, |101-103|) = 4
	// TR4 = max(106-103, |106-102|, |103-102|) = 4
	data, ok := atr.Update(candle(106, 103, 105))
	if !ok {
		t.Fatal("ATR should be ready after period+1 candles")
	}
	if math.Abs(data.Value-4.0) > 1e-12 {
		t.Errorf("ATR = %v, want 4.0 (mean of true ranges)", data.Value)
	}
}

func TestATR_GapUsesPrevClose(t *testing.T) {
	atr := NewATR(1)
	atr.Update(candle(101, 99, 100))
	// Gap up: high-low = 1 but |high-prevClose| = 10.
	data, ok := atr.Update(candle(110, 109, 110))
	if !ok {
		t.Fatal("ATR(1) should be ready after 2 candles")
	}
	if math.Abs(data.Value-10.0) > 1e-12 {
		t.Errorf("ATR = %v, want 10.0 (gap vs prev close)", data.Value)
	}
}

func TestATR_BoundedHistory(t *testing.T) {
	atr := NewATR(2)
	for i := 0; i < 100; i++ {
		atr.Update(candle(101, 99, 100))
	}
	if len(atr.closes) != 3 {
		t.Errorf("history length = %d, want period+1 = 3", len(atr.closes))
	}
}

func TestATR_Reset(t *testing.T) {
	atr := NewATR(2)
	for i := 0; i < 5; i++ {
		atr.Update(candle(101, 99, 100))
	}
	atr.Reset()
	if _, ok := atr.Update(candle(101, 99, 100)); ok {
		t.Error("ATR should not be ready right after Reset")
	}
}
