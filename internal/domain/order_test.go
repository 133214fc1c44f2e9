package domain

import "testing"

func TestOrder_IsOpen(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusNew, true},
		{StatusPartiallyFilled, true},
		{StatusFilled, false},
		{StatusCanceled, false},
		{StatusRejected, false},
		{StatusExpired, false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			o := &Order{Status: tt.status}
			if got := o.IsOpen(); got != tt.want {
				t.Errorf("Order.IsOpen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrder_RemainingQty(t *testing.T) {
	o := &Order{Qty: 0.05, FilledQty: 0.02}
	if got := o.RemainingQty(); got != 0.03 {
		t.Errorf("RemainingQty = %v, want 0.03", got)
	}
	o.FilledQty = 0.05
	if got := o.RemainingQty(); got != 0 {
		t.Errorf("RemainingQty = %v, want 0", got)
	}
}

func TestOpposite(t *testing.T) {
	if Opposite(SideBuy) != SideSell || Opposite(SideSell) != SideBuy {
		t.Error("Opposite sides wrong")
	}
}
