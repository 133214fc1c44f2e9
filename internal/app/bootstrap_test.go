package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/event"
	"github.com/mixmaster1989/mexcscalp-sub000/internal/infra"
)

func tradeFill(id string) domain.Fill {
	return domain.Fill{
		TradeID: id,
		OrderID: "o-" + id,
		Symbol:  "ETHUSDC",
		Side:    domain.SideBuy,
		Price:   4320.00,
		Qty:     0.01,
	}
}

func fillBatch(from, to int) []domain.Fill {
	var out []domain.Fill
	for i := from; i < to; i++ {
		out = append(out, tradeFill(fmt.Sprintf("t-%d", i)))
	}
	return out
}

func TestFillTracker_FirstFetchOnlyPrimes(t *testing.T) {
	tr := newFillTracker()

	if fresh := tr.Diff(fillBatch(0, 2)); len(fresh) != 0 {
		t.Fatalf("first fetch must not replay pre-run fills, got %d", len(fresh))
	}

	fresh := tr.Diff(fillBatch(0, 3))
	if len(fresh) != 1 || fresh[0].TradeID != "t-2" {
		t.Errorf("expected exactly the new fill t-2, got %+v", fresh)
	}
}

func TestFillTracker_RefetchProducesNothing(t *testing.T) {
	tr := newFillTracker()
	tr.Diff(fillBatch(0, 5))

	if fresh := tr.Diff(fillBatch(0, 5)); len(fresh) != 0 {
		t.Errorf("identical fetch must yield no fills, got %d", len(fresh))
	}
}

func TestFillTracker_SeenSetBoundedByPollWindow(t *testing.T) {
	tr := newFillTracker()
	tr.Diff(fillBatch(0, 50))

	// The window slides completely; old ids leave the set with it.
	if fresh := tr.Diff(fillBatch(50, 100)); len(fresh) != 50 {
		t.Fatalf("expected 50 new fills, got %d", len(fresh))
	}
	if len(tr.seen) != 50 {
		t.Errorf("seen set must track the poll window only, got %d entries", len(tr.seen))
	}
	if fresh := tr.Diff(fillBatch(50, 100)); len(fresh) != 0 {
		t.Errorf("refetch of the new window must yield nothing, got %d", len(fresh))
	}
}

func TestInjectFill_WaitsForInboxRoom(t *testing.T) {
	ch := make(chan event.Event, 1)
	b := &Bootstrap{clock: infra.SystemClock{}, inbox: ch}
	ch <- &event.TradeEvent{} // inbox full

	done := make(chan struct{})
	go func() {
		b.injectFill(context.Background(), tradeFill("t-9"))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("fill must wait for inbox room, not drop")
	case <-time.After(100 * time.Millisecond):
	}

	<-ch // consumer frees a slot
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("fill was not delivered after the inbox drained")
	}

	ev, ok := (<-ch).(*event.OrderUpdateEvent)
	if !ok {
		t.Fatal("expected an OrderUpdateEvent")
	}
	if ev.Fill == nil || ev.Fill.TradeID != "t-9" {
		t.Errorf("fill payload lost: %+v", ev.Fill)
	}
	if ev.Order.Status != domain.StatusFilled {
		t.Errorf("expected filled order status, got %s", ev.Order.Status)
	}
	if ev.Seq != 1 {
		t.Errorf("expected inbound seq 1, got %d", ev.Seq)
	}
}

func TestInjectFill_CancelReleasesBlockedSend(t *testing.T) {
	ch := make(chan event.Event) // no buffer, nobody reading
	b := &Bootstrap{clock: infra.SystemClock{}, inbox: ch}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.injectFill(ctx, tradeFill("t-1"))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("canceled context must release a blocked fill injection")
	}
}
