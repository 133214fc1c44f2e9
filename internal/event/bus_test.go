package event

import (
	"testing"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/domain"
)

func TestBus_FanOut(t *testing.T) {
	b := NewBus()
	a := b.Subscribe(4)
	c := b.Subscribe(4)

	b.Publish(FillEvent{BaseEvent: BaseEvent{Seq: 1, Ts: 100}, Fill: domain.Fill{Symbol: "ETHUSDT"}})

	for i, ch := range []<-chan Event{a, c} {
		select {
		case ev := <-ch:
			if ev.GetType() != EvFill || ev.GetSeq() != 1 {
				t.Errorf("subscriber %d: got %v seq %d", i, ev.GetType(), ev.GetSeq())
			}
		default:
			t.Errorf("subscriber %d: no event delivered", i)
		}
	}
}

func TestBus_SlowSubscriberDropsNotBlocks(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe(1)

	b.Publish(StartedEvent{BaseEvent: BaseEvent{Seq: 1}})
	// Buffer full: this must not block.
	b.Publish(StoppedEvent{BaseEvent: BaseEvent{Seq: 2}})

	ev := <-ch
	if ev.GetSeq() != 1 {
		t.Errorf("expected first event retained, got seq %d", ev.GetSeq())
	}
	select {
	case ev := <-ch:
		t.Errorf("expected second event dropped, got seq %d", ev.GetSeq())
	default:
	}
}

func TestBus_Close(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe(1)
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	// Publish after close must not panic.
	b.Publish(ErrorEvent{})

	ch2 := b.Subscribe(1)
	if _, ok := <-ch2; ok {
		t.Error("subscribe after close should return a closed channel")
	}
}
