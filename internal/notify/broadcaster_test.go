package notify

import (
	"context"
	"testing"
	"time"
)

func recv(t *testing.T, ch <-chan Event) (Event, bool) {
	t.Helper()
	select {
	case e, ok := <-ch:
		return e, ok
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}, false
	}
}

func expectNone(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case e, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_DeliversToOthersOnly(t *testing.T) {
	b := NewBroadcaster(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)
	defer b.Stop()

	annCh, annCancel := b.Subscribe("ann")
	defer annCancel()
	bobCh, bobCancel := b.Subscribe("bob")
	defer bobCancel()

	if got := b.Subscribers(); got != 2 {
		t.Fatalf("Subscribers()=%d, want 2", got)
	}

	if !b.Publish(Event{Identity: "ann", Score: 250}) {
		t.Fatalf("publish should succeed")
	}

	e, ok := recv(t, bobCh)
	if !ok || e.Identity != "ann" || e.Score != 250 {
		t.Fatalf("bob got %+v ok=%v", e, ok)
	}
	expectNone(t, annCh)
}

func TestBroadcaster_CancelUnsubscribes(t *testing.T) {
	b := NewBroadcaster(4)
	b.Start(context.Background())
	defer b.Stop()

	ch, cancelSub := b.Subscribe("bob")
	cancelSub()
	cancelSub() // idempotent

	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
	if b.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func TestBroadcaster_PublishNeverBlocks(t *testing.T) {
	b := NewBroadcaster(1)
	// dispatch loop not started: the inbox fills after one event
	if !b.Publish(Event{Identity: "a"}) {
		t.Fatalf("first publish should fit in the inbox")
	}
	done := make(chan bool, 1)
	go func() { done <- b.Publish(Event{Identity: "b"}) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("second publish should report a full inbox")
		}
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full inbox")
	}
}

func TestBroadcaster_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroadcaster(1)
	b.Start(context.Background())
	defer b.Stop()

	slow, cancelSlow := b.Subscribe("slow")
	defer cancelSlow()
	fast, cancelFast := b.Subscribe("fast")
	defer cancelFast()

	for i := 0; i < 3; i++ {
		b.Publish(Event{Identity: "p", Score: float64(100 + i)})
		if _, ok := recv(t, fast); !ok {
			t.Fatalf("fast subscriber closed early")
		}
	}

	// slow never read; it holds exactly one buffered event
	e, ok := recv(t, slow)
	if !ok || e.Score != 100 {
		t.Fatalf("slow subscriber got %+v ok=%v", e, ok)
	}
	expectNone(t, slow)
}

func TestBroadcaster_StopClosesSubscribersAndRejectsPublish(t *testing.T) {
	b := NewBroadcaster(2)
	b.Start(context.Background())

	ch, _ := b.Subscribe("ann")
	b.Stop()
	b.Stop()

	if _, ok := <-ch; ok {
		t.Fatalf("subscriber channel should be closed by Stop")
	}
	if b.Publish(Event{Identity: "x"}) {
		t.Fatalf("publish after Stop should fail")
	}

	late, _ := b.Subscribe("late")
	if _, ok := <-late; ok {
		t.Fatalf("subscribe after Stop should return a closed channel")
	}
}
