package progress

import (
	"sync"
	"testing"
)

func TestBroker_DeliversToMatchingSubscriber(t *testing.T) {
	b := NewBroker()
	first := b.Subscribe("job-1")
	second := b.Subscribe("job-2")

	if !b.Publish("job-1", NewProgress(50)) {
		t.Fatal("publish to subscribed job must succeed")
	}

	select {
	case ev := <-first:
		p, ok := ev.(*ProgressEvent)
		if !ok || p.Progress != 50 {
			t.Fatalf("unexpected event: %#v", ev)
		}
	default:
		t.Fatal("expected event on job-1")
	}

	select {
	case ev := <-second:
		t.Fatalf("job-2 must not receive job-1 events, got %#v", ev)
	default:
	}
}

func TestBroker_PublishToUnknownJobDropped(t *testing.T) {
	b := NewBroker()
	if b.Publish("missing", NewProgress(10)) {
		t.Fatal("publish to unknown job must report a drop")
	}
}

func TestBroker_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("job-1")
	b.Unsubscribe("job-1")

	if _, open := <-ch; open {
		t.Fatal("channel must be closed after unsubscribe")
	}
	if b.Publish("job-1", NewProgress(10)) {
		t.Fatal("publish after unsubscribe must report a drop")
	}
}

func TestBroker_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker()
	b.Subscribe("job-1")

	for i := 0; i < subscriptionBuffer; i++ {
		if !b.Publish("job-1", NewProgress(float64(i))) {
			t.Fatalf("publish %d should fit in buffer", i)
		}
	}
	if b.Publish("job-1", NewProgress(99)) {
		t.Fatal("publish past buffer must drop, not block")
	}
}

func TestBroker_PublishRacingUnsubscribe(t *testing.T) {
	// A job goroutine keeps publishing while the websocket side tears the
	// subscription down. A send that races the channel close would panic.
	b := NewBroker()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		b.Subscribe("job-1")

		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Publish("job-1", NewProgress(float64(j)))
			}
		}()
		go func() {
			defer wg.Done()
			b.Unsubscribe("job-1")
		}()
		wg.Wait()
	}
}

func TestNewProgress_Clamps(t *testing.T) {
	if NewProgress(-5).Progress != 0 {
		t.Fatal("negative progress must clamp to 0")
	}
	if NewProgress(140).Progress != 100 {
		t.Fatal("progress above 100 must clamp")
	}
}
