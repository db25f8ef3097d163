package bus

import (
	"testing"
	"time"
)

func recv(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case evt, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishFansOutToTopicSubscribers(t *testing.T) {
	b := New()

	sub1 := b.Subscribe(GameTopic("ABC123"))
	sub2 := b.Subscribe(GameTopic("ABC123"))
	other := b.Subscribe(GameTopic("XYZ789"))

	b.Publish(GameTopic("ABC123"), Event{Type: "round_started"})

	for _, sub := range []*Subscription{sub1, sub2} {
		if evt := recv(t, sub); evt.Type != "round_started" {
			t.Errorf("got event type %q, want round_started", evt.Type)
		}
	}

	select {
	case evt := <-other.C:
		t.Errorf("subscriber on another topic received %q", evt.Type)
	default:
	}
}

func TestHostTopicIsSeparateFromGameTopic(t *testing.T) {
	b := New()

	game := b.Subscribe(GameTopic("ABC123"))
	host := b.Subscribe(HostTopic("ABC123"))

	b.Publish(HostTopic("ABC123"), Event{Type: "pick_submitted"})

	if evt := recv(t, host); evt.Type != "pick_submitted" {
		t.Errorf("host got %q, want pick_submitted", evt.Type)
	}
	select {
	case evt := <-game.C:
		t.Errorf("game-wide subscriber received host event %q", evt.Type)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()

	sub := b.Subscribe(GameTopic("ABC123"))
	if n := b.SubscriberCount(GameTopic("ABC123")); n != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", n)
	}

	b.Unsubscribe(sub)
	if _, ok := <-sub.C; ok {
		t.Error("channel still open after Unsubscribe")
	}
	if n := b.SubscriberCount(GameTopic("ABC123")); n != 0 {
		t.Errorf("SubscriberCount = %d after Unsubscribe, want 0", n)
	}

	// unsubscribing twice must not panic
	b.Unsubscribe(sub)

	// publishing to a topic with no subscribers is a no-op
	b.Publish(GameTopic("ABC123"), Event{Type: "round_started"})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()

	sub := b.Subscribe(GameTopic("ABC123"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		// overflow the buffer without ever reading
		for i := 0; i < subscriberBuffer+10; i++ {
			b.Publish(GameTopic("ABC123"), Event{Type: "keyword_revealed"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	if len(sub.C) != subscriberBuffer {
		t.Errorf("buffered %d events, want %d", len(sub.C), subscriberBuffer)
	}
}
