package events

import (
	"context"
	"testing"
	"time"

	"easel/internal/artifact"
)

func TestPublishReachesWatcher(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Watch(ctx, "chat-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	event := Event{
		ChatID:    "chat-1",
		Documents: []artifact.Plain{{ID: "doc-1", Kind: artifact.KindText}},
	}
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.ChatID != "chat-1" || len(got.Documents) != 1 {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("event never delivered")
	}
}

func TestPublishIsScopedToChat(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	other, err := bus.Watch(ctx, "chat-other")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := bus.Publish(context.Background(), Event{ChatID: "chat-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-other:
		t.Fatalf("cross-chat delivery: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchRequiresChatID(t *testing.T) {
	bus := NewBus()
	if _, err := bus.Watch(context.Background(), ""); err == nil {
		t.Fatalf("empty chat id should be rejected")
	}
	if err := bus.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("event without chat id should be rejected")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Watch(ctx, "chat-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("channel never closed after cancel")
		}
	}
}

func TestSlowWatcherDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Watch(ctx, "chat-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nobody drains ch; publishing far past the buffer must still return.
		for i := 0; i < defaultBuffer*4; i++ {
			if err := bus.Publish(context.Background(), Event{ChatID: "chat-1"}); err != nil {
				t.Errorf("publish %d: %v", i, err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow watcher")
	}
	if len(ch) != defaultBuffer {
		t.Fatalf("expected a full buffer of %d, got %d", defaultBuffer, len(ch))
	}
}

func TestClearedEventCarriesFlag(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Watch(ctx, "chat-1")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := bus.Publish(context.Background(), Event{ChatID: "chat-1", Cleared: true}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-ch:
		if !got.Cleared {
			t.Fatalf("cleared flag lost: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("event never delivered")
	}
}
