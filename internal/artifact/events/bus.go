// Package events fans document updates out to UI watchers, keyed by chat id.
package events

import (
	"context"
	"errors"
	"sync"

	"easel/internal/artifact"
	"easel/internal/artifact/extract"
)

const defaultBuffer = 16

// Event is one republication of a chat's artifact state.
type Event struct {
	ChatID    string             `json:"chat_id"`
	Documents []artifact.Plain   `json:"documents,omitempty"`
	Legacy    []extract.Artifact `json:"legacy,omitempty"`
	Cleared   bool               `json:"cleared,omitempty"`
}

// Publisher is the subset of Bus the orchestrator depends on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus delivers events to per-chat watchers. Sends never block: a slow watcher
// drops events rather than stalling the stream.
type Bus struct {
	mu       sync.RWMutex
	watchers map[string]map[uint64]*watchRegistration
	nextID   uint64
}

type watchRegistration struct {
	ch chan Event
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{watchers: make(map[string]map[uint64]*watchRegistration)}
}

// Watch subscribes to a chat's events until ctx is cancelled.
func (b *Bus) Watch(ctx context.Context, chatID string) (<-chan Event, error) {
	if chatID == "" {
		return nil, errors.New("artifact events: chat id is required")
	}

	ch := make(chan Event, defaultBuffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if _, ok := b.watchers[chatID]; !ok {
		b.watchers[chatID] = make(map[uint64]*watchRegistration)
	}
	b.watchers[chatID][id] = &watchRegistration{ch: ch}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.removeWatcher(chatID, id)
	}()

	return ch, nil
}

// Publish dispatches an event to every watcher of its chat.
func (b *Bus) Publish(_ context.Context, event Event) error {
	if event.ChatID == "" {
		return errors.New("artifact events: event missing chat id")
	}
	b.dispatch(event.ChatID, event)
	return nil
}

func (b *Bus) dispatch(chatID string, event Event) {
	b.mu.RLock()
	watchers := b.watchers[chatID]
	copies := make([]*watchRegistration, 0, len(watchers))
	for _, reg := range watchers {
		copies = append(copies, reg)
	}
	b.mu.RUnlock()

	for _, reg := range copies {
		b.safeSend(reg, event)
	}
}

func (b *Bus) safeSend(reg *watchRegistration, event Event) {
	defer func() {
		if recover() != nil {
			// The watcher channel was closed after we copied the registration.
			// Ignore the event and keep publishing to other watchers.
		}
	}()

	select {
	case reg.ch <- event:
	default:
	}
}

func (b *Bus) removeWatcher(chatID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	watchers := b.watchers[chatID]
	if watchers == nil {
		return
	}
	if reg, ok := watchers[id]; ok {
		delete(watchers, id)
		close(reg.ch)
	}
	if len(watchers) == 0 {
		delete(b.watchers, chatID)
	}
}
