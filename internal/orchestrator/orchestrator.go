// Package orchestrator glues the model response stream to the artifact core.
// It owns no parsing: each inbound event is dispatched either to the
// extractor (complete assistant messages) or to the document store
// (incremental stream parts), and the resulting artifact list is republished
// to UI watchers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"easel/internal/artifact"
	"easel/internal/artifact/events"
	"easel/internal/artifact/extract"
	"easel/internal/artifact/registry"
	"easel/internal/artifact/store"
	"easel/internal/artifact/stream"
	"easel/internal/shared/logging"
)

// InboundEvent is the wire shape of one model-stream event.
//
// Type is one of "message", "text-delta", "<kind>-delta", "metadata-update",
// "status-update", or "error". "message" carries a complete assistant message
// for the extractor path; everything else addresses one document by id.
type InboundEvent struct {
	Type       string                  `json:"type"`
	DocumentID string                  `json:"document_id,omitempty"`
	Kind       string                  `json:"kind,omitempty"`
	Title      string                  `json:"title,omitempty"`
	Content    string                  `json:"content,omitempty"`
	Metadata   *artifact.MetadataPatch `json:"metadata,omitempty"`
	Status     string                  `json:"status,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Message    string                  `json:"message,omitempty"`
}

// ArtifactList is the UI-facing snapshot for one chat: streamed documents and
// legacy extracted artifacts side by side. The two pipelines stay distinct; a
// logical artifact lives in exactly one of them.
type ArtifactList struct {
	Documents []artifact.Plain   `json:"documents"`
	Legacy    []extract.Artifact `json:"legacy,omitempty"`
}

type chatState struct {
	mu     sync.Mutex
	store  *store.Store
	legacy []extract.Artifact
}

// Orchestrator routes inbound events for any number of concurrent chats.
type Orchestrator struct {
	mu    sync.RWMutex
	chats map[string]*chatState

	registry  *registry.Registry
	interp    *stream.Interpreter
	publisher events.Publisher
	cache     *listCache
	observer  store.Observer
	tracer    trace.Tracer
	logger    logging.Logger
	clock     func() time.Time
}

// Option mutates the orchestrator during construction.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrNop(logger) }
}

// WithClock injects the time source shared by the cache and the stores.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithStoreObserver attaches a metrics observer to every per-chat store.
func WithStoreObserver(observer store.Observer) Option {
	return func(o *Orchestrator) { o.observer = observer }
}

// New builds an orchestrator. The interpreter is assembled from the
// registry's kind hooks; the cache is constructed here, once, and passed by
// reference everywhere it is needed.
func New(reg *registry.Registry, publisher events.Publisher, cacheConfig CacheConfig, opts ...Option) (*Orchestrator, error) {
	if reg == nil {
		return nil, errors.New("orchestrator requires a kind registry")
	}
	if publisher == nil {
		return nil, errors.New("orchestrator requires an event publisher")
	}
	o := &Orchestrator{
		chats:     make(map[string]*chatState),
		registry:  reg,
		interp:    stream.New(stream.WithHooks(reg.Hooks())),
		publisher: publisher,
		tracer:    otel.Tracer("easel/orchestrator"),
		logger:    logging.Nop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	cache, err := newListCache(cacheConfig, o.clock)
	if err != nil {
		return nil, fmt.Errorf("orchestrator cache: %w", err)
	}
	o.cache = cache
	return o, nil
}

// Ingest routes one inbound event for a chat.
func (o *Orchestrator) Ingest(ctx context.Context, chatID string, event InboundEvent) error {
	if chatID == "" {
		return errors.New("orchestrator: chat id is required")
	}
	ctx, span := o.tracer.Start(ctx, "orchestrator.ingest",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("event.type", event.Type),
		))
	defer span.End()

	state := o.chat(chatID)
	var err error
	if event.Type == "message" {
		err = o.ingestMessage(state, event)
	} else {
		err = o.ingestPart(state, chatID, event)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	o.cache.invalidate(chatID)
	return o.republish(ctx, chatID, state)
}

// ingestMessage regenerates the legacy artifact list from a complete message.
// The previous list is replaced wholesale, never patched.
func (o *Orchestrator) ingestMessage(state *chatState, event InboundEvent) error {
	artifacts := extract.Extract(event.Message)
	state.mu.Lock()
	state.legacy = artifacts
	state.mu.Unlock()
	return nil
}

func (o *Orchestrator) ingestPart(state *chatState, chatID string, event InboundEvent) error {
	if event.DocumentID == "" {
		return fmt.Errorf("orchestrator: %s event missing document id", event.Type)
	}

	part, err := toStreamPart(event)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if _, getErr := state.store.Get(event.DocumentID); errors.Is(getErr, store.ErrNotFound) {
		kind := resolveKind(event)
		initial, initErr := o.registry.Initialize(kind, registry.InitContext{ChatID: chatID, Title: event.Title})
		if initErr != nil {
			return initErr
		}
		if _, createErr := state.store.CreateWithID(event.DocumentID, kind, initial); createErr != nil {
			return createErr
		}
		if event.Title != "" {
			// Seed the title before the first delta lands.
			if _, applyErr := state.store.Apply(event.DocumentID, artifact.StreamPart{
				Type:     artifact.PartMetadataUpdate,
				Metadata: &artifact.MetadataPatch{Title: &event.Title},
			}); applyErr != nil {
				return applyErr
			}
		}
	}

	_, err = state.store.Apply(event.DocumentID, part)
	return err
}

// Finish delivers the synthetic terminal signal for a chat whose producing
// stream ended, whether cleanly, by user stop, or by connection drop. No
// document is left permanently in streaming. The signal is accepted whenever
// it arrives; documents already terminal are untouched.
func (o *Orchestrator) Finish(ctx context.Context, chatID string, failure error) error {
	state := o.chat(chatID)

	part := artifact.StreamPart{Type: artifact.PartStatusUpdate, Status: artifact.StatusCompleted.String()}
	if failure != nil {
		part = artifact.StreamPart{Type: artifact.PartError, Error: failure.Error()}
	}

	state.mu.Lock()
	for _, doc := range state.store.List() {
		if doc.Status.Terminal() {
			continue
		}
		if failure == nil && doc.Status != artifact.StatusStreaming {
			// Drafts never received a delta; completing them is not a legal
			// move and they are not stuck in streaming.
			continue
		}
		if _, err := state.store.Apply(doc.ID, part); err != nil {
			state.mu.Unlock()
			return err
		}
	}
	state.mu.Unlock()

	o.cache.invalidate(chatID)
	return o.republish(ctx, chatID, state)
}

// Artifacts returns the current UI-facing snapshot for a chat, served from
// the TTL cache when fresh.
func (o *Orchestrator) Artifacts(chatID string) ArtifactList {
	if list, ok := o.cache.get(chatID); ok {
		return list
	}
	state := o.chat(chatID)
	list := snapshot(state)
	o.cache.put(chatID, list)
	return list
}

// Visibility, versions, and actions pass through to the chat's store.

// SetVisible toggles a document's visibility flag.
func (o *Orchestrator) SetVisible(ctx context.Context, chatID, documentID string, visible bool) error {
	state := o.chat(chatID)
	if err := state.store.SetVisible(documentID, visible); err != nil {
		return err
	}
	o.cache.invalidate(chatID)
	return o.republish(ctx, chatID, state)
}

// SnapshotVersion records a save point for a document.
func (o *Orchestrator) SnapshotVersion(chatID, documentID string) error {
	return o.chat(chatID).store.SnapshotVersion(documentID)
}

// RestoreVersion rolls a document back to a saved snapshot.
func (o *Orchestrator) RestoreVersion(ctx context.Context, chatID, documentID string, index int) error {
	state := o.chat(chatID)
	if err := state.store.RestoreVersion(documentID, index); err != nil {
		return err
	}
	o.cache.invalidate(chatID)
	return o.republish(ctx, chatID, state)
}

// Document fetches one document snapshot.
func (o *Orchestrator) Document(chatID, documentID string) (artifact.Document, error) {
	return o.chat(chatID).store.Get(documentID)
}

// Render produces the registry view model for one document.
func (o *Orchestrator) Render(chatID, documentID string) (registry.ViewModel, error) {
	doc, err := o.Document(chatID, documentID)
	if err != nil {
		return registry.ViewModel{}, err
	}
	return o.registry.Render(doc)
}

// Versions lists the saved snapshots for a document.
func (o *Orchestrator) Versions(chatID, documentID string) ([]artifact.Version, error) {
	return o.chat(chatID).store.Versions(documentID)
}

// RunAction triggers a registered action on a document by label.
func (o *Orchestrator) RunAction(chatID, documentID, label string, emit func(effect string, payload map[string]any) error) error {
	doc, err := o.Document(chatID, documentID)
	if err != nil {
		return err
	}
	def, err := o.registry.Lookup(doc.Kind)
	if err != nil {
		return err
	}
	for _, action := range def.Actions {
		if strings.EqualFold(action.Label, label) {
			return action.Run(registry.ActionContext{Document: doc.Plain(), Emit: emit})
		}
	}
	return fmt.Errorf("no %q action for kind %s", label, doc.Kind)
}

// EvictChat drops all state for a cleared chat and tells watchers.
func (o *Orchestrator) EvictChat(ctx context.Context, chatID string) error {
	o.mu.Lock()
	delete(o.chats, chatID)
	o.mu.Unlock()
	o.cache.invalidate(chatID)
	return o.publisher.Publish(ctx, events.Event{ChatID: chatID, Cleared: true})
}

func (o *Orchestrator) republish(ctx context.Context, chatID string, state *chatState) error {
	list := snapshot(state)
	o.cache.put(chatID, list)
	return o.publisher.Publish(ctx, events.Event{
		ChatID:    chatID,
		Documents: list.Documents,
		Legacy:    list.Legacy,
	})
}

func (o *Orchestrator) chat(chatID string) *chatState {
	o.mu.RLock()
	state, ok := o.chats[chatID]
	o.mu.RUnlock()
	if ok {
		return state
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if state, ok = o.chats[chatID]; ok {
		return state
	}
	storeOpts := []store.Option{store.WithLogger(o.logger), store.WithClock(o.clock)}
	if o.observer != nil {
		storeOpts = append(storeOpts, store.WithObserver(o.observer))
	}
	state = &chatState{store: store.New(o.interp, storeOpts...)}
	o.chats[chatID] = state
	return state
}

func snapshot(state *chatState) ArtifactList {
	state.mu.Lock()
	defer state.mu.Unlock()
	docs := state.store.List()
	list := ArtifactList{Documents: make([]artifact.Plain, 0, len(docs))}
	for _, doc := range docs {
		list.Documents = append(list.Documents, doc.Plain())
	}
	if state.legacy != nil {
		list.Legacy = append([]extract.Artifact(nil), state.legacy...)
	}
	return list
}

func toStreamPart(event InboundEvent) (artifact.StreamPart, error) {
	switch event.Type {
	case "text-delta":
		return artifact.StreamPart{Type: artifact.PartContentUpdate, Content: event.Content}, nil
	case string(artifact.PartContentUpdate):
		return artifact.StreamPart{Type: artifact.PartContentUpdate, Content: event.Content}, nil
	case string(artifact.PartMetadataUpdate):
		return artifact.StreamPart{Type: artifact.PartMetadataUpdate, Metadata: event.Metadata}, nil
	case string(artifact.PartStatusUpdate):
		return artifact.StreamPart{Type: artifact.PartStatusUpdate, Status: event.Status}, nil
	case string(artifact.PartError):
		return artifact.StreamPart{Type: artifact.PartError, Error: event.Error}, nil
	}
	part := artifact.StreamPart{
		Type:     artifact.PartType(event.Type),
		Content:  event.Content,
		Metadata: event.Metadata,
		Status:   event.Status,
		Error:    event.Error,
	}
	if _, ok := part.KindDelta(); !ok {
		return artifact.StreamPart{}, fmt.Errorf("orchestrator: unknown event type %q", event.Type)
	}
	return part, nil
}

func resolveKind(event InboundEvent) artifact.Kind {
	if event.Kind != "" {
		if kind, err := artifact.ParseKind(event.Kind); err == nil {
			return kind
		}
	}
	if kind, ok := (artifact.StreamPart{Type: artifact.PartType(event.Type)}).KindDelta(); ok {
		return kind
	}
	return artifact.KindText
}
