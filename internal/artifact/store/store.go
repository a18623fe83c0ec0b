// Package store holds the authoritative in-memory document state for one chat
// session. Apply calls are serialized per document id while distinct ids
// progress independently; the store never expires entries on its own.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"easel/internal/artifact"
	"easel/internal/artifact/stream"
	"easel/internal/shared/logging"
)

// ErrNotFound is returned by operations addressing an unknown document id.
var ErrNotFound = errors.New("document not found")

// entry wraps one document with its own mutex so two Apply calls on the same
// id never interleave while unrelated ids stay concurrent.
type entry struct {
	mu  sync.Mutex
	doc artifact.Document
}

// Store is the per-chat document authority.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	interp   *stream.Interpreter
	logger   logging.Logger
	observer Observer
	now      func() time.Time
	newID    func() string
}

// Option mutates the store during construction.
type Option func(*Store)

// WithLogger attaches a logger; rejected transitions are logged, not raised.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(logger) }
}

// WithObserver attaches a metrics observer.
func WithObserver(observer Observer) Option {
	return func(s *Store) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithClock injects the time source used for timestamps and version stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides document id assignment, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New builds a store around the given interpreter.
func New(interp *stream.Interpreter, opts ...Option) *Store {
	s := &Store{
		entries:  make(map[string]*entry),
		interp:   interp,
		logger:   logging.Nop(),
		observer: nopObserver{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create allocates a fresh draft document and returns its id.
func (s *Store) Create(kind artifact.Kind, initial artifact.Metadata) (string, error) {
	return s.CreateWithID(s.newID(), kind, initial)
}

// CreateWithID registers a document under a producer-assigned id. Ids are
// never reused; colliding with a live id is an error.
func (s *Store) CreateWithID(id string, kind artifact.Kind, initial artifact.Metadata) (string, error) {
	if id == "" {
		return "", errors.New("document id is required")
	}
	if !kind.Valid() {
		return "", fmt.Errorf("unknown artifact kind: %q", kind)
	}
	now := s.now()
	doc := artifact.Document{
		ID:        id,
		Kind:      kind,
		Metadata:  initial.Clone(),
		Status:    artifact.StatusDraft,
		Visible:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[id]; exists {
		return "", fmt.Errorf("document already exists: %s", id)
	}
	s.entries[id] = &entry{doc: doc}
	s.order = append(s.order, id)
	s.observer.RecordCreate(kind)
	return id, nil
}

// Get returns a copy of the current document state.
func (s *Store) Get(id string) (artifact.Document, error) {
	e, err := s.entry(id)
	if err != nil {
		return artifact.Document{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone(), nil
}

// Apply runs the delta interpreter on one part and writes the result back.
// Rejected updates (illegal transitions, frozen documents) are logged and
// leave state unchanged; the returned document reflects whatever state is
// current after the call either way.
func (s *Store) Apply(id string, part artifact.StreamPart) (artifact.Document, error) {
	e, err := s.entry(id)
	if err != nil {
		return artifact.Document{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	started := s.now()
	next, applyErr := s.interp.Apply(e.doc, part)
	if applyErr != nil {
		s.logger.Warn("document %s rejected %s part: %v", id, part.Type, applyErr)
		s.observer.RecordApply(part.Type, s.now().Sub(started), applyErr)
		return e.doc.Clone(), nil
	}
	next.UpdatedAt = s.now()
	e.doc = next
	s.observer.RecordApply(part.Type, s.now().Sub(started), nil)
	return next.Clone(), nil
}

// SetVisible toggles the UI visibility flag.
func (s *Store) SetVisible(id string, visible bool) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc.Visible = visible
	e.doc.UpdatedAt = s.now()
	return nil
}

// List returns copies of every document in creation order.
func (s *Store) List() []artifact.Document {
	s.mu.RLock()
	ids := append([]string(nil), s.order...)
	s.mu.RUnlock()

	out := make([]artifact.Document, 0, len(ids))
	for _, id := range ids {
		if doc, err := s.Get(id); err == nil {
			out = append(out, doc)
		}
	}
	return out
}

// SnapshotVersion appends the current content and metadata to the version
// history. Callers decide the save points; the store never snapshots per delta.
func (s *Store) SnapshotVersion(id string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc.Versions = append(e.doc.Versions, artifact.Version{
		Content:  e.doc.Content,
		Metadata: e.doc.Metadata.Clone(),
		SavedAt:  s.now(),
	})
	e.doc.Metadata.Version = len(e.doc.Versions)
	return nil
}

// Versions returns the saved history for a document.
func (s *Store) Versions(id string) ([]artifact.Version, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return doc.Versions, nil
}

// RestoreVersion copies a saved snapshot's content and metadata back onto a
// non-terminal document. Terminal documents are frozen like everywhere else.
func (s *Store) RestoreVersion(id string, index int) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.doc.Versions) {
		return fmt.Errorf("version %d out of range for document %s", index, id)
	}
	if e.doc.Status.Terminal() {
		return fmt.Errorf("%w: restore on %s document %s", stream.ErrDocumentFrozen, e.doc.Status, id)
	}
	saved := e.doc.Versions[index]
	e.doc.Content = saved.Content
	e.doc.Metadata = saved.Metadata.Clone()
	e.doc.UpdatedAt = s.now()
	return nil
}

// Delete evicts a document. Eviction is caller-driven; the store itself never
// expires entries.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrNotFound
	}
	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.observer.RecordDelete()
	return nil
}

// Len reports the number of live documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) entry(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}
