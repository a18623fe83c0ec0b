// Package registry maps artifact kinds to their behaviour bundles: metadata
// initialization, kind-specific stream part handling, content rendering, and
// user-facing actions. Lookup of an unregistered kind is a programmer error
// and fails loudly rather than being absorbed.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"easel/internal/artifact"
	"easel/internal/artifact/stream"
)

// ErrKindNotRegistered marks a lookup for a kind nothing registered. This is
// a configuration mistake, not a runtime condition to recover from silently.
var ErrKindNotRegistered = errors.New("artifact kind not registered")

// InitContext carries what an initializer may seed metadata from.
type InitContext struct {
	ChatID string
	Title  string
}

// Definition bundles the per-kind behaviour.
type Definition struct {
	Kind artifact.Kind

	// Initialize produces the metadata a fresh document of this kind starts
	// with. Nil means start empty.
	Initialize func(ctx InitContext) artifact.Metadata

	// OnStreamPart intercepts kind-specific parts ("<kind>-delta") before the
	// generic interpreter rules. Nil means no interception.
	OnStreamPart stream.Hook

	// RenderContent maps document state to a render-ready view model. Pure:
	// actual visual rendering happens outside the core.
	RenderContent func(content string, meta artifact.Metadata) ViewModel

	// Actions are the user-triggered operations offered for this kind, in
	// display order.
	Actions []Action
}

// Registry is the kind dispatch table.
type Registry struct {
	mu   sync.RWMutex
	defs map[artifact.Kind]Definition
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[artifact.Kind]Definition)}
}

// Register installs a definition. Registering an invalid kind or the same
// kind twice is rejected.
func (r *Registry) Register(def Definition) error {
	if !def.Kind.Valid() {
		return fmt.Errorf("register: unknown artifact kind %q", def.Kind)
	}
	if def.RenderContent == nil {
		return fmt.Errorf("register %s: RenderContent is required", def.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Kind]; exists {
		return fmt.Errorf("register: kind already registered: %s", def.Kind)
	}
	r.defs[def.Kind] = def
	return nil
}

// Lookup resolves the definition for a kind.
func (r *Registry) Lookup(kind artifact.Kind) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[kind]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrKindNotRegistered, kind)
	}
	return def, nil
}

// Initialize seeds metadata for a new document of the given kind.
func (r *Registry) Initialize(kind artifact.Kind, ctx InitContext) (artifact.Metadata, error) {
	def, err := r.Lookup(kind)
	if err != nil {
		return artifact.Metadata{}, err
	}
	if def.Initialize == nil {
		return artifact.Metadata{}, nil
	}
	return def.Initialize(ctx), nil
}

// Render runs the kind's content renderer over a document snapshot.
func (r *Registry) Render(doc artifact.Document) (ViewModel, error) {
	def, err := r.Lookup(doc.Kind)
	if err != nil {
		return ViewModel{}, err
	}
	vm := def.RenderContent(doc.Content, doc.Metadata)
	vm.Kind = doc.Kind
	if vm.Title == "" {
		vm.Title = doc.Title
	}
	return vm, nil
}

// Hooks exposes the kind-specific stream handlers for interpreter wiring.
func (r *Registry) Hooks() map[artifact.Kind]stream.Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hooks := make(map[artifact.Kind]stream.Hook)
	for kind, def := range r.defs {
		if def.OnStreamPart != nil {
			hooks[kind] = def.OnStreamPart
		}
	}
	return hooks
}

// Kinds lists the registered kinds.
func (r *Registry) Kinds() []artifact.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]artifact.Kind, 0, len(r.defs))
	for _, kind := range artifact.Kinds() {
		if _, ok := r.defs[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}
