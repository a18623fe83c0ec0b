// Package stream folds incremental stream parts into artifact document state.
// Apply is a pure function of (state, part): replaying the same parts in the
// same order always rebuilds the same document, which keeps the pipeline
// deterministic and testable.
package stream

import (
	"errors"
	"fmt"
	"strings"

	"easel/internal/artifact"
	"easel/internal/artifact/extract"
)

var (
	// ErrIllegalTransition signals a rejected status move; the document is
	// returned unchanged alongside it.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrDocumentFrozen signals a content or metadata update on a document
	// that already reached a terminal status.
	ErrDocumentFrozen = errors.New("document is frozen")
	// ErrUnhandledPart signals a part type nothing recognised.
	ErrUnhandledPart = errors.New("unhandled stream part")
)

// Hook intercepts kind-specific parts before the generic rules apply. It
// returns the next document state and whether it handled the part; unhandled
// parts fall through to the generic rules.
type Hook func(doc artifact.Document, part artifact.StreamPart) (artifact.Document, bool)

// Interpreter applies stream parts. Hooks are fixed at construction so Apply
// stays a pure function of its arguments.
type Interpreter struct {
	hooks map[artifact.Kind]Hook
}

// Option mutates the interpreter during construction.
type Option func(*Interpreter)

// WithHook registers a kind-specific part handler.
func WithHook(kind artifact.Kind, hook Hook) Option {
	return func(i *Interpreter) {
		if hook != nil {
			i.hooks[kind] = hook
		}
	}
}

// WithHooks registers a batch of kind handlers.
func WithHooks(hooks map[artifact.Kind]Hook) Option {
	return func(i *Interpreter) {
		for kind, hook := range hooks {
			if hook != nil {
				i.hooks[kind] = hook
			}
		}
	}
}

// New builds an interpreter.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{hooks: make(map[artifact.Kind]Hook)}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Apply produces the next document state for one part. On rejection the
// returned document equals the input and the error describes why; Apply never
// panics on malformed parts.
func (i *Interpreter) Apply(doc artifact.Document, part artifact.StreamPart) (artifact.Document, error) {
	if hook := i.hooks[doc.Kind]; hook != nil {
		if next, handled := hook(doc.Clone(), part); handled {
			return next, nil
		}
	}

	switch part.Type {
	case artifact.PartContentUpdate:
		return applyContent(doc, part.Content)
	case artifact.PartMetadataUpdate:
		return applyMetadata(doc, part.Metadata)
	case artifact.PartStatusUpdate:
		return applyStatus(doc, part.Status)
	case artifact.PartError:
		return applyError(doc, part.Error)
	}
	if _, ok := part.KindDelta(); ok {
		// A kind extension part addressed to a kind with no registered hook.
		return doc.Clone(), fmt.Errorf("%w: no handler for %q on kind %q", ErrUnhandledPart, part.Type, doc.Kind)
	}
	return doc.Clone(), fmt.Errorf("%w: %q", ErrUnhandledPart, part.Type)
}

// applyContent concatenates the delta onto the buffer. Empty deltas are a
// complete no-op, including the draft→streaming promotion.
func applyContent(doc artifact.Document, delta string) (artifact.Document, error) {
	if delta == "" {
		return doc.Clone(), nil
	}
	if doc.Status.Terminal() {
		return doc.Clone(), fmt.Errorf("%w: content update after %s", ErrDocumentFrozen, doc.Status)
	}
	next := doc.Clone()
	next.Content += delta
	if next.Status == artifact.StatusDraft {
		next.Status = artifact.StatusStreaming
	}
	refreshCounts(&next)
	return next, nil
}

func applyMetadata(doc artifact.Document, patch *artifact.MetadataPatch) (artifact.Document, error) {
	if patch.IsZero() {
		return doc.Clone(), nil
	}
	if doc.Status.Terminal() {
		return doc.Clone(), fmt.Errorf("%w: metadata update after %s", ErrDocumentFrozen, doc.Status)
	}
	next := doc.Clone()

	// Chart data is only replaced by a non-empty incoming array; an empty or
	// absent array must not erase rows streamed earlier.
	keepData := next.Kind == artifact.KindChart && patch.Data != nil && len(patch.Data) == 0
	next.Metadata = patch.MergeInto(next.Metadata, keepData)
	if patch.Title != nil {
		next.Title = *patch.Title
	}

	if next.Kind == artifact.KindChart {
		// Re-detect on every delta: explicit chartType on this part wins,
		// otherwise the heuristic is re-run from the merged title and data.
		explicit := ""
		if patch.ChartType != nil {
			explicit = *patch.ChartType
		}
		next.Metadata.ChartType = extract.DetectChartType(explicit, next.Title, next.Metadata.Data)
	}
	return next, nil
}

func applyStatus(doc artifact.Document, label string) (artifact.Document, error) {
	next, ok := artifact.ParseStatus(label)
	if !ok {
		return doc.Clone(), fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, label)
	}
	if next == doc.Status {
		return doc.Clone(), nil
	}
	if !doc.Status.CanTransition(next) {
		return doc.Clone(), fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, doc.Status, next)
	}
	out := doc.Clone()
	out.Status = next
	return out, nil
}

func applyError(doc artifact.Document, message string) (artifact.Document, error) {
	if doc.Status.Terminal() && doc.Status != artifact.StatusError {
		return doc.Clone(), fmt.Errorf("%w: error part after %s", ErrIllegalTransition, doc.Status)
	}
	next := doc.Clone()
	next.Status = artifact.StatusError
	if message == "" {
		message = "stream producer failure"
	}
	next.Diagnostics = append(next.Diagnostics, message)
	return next, nil
}

// refreshCounts keeps the derived reserved keys in step with the buffer for
// the prose-like kinds.
func refreshCounts(doc *artifact.Document) {
	switch doc.Kind {
	case artifact.KindText, artifact.KindDocument:
		doc.Metadata.LineCount = strings.Count(doc.Content, "\n") + 1
		doc.Metadata.WordCount = len(strings.Fields(doc.Content))
	case artifact.KindCode:
		doc.Metadata.LineCount = strings.Count(doc.Content, "\n") + 1
	}
}
