package stream

import (
	"errors"
	"strings"
	"testing"

	"easel/internal/artifact"
)

func freshDoc(kind artifact.Kind) artifact.Document {
	return artifact.Document{ID: "doc-1", Kind: kind, Status: artifact.StatusDraft, Visible: true}
}

func contentPart(delta string) artifact.StreamPart {
	return artifact.StreamPart{Type: artifact.PartContentUpdate, Content: delta}
}

func statusPart(status artifact.Status) artifact.StreamPart {
	return artifact.StreamPart{Type: artifact.PartStatusUpdate, Status: status.String()}
}

func TestContentConcatenationIsMonotonic(t *testing.T) {
	interp := New()
	doc := freshDoc(artifact.KindText)
	deltas := []string{"The ", "quick ", "", "brown ", "fox"}

	lastLen := 0
	for _, delta := range deltas {
		next, err := interp.Apply(doc, contentPart(delta))
		if err != nil {
			t.Fatalf("apply %q: %v", delta, err)
		}
		if len(next.Content) < lastLen {
			t.Fatalf("content length regressed: %d -> %d", lastLen, len(next.Content))
		}
		lastLen = len(next.Content)
		doc = next
	}
	if doc.Content != strings.Join(deltas, "") {
		t.Fatalf("content is not ordered concatenation: %q", doc.Content)
	}
}

func TestFirstContentDeltaPromotesDraft(t *testing.T) {
	interp := New()
	doc, err := interp.Apply(freshDoc(artifact.KindText), contentPart("hello"))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if doc.Status != artifact.StatusStreaming {
		t.Fatalf("expected streaming after first delta, got %s", doc.Status)
	}
}

func TestEmptyContentDeltaIsNoOp(t *testing.T) {
	interp := New()
	doc, err := interp.Apply(freshDoc(artifact.KindText), contentPart(""))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if doc.Status != artifact.StatusDraft {
		t.Fatalf("empty delta must not promote draft, got %s", doc.Status)
	}
	if doc.Content != "" {
		t.Fatalf("empty delta must not change content, got %q", doc.Content)
	}
}

func TestStatusTransitions(t *testing.T) {
	interp := New()
	doc := freshDoc(artifact.KindText)

	doc, err := interp.Apply(doc, contentPart("x"))
	if err != nil {
		t.Fatalf("apply content: %v", err)
	}
	doc, err = interp.Apply(doc, statusPart(artifact.StatusCompleted))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if doc.Status != artifact.StatusCompleted {
		t.Fatalf("expected completed, got %s", doc.Status)
	}

	// No transition leaves completed.
	for _, next := range []artifact.Status{artifact.StatusDraft, artifact.StatusStreaming, artifact.StatusError} {
		rejected, err := interp.Apply(doc, statusPart(next))
		if !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("completed -> %s: expected ErrIllegalTransition, got %v", next, err)
		}
		if rejected.Status != artifact.StatusCompleted {
			t.Fatalf("status changed on rejected transition: %s", rejected.Status)
		}
	}
}

func TestDraftCannotCompleteDirectly(t *testing.T) {
	interp := New()
	_, err := interp.Apply(freshDoc(artifact.KindText), statusPart(artifact.StatusCompleted))
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("draft -> completed should be rejected, got %v", err)
	}
}

func TestSelfTransitionIsNoOp(t *testing.T) {
	interp := New()
	doc, err := interp.Apply(freshDoc(artifact.KindText), statusPart(artifact.StatusDraft))
	if err != nil {
		t.Fatalf("self transition should be a no-op, got %v", err)
	}
	if doc.Status != artifact.StatusDraft {
		t.Fatalf("unexpected status: %s", doc.Status)
	}
}

func TestErrorPartIsTerminalAndKeepsContent(t *testing.T) {
	interp := New()
	doc, _ := interp.Apply(freshDoc(artifact.KindCode), contentPart("partial output"))
	doc, err := interp.Apply(doc, artifact.StreamPart{Type: artifact.PartError, Error: "producer failed"})
	if err != nil {
		t.Fatalf("error part: %v", err)
	}
	if doc.Status != artifact.StatusError {
		t.Fatalf("expected error status, got %s", doc.Status)
	}
	if doc.Content != "partial output" {
		t.Fatalf("partial content must survive an error, got %q", doc.Content)
	}
	if len(doc.Diagnostics) != 1 || doc.Diagnostics[0] != "producer failed" {
		t.Fatalf("diagnostic not retained: %#v", doc.Diagnostics)
	}

	_, err = interp.Apply(doc, contentPart("more"))
	if !errors.Is(err, ErrDocumentFrozen) {
		t.Fatalf("content after terminal should be frozen, got %v", err)
	}
}

func TestMetadataDataNonErasureForCharts(t *testing.T) {
	interp := New()
	doc := freshDoc(artifact.KindChart)
	rows := []map[string]any{{"country": "US", "value": 50.0}, {"country": "UK", "value": 50.0}}

	doc, err := interp.Apply(doc, artifact.StreamPart{
		Type:     artifact.PartMetadataUpdate,
		Metadata: &artifact.MetadataPatch{Data: rows},
	})
	if err != nil {
		t.Fatalf("seed data: %v", err)
	}
	if len(doc.Metadata.Data) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(doc.Metadata.Data))
	}

	// An explicit empty array must not erase streamed rows.
	doc, err = interp.Apply(doc, artifact.StreamPart{
		Type:     artifact.PartMetadataUpdate,
		Metadata: &artifact.MetadataPatch{Data: []map[string]any{}},
	})
	if err != nil {
		t.Fatalf("empty data update: %v", err)
	}
	if len(doc.Metadata.Data) != 2 {
		t.Fatalf("empty incoming data erased rows: %#v", doc.Metadata.Data)
	}

	// Absent data must not erase either.
	title := "untitled"
	doc, err = interp.Apply(doc, artifact.StreamPart{
		Type:     artifact.PartMetadataUpdate,
		Metadata: &artifact.MetadataPatch{Title: &title},
	})
	if err != nil {
		t.Fatalf("title update: %v", err)
	}
	if len(doc.Metadata.Data) != 2 {
		t.Fatalf("absent data erased rows: %#v", doc.Metadata.Data)
	}
}

func TestMetadataEmptyDataReplacesForNonChartKinds(t *testing.T) {
	interp := New()
	doc := freshDoc(artifact.KindSheet)
	doc, _ = interp.Apply(doc, artifact.StreamPart{
		Type:     artifact.PartMetadataUpdate,
		Metadata: &artifact.MetadataPatch{Data: []map[string]any{{"a": 1.0}}},
	})
	doc, err := interp.Apply(doc, artifact.StreamPart{
		Type:     artifact.PartMetadataUpdate,
		Metadata: &artifact.MetadataPatch{Data: []map[string]any{}},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(doc.Metadata.Data) != 0 {
		t.Fatalf("non-chart kinds replace data wholesale, got %#v", doc.Metadata.Data)
	}
}

func TestChartTypeRedetectedOnEveryMetadataDelta(t *testing.T) {
	interp := New()
	doc := freshDoc(artifact.KindChart)

	// Large three-key dataset: bar.
	doc, _ = interp.Apply(doc, artifact.StreamPart{
		Type: artifact.PartMetadataUpdate,
		Metadata: &artifact.MetadataPatch{
			Data: []map[string]any{{"name": "a", "value": 1.0, "year": 2020.0}},
		},
	})
	if doc.Metadata.ChartType != "bar" {
		t.Fatalf("expected bar, got %q", doc.Metadata.ChartType)
	}

	// A later title delta can flip the verdict to pie.
	title := "Cost Breakdown"
	doc, _ = interp.Apply(doc, artifact.StreamPart{
		Type:     artifact.PartMetadataUpdate,
		Metadata: &artifact.MetadataPatch{Title: &title},
	})
	if doc.Metadata.ChartType != "pie" {
		t.Fatalf("chart type should be re-detected per delta, got %q", doc.Metadata.ChartType)
	}
}

func TestKindHookIntercepts(t *testing.T) {
	hooked := false
	hook := func(doc artifact.Document, part artifact.StreamPart) (artifact.Document, bool) {
		if part.Type != artifact.PartType("chart-delta") {
			return doc, false
		}
		hooked = true
		doc.Title = "hooked"
		return doc, true
	}
	interp := New(WithHook(artifact.KindChart, hook))

	doc, err := interp.Apply(freshDoc(artifact.KindChart), artifact.StreamPart{Type: "chart-delta"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !hooked || doc.Title != "hooked" {
		t.Fatalf("hook should have intercepted the part: %+v", doc)
	}

	// Parts the hook declines fall through to the generic rules.
	doc, err = interp.Apply(doc, contentPart("x"))
	if err != nil {
		t.Fatalf("fallthrough apply: %v", err)
	}
	if doc.Content != "x" {
		t.Fatalf("generic rule did not run after hook declined: %+v", doc)
	}
}

func TestUnhandledKindDeltaIsRejected(t *testing.T) {
	interp := New()
	_, err := interp.Apply(freshDoc(artifact.KindChart), artifact.StreamPart{Type: "chart-delta"})
	if !errors.Is(err, ErrUnhandledPart) {
		t.Fatalf("expected ErrUnhandledPart, got %v", err)
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	parts := []artifact.StreamPart{
		contentPart("a"),
		{Type: artifact.PartMetadataUpdate, Metadata: &artifact.MetadataPatch{Data: []map[string]any{{"region": "EU", "v": 1.0}}}},
		contentPart("b"),
		statusPart(artifact.StatusCompleted),
	}
	interp := New()

	replay := func() artifact.Document {
		doc := freshDoc(artifact.KindChart)
		for _, part := range parts {
			next, err := interp.Apply(doc, part)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			doc = next
		}
		return doc
	}

	first := replay()
	second := replay()
	if first.Content != second.Content || first.Status != second.Status ||
		first.Metadata.ChartType != second.Metadata.ChartType {
		t.Fatalf("replay diverged:\n%+v\n%+v", first, second)
	}
}
