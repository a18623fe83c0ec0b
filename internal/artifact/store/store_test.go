package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"easel/internal/artifact"
	"easel/internal/artifact/stream"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return New(stream.New(), opts...)
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	s := newTestStore(t)
	first, err := s.Create(artifact.KindText, artifact.Metadata{})
	require.NoError(t, err)
	second, err := s.Create(artifact.KindText, artifact.Metadata{})
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	doc, err := s.Get(first)
	require.NoError(t, err)
	require.Equal(t, artifact.StatusDraft, doc.Status)
	require.True(t, doc.Visible)
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(artifact.Kind("widget"), artifact.Metadata{})
	require.Error(t, err)
}

func TestCreateWithIDRejectsCollision(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateWithID("doc-1", artifact.KindCode, artifact.Metadata{})
	require.NoError(t, err)
	_, err = s.CreateWithID("doc-1", artifact.KindCode, artifact.Metadata{})
	require.Error(t, err)
}

func TestUnknownIDIsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Apply("missing", artifact.StreamPart{Type: artifact.PartContentUpdate, Content: "x"})
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.SetVisible("missing", false), ErrNotFound)
	require.ErrorIs(t, s.Delete("missing"), ErrNotFound)
}

func TestApplyWritesBack(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Create(artifact.KindText, artifact.Metadata{})
	require.NoError(t, err)

	doc, err := s.Apply(id, artifact.StreamPart{Type: artifact.PartContentUpdate, Content: "hello"})
	require.NoError(t, err)
	require.Equal(t, "hello", doc.Content)
	require.Equal(t, artifact.StatusStreaming, doc.Status)

	stored, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, "hello", stored.Content)
}

func TestApplyRejectionLeavesStateUnchanged(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create(artifact.KindText, artifact.Metadata{})
	_, err := s.Apply(id, artifact.StreamPart{Type: artifact.PartContentUpdate, Content: "x"})
	require.NoError(t, err)
	_, err = s.Apply(id, artifact.StreamPart{Type: artifact.PartStatusUpdate, Status: "completed"})
	require.NoError(t, err)

	// Illegal transition: logged and swallowed, caller not interrupted.
	doc, err := s.Apply(id, artifact.StreamPart{Type: artifact.PartStatusUpdate, Status: "streaming"})
	require.NoError(t, err)
	require.Equal(t, artifact.StatusCompleted, doc.Status)
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create(artifact.KindChart, artifact.Metadata{Data: []map[string]any{{"a": 1.0}}})
	doc, err := s.Get(id)
	require.NoError(t, err)

	doc.Content = "mutated"
	doc.Metadata.Data[0]["a"] = 2.0
	doc.Metadata.Data = nil

	fresh, err := s.Get(id)
	require.NoError(t, err)
	require.Empty(t, fresh.Content)
	require.Len(t, fresh.Metadata.Data, 1)
}

func TestListPreservesCreationOrder(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		_, err := s.CreateWithID(fmt.Sprintf("doc-%d", i), artifact.KindText, artifact.Metadata{})
		require.NoError(t, err)
	}
	require.NoError(t, s.Delete("doc-2"))

	docs := s.List()
	require.Len(t, docs, 4)
	require.Equal(t, []string{"doc-0", "doc-1", "doc-3", "doc-4"},
		[]string{docs[0].ID, docs[1].ID, docs[2].ID, docs[3].ID})
}

func TestSetVisible(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create(artifact.KindText, artifact.Metadata{})
	require.NoError(t, s.SetVisible(id, false))
	doc, err := s.Get(id)
	require.NoError(t, err)
	require.False(t, doc.Visible)
}

func TestVersionSnapshotAndRestore(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create(artifact.KindDocument, artifact.Metadata{})
	_, err := s.Apply(id, artifact.StreamPart{Type: artifact.PartContentUpdate, Content: "draft one"})
	require.NoError(t, err)
	require.NoError(t, s.SnapshotVersion(id))

	_, err = s.Apply(id, artifact.StreamPart{Type: artifact.PartContentUpdate, Content: " plus more"})
	require.NoError(t, err)

	versions, err := s.Versions(id)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	require.Equal(t, "draft one", versions[0].Content)

	require.NoError(t, s.RestoreVersion(id, 0))
	doc, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, "draft one", doc.Content)

	require.Error(t, s.RestoreVersion(id, 5))
}

func TestRestoreRejectedOnTerminalDocument(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create(artifact.KindDocument, artifact.Metadata{})
	_, _ = s.Apply(id, artifact.StreamPart{Type: artifact.PartContentUpdate, Content: "x"})
	require.NoError(t, s.SnapshotVersion(id))
	_, _ = s.Apply(id, artifact.StreamPart{Type: artifact.PartStatusUpdate, Status: "completed"})

	err := s.RestoreVersion(id, 0)
	require.ErrorIs(t, err, stream.ErrDocumentFrozen)
}

func TestSnapshotBumpsVersionCounter(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create(artifact.KindText, artifact.Metadata{})
	require.NoError(t, s.SnapshotVersion(id))
	require.NoError(t, s.SnapshotVersion(id))
	doc, _ := s.Get(id)
	require.Equal(t, 2, doc.Metadata.Version)
}

func TestInjectedClockStampsDocuments(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }))
	id, _ := s.Create(artifact.KindText, artifact.Metadata{})
	doc, _ := s.Get(id)
	require.Equal(t, now, doc.CreatedAt)
}

func TestConcurrentAppliesOnDistinctDocuments(t *testing.T) {
	s := newTestStore(t)
	const docs = 8
	const deltas = 50

	ids := make([]string, docs)
	for i := range ids {
		id, err := s.CreateWithID(fmt.Sprintf("doc-%d", i), artifact.KindText, artifact.Metadata{})
		require.NoError(t, err)
		ids[i] = id
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < deltas; j++ {
				_, err := s.Apply(id, artifact.StreamPart{Type: artifact.PartContentUpdate, Content: "x"})
				if err != nil && !errors.Is(err, ErrNotFound) {
					t.Errorf("apply %s: %v", id, err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		doc, err := s.Get(id)
		require.NoError(t, err)
		require.Len(t, doc.Content, deltas)
	}
}
