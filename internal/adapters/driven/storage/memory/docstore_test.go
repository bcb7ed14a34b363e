package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boovines/Granted/internal/core/domain"
)

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "doc-1", WorkspaceID: "ws", Filename: "rfp.pdf", Status: domain.DocumentPending}
	require.NoError(t, store.SaveDocument(ctx, doc))

	doc.Status = domain.DocumentParsed
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentParsed, got.Status)

	_, err = store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListDocuments_NewestFirst(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	now := time.Now()

	_ = store.SaveDocument(ctx, &domain.Document{ID: "old", WorkspaceID: "ws", UploadedAt: now.Add(-time.Hour)})
	_ = store.SaveDocument(ctx, &domain.Document{ID: "new", WorkspaceID: "ws", UploadedAt: now})
	_ = store.SaveDocument(ctx, &domain.Document{ID: "other", WorkspaceID: "ws2", UploadedAt: now})

	docs, err := store.ListDocuments(ctx, "ws")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new", docs[0].ID)
	assert.Equal(t, "old", docs[1].ID)
}

func TestDocumentStore_SaveChunks_IsAdditive(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "a0", DocumentID: "a", WorkspaceID: "ws", Index: 0, Text: "a zero"},
	}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "b1", DocumentID: "b", WorkspaceID: "ws", Index: 1, Text: "b one"},
		{ID: "b0", DocumentID: "b", WorkspaceID: "ws", Index: 0, Text: "b zero"},
	}))

	all, err := store.ListChunks(ctx, "ws", "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a0", "b0", "b1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	onlyB, err := store.ListChunks(ctx, "ws", "b", 1)
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, "b0", onlyB[0].ID)
}

func TestDocumentStore_SaveChunks_UniqueIndexPerDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "a0", DocumentID: "a", WorkspaceID: "ws", Index: 0, Text: "a zero"},
	}))

	err := store.SaveChunks(ctx, []domain.Chunk{
		{ID: "a1", DocumentID: "a", WorkspaceID: "ws", Index: 1, Text: "a one"},
		{ID: "dup", DocumentID: "a", WorkspaceID: "ws", Index: 0, Text: "clash"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.SaveChunks(ctx, []domain.Chunk{
		{ID: "x", DocumentID: "b", WorkspaceID: "ws", Index: 2, Text: "x"},
		{ID: "y", DocumentID: "b", WorkspaceID: "ws", Index: 2, Text: "y"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "a0", DocumentID: "a", WorkspaceID: "ws", Index: 0, Text: "a zero again"},
		{ID: "b0", DocumentID: "b", WorkspaceID: "ws", Index: 0, Text: "b zero"},
	}))

	all, err := store.ListChunks(ctx, "ws", "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{"a0", "b0"}, []string{all[0].ID, all[1].ID})
	assert.Equal(t, "a zero again", all[0].Text)
}

func TestDocumentStore_DeleteDocument_Cascades(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	_ = store.SaveDocument(ctx, &domain.Document{ID: "a", WorkspaceID: "ws"})
	_ = store.SaveChunks(ctx, []domain.Chunk{{ID: "a0", DocumentID: "a", WorkspaceID: "ws", Text: "x"}})

	require.NoError(t, store.DeleteDocument(ctx, "a"))
	require.NoError(t, store.DeleteDocument(ctx, "a"))

	chunks, err := store.ListChunks(ctx, "ws", "a", 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocumentStore_MatchChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	_ = store.SaveChunks(ctx, []domain.Chunk{
		{ID: "near", DocumentID: "d", WorkspaceID: "ws", Text: "near", Embedding: []float32{1, 0.1}},
		{ID: "far", DocumentID: "d", WorkspaceID: "ws", Index: 1, Text: "far", Embedding: []float32{0, 1}},
		{ID: "elsewhere", DocumentID: "e", WorkspaceID: "ws2", Text: "x", Embedding: []float32{1, 0}},
	})

	matches, err := store.MatchChunks(ctx, domain.MatchQuery{
		Vector:      []float32{1, 0},
		WorkspaceID: "ws",
		Threshold:   0.7,
		Limit:       5,
	})

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "near", matches[0].Chunk.ID)
	assert.Greater(t, matches[0].Score, 0.9)
}
