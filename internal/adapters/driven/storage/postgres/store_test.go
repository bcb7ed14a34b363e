package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boovines/Granted/internal/core/domain"
)

// testDSNEnv names the database used by these tests. They are skipped when unset.
const testDSNEnv = "GRANTED_TEST_DATABASE_URL"

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// uniqueID keeps rows from parallel or repeated runs apart.
func uniqueID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func TestNewStore_RequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewStore(ctx, "postgres://nobody@127.0.0.1:1/none?connect_timeout=1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestVectorHelpers(t *testing.T) {
	assert.Nil(t, vectorParam(nil))
	assert.NotNil(t, vectorParam([]float32{1}))
	assert.Nil(t, vectorValue(nil))

	metadata, err := unmarshalMetadata([]byte(`{"page_number": 2}`))
	require.NoError(t, err)
	assert.Equal(t, float64(2), metadata["page_number"])
}

func TestDocumentStore(t *testing.T) {
	ctx := context.Background()
	docs := setupTestStore(t).DocumentStore()
	ws := uniqueID("ws")
	docID := uniqueID("doc")

	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{
		ID: docID, WorkspaceID: ws, Filename: "grant.pdf", Status: domain.DocumentParsed,
		Metadata: domain.DocumentMetadata{Title: "Grant", ChunkCount: 3},
	}))
	t.Cleanup(func() { _ = docs.DeleteDocument(ctx, docID) })

	got, err := docs.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "Grant", got.Metadata.Title)

	require.NoError(t, docs.SaveChunks(ctx, []domain.Chunk{
		{ID: docID + "-0", DocumentID: docID, WorkspaceID: ws, Index: 0, Text: "solar", Embedding: []float32{1, 0}},
		{ID: docID + "-1", DocumentID: docID, WorkspaceID: ws, Index: 1, Text: "wind", Embedding: []float32{0.8, 0.6}},
		{ID: docID + "-2", DocumentID: docID, WorkspaceID: ws, Index: 2, Text: "water", Embedding: []float32{0, 1},
			Metadata: map[string]any{"element_type": "Table"}},
	}))

	chunks, err := docs.ListChunks(ctx, ws, "", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Table", chunks[2].Metadata["element_type"])

	scored, err := docs.MatchChunks(ctx, domain.MatchQuery{
		Vector: []float32{1, 0}, WorkspaceID: ws, Threshold: 0.5, Limit: 5,
	})
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "solar", scored[0].Chunk.Text)
	assert.InDelta(t, 0.8, scored[1].Score, 1e-5)

	require.NoError(t, docs.DeleteDocument(ctx, docID))
	_, err = docs.GetDocument(ctx, docID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, err = docs.ListChunks(ctx, ws, docID, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestDocumentStore_UniqueChunkIndex(t *testing.T) {
	ctx := context.Background()
	docs := setupTestStore(t).DocumentStore()
	ws := uniqueID("ws")
	docID := uniqueID("doc")
	t.Cleanup(func() { _ = docs.DeleteDocument(ctx, docID) })

	require.NoError(t, docs.SaveChunks(ctx, []domain.Chunk{
		{ID: docID + "-0", DocumentID: docID, WorkspaceID: ws, Index: 0, Text: "first"},
	}))

	err := docs.SaveChunks(ctx, []domain.Chunk{
		{ID: docID + "-dup", DocumentID: docID, WorkspaceID: ws, Index: 0, Text: "clash"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	chunks, err := docs.ListChunks(ctx, ws, docID, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "first", chunks[0].Text)
}

func TestLiveDocStore(t *testing.T) {
	ctx := context.Background()
	live := setupTestStore(t).LiveDocStore()
	ws := uniqueID("ws")
	t.Cleanup(func() { _ = live.DeleteChunks(ctx, ws, "draft.md") })

	require.NoError(t, live.ReplaceChunks(ctx, ws, "draft.md", []domain.Chunk{
		{ID: uniqueID("c"), Index: 0, Text: "old"},
	}))
	require.NoError(t, live.ReplaceChunks(ctx, ws, "draft.md", []domain.Chunk{
		{ID: uniqueID("c"), Index: 0, Text: "new 0", Embedding: []float32{1, 2}},
		{ID: uniqueID("c"), Index: 1, Text: "new 1"},
	}))

	chunks, err := live.ListChunks(ctx, ws, "draft.md")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "new 0", chunks[0].Text)
	assert.Equal(t, []float32{1, 2}, chunks[0].Embedding)
	assert.Nil(t, chunks[1].Embedding)

	files, err := live.ListFiles(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, []string{"draft.md"}, files)
}

func TestChatStore(t *testing.T) {
	ctx := context.Background()
	chat := setupTestStore(t).ChatStore()
	chatID := uniqueID("chat")
	t.Cleanup(func() {
		_ = chat.DeleteMessages(ctx, chatID)
		_ = chat.DeleteSummary(ctx, chatID)
	})

	for i, content := range []string{"one", "two", "three"} {
		msg := &domain.ChatMessage{ID: uniqueID("m"), ChatID: chatID, Role: domain.RoleUser, Content: content}
		if i == 0 {
			msg.Embedding, msg.Embedded = []float32{1}, true
		}
		require.NoError(t, chat.AppendMessage(ctx, msg))
		assert.Positive(t, msg.Seq)
	}

	recent, err := chat.RecentMessages(ctx, chatID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Content)

	pending, err := chat.UnembeddedMessages(ctx, chatID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	deleted, err := chat.PruneMessages(ctx, chatID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	require.NoError(t, chat.SaveSummary(ctx, &domain.ChatSummary{ChatID: chatID, Text: "s", LastSeq: 3}))
	summary, err := chat.GetSummary(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.LastSeq)
}

func TestRulesStore(t *testing.T) {
	ctx := context.Background()
	rules := setupTestStore(t).RulesStore()
	ws := uniqueID("ws")

	_, err := rules.GetRules(ctx, ws)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, rules.SaveRules(ctx, &domain.WorkspaceRules{WorkspaceID: ws, Rules: domain.Rules{Tone: "formal"}}))
	got, err := rules.GetRules(ctx, ws)
	require.NoError(t, err)
	assert.Equal(t, "formal", got.Rules.Tone)

	require.NoError(t, rules.DeleteRules(ctx, ws))
}
