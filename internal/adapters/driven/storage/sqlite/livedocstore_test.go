package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boovines/Granted/internal/core/domain"
)

func liveChunks(version string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:        fmt.Sprintf("%s-%d", version, i),
			Index:     i,
			Text:      fmt.Sprintf("%s chunk %d", version, i),
			Embedding: []float32{float32(i), 1},
		}
	}
	return chunks
}

func TestLiveDocStore_ReplaceChunks(t *testing.T) {
	ctx := context.Background()
	live := setupTestStore(t).LiveDocStore()

	require.NoError(t, live.ReplaceChunks(ctx, "w1", "draft.md", liveChunks("v1", 3)))
	require.NoError(t, live.ReplaceChunks(ctx, "w1", "draft.md", liveChunks("v2", 2)))

	chunks, err := live.ListChunks(ctx, "w1", "draft.md")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("v2 chunk %d", i), c.Text)
		assert.Equal(t, "w1", c.WorkspaceID)
		assert.Equal(t, "draft.md", c.Filename)
		assert.Empty(t, c.DocumentID)
		assert.Equal(t, []float32{float32(i), 1}, c.Embedding)
	}
}

func TestLiveDocStore_ReplaceWithNothingClears(t *testing.T) {
	ctx := context.Background()
	live := setupTestStore(t).LiveDocStore()

	require.NoError(t, live.ReplaceChunks(ctx, "w1", "draft.md", liveChunks("v1", 2)))
	require.NoError(t, live.ReplaceChunks(ctx, "w1", "draft.md", nil))

	chunks, err := live.ListChunks(ctx, "w1", "draft.md")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestLiveDocStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	live := setupTestStore(t).LiveDocStore()

	require.NoError(t, live.ReplaceChunks(ctx, "w1", "b.md", liveChunks("b", 1)))
	require.NoError(t, live.ReplaceChunks(ctx, "w1", "a.md", liveChunks("a", 2)))
	require.NoError(t, live.ReplaceChunks(ctx, "w2", "c.md", liveChunks("c", 1)))

	files, err := live.ListFiles(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, files)

	all, err := live.ListChunks(ctx, "w1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a.md", all[0].Filename)
	assert.Equal(t, "b.md", all[2].Filename)

	require.NoError(t, live.DeleteChunks(ctx, "w1", "a.md"))
	require.NoError(t, live.DeleteChunks(ctx, "w1", "a.md"))

	files, err = live.ListFiles(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md"}, files)
}

func TestLiveDocStore_ConcurrentReplaceNeverMixes(t *testing.T) {
	ctx := context.Background()
	live := setupTestStore(t).LiveDocStore()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			assert.NoError(t, live.ReplaceChunks(ctx, "w1", "draft.md", liveChunks(fmt.Sprintf("v%d", w), 3)))
		}(w)
	}
	wg.Wait()

	chunks, err := live.ListChunks(ctx, "w1", "draft.md")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	prefix := chunks[0].ID[:2]
	for _, c := range chunks {
		assert.Equal(t, prefix, c.ID[:2])
	}
}
