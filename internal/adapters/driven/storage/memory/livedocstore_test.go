package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boovines/Granted/internal/core/domain"
)

func liveChunks(file string, n int, tag string) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:          fmt.Sprintf("%s-%s-%d", file, tag, i),
			WorkspaceID: "ws",
			Filename:    file,
			Index:       i,
			Text:        fmt.Sprintf("%s %d", tag, i),
		}
	}
	return chunks
}

func TestLiveDocStore_ReplaceChunks_DropsStaleIndexes(t *testing.T) {
	store := NewLiveDocStore()
	ctx := context.Background()

	require.NoError(t, store.ReplaceChunks(ctx, "ws", "draft.md", liveChunks("draft.md", 5, "v1")))
	require.NoError(t, store.ReplaceChunks(ctx, "ws", "draft.md", liveChunks("draft.md", 2, "v2")))

	chunks, err := store.ListChunks(ctx, "ws", "draft.md")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Contains(t, c.Text, "v2")
	}
}

func TestLiveDocStore_ListChunks_Workspace(t *testing.T) {
	store := NewLiveDocStore()
	ctx := context.Background()

	_ = store.ReplaceChunks(ctx, "ws", "b.md", liveChunks("b.md", 1, "b"))
	_ = store.ReplaceChunks(ctx, "ws", "a.md", liveChunks("a.md", 2, "a"))

	chunks, err := store.ListChunks(ctx, "ws", "")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "a.md", chunks[0].Filename)
	assert.Equal(t, "b.md", chunks[2].Filename)

	files, err := store.ListFiles(ctx, "ws")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, files)
}

func TestLiveDocStore_DeleteChunks_Idempotent(t *testing.T) {
	store := NewLiveDocStore()
	ctx := context.Background()

	_ = store.ReplaceChunks(ctx, "ws", "a.md", liveChunks("a.md", 2, "a"))

	require.NoError(t, store.DeleteChunks(ctx, "ws", "a.md"))
	require.NoError(t, store.DeleteChunks(ctx, "ws", "a.md"))

	files, err := store.ListFiles(ctx, "ws")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLiveDocStore_ConcurrentReplace_NeverMixes(t *testing.T) {
	store := NewLiveDocStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tag := fmt.Sprintf("writer%d", n)
			_ = store.ReplaceChunks(ctx, "ws", "race.md", liveChunks("race.md", 3+n, tag))
		}(w)
	}
	wg.Wait()

	chunks, err := store.ListChunks(ctx, "ws", "race.md")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	tag := chunks[0].Text[:len("writerN")]
	for _, c := range chunks {
		assert.Equal(t, tag, c.Text[:len("writerN")])
	}
}
