package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespaceKey_String(t *testing.T) {
	assert.Equal(t, "live:w/f.txt", LiveDocKey("w", "f.txt").String())
	assert.Equal(t, "doc:w/d1", DocumentKey("w", "d1").String())
	assert.Equal(t, "chat:c1", ChatKey("c1").String())
}

func TestStoreKind_IsValid(t *testing.T) {
	assert.True(t, StoreLiveDocs.IsValid())
	assert.True(t, StoreSourceDocs.IsValid())
	assert.True(t, StoreChatMemory.IsValid())
	assert.False(t, StoreKind("pdf").IsValid())
}

func TestQuery_HasVector(t *testing.T) {
	assert.False(t, Query{Text: "q"}.HasVector())
	assert.True(t, Query{Vector: []float32{1}}.HasVector())
}

func TestRetrieval_Texts(t *testing.T) {
	r := Retrieval{Mode: RankVector, Chunks: []ScoredChunk{
		{Chunk: Chunk{Text: "first"}, Score: 0.9},
		{Chunk: Chunk{Text: "second"}, Score: 0.8},
	}}
	assert.Equal(t, []string{"first", "second"}, r.Texts())
	assert.Empty(t, Retrieval{}.Texts())
}

func TestRankMode(t *testing.T) {
	for _, m := range []RankMode{RankVector, RankKeyword, RankRecency, RankPosition} {
		assert.True(t, m.IsValid())
		assert.NotEqual(t, unknownDescription, m.Description())
	}
	assert.False(t, RankVector.IsFallback())
	assert.True(t, RankRecency.IsFallback())
	assert.False(t, RankMode("bm25").IsValid())
}

func TestChatRole(t *testing.T) {
	r, err := ParseChatRole("user")
	assert.NoError(t, err)
	assert.Equal(t, "User", r.Label())
	assert.Equal(t, "Assistant", RoleAssistant.Label())

	_, err = ParseChatRole("system")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRules_IsEmpty(t *testing.T) {
	assert.True(t, Rules{}.IsEmpty())
	assert.False(t, Rules{Tone: "warm"}.IsEmpty())
	assert.True(t, SystemPromptTemplate.IsValid())
	assert.False(t, SystemPromptSource("both").IsValid())
}
