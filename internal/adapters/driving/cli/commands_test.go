package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boovines/Granted/internal/core/domain"
)

const (
	solarText  = "Solar microgrids power rural clinics across the valley and keep vaccines cold."
	budgetText = "The budget allocates forty percent of funds to battery storage and local training programmes."
)

// Prompt

func TestPromptCmd_RequiresThreeArgs(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "prompt", "ws", "chat")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 3 arg(s)")
}

func TestPromptCmd_AssemblesSections(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "rules", "set", "ws", "--tone", "formal")
	require.NoError(t, err)
	_, err = execute(t, nil, "chat", "append", "c1", "user", "We need a grant for solar clinics")
	require.NoError(t, err)
	_, err = execute(t, strings.NewReader(solarText), "live", "update", "ws", "draft.md")
	require.NoError(t, err)

	out, err := execute(t, nil, "prompt", "ws", "c1", "How do microgrids help clinics?")

	require.NoError(t, err)
	assert.Contains(t, out, "Tone: formal")
	assert.Contains(t, out, "=== RECENT CONVERSATION ===")
	assert.Contains(t, out, "User: We need a grant for solar clinics")
	assert.Contains(t, out, "=== CURRENT DOCUMENT CONTEXT ===")
	assert.Contains(t, out, "=== USER QUERY ===")
	assert.Contains(t, out, "How do microgrids help clinics?")
}

func TestPromptCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, nil, "prompt", "ws", "c1", "hello", "--json")
	require.NoError(t, err)

	var result domain.PromptResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.False(t, result.Degraded)
	assert.Contains(t, result.Prompt, "hello")
}

func TestPromptCmd_BlankMessageIsDegraded(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, nil, "prompt", "ws", "c1", "   ")

	require.NoError(t, err)
	assert.Contains(t, out, "minimal prompt")
}

func TestPromptCmd_InvalidSource(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "prompt", "ws", "c1", "hello", "--source", "magic")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --source")
}

// Context

func TestParseNamespaceKey(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.StoreKind
		raw     string
		want    domain.NamespaceKey
		wantErr bool
	}{
		{name: "live", kind: domain.StoreLiveDocs, raw: "ws/draft.md", want: domain.LiveDocKey("ws", "draft.md")},
		{name: "live nested path", kind: domain.StoreLiveDocs, raw: "ws/notes/a.md", want: domain.LiveDocKey("ws", "notes/a.md")},
		{name: "live without file", kind: domain.StoreLiveDocs, raw: "ws", wantErr: true},
		{name: "source workspace", kind: domain.StoreSourceDocs, raw: "ws", want: domain.DocumentKey("ws", "")},
		{name: "source document", kind: domain.StoreSourceDocs, raw: "ws/doc-1", want: domain.DocumentKey("ws", "doc-1")},
		{name: "source without workspace", kind: domain.StoreSourceDocs, raw: "/doc-1", wantErr: true},
		{name: "chat", kind: domain.StoreChatMemory, raw: "c1", want: domain.ChatKey("c1")},
		{name: "blank", kind: domain.StoreChatMemory, raw: "  ", wantErr: true},
		{name: "unknown store", kind: domain.StoreKind("web"), raw: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNamespaceKey(tt.kind, tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContextCmd_KeywordRanking(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, strings.NewReader(solarText), "live", "update", "ws", "draft.md")
	require.NoError(t, err)

	out, err := execute(t, nil, "context", "live", "ws/draft.md", "microgrids", "-k", "3")

	require.NoError(t, err)
	assert.Contains(t, out, "Ranking: Keyword (word overlap)")
	assert.Contains(t, out, "draft.md #0")
	assert.Contains(t, out, "Total: 1 chunks")
}

func TestContextCmd_UnknownStore(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "context", "web", "x", "query")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")
}

// Live

func TestLiveCmd_UpdateListDelete(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, strings.NewReader(solarText), "live", "update", "ws", "draft.md")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated ws/draft.md: 1 chunks")

	out, err = execute(t, nil, "live", "list", "ws")
	require.NoError(t, err)
	assert.Contains(t, out, "draft.md")

	_, err = execute(t, nil, "live", "delete", "ws", "draft.md")
	require.NoError(t, err)

	chunks, err := ts.live.ListChunks(context.Background(), "ws", "draft.md")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestLiveCmd_UpdateFromFile(t *testing.T) {
	ts := setupTestServices(t)

	path := filepath.Join(t.TempDir(), "draft.md")
	require.NoError(t, os.WriteFile(path, []byte(budgetText), 0o600))

	_, err := execute(t, nil, "live", "update", "ws", "draft.md", "--from", path)
	require.NoError(t, err)

	chunks, err := ts.live.ListChunks(context.Background(), "ws", "draft.md")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, budgetText, chunks[0].Text)
}

func TestLiveWatcher_DebouncesWrites(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "draft.md")
	require.NoError(t, os.WriteFile(path, []byte(solarText), 0o600))

	w, err := newLiveWatcher(liveService, "ws")
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck // test cleanup

	w.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write})
	w.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write})

	// Not yet quiet long enough.
	w.flush(ctx, time.Now())
	chunks, err := ts.live.ListChunks(ctx, "ws", "draft.md")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	w.flush(ctx, time.Now().Add(w.debounce))
	chunks, err = ts.live.ListChunks(ctx, "ws", "draft.md")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)

	w.handleEvent(ctx, fsnotify.Event{Name: path, Op: fsnotify.Remove})
	chunks, err = ts.live.ListChunks(ctx, "ws", "draft.md")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestInitialFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("a"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.md")}, initialFiles(dir, info))

	file := filepath.Join(dir, "a.md")
	info, err = os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, []string{file}, initialFiles(file, info))
}

// Chat

func TestChatCmd_AppendRecentHistory(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, nil, "chat", "append", "c1", "user", "first question")
	require.NoError(t, err)
	assert.Contains(t, out, "Appended message")
	assert.Contains(t, out, "chat backfill")

	_, err = execute(t, nil, "chat", "append", "c1", "assistant", "first answer")
	require.NoError(t, err)

	out, err = execute(t, nil, "chat", "recent", "c1", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Assistant: first answer")
	assert.NotContains(t, out, "first question")

	out, err = execute(t, nil, "chat", "history", "c1")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "User: first question"), strings.Index(out, "Assistant: first answer"))
	assert.Contains(t, out, "Total: 2 messages")
}

func TestChatCmd_InvalidRole(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "chat", "append", "c1", "system", "hi")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChatCmd_StateAndPrune(t *testing.T) {
	setupTestServices(t)

	for range 3 {
		_, err := execute(t, nil, "chat", "append", "c1", "user", "message")
		require.NoError(t, err)
	}

	out, err := execute(t, nil, "chat", "state", "c1", "--threshold", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Chat c1: due")

	out, err = execute(t, nil, "chat", "prune", "c1", "--keep", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 2 messages")
}

func TestChatCmd_SummarizeWithoutLLM(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "chat", "append", "c1", "user", "hello")
	require.NoError(t, err)

	_, err = execute(t, nil, "chat", "summarize", "c1")

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestChatCmd_BackfillWithoutEmbedder(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "chat", "backfill", "c1")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

// Rules

func TestRulesCmd_SetWithFlagsKeepsOtherFields(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "rules", "set", "ws", "--tone", "formal", "--domain", "energy grants")
	require.NoError(t, err)
	_, err = execute(t, nil, "rules", "set", "ws", "--style", "concise")
	require.NoError(t, err)

	out, err := execute(t, nil, "rules", "get", "ws")

	require.NoError(t, err)
	assert.Contains(t, out, "Tone:")
	assert.Contains(t, out, "formal")
	assert.Contains(t, out, "Style:")
	assert.Contains(t, out, "Domain expertise: energy grants")
}

func TestRulesCmd_SetFromFile(t *testing.T) {
	setupTestServices(t)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("personality: encouraging mentor\ntone: warm\n"), 0o600))

	_, err := execute(t, nil, "rules", "set", "ws", "--file", path)
	require.NoError(t, err)

	out, err := execute(t, nil, "rules", "get", "ws", "--yaml")
	require.NoError(t, err)
	assert.Equal(t, "personality: encouraging mentor\ntone: warm\n", out)
}

func TestRulesCmd_SetFromFileRejectsUnknownFields(t *testing.T) {
	setupTestServices(t)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mood: grumpy\n"), 0o600))

	_, err := execute(t, nil, "rules", "set", "ws", "--file", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse rules file")
}

func TestRulesCmd_SetNothing(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "rules", "set", "ws")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestRulesCmd_GetEmpty(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, nil, "rules", "get", "ws")

	require.NoError(t, err)
	assert.Contains(t, out, "No rules set for workspace: ws")
	assert.Contains(t, out, "You are a helpful assistant.")
}

func TestRulesCmd_Default(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, nil, "rules", "default")

	require.NoError(t, err)
	assert.Contains(t, out, "personality: friendly and knowledgeable")
	assert.Contains(t, out, "constraints: Be accurate and helpful")
}

// Documents

func writeParsed(t *testing.T) string {
	t.Helper()
	parsed := domain.ParsedDocument{Elements: []domain.ParsedElement{
		{Type: "Title", TextRepresentation: "Rural Clinic Microgrid Proposal for the Northern Valley Region"},
		{Type: "Text", Text: solarText, Properties: map[string]any{"page_number": float64(1)}},
		{Type: "Text", Text: budgetText, Properties: map[string]any{"page_number": float64(2)}},
	}}
	data, err := json.Marshal(parsed)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "parsed.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDocumentCmd_IngestParsedListChunksDelete(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	out, err := execute(t, nil, "document", "ingest", "ws", "/uploads/proposal.pdf", "--parsed", writeParsed(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested proposal.pdf")
	assert.Contains(t, out, "Status: parsed")

	docs, err := ts.docs.ListDocuments(ctx, "ws")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	docID := docs[0].ID

	out, err = execute(t, nil, "document", "list", "ws")
	require.NoError(t, err)
	assert.Contains(t, out, docID)
	assert.Contains(t, out, "File:   proposal.pdf")

	out, err = execute(t, nil, "document", "get", docID)
	require.NoError(t, err)
	assert.Contains(t, out, "Pages:     2")

	out, err = execute(t, nil, "document", "chunks", docID)
	require.NoError(t, err)
	assert.Contains(t, out, "Ranking: Position (document order)")

	out, err = execute(t, nil, "document", "chunks", docID, "--query", "battery budget")
	require.NoError(t, err)
	assert.Contains(t, out, "Ranking: Keyword (word overlap)")
	assert.Contains(t, out, "battery storage")

	_, err = execute(t, nil, "document", "delete", docID)
	require.NoError(t, err)

	_, err = ts.docs.GetDocument(ctx, docID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentCmd_IngestWithoutParser(t *testing.T) {
	setupTestServices(t)

	path := filepath.Join(t.TempDir(), "proposal.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o600))

	_, err := execute(t, nil, "document", "ingest", "ws", path)

	assert.ErrorIs(t, err, domain.ErrParserUnavailable)
}

func TestDocumentCmd_GetMissing(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, nil, "document", "get", "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Settings

func TestSettingsCmd_ShowDefaults(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, nil, "settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Backend: sqlite")
	assert.Contains(t, out, "Provider: (none)")
	assert.Contains(t, out, "Max length: 8000")
	assert.Contains(t, out, "retrieval uses keyword ranking")
}

func TestSettingsCmd_Source(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, nil, "settings", "source", "template")
	require.NoError(t, err)
	assert.Equal(t, "template", ts.config.GetString("prompt.system_source"))

	_, err = execute(t, nil, "settings", "source", "magic")
	require.Error(t, err)
}

func TestSettingsCmd_EmbeddingOllamaDefaults(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, strings.NewReader("1\n\n"), "settings", "embedding")

	require.NoError(t, err)
	assert.Contains(t, out, "Validating configuration... OK")
	assert.Contains(t, out, "Embedding provider configured: Ollama (local) (nomic-embed-text)")
	assert.Equal(t, "ollama", ts.config.GetString("embedding.provider"))
}

func TestSettingsCmd_LLMValidationFails(t *testing.T) {
	ts := setupTestServices(t)
	ts.validator.err = errors.New("connection refused")

	out, err := execute(t, strings.NewReader("1\nllama3.1\n"), "settings", "llm")

	require.Error(t, err)
	assert.Contains(t, out, "FAILED: connection refused")
	assert.Equal(t, "llama3.1", ts.config.GetString("llm.model"))
}

func TestSettingsCmd_WizardSkipsProviders(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, strings.NewReader("n\nn\n2\n"), "settings", "wizard")

	require.NoError(t, err)
	assert.Contains(t, out, "Configuration Complete!")
	assert.Equal(t, "template", ts.config.GetString("prompt.system_source"))
	assert.Empty(t, ts.config.GetString("embedding.provider"))
}
