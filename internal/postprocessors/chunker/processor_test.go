package chunker

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"unicode"

	"github.com/boovines/Granted/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(500), WithOverlap(50))
		if p.chunkSize != 500 || p.overlap != 50 {
			t.Errorf("expected 500/50, got %d/%d", p.chunkSize, p.overlap)
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != DefaultChunkSize || p.overlap != DefaultChunkOverlap {
			t.Errorf("expected defaults, got %d/%d", p.chunkSize, p.overlap)
		}
	})

	t.Run("overlap clamped below chunk size", func(t *testing.T) {
		p := New(WithChunkSize(10), WithOverlap(50))
		if p.overlap != 9 {
			t.Errorf("expected overlap 9, got %d", p.overlap)
		}
	})
}

func TestSplit_ShortTextUnchanged(t *testing.T) {
	text := "  short text with padding  "
	got := Split(text, 100, 10)
	if !reflect.DeepEqual(got, []string{text}) {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestSplit_SentenceExample(t *testing.T) {
	got := Split("A. B. C. D. E.", 4, 1)

	want := []string{"A. B", "B. C", "C. D", "D. E", "E."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected segments:\n got %q\nwant %q", got, want)
	}
	for _, seg := range got {
		if len(seg) > 4 || strings.TrimSpace(seg) != seg || seg == "" {
			t.Errorf("segment %q violates length/trim invariant", seg)
		}
	}
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	text := "The solar array is sized. It powers the clinic and the school nearby."
	got := Split(text, 30, 0)

	if got[0] != "The solar array is sized." {
		t.Errorf("expected first segment to end at sentence, got %q", got[0])
	}
}

func TestSplit_FallsBackToSpace(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"
	got := Split(text, 20, 0)

	words := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		words[w] = true
	}
	for _, seg := range got {
		for _, w := range strings.Fields(seg) {
			if !words[w] {
				t.Errorf("segment %q splits word %q", seg, w)
			}
		}
	}
	if got[0] != "alpha beta gamma" {
		t.Errorf("expected word break, got %q", got[0])
	}
}

func TestSplit_BoundaryTooEarlyUsesRawEdge(t *testing.T) {
	text := "a. " + strings.Repeat("x", 40)
	got := Split(text, 20, 0)

	if got[0] != "a. "+strings.Repeat("x", 17) {
		t.Errorf("expected raw window edge, got %q", got[0])
	}
}

func TestSplit_OverlapRepeatsTail(t *testing.T) {
	text := strings.Repeat("abcdefghij", 5)
	got := Split(text, 20, 5)

	for i := 1; i < len(got); i++ {
		prev := got[i-1]
		if !strings.HasPrefix(got[i], prev[len(prev)-5:]) {
			t.Errorf("segment %d %q does not start with overlap of %q", i, got[i], prev)
		}
	}
}

func TestSplit_NoOverlapOnlyTail(t *testing.T) {
	text := strings.Repeat("abcdefghij", 5)
	got := Split(text, 20, 5)

	want := []string{text[0:20], text[15:35], text[30:50]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %q, want %q", got, want)
	}
}

func TestSplit_TerminatesWithHugeOverlap(t *testing.T) {
	text := strings.Repeat("word ", 40)
	got := Split(text, 8, 1000)

	if len(got) == 0 {
		t.Fatal("expected segments")
	}
	for _, seg := range got {
		if len([]rune(seg)) > 8 {
			t.Errorf("segment %q exceeds chunk size", seg)
		}
	}
}

func TestSplit_DropsBlankSegments(t *testing.T) {
	text := "start" + strings.Repeat(" ", 30) + "end"
	for _, seg := range Split(text, 10, 0) {
		if strings.TrimSpace(seg) == "" {
			t.Error("blank segment emitted")
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Sentence one. Sentence two! Question? ", 30)
	first := Split(text, 120, 20)
	for i := 0; i < 5; i++ {
		if !reflect.DeepEqual(first, Split(text, 120, 20)) {
			t.Fatal("split is not deterministic")
		}
	}
}

func TestSplit_MultiByteRunes(t *testing.T) {
	text := strings.Repeat("énergie solaire ", 20)
	for _, seg := range Split(text, 25, 5) {
		if len([]rune(seg)) > 25 {
			t.Errorf("segment %q exceeds chunk size in runes", seg)
		}
		if !strings.Contains(text, seg) {
			t.Errorf("segment %q is not a substring of the input", seg)
		}
	}
}

// TestSplit_Coverage checks that without overlap the segments partition
// the text: every non-space character appears exactly once, in order.
func TestSplit_Coverage(t *testing.T) {
	texts := []string{
		"A. B. C. D. E.",
		strings.Repeat("The grant funds microgrids. ", 40),
		strings.Repeat("no-boundaries-at-all", 30),
		"Para one.\n\nPara two is a little longer.\n\nPara three! Done? Yes.",
	}
	stripSpace := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return -1
			}
			return r
		}, s)
	}

	for _, text := range texts {
		for _, size := range []int{4, 17, 64} {
			joined := strings.Join(Split(text, size, 0), "")
			if stripSpace(joined) != stripSpace(text) {
				t.Errorf("size %d: coverage mismatch for %q", size, text)
			}
		}
	}
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("unexpected name %q", New().Name())
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	chunks, err := New().Process(context.Background(), &domain.Segment{Text: "   "}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestProcessor_Process_Chunks(t *testing.T) {
	p := New(WithChunkSize(50), WithOverlap(10))
	seg := &domain.Segment{
		Text:        strings.Repeat("Renewable power for rural clinics. ", 10),
		WorkspaceID: "ws",
		DocumentID:  "doc-1",
		Filename:    "proposal.pdf",
		Metadata:    map[string]any{"page_number": 2},
	}

	chunks, err := p.Process(context.Background(), seg, []domain.Chunk{{ID: "ignored"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	seen := make(map[string]bool)
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.ID == "" || seen[c.ID] {
			t.Errorf("chunk %d has missing or duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true
		if c.DocumentID != "doc-1" || c.WorkspaceID != "ws" || c.Filename != "proposal.pdf" {
			t.Errorf("chunk %d lost its parent keys: %+v", i, c)
		}
		if c.Metadata["page_number"] != 2 || c.Metadata["chunk_index"] != i || c.Metadata["total_chunks"] != len(chunks) {
			t.Errorf("chunk %d metadata: %v", i, c.Metadata)
		}
		if len([]rune(c.Text)) > 50 {
			t.Errorf("chunk %d exceeds size", i)
		}
	}

	if _, ok := seg.Metadata["chunk_index"]; ok {
		t.Error("segment metadata was mutated")
	}
}

func TestProcessor_Process_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().Process(ctx, &domain.Segment{Text: "text"}, nil); err == nil {
		t.Error("expected context error")
	}
}
