// Package chunker splits text into overlapping chunks that prefer to end
// on sentence or word boundaries.
package chunker

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boovines/Granted/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// boundaryFraction is how far into a window a boundary must lie to be used.
const boundaryFraction = 0.7

// sentenceEndings are the boundaries preferred over a plain space.
var sentenceEndings = [][]rune{
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune("\n\n"),
}

// Processor splits segment text into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.overlap = clampOverlap(p.chunkSize, p.overlap)

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the segment text into chunks.
// Input chunks are ignored; this processor creates new chunks from the segment.
// Chunk indexes start at zero for every segment.
func (p *Processor) Process(ctx context.Context, seg *domain.Segment, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(seg.Text) == "" {
		return nil, nil
	}

	parts := Split(seg.Text, p.chunkSize, p.overlap)
	chunks := make([]domain.Chunk, 0, len(parts))
	now := time.Now().UTC()

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		metadata := make(map[string]any, len(seg.Metadata)+2)
		for k, v := range seg.Metadata {
			metadata[k] = v
		}
		metadata["chunk_index"] = len(chunks)

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  seg.DocumentID,
			WorkspaceID: seg.WorkspaceID,
			Filename:    seg.Filename,
			Index:       len(chunks),
			Text:        part,
			Metadata:    metadata,
			CreatedAt:   now,
		})
	}

	for i := range chunks {
		chunks[i].Metadata["total_chunks"] = len(chunks)
	}

	return chunks, nil
}

// Split breaks text into segments of at most size characters, each
// overlapping the previous by overlap characters. A window that ends
// before the text does is pulled back to the last sentence ending, or
// failing that the last space, found in its final 30%. Segments are
// trimmed and blank segments dropped. Text that fits in one window is
// returned unchanged. Splitting stops at the first window that reaches the
// end of the text, so no trailing segment made only of overlap is emitted.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap = clampOverlap(size, overlap)

	runes := []rune(text)
	n := len(runes)
	if n <= size {
		return []string{text}
	}

	var segments []string
	start := 0
	for start < n {
		end := start + size
		if end < n {
			end = boundary(runes, start, end, size)
		} else {
			end = n
		}

		if seg := strings.TrimSpace(string(runes[start:end])); seg != "" {
			segments = append(segments, seg)
		}
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return segments
}

// boundary returns where the window [start, end) should actually end.
func boundary(runes []rune, start, end, size int) int {
	minPos := start + int(math.Ceil(boundaryFraction*float64(size)))

	best := -1
	for _, ending := range sentenceEndings {
		pos := lastIndex(runes, ending, minPos, end)
		if pos >= 0 && pos+len(ending) > best {
			best = pos + len(ending)
		}
	}
	if best > start {
		return best
	}

	if pos := lastIndex(runes, []rune(" "), minPos, end); pos > start {
		return pos
	}

	return end
}

// lastIndex finds the last occurrence of sub lying entirely within
// runes[lo:hi], or -1.
func lastIndex(runes, sub []rune, lo, hi int) int {
	for i := hi - len(sub); i >= lo; i-- {
		match := true
		for j := range sub {
			if runes[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// clampOverlap keeps overlap in [0, size-1] so every window advances.
func clampOverlap(size, overlap int) int {
	if overlap < 0 {
		return 0
	}
	if overlap >= size {
		return size - 1
	}
	return overlap
}
