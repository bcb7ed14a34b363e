package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// DefaultEmbedBatchSize is the number of texts sent per provider call.
const DefaultEmbedBatchSize = 100

// BatchResult holds the vectors of the non-blank inputs of a batch.
// Indexes[i] is the input position that Vectors[i] was computed from.
type BatchResult struct {
	Indexes []int
	Vectors [][]float32
}

// Embedder validates text and embedding vectors around an EmbeddingService.
// A nil Embedder, or one without a service, reports ErrEmbeddingUnavailable.
type Embedder struct {
	service   driven.EmbeddingService
	batchSize int
}

// NewEmbedder creates an embedder. A batchSize <= 0 uses DefaultEmbedBatchSize.
// The service may be nil, in which case every call fails with
// ErrEmbeddingUnavailable and callers fall back to non-vector ranking.
func NewEmbedder(service driven.EmbeddingService, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &Embedder{service: service, batchSize: batchSize}
}

// Available reports whether an embedding service is configured.
func (e *Embedder) Available() bool {
	return e != nil && e.service != nil
}

// BatchSize returns the number of texts sent per provider call.
func (e *Embedder) BatchSize() int {
	return e.batchSize
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !e.Available() {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}

	vec, err := e.service.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProvider, err)
	}
	if err := e.checkDimensions(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch embeds every non-blank text, in input order. Blank entries
// are skipped and do not appear in the result. If no entry is usable the
// result is ErrEmptyInput.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) (BatchResult, error) {
	if !e.Available() {
		return BatchResult{}, domain.ErrEmbeddingUnavailable
	}

	var result BatchResult
	valid := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		result.Indexes = append(result.Indexes, i)
		valid = append(valid, text)
	}
	if len(valid) == 0 {
		return BatchResult{}, domain.ErrEmptyInput
	}

	result.Vectors = make([][]float32, 0, len(valid))
	for start := 0; start < len(valid); start += e.batchSize {
		end := min(start+e.batchSize, len(valid))

		vectors, err := e.service.EmbedBatch(ctx, valid[start:end])
		if err != nil {
			return BatchResult{}, fmt.Errorf("%w: batch %d-%d: %w", domain.ErrEmbeddingProvider, start, end, err)
		}
		if len(vectors) != end-start {
			return BatchResult{}, fmt.Errorf("%w: got %d vectors for %d texts",
				domain.ErrEmbeddingProvider, len(vectors), end-start)
		}
		for _, vec := range vectors {
			if err := e.checkDimensions(vec); err != nil {
				return BatchResult{}, err
			}
		}
		result.Vectors = append(result.Vectors, vectors...)
	}

	return result, nil
}

// EmbedChunks fills in the Embedding of every chunk. Chunks are expected
// to carry non-blank text, as the chunker guarantees.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	result, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	for i, idx := range result.Indexes {
		chunks[idx].Embedding = result.Vectors[i]
	}
	return nil
}

func (e *Embedder) checkDimensions(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: provider returned an empty vector", domain.ErrEmbeddingProvider)
	}
	if dims := e.service.Dimensions(); dims > 0 && len(vec) != dims {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, dims, len(vec))
	}
	return nil
}
