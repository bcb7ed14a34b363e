// Package ranking orders candidate chunks for retrieval.
//
// Vector ranking scores candidates by cosine similarity. When no query
// vector is available, one of the named fallbacks is used instead:
// keyword overlap, recency, or document position. Every function returns
// results for exactly one mode so callers can report which one ran.
package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/boovines/Granted/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b.
// A zero-length vector has similarity 0 with everything.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Rank returns the candidates whose cosine similarity to query is at least
// threshold, best first, capped at k. Ties keep candidate order. A k <= 0
// means no cap. Candidates without an embedding are skipped; any other
// length mismatch is an error.
func Rank(query []float32, candidates []domain.Chunk, k int, threshold float64) ([]domain.ScoredChunk, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	scored := make([]domain.ScoredChunk, 0, len(candidates))
	for i := range candidates {
		if len(candidates[i].Embedding) == 0 {
			continue
		}
		score, err := Cosine(query, candidates[i].Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", candidates[i].ID, err)
		}
		if score < threshold {
			continue
		}
		scored = append(scored, domain.ScoredChunk{Chunk: candidates[i], Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return limit(scored, k), nil
}

// ByRecency orders candidates newest first. Ties keep candidate order.
func ByRecency(candidates []domain.Chunk, k int) []domain.ScoredChunk {
	out := unscored(candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Chunk.CreatedAt.After(out[j].Chunk.CreatedAt)
	})
	return limit(out, k)
}

// ByPosition orders candidates by chunk index. Ties keep candidate order,
// so chunks of several files stay grouped the way the store listed them.
func ByPosition(candidates []domain.Chunk, k int) []domain.ScoredChunk {
	out := unscored(candidates)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Chunk.Index < out[j].Chunk.Index
	})
	return limit(out, k)
}

// Fallback ranks candidates with a non-vector mode.
func Fallback(mode domain.RankMode, queryText string, candidates []domain.Chunk, k int) (domain.Retrieval, error) {
	switch mode {
	case domain.RankKeyword:
		return domain.Retrieval{Mode: mode, Chunks: Keyword(queryText, candidates, k, 0)}, nil
	case domain.RankRecency:
		return domain.Retrieval{Mode: mode, Chunks: ByRecency(candidates, k)}, nil
	case domain.RankPosition:
		return domain.Retrieval{Mode: mode, Chunks: ByPosition(candidates, k)}, nil
	default:
		return domain.Retrieval{}, fmt.Errorf("%w: %q is not a fallback rank mode", domain.ErrInvalidInput, mode)
	}
}

func unscored(candidates []domain.Chunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(candidates))
	for i := range candidates {
		out[i] = domain.ScoredChunk{Chunk: candidates[i]}
	}
	return out
}

func limit(scored []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if k > 0 && len(scored) > k {
		return scored[:k]
	}
	return scored
}
