package ranking

import (
	"sort"
	"strings"
	"unicode"

	"github.com/boovines/Granted/internal/core/domain"
)

// Keyword scores candidates by the Jaccard index of their lowercase word
// sets against the query's, best first, capped at k. Candidates scoring
// zero or below threshold are excluded.
func Keyword(query string, candidates []domain.Chunk, k int, threshold float64) []domain.ScoredChunk {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return nil
	}

	var scored []domain.ScoredChunk
	for i := range candidates {
		score := jaccard(queryWords, wordSet(candidates[i].Text))
		if score <= 0 || score < threshold {
			continue
		}
		scored = append(scored, domain.ScoredChunk{Chunk: candidates[i], Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return limit(scored, k)
}

func wordSet(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}
