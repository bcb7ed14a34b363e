package domain

// RankMode identifies which strategy ordered a retrieval result.
// Every result set carries exactly one mode; modes are never mixed
// within a single call.
type RankMode string

// Available rank modes.
const (
	// RankVector orders by cosine similarity to a query vector.
	RankVector RankMode = "vector"

	// RankKeyword orders by word-set overlap with the query text.
	RankKeyword RankMode = "keyword"

	// RankRecency orders by creation time, newest first.
	RankRecency RankMode = "recency"

	// RankPosition orders by chunk index, ascending.
	RankPosition RankMode = "position"
)

// IsValid returns true if the mode is recognised.
func (m RankMode) IsValid() bool {
	switch m {
	case RankVector, RankKeyword, RankRecency, RankPosition:
		return true
	default:
		return false
	}
}

// IsFallback returns true for modes that do not use embeddings.
func (m RankMode) IsFallback() bool {
	return m != RankVector
}

// String returns the string representation.
func (m RankMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m RankMode) Description() string {
	switch m {
	case RankVector:
		return "Vector (cosine similarity)"
	case RankKeyword:
		return "Keyword (word overlap)"
	case RankRecency:
		return "Recency (newest first)"
	case RankPosition:
		return "Position (document order)"
	default:
		return unknownDescription
	}
}
