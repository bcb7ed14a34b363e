package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyInput indicates text was empty or whitespace only.
	// Client-caused; retrying the same input will not help.
	ErrEmptyInput = errors.New("empty input")

	// ErrDimensionMismatch indicates two vectors of different length were compared.
	// This is a configuration bug and must never be ignored.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// Provider and store errors. These are transient: callers may retry
	// with backoff, the core itself never does.

	// ErrEmbeddingProvider wraps a transport or provider failure from the embedding service.
	ErrEmbeddingProvider = errors.New("embedding provider error")

	// ErrGenerationProvider wraps a transport or provider failure from the text-generation service.
	ErrGenerationProvider = errors.New("generation provider error")

	// ErrStoreUnavailable wraps a failure of the persistent store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Chat summarisation is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrParserUnavailable indicates no document parser is configured.
	ErrParserUnavailable = errors.New("document parser unavailable")
)
