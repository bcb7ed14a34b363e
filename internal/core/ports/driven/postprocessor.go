package driven

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// PostProcessor turns a text segment into chunks.
// PostProcessors are chained in a pipeline (e.g., cleaning, then chunking).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a segment and returns chunks.
	// Processors that normalise text rewrite seg.Text and pass chunks through.
	// Processors that create chunks (e.g., chunker) receive nil and return new chunks.
	Process(ctx context.Context, seg *domain.Segment, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the segment through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, seg *domain.Segment) ([]domain.Chunk, error)
}
