// Package postprocessors provides text processing between parsing and storage.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/postprocessors/chunker"
	"github.com/boovines/Granted/internal/postprocessors/cleaner"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline chains multiple PostProcessors and runs them in order.
// It implements the PostProcessorPipeline interface.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// NewDocumentPipeline cleans parsed element text, drops elements shorter
// than cfg.MinElementLength and chunks the rest with the document sizes.
func NewDocumentPipeline(cfg domain.ChunkingSettings) *Pipeline {
	return NewPipeline(
		cleaner.New(cleaner.WithMinLength(cfg.MinElementLength)),
		chunker.New(chunker.WithChunkSize(cfg.DocumentSize), chunker.WithOverlap(cfg.DocumentOverlap)),
	)
}

// NewLivePipeline chunks live-document text with the live sizes. Live text
// is not cleaned; it is what the user is typing.
func NewLivePipeline(cfg domain.ChunkingSettings) *Pipeline {
	return NewPipeline(
		chunker.New(chunker.WithChunkSize(cfg.LiveSize), chunker.WithOverlap(cfg.LiveOverlap)),
	)
}

// Process runs the segment through all processors in order.
// The first chunk-creating processor receives nil chunks and should create them.
// Subsequent processors receive and may modify the chunks.
func (p *Pipeline) Process(ctx context.Context, seg *domain.Segment) ([]domain.Chunk, error) {
	if seg == nil {
		return nil, fmt.Errorf("segment is nil")
	}

	var chunks []domain.Chunk

	for _, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, seg, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, processor := range p.processors {
		names[i] = processor.Name()
	}
	return names
}
