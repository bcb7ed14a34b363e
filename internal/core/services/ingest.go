package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/core/ports/driving"
	"github.com/boovines/Granted/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService turns uploaded files into indexed source documents.
type IngestService struct {
	docs     driven.DocumentStore
	parser   driven.DocumentParser
	embedder *Embedder
	pipeline driven.PostProcessorPipeline
	index    driving.ContextStore
}

// NewIngestService creates a new ingestion service. The parser may be nil,
// in which case only pre-parsed documents can be ingested. The pipeline
// cleans, filters and chunks each parsed element.
func NewIngestService(
	docs driven.DocumentStore,
	parser driven.DocumentParser,
	embedder *Embedder,
	pipeline driven.PostProcessorPipeline,
	index driving.ContextStore,
) *IngestService {
	return &IngestService{
		docs:     docs,
		parser:   parser,
		embedder: embedder,
		pipeline: pipeline,
		index:    index,
	}
}

// Ingest parses data and indexes the result. Parse failures are recorded
// on the document before being returned.
func (s *IngestService) Ingest(ctx context.Context, workspaceID, filename string, data []byte) (*domain.Document, error) {
	if s.parser == nil {
		return nil, domain.ErrParserUnavailable
	}
	doc, err := s.create(ctx, workspaceID, filename)
	if err != nil {
		return nil, err
	}

	logger.Debug("Parsing %s (%d bytes)", filename, len(data))

	parsed, err := s.parser.Parse(ctx, filename, data)
	if err != nil {
		return doc, s.fail(ctx, doc, fmt.Errorf("parse %s: %w", filename, err))
	}
	return doc, s.indexParsed(ctx, doc, parsed)
}

// IngestParsed indexes an already-parsed document.
func (s *IngestService) IngestParsed(
	ctx context.Context, workspaceID, filename string, parsed *domain.ParsedDocument,
) (*domain.Document, error) {
	if parsed == nil {
		return nil, fmt.Errorf("%w: parsed document is nil", domain.ErrInvalidInput)
	}
	doc, err := s.create(ctx, workspaceID, filename)
	if err != nil {
		return nil, err
	}
	return doc, s.indexParsed(ctx, doc, parsed)
}

// GetDocument retrieves a document by ID.
func (s *IngestService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetDocument(ctx, id)
}

// ListDocuments returns the documents of a workspace, newest first.
func (s *IngestService) ListDocuments(ctx context.Context, workspaceID string) ([]domain.Document, error) {
	docs, err := s.docs.ListDocuments(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and its chunks.
func (s *IngestService) DeleteDocument(ctx context.Context, id string) error {
	if err := s.docs.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *IngestService) create(ctx context.Context, workspaceID, filename string) (*domain.Document, error) {
	if strings.TrimSpace(workspaceID) == "" || strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: workspace and filename are required", domain.ErrInvalidInput)
	}

	doc := &domain.Document{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Filename:    filename,
		UploadedAt:  time.Now().UTC(),
		Status:      domain.DocumentPending,
	}
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return doc, nil
}

func (s *IngestService) indexParsed(ctx context.Context, doc *domain.Document, parsed *domain.ParsedDocument) error {
	chunks, err := s.chunkElements(ctx, doc, parsed.Elements)
	if err != nil {
		return s.fail(ctx, doc, err)
	}

	if len(chunks) > 0 && s.embedder.Available() {
		if err := s.embedder.EmbedChunks(ctx, chunks); err != nil {
			return s.fail(ctx, doc, fmt.Errorf("embed chunks: %w", err))
		}
	}

	if len(chunks) > 0 {
		if err := s.index.Upsert(ctx, domain.DocumentKey(doc.WorkspaceID, doc.ID), chunks); err != nil {
			return s.fail(ctx, doc, err)
		}
	}

	doc.Metadata = describe(parsed.Elements)
	doc.Metadata.ChunkCount = len(chunks)
	doc.Status = domain.DocumentParsed
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	logger.Info("Indexed %s: %d elements, %d chunks", doc.Filename, len(parsed.Elements), len(chunks))
	return nil
}

// chunkElements runs every element through the pipeline and numbers the
// resulting chunks across the whole document.
func (s *IngestService) chunkElements(
	ctx context.Context, doc *domain.Document, elements []domain.ParsedElement,
) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for i := range elements {
		body := elements[i].Body()
		if body == "" {
			continue
		}

		produced, err := s.pipeline.Process(ctx, &domain.Segment{
			Text:        body,
			WorkspaceID: doc.WorkspaceID,
			DocumentID:  doc.ID,
			Filename:    doc.Filename,
			Metadata:    elementMetadata(elements[i]),
		})
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		for j := range produced {
			produced[j].Index = len(chunks)
			chunks = append(chunks, produced[j])
		}
	}
	return chunks, nil
}

// elementMetadata describes where a chunk came from in the parsed document.
func elementMetadata(el domain.ParsedElement) map[string]any {
	elementType := el.Type
	if elementType == "" {
		elementType = "unknown"
	}
	bbox := el.BBox
	if bbox == nil {
		bbox = []float64{}
	}
	confidence, _ := el.Confidence()

	md := map[string]any{
		"element_type": elementType,
		"element_id":   el.ElementID,
		"page_number":  el.PageNumber(),
		"bbox":         bbox,
		"confidence":   confidence,
	}
	for k, v := range el.Properties {
		if k == "page_number" || k == "score" {
			continue
		}
		md["prop_"+k] = v
	}
	return md
}

// describe derives document metadata from its elements.
func describe(elements []domain.ParsedElement) domain.DocumentMetadata {
	md := domain.DocumentMetadata{ElementTypes: make(map[string]int)}
	pages := make(map[int]struct{})

	for _, el := range elements {
		elementType := el.Type
		if elementType == "" {
			elementType = "unknown"
		}
		md.ElementTypes[elementType]++

		if md.Title == "" && el.Type == "Title" {
			md.Title = strings.TrimSpace(el.Body())
		}
		if page := el.PageNumber(); page > 0 {
			pages[page] = struct{}{}
		}
	}

	md.PageCount = len(pages)
	return md
}

func (s *IngestService) fail(ctx context.Context, doc *domain.Document, cause error) error {
	doc.Status = domain.DocumentFailed
	doc.Error = cause.Error()
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		logger.Warn("Could not mark %s failed: %v", doc.ID, err)
	}
	return cause
}
