package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boovines/Granted/internal/adapters/driven/storage/memory"
	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/postprocessors"
)

type ingestFixture struct {
	svc    *IngestService
	docs   *memory.DocumentStore
	parser *fakeParser
	emb    *fakeEmbedding
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()

	f := &ingestFixture{
		docs:   memory.NewDocumentStore(),
		parser: &fakeParser{},
		emb:    newFakeEmbedding(),
	}
	embedder := NewEmbedder(f.emb, 0)
	pipeline := postprocessors.NewDocumentPipeline(domain.DefaultAppSettings().Chunking)
	index := NewSourceDocService(f.docs, 0.7)
	f.svc = NewIngestService(f.docs, f.parser, embedder, pipeline, index)
	return f
}

func sampleParsedDocument() *domain.ParsedDocument {
	return &domain.ParsedDocument{Elements: []domain.ParsedElement{
		{
			ElementID:  "e1",
			Type:       "Title",
			Text:       "Solar Microgrids",
			Properties: map[string]any{"page_number": 1.0},
		},
		{
			ElementID:          "e2",
			Type:               "NarrativeText",
			TextRepresentation: "Solar microgrids give rural clinics reliable power and cut diesel use by half.",
			BBox:               []float64{0.1, 0.2, 0.8, 0.3},
			Properties:         map[string]any{"page_number": 1.0, "score": 0.93, "parent_id": "e1"},
		},
		{
			ElementID:  "e3",
			Type:       "Table",
			Content:    "Budget year one covers panels, batteries, installation and technician training.",
			Properties: map[string]any{"page_number": 2.0},
		},
		{
			ElementID:  "e4",
			Type:       "Image",
			Properties: map[string]any{"page_number": 2.0},
		},
	}}
}

func TestIngestService_Ingest(t *testing.T) {
	f := newIngestFixture(t)
	f.parser.parsed = sampleParsedDocument()
	ctx := context.Background()

	doc, err := f.svc.Ingest(ctx, "ws", "proposal.pdf", []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, domain.DocumentParsed, doc.Status)
	assert.Equal(t, "Solar Microgrids", doc.Metadata.Title)
	assert.Equal(t, 2, doc.Metadata.PageCount)
	assert.Equal(t, 2, doc.Metadata.ChunkCount)
	assert.Equal(t, map[string]int{"Title": 1, "NarrativeText": 1, "Table": 1, "Image": 1}, doc.Metadata.ElementTypes)

	stored, err := f.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentParsed, stored.Status)

	chunks, err := f.docs.ListChunks(ctx, "ws", doc.ID, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	first := chunks[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, doc.ID, first.DocumentID)
	assert.True(t, strings.HasPrefix(first.Text, "Solar microgrids give rural clinics"))
	assert.Len(t, first.Embedding, 4)
	assert.Equal(t, "NarrativeText", first.Metadata["element_type"])
	assert.Equal(t, "e2", first.Metadata["element_id"])
	assert.Equal(t, 1, first.Metadata["page_number"])
	assert.Equal(t, 0.93, first.Metadata["confidence"])
	assert.Equal(t, []float64{0.1, 0.2, 0.8, 0.3}, first.Metadata["bbox"])
	assert.Equal(t, "e1", first.Metadata["prop_parent_id"])
	assert.NotContains(t, first.Metadata, "prop_score")

	second := chunks[1]
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, "Table", second.Metadata["element_type"])
	assert.Equal(t, []float64{}, second.Metadata["bbox"])
	assert.Equal(t, 0.0, second.Metadata["confidence"])
}

func TestIngestService_Ingest_ParseFailure(t *testing.T) {
	f := newIngestFixture(t)
	f.parser.err = errors.New("parser returned 502")
	ctx := context.Background()

	doc, err := f.svc.Ingest(ctx, "ws", "broken.pdf", []byte("x"))

	require.Error(t, err)
	require.NotNil(t, doc)
	stored, getErr := f.docs.GetDocument(ctx, doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.DocumentFailed, stored.Status)
	assert.Contains(t, stored.Error, "parser returned 502")
}

func TestIngestService_Ingest_EmbeddingFailure(t *testing.T) {
	f := newIngestFixture(t)
	f.parser.parsed = sampleParsedDocument()
	f.emb.setErr(errors.New("quota"))
	ctx := context.Background()

	doc, err := f.svc.Ingest(ctx, "ws", "proposal.pdf", []byte("%PDF"))

	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
	assert.Equal(t, domain.DocumentFailed, doc.Status)
	chunks, _ := f.docs.ListChunks(ctx, "ws", doc.ID, 0)
	assert.Empty(t, chunks)
}

func TestIngestService_Ingest_WithoutParser(t *testing.T) {
	svc := NewIngestService(memory.NewDocumentStore(), nil, nil, postprocessors.NewPipeline(), nil)

	_, err := svc.Ingest(context.Background(), "ws", "a.pdf", nil)

	assert.ErrorIs(t, err, domain.ErrParserUnavailable)
}

func TestIngestService_IngestParsed_Validation(t *testing.T) {
	f := newIngestFixture(t)
	ctx := context.Background()

	_, err := f.svc.IngestParsed(ctx, "ws", "a.pdf", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.IngestParsed(ctx, "", "a.pdf", &domain.ParsedDocument{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestService_IngestParsed_NoUsableElements(t *testing.T) {
	f := newIngestFixture(t)

	doc, err := f.svc.IngestParsed(context.Background(), "ws", "cover.pdf", &domain.ParsedDocument{
		Elements: []domain.ParsedElement{{Type: "PageNumber", Text: "3"}},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.DocumentParsed, doc.Status)
	assert.Zero(t, doc.Metadata.ChunkCount)
	assert.Zero(t, f.emb.calls)
}

func TestIngestService_ListAndDelete(t *testing.T) {
	f := newIngestFixture(t)
	f.parser.parsed = sampleParsedDocument()
	ctx := context.Background()

	doc, err := f.svc.Ingest(ctx, "ws", "proposal.pdf", []byte("%PDF"))
	require.NoError(t, err)

	docs, err := f.svc.ListDocuments(ctx, "ws")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)

	require.NoError(t, f.svc.DeleteDocument(ctx, doc.ID))

	_, err = f.svc.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	chunks, err := f.docs.ListChunks(ctx, "ws", doc.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
