package domain

import (
	"strings"
	"time"
)

// DocumentStatus tracks a document through parsing and indexing.
type DocumentStatus string

// Document lifecycle states.
const (
	DocumentPending DocumentStatus = "pending"
	DocumentParsed  DocumentStatus = "parsed"
	DocumentFailed  DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentPending, DocumentParsed, DocumentFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document is an uploaded source file (PDF, DOCX) owned by a workspace.
// It owns zero or more Chunks; deleting it deletes them.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// WorkspaceID is the owning workspace.
	WorkspaceID string `json:"workspace_id"`

	// Filename is the original upload name.
	Filename string `json:"filename"`

	// UploadedAt is when the document was received.
	UploadedAt time.Time `json:"upload_time"`

	// Status is pending until chunks are stored, then parsed or failed.
	Status DocumentStatus `json:"status"`

	// Metadata is derived from the parsed elements.
	Metadata DocumentMetadata `json:"metadata"`

	// Error holds the failure message when Status is failed.
	Error string `json:"error,omitempty"`
}

// DocumentMetadata is derived from a document's parsed elements.
type DocumentMetadata struct {
	// Title is the text of the first Title element.
	Title string `json:"title,omitempty"`

	// PageCount is the number of distinct positive page numbers seen.
	PageCount int `json:"page_count"`

	// ElementTypes counts elements by type.
	ElementTypes map[string]int `json:"element_types,omitempty"`

	// ChunkCount is the number of chunks stored for the document.
	ChunkCount int `json:"chunk_count"`
}

// ParsedDocument is the output of the document-parsing service.
type ParsedDocument struct {
	Elements []ParsedElement `json:"elements"`
	Status   []any           `json:"status,omitempty"`
}

// ParsedElement is one structural element of a parsed document.
type ParsedElement struct {
	ElementID          string         `json:"element_id,omitempty"`
	Type               string         `json:"type"`
	TextRepresentation string         `json:"text_representation,omitempty"`
	Text               string         `json:"text,omitempty"`
	Content            string         `json:"content,omitempty"`
	BBox               []float64      `json:"bbox,omitempty"`
	Properties         map[string]any `json:"properties,omitempty"`
}

// Body returns the first non-empty of text_representation, text and content.
func (e ParsedElement) Body() string {
	for _, s := range []string{e.TextRepresentation, e.Text, e.Content} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// PageNumber returns properties.page_number, or 0 when absent.
func (e ParsedElement) PageNumber() int {
	switch v := e.Properties["page_number"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Confidence returns properties.score, and whether it was present.
func (e ParsedElement) Confidence() (float64, bool) {
	v, ok := e.Properties["score"].(float64)
	return v, ok
}

// MatchQuery is the input of the store's similarity-search procedure.
type MatchQuery struct {
	// Vector is the query embedding.
	Vector []float32

	// WorkspaceID restricts the search to one workspace.
	WorkspaceID string

	// DocumentID optionally restricts the search to one document.
	DocumentID string

	// Threshold is the minimum cosine similarity.
	Threshold float64

	// Limit caps the number of rows returned.
	Limit int
}
