package domain

import "time"

// Chunk is a bounded-length contiguous piece of text, independently
// embeddable and retrievable. Source-document chunks are owned by a
// Document; live-document chunks are keyed by workspace and filename.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// DocumentID links to the parent Document. Empty for live-document chunks.
	DocumentID string `json:"document_id,omitempty"`

	// WorkspaceID is the workspace the chunk belongs to.
	WorkspaceID string `json:"workspace_id"`

	// Filename is the live-document filename, or the source filename.
	Filename string `json:"filename,omitempty"`

	// Index is the ordinal position within the parent. Unique per parent.
	Index int `json:"chunk_index"`

	// Text is the chunk content, never empty after trimming.
	Text string `json:"text"`

	// Embedding is the vector representation for similarity search.
	Embedding []float32 `json:"-"`

	// Metadata holds element_type, page_number, bbox, confidence and friends.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time `json:"created_at"`
}

// ScoredChunk is a chunk paired with its relevance score.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Segment is a unit of text handed to the post-processing pipeline:
// one parsed document element, or the full body of a live document.
type Segment struct {
	// Text is the raw text. Processors may rewrite it in place.
	Text string

	// WorkspaceID, DocumentID and Filename are stamped onto produced chunks.
	WorkspaceID string
	DocumentID  string
	Filename    string

	// Metadata is copied onto every chunk produced from this segment.
	Metadata map[string]any
}

// StoreKind names one of the context stores.
type StoreKind string

// Available context stores.
const (
	// StoreLiveDocs is the live-editing document cache.
	StoreLiveDocs StoreKind = "live"

	// StoreSourceDocs is the parsed source-document index.
	StoreSourceDocs StoreKind = "source"

	// StoreChatMemory is the summarised chat memory.
	StoreChatMemory StoreKind = "chat"
)

// IsValid returns true if the store kind is recognised.
func (k StoreKind) IsValid() bool {
	switch k {
	case StoreLiveDocs, StoreSourceDocs, StoreChatMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k StoreKind) String() string {
	return string(k)
}

// NamespaceKey scopes a store's chunks for replace, retrieve and delete.
// Which fields are meaningful depends on the store:
// live docs use WorkspaceID+Filename, source docs use WorkspaceID and
// optionally DocumentID, chat memory uses ChatID.
type NamespaceKey struct {
	WorkspaceID string
	DocumentID  string
	Filename    string
	ChatID      string
}

// LiveDocKey builds the key of a live document.
func LiveDocKey(workspaceID, filename string) NamespaceKey {
	return NamespaceKey{WorkspaceID: workspaceID, Filename: filename}
}

// DocumentKey builds the key of a source document. An empty documentID
// addresses every document in the workspace.
func DocumentKey(workspaceID, documentID string) NamespaceKey {
	return NamespaceKey{WorkspaceID: workspaceID, DocumentID: documentID}
}

// ChatKey builds the key of a chat's memory.
func ChatKey(chatID string) NamespaceKey {
	return NamespaceKey{ChatID: chatID}
}

// String renders the key for logging and lock scoping.
func (k NamespaceKey) String() string {
	switch {
	case k.ChatID != "":
		return "chat:" + k.ChatID
	case k.DocumentID != "":
		return "doc:" + k.WorkspaceID + "/" + k.DocumentID
	default:
		return "live:" + k.WorkspaceID + "/" + k.Filename
	}
}

// Query is what a store retrieves against. Either field may be empty.
type Query struct {
	// Text is the raw query, used by keyword ranking.
	Text string

	// Vector is the embedded query, used by vector ranking.
	Vector []float32
}

// HasVector reports whether the query carries an embedding.
func (q Query) HasVector() bool {
	return len(q.Vector) > 0
}

// Retrieval is a ranked result set tagged with the mode that produced it.
type Retrieval struct {
	Mode   RankMode      `json:"mode"`
	Chunks []ScoredChunk `json:"chunks"`
}

// Texts returns the chunk texts in rank order.
func (r Retrieval) Texts() []string {
	texts := make([]string, len(r.Chunks))
	for i := range r.Chunks {
		texts[i] = r.Chunks[i].Chunk.Text
	}
	return texts
}
