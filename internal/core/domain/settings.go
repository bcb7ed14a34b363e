package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or text generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance, reached through its
	// OpenAI-compatible endpoint.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects the persistent store implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageMemory keeps everything in process memory. Useful for tests and demos.
	StorageMemory StorageBackend = "memory"

	// StorageSQLite is an embedded database file.
	StorageSQLite StorageBackend = "sqlite"

	// StoragePostgres is PostgreSQL with the pgvector extension.
	StoragePostgres StorageBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageMemory, StorageSQLite, StoragePostgres:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// StorageSettings holds persistent store configuration.
type StorageSettings struct {
	// Backend is the store implementation.
	Backend StorageBackend

	// Path is the data directory (for SQLite).
	Path string

	// DSN is the connection string (for Postgres).
	DSN string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible gateways).
	BaseURL string

	// APIKey is the API key (for OpenAI/Gemini).
	APIKey string

	// RequestsPerSecond throttles provider calls. Zero means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds text-generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible gateways).
	BaseURL string

	// APIKey is the API key (for OpenAI/Gemini).
	APIKey string

	// RequestsPerSecond throttles provider calls. Zero means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ParserSettings holds document-parsing service configuration.
type ParserSettings struct {
	// BaseURL is the parsing service endpoint.
	BaseURL string

	// APIKey authenticates against the parsing service.
	APIKey string
}

// IsConfigured returns true if the parser can be called.
func (p ParserSettings) IsConfigured() bool {
	return p.APIKey != ""
}

// PromptSettings holds prompt assembly configuration.
type PromptSettings struct {
	// MaxLength is the default soft character budget.
	MaxLength int

	// SystemSource selects rules-based or template system prompts.
	SystemSource SystemPromptSource

	// TimeoutSeconds bounds a whole prompt build.
	TimeoutSeconds int
}

// RetrievalSettings holds per-section retrieval limits.
type RetrievalSettings struct {
	RecentTurns     int
	MemoryK         int
	LiveK           int
	SourceK         int
	SourceThreshold float64
	LiveThreshold   float64
}

// ChunkingSettings holds chunk sizes for both ingestion paths.
type ChunkingSettings struct {
	DocumentSize    int
	DocumentOverlap int
	LiveSize        int
	LiveOverlap     int

	// MinElementLength skips parsed elements shorter than this, after cleaning.
	MinElementLength int

	// EmbedBatchSize caps texts per embedding provider call.
	EmbedBatchSize int
}

// ChatSettings holds chat memory configuration.
type ChatSettings struct {
	// SummaryThreshold is the message count at which a chat becomes due.
	SummaryThreshold int

	// SummaryWindow is how many recent messages a summary covers.
	SummaryWindow int

	// KeepRecent is how many messages prune keeps.
	KeepRecent int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Storage   StorageSettings
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Parser    ParserSettings
	Prompt    PromptSettings
	Retrieval RetrievalSettings
	Chunking  ChunkingSettings
	Chat      ChatSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; without an embedding provider
// retrieval falls back to non-vector ranking.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Storage: StorageSettings{
			Backend: StorageSQLite,
		},
		Parser: ParserSettings{
			BaseURL: "https://api.aryn.cloud",
		},
		Prompt: PromptSettings{
			MaxLength:      8000,
			SystemSource:   SystemPromptRules,
			TimeoutSeconds: 30,
		},
		Retrieval: RetrievalSettings{
			RecentTurns:     5,
			MemoryK:         3,
			LiveK:           5,
			SourceK:         5,
			SourceThreshold: 0.7,
			LiveThreshold:   0,
		},
		Chunking: ChunkingSettings{
			DocumentSize:     1000,
			DocumentOverlap:  100,
			LiveSize:         500,
			LiveOverlap:      50,
			MinElementLength: 50,
			EmbedBatchSize:   100,
		},
		Chat: ChatSettings{
			SummaryThreshold: 10,
			SummaryWindow:    20,
			KeepRecent:       10,
		},
	}
}

// AllAIProviders returns every provider; all of them support both embeddings and generation.
func AllAIProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGemini,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-ada-002",
		AIProviderGemini: "text-embedding-004",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-3.5-turbo",
		AIProviderGemini: "gemini-2.0-flash",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"text-embedding-004":   768,
		"gemini-embedding-001": 3072,
	}
}
