package services

import (
	"fmt"
	"os"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyStorageBackend = "storage.backend"
	keyStoragePath    = "storage.path"
	keyStorageDSN     = "storage.dsn"

	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyEmbedRPS      = "embedding.requests_per_second"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"
	keyLLMRPS        = "llm.requests_per_second"
	keyParserBaseURL = "parser.base_url"
	keyParserAPIKey  = "parser.api_key"

	keyPromptMaxLength  = "prompt.max_length"
	keyPromptSource     = "prompt.system_source"
	keyPromptTimeout    = "prompt.timeout_seconds"
	keyRecentTurns      = "retrieval.recent_turns"
	keyMemoryK          = "retrieval.memory_k"
	keyLiveK            = "retrieval.live_k"
	keySourceK          = "retrieval.source_k"
	keySourceThreshold  = "retrieval.source_threshold"
	keyLiveThreshold    = "retrieval.live_threshold"
	keyDocumentSize     = "chunking.document_size"
	keyDocumentOverlap  = "chunking.document_overlap"
	keyLiveSize         = "chunking.live_size"
	keyLiveOverlap      = "chunking.live_overlap"
	keyMinElementLength = "chunking.min_element_length"
	keyEmbedBatchSize   = "chunking.embed_batch_size"
	keySummaryThreshold = "chat.summary_threshold"
	keySummaryWindow    = "chat.summary_window"
	keyKeepRecent       = "chat.keep_recent"
)

// defaultOllamaEndpoint is the OpenAI-compatible endpoint of a local Ollama.
const defaultOllamaEndpoint = "http://localhost:11434/v1"

// Environment variables consulted when no API key is configured.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI: "OPENAI_API_KEY",
	domain.AIProviderGemini: "GEMINI_API_KEY",
}

const parserKeyEnv = "ARYN_API_KEY"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. API keys missing from the
// config file are read from the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			Backend: s.getBackend(d.Storage.Backend),
			Path:    s.configStore.GetString(keyStoragePath),
			DSN:     s.configStore.GetString(keyStorageDSN),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),

			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyLLMAPIKey),

			RequestsPerSecond: s.getFloat(keyLLMRPS, d.LLM.RequestsPerSecond),
		},
		Parser: domain.ParserSettings{
			BaseURL: s.getString(keyParserBaseURL, d.Parser.BaseURL),
			APIKey:  s.configStore.GetString(keyParserAPIKey),
		},
		Prompt: domain.PromptSettings{
			MaxLength:      s.getInt(keyPromptMaxLength, d.Prompt.MaxLength),
			SystemSource:   s.getSource(d.Prompt.SystemSource),
			TimeoutSeconds: s.getInt(keyPromptTimeout, d.Prompt.TimeoutSeconds),
		},
		Retrieval: domain.RetrievalSettings{
			RecentTurns:     s.getInt(keyRecentTurns, d.Retrieval.RecentTurns),
			MemoryK:         s.getInt(keyMemoryK, d.Retrieval.MemoryK),
			LiveK:           s.getInt(keyLiveK, d.Retrieval.LiveK),
			SourceK:         s.getInt(keySourceK, d.Retrieval.SourceK),
			SourceThreshold: s.getFloat(keySourceThreshold, d.Retrieval.SourceThreshold),
			LiveThreshold:   s.getFloat(keyLiveThreshold, d.Retrieval.LiveThreshold),
		},
		Chunking: domain.ChunkingSettings{
			DocumentSize:     s.getInt(keyDocumentSize, d.Chunking.DocumentSize),
			DocumentOverlap:  s.getInt(keyDocumentOverlap, d.Chunking.DocumentOverlap),
			LiveSize:         s.getInt(keyLiveSize, d.Chunking.LiveSize),
			LiveOverlap:      s.getInt(keyLiveOverlap, d.Chunking.LiveOverlap),
			MinElementLength: s.getInt(keyMinElementLength, d.Chunking.MinElementLength),
			EmbedBatchSize:   s.getInt(keyEmbedBatchSize, d.Chunking.EmbedBatchSize),
		},
		Chat: domain.ChatSettings{
			SummaryThreshold: s.getInt(keySummaryThreshold, d.Chat.SummaryThreshold),
			SummaryWindow:    s.getInt(keySummaryWindow, d.Chat.SummaryWindow),
			KeepRecent:       s.getInt(keyKeepRecent, d.Chat.KeepRecent),
		},
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}
	if settings.Parser.APIKey == "" {
		settings.Parser.APIKey = s.getenv(parserKeyEnv)
	}

	return settings, nil
}

// Save persists application settings. Empty API keys are not written, so
// keys supplied through the environment never end up in the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyStorageBackend, settings.Storage.Backend.String()},
		{keyStoragePath, settings.Storage.Path},
		{keyStorageDSN, settings.Storage.DSN},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMRPS, settings.LLM.RequestsPerSecond},
		{keyParserBaseURL, settings.Parser.BaseURL},
		{keyPromptMaxLength, settings.Prompt.MaxLength},
		{keyPromptSource, settings.Prompt.SystemSource.String()},
		{keyPromptTimeout, settings.Prompt.TimeoutSeconds},
		{keyRecentTurns, settings.Retrieval.RecentTurns},
		{keyMemoryK, settings.Retrieval.MemoryK},
		{keyLiveK, settings.Retrieval.LiveK},
		{keySourceK, settings.Retrieval.SourceK},
		{keySourceThreshold, settings.Retrieval.SourceThreshold},
		{keyLiveThreshold, settings.Retrieval.LiveThreshold},
		{keyDocumentSize, settings.Chunking.DocumentSize},
		{keyDocumentOverlap, settings.Chunking.DocumentOverlap},
		{keyLiveSize, settings.Chunking.LiveSize},
		{keyLiveOverlap, settings.Chunking.LiveOverlap},
		{keyMinElementLength, settings.Chunking.MinElementLength},
		{keyEmbedBatchSize, settings.Chunking.EmbedBatchSize},
		{keySummaryThreshold, settings.Chat.SummaryThreshold},
		{keySummaryWindow, settings.Chat.SummaryWindow},
		{keyKeepRecent, settings.Chat.KeepRecent},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	secrets := []struct{ key, value string }{
		{keyEmbedAPIKey, settings.Embedding.APIKey},
		{keyLLMAPIKey, settings.LLM.APIKey},
		{keyParserAPIKey, settings.Parser.APIKey},
	}
	for _, v := range secrets {
		if v.value == "" {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = pickModel(model, provider, domain.DefaultEmbeddingModels())
	settings.Embedding.BaseURL = pickBaseURL(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = pickModel(model, provider, domain.DefaultLLMModels())
	settings.LLM.BaseURL = pickBaseURL(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetSystemPromptSource selects rules-based or template system prompts.
func (s *SettingsService) SetSystemPromptSource(source domain.SystemPromptSource) error {
	if !source.IsValid() {
		return fmt.Errorf("invalid system prompt source: %s", source)
	}
	return s.configStore.Set(keyPromptSource, source.String())
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func pickModel(model string, provider domain.AIProvider, defaults map[domain.AIProvider]string) string {
	if model != "" {
		return model
	}
	return defaults[provider]
}

// pickBaseURL keeps a custom endpoint for local providers and clears it for
// cloud providers.
func pickBaseURL(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaEndpoint
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envKey(provider domain.AIProvider) string {
	if name, ok := apiKeyEnv[provider]; ok {
		return s.getenv(name)
	}
	return ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	backend := domain.StorageBackend(s.configStore.GetString(keyStorageBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getSource(defaultVal domain.SystemPromptSource) domain.SystemPromptSource {
	source := domain.SystemPromptSource(s.configStore.GetString(keyPromptSource))
	if !source.IsValid() {
		return defaultVal
	}
	return source
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
