package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boovines/Granted/internal/adapters/driven/storage/memory"
	"github.com/boovines/Granted/internal/core/domain"
)

type mockValidator struct {
	embedErr error
	llmErr   error
	embedded *domain.EmbeddingSettings
}

func (m *mockValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedded = cfg
	return m.embedErr
}

func (m *mockValidator) ValidateLLM(*domain.LLMSettings) error {
	return m.llmErr
}

func newTestSettingsService(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)
	service.getenv = func(name string) string { return env[name] }
	return service, store
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newTestSettingsService(nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newTestSettingsService(nil)
	_ = store.Set("storage.backend", "postgres")
	_ = store.Set("storage.dsn", "postgres://localhost/granted")
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-small")
	_ = store.Set("prompt.max_length", 4000)
	_ = store.Set("prompt.system_source", "template")
	_ = store.Set("retrieval.source_threshold", 0.5)
	_ = store.Set("retrieval.live_threshold", 0)
	_ = store.Set("chat.keep_recent", 4)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.StoragePostgres, settings.Storage.Backend)
	assert.Equal(t, "postgres://localhost/granted", settings.Storage.DSN)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, 4000, settings.Prompt.MaxLength)
	assert.Equal(t, domain.SystemPromptTemplate, settings.Prompt.SystemSource)
	assert.InDelta(t, 0.5, settings.Retrieval.SourceThreshold, 1e-9)
	assert.Zero(t, settings.Retrieval.LiveThreshold)
	assert.Equal(t, 4, settings.Chat.KeepRecent)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	service, store := newTestSettingsService(nil)
	_ = store.Set("storage.backend", "floppy")
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("prompt.system_source", "telepathy")

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Storage.Backend, settings.Storage.Backend)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Prompt.SystemSource, settings.Prompt.SystemSource)
}

func TestSettingsService_Get_APIKeysFromEnvironment(t *testing.T) {
	service, store := newTestSettingsService(map[string]string{
		"OPENAI_API_KEY": "sk-env",
		"GEMINI_API_KEY": "gm-env",
		"ARYN_API_KEY":   "aryn-env",
	})
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("llm.provider", "gemini")
	_ = store.Set("llm.api_key", "gm-file")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "gm-file", settings.LLM.APIKey)
	assert.Equal(t, "aryn-env", settings.Parser.APIKey)
}

func TestSettingsService_Save_RoundTrip(t *testing.T) {
	service, store := newTestSettingsService(nil)

	settings := domain.DefaultAppSettings()
	settings.Storage.Path = "/tmp/granted"
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test",
	}
	settings.Retrieval.SourceThreshold = 0.65
	settings.Chunking.LiveSize = 400

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
	assert.Equal(t, "sk-test", store.GetString("embedding.api_key"))
}

func TestSettingsService_Save_EmptyAPIKeyNotWritten(t *testing.T) {
	service, store := newTestSettingsService(nil)
	settings := domain.DefaultAppSettings()

	require.NoError(t, service.Save(&settings))

	_, exists := store.Get("embedding.api_key")
	assert.False(t, exists)
	_, exists = store.Get("parser.api_key")
	assert.False(t, exists)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		apiKey    string
		env       map[string]string
		wantModel string
		wantURL   string
		wantKey   string
		wantErr   bool
	}{
		{
			name:      "ollama gets local endpoint",
			provider:  domain.AIProviderOllama,
			wantModel: "nomic-embed-text",
			wantURL:   "http://localhost:11434/v1",
		},
		{
			name:      "openai with explicit key",
			provider:  domain.AIProviderOpenAI,
			model:     "text-embedding-3-large",
			apiKey:    "sk-test",
			wantModel: "text-embedding-3-large",
			wantKey:   "sk-test",
		},
		{
			name:      "gemini key from environment",
			provider:  domain.AIProviderGemini,
			env:       map[string]string{"GEMINI_API_KEY": "gm-env"},
			wantModel: "text-embedding-004",
			wantKey:   "gm-env",
		},
		{
			name:     "openai without key",
			provider: domain.AIProviderOpenAI,
			wantErr:  true,
		},
		{
			name:     "unknown provider",
			provider: domain.AIProvider("anthropic"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestSettingsService(tt.env)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
			assert.Equal(t, tt.wantKey, settings.Embedding.APIKey)
		})
	}
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service, store := newTestSettingsService(nil)
	_ = store.Set("llm.base_url", "http://gpu-box:11434/v1")

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "", ""))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", settings.LLM.Model)
	assert.Equal(t, "http://gpu-box:11434/v1", settings.LLM.BaseURL)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOpenAI, "gpt-4o-mini", "sk-test"))

	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)

	assert.Error(t, service.SetLLMProvider(domain.AIProvider("bogus"), "", ""))
}

func TestSettingsService_SetSystemPromptSource(t *testing.T) {
	service, _ := newTestSettingsService(nil)

	require.NoError(t, service.SetSystemPromptSource(domain.SystemPromptTemplate))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.SystemPromptTemplate, settings.Prompt.SystemSource)

	assert.Error(t, service.SetSystemPromptSource("telepathy"))
}

func TestSettingsService_Validate(t *testing.T) {
	service, store := newTestSettingsService(nil)
	_ = store.Set("embedding.provider", "ollama")

	assert.NoError(t, service.ValidateEmbeddingConfig())
	assert.NoError(t, service.ValidateLLMConfig())

	validator := &mockValidator{embedErr: errors.New("connection refused")}
	service.aiValidator = validator

	assert.EqualError(t, service.ValidateEmbeddingConfig(), "connection refused")
	require.NotNil(t, validator.embedded)
	assert.Equal(t, domain.AIProviderOllama, validator.embedded.Provider)
	assert.NoError(t, service.ValidateLLMConfig())
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service, _ := newTestSettingsService(nil)

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}
