package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boovines/Granted/internal/adapters/driven/storage/memory"
	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/services"
	"github.com/boovines/Granted/internal/postprocessors"
)

// stubValidator accepts or rejects every provider configuration.
type stubValidator struct {
	err error
}

func (v *stubValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error { return v.err }
func (v *stubValidator) ValidateLLM(_ *domain.LLMSettings) error             { return v.err }

// testServices exposes the stores behind the installed services so tests
// can assert on what commands wrote.
type testServices struct {
	docs      *memory.DocumentStore
	live      *memory.LiveDocStore
	chat      *memory.ChatStore
	config    *memory.ConfigStore
	validator *stubValidator
}

// setupTestServices installs real services over in-memory stores, without
// an embedding provider, LLM or document parser.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		docs:      memory.NewDocumentStore(),
		live:      memory.NewLiveDocStore(),
		chat:      memory.NewChatStore(),
		config:    memory.NewConfigStore(),
		validator: &stubValidator{},
	}

	cfg := domain.DefaultAppSettings()
	embedder := services.NewEmbedder(nil, 0)
	rules := services.NewRulesService(memory.NewRulesStore(), nil)
	summarizer := services.NewSummarizer(ts.chat, nil, embedder, nil, cfg.Chat.SummaryWindow)
	chat := services.NewChatMemoryService(ts.chat, embedder, summarizer, cfg.Chat)
	live := services.NewLiveDocService(ts.live, embedder, postprocessors.NewLivePipeline(cfg.Chunking), 0)
	sources := services.NewSourceDocService(ts.docs, cfg.Retrieval.SourceThreshold)

	SetServices(&Services{
		Prompt:   services.NewPromptService(embedder, rules, chat, live, sources, services.DefaultPromptConfig()),
		Context:  services.NewContextService(embedder, live, sources, chat),
		Live:     live,
		Chat:     chat,
		Rules:    rules,
		Ingest:   services.NewIngestService(ts.docs, nil, embedder, postprocessors.NewDocumentPipeline(cfg.Chunking), sources),
		Settings: services.NewSettingsService(ts.config, ts.validator),
	})
	t.Cleanup(func() { SetServices(nil) })

	return ts
}

// resetFlags restores every flag of cmd and its children to its default,
// since cobra keeps parsed values between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and stdin, returning everything
// written to stdout and stderr.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	if stdin == nil {
		stdin = strings.NewReader("")
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func failingInitializer(called *bool) Initializer {
	return func(_ context.Context, _ Options) (*Services, func(), error) {
		*called = true
		return nil, nil, errors.New("init failed")
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"prompt", "context", "live", "chat", "rules", "document", "settings", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestSetupServices_UsesInitializer(t *testing.T) {
	var (
		gotOpts   Options
		cleanedUp bool
	)
	SetInitializer(func(_ context.Context, opts Options) (*Services, func(), error) {
		gotOpts = opts
		rules := services.NewRulesService(memory.NewRulesStore(), nil)
		return &Services{Rules: rules}, func() { cleanedUp = true }, nil
	})
	defer SetInitializer(nil)
	defer SetServices(nil)

	out, err := execute(t, nil, "--config", "/tmp/granted-test", "rules", "default")

	require.NoError(t, err)
	assert.Contains(t, out, "personality:")
	assert.Equal(t, "/tmp/granted-test", gotOpts.ConfigDir)
	assert.True(t, cleanedUp)
}

func TestSetupServices_InitializerError(t *testing.T) {
	called := false
	SetInitializer(failingInitializer(&called))
	defer SetInitializer(nil)

	_, err := execute(t, nil, "rules", "default")

	require.Error(t, err)
	assert.True(t, called)
	assert.Contains(t, err.Error(), "init failed")
}

func TestCommands_ServiceNotConfigured(t *testing.T) {
	SetServices(nil)

	tests := [][]string{
		{"prompt", "ws", "chat", "hello"},
		{"context", "chat", "c1", "hello"},
		{"live", "list", "ws"},
		{"chat", "recent", "c1"},
		{"rules", "get", "ws"},
		{"document", "list", "ws"},
		{"settings", "show"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args[:2], " "), func(t *testing.T) {
			_, err := execute(t, nil, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "not configured")
		})
	}
}
