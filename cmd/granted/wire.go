package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/boovines/Granted/internal/adapters/driven/ai"
	"github.com/boovines/Granted/internal/adapters/driven/config/file"
	"github.com/boovines/Granted/internal/adapters/driven/parser/aryn"
	"github.com/boovines/Granted/internal/adapters/driven/parser/local"
	"github.com/boovines/Granted/internal/adapters/driven/storage/memory"
	"github.com/boovines/Granted/internal/adapters/driven/storage/postgres"
	"github.com/boovines/Granted/internal/adapters/driven/storage/sqlite"
	"github.com/boovines/Granted/internal/adapters/driving/cli"
	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/core/services"
	"github.com/boovines/Granted/internal/logger"
	"github.com/boovines/Granted/internal/postprocessors"
)

// connectTimeout bounds connecting to remote storage.
const connectTimeout = 10 * time.Second

// stores bundles the persistent stores of one backend.
type stores struct {
	docs  driven.DocumentStore
	live  driven.LiveDocStore
	chat  driven.ChatStore
	rules driven.RulesStore
	close func() error
}

// openStorage opens the configured storage backend. An empty configDir
// keeps the SQLite database under ~/.granted/data.
func openStorage(ctx context.Context, cfg domain.StorageSettings, configDir string) (*stores, error) {
	switch cfg.Backend {
	case domain.StorageMemory:
		return &stores{
			docs:  memory.NewDocumentStore(),
			live:  memory.NewLiveDocStore(),
			chat:  memory.NewChatStore(),
			rules: memory.NewRulesStore(),
			close: func() error { return nil },
		}, nil

	case domain.StoragePostgres:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		store, err := postgres.NewStore(connectCtx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &stores{
			docs:  store.DocumentStore(),
			live:  store.LiveDocStore(),
			chat:  store.ChatStore(),
			rules: store.RulesStore(),
			close: store.Close,
		}, nil

	case domain.StorageSQLite, "":
		dataDir := cfg.Path
		if dataDir == "" && configDir != "" {
			dataDir = filepath.Join(configDir, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, err
		}
		logger.Debug("Using SQLite database at %s", store.Path())
		return &stores{
			docs:  store.DocumentStore(),
			live:  store.LiveDocStore(),
			chat:  store.ChatStore(),
			rules: store.RulesStore(),
			close: store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}

// newParser returns the parsing service client, or the local text parser
// when no API key is configured.
func newParser(cfg domain.ParserSettings) (driven.DocumentParser, error) {
	if !cfg.IsConfigured() {
		logger.Debug("No parser API key, using the local parser")
		return local.NewParser(), nil
	}
	parser, err := aryn.NewParser(aryn.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	if err != nil {
		return nil, err
	}
	return parser, nil
}

// bootstrap loads settings and wires every service for one command run.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, func(), error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("reading settings: %w", err)
	}

	st, err := openStorage(ctx, settings.Storage, opts.ConfigDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s storage: %w", settings.Storage.Backend, err)
	}

	providers := ai.Initialise(settings)
	for _, w := range providers.Warnings {
		logger.Warn("%s", w)
	}

	parser, err := newParser(settings.Parser)
	if err != nil {
		providers.Close()
		st.close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("creating parser: %w", err)
	}

	promptDir := ""
	if opts.ConfigDir != "" {
		promptDir = filepath.Join(opts.ConfigDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		providers.Close()
		st.close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("creating prompt store: %w", err)
	}

	embedder := services.NewEmbedder(providers.EmbeddingService, settings.Chunking.EmbedBatchSize)

	rules := services.NewRulesService(st.rules, prompts)
	summarizer := services.NewSummarizer(st.chat, providers.LLMService, embedder, prompts, settings.Chat.SummaryWindow)
	chat := services.NewChatMemoryService(st.chat, embedder, summarizer, settings.Chat)
	live := services.NewLiveDocService(st.live, embedder,
		postprocessors.NewLivePipeline(settings.Chunking), settings.Retrieval.LiveThreshold)
	sources := services.NewSourceDocService(st.docs, settings.Retrieval.SourceThreshold)
	ingest := services.NewIngestService(st.docs, parser, embedder,
		postprocessors.NewDocumentPipeline(settings.Chunking), sources)
	prompt := services.NewPromptService(embedder, rules, chat, live, sources,
		services.PromptConfigFromSettings(*settings))

	cleanup := func() {
		providers.Close()
		if err := st.close(); err != nil {
			logger.Error("closing storage: %v", err)
		}
	}

	logger.Debug("Wired services in %s mode", rankingMode(providers))
	return &cli.Services{
		Prompt:   prompt,
		Context:  services.NewContextService(embedder, live, sources, chat),
		Live:     live,
		Chat:     chat,
		Rules:    rules,
		Ingest:   ingest,
		Settings: settingsService,
	}, cleanup, nil
}

func rankingMode(providers *ai.InitResult) string {
	if providers.FellBack {
		return "keyword"
	}
	return "vector"
}
