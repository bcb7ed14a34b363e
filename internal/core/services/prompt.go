package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driving"
	"github.com/boovines/Granted/internal/logger"
)

// Ensure PromptService implements the interface.
var _ driving.PromptService = (*PromptService)(nil)

// Prompt layout.
const (
	headerRecent  = "\n=== RECENT CONVERSATION ==="
	headerTopics  = "\n=== RELEVANT PAST TOPICS ==="
	headerLive    = "\n=== CURRENT DOCUMENT CONTEXT ==="
	headerSources = "\n=== RELEVANT SOURCE MATERIAL ==="
	headerQuery   = "\n=== USER QUERY ==="

	// TruncationMarker is appended to a context block that was cut to fit.
	TruncationMarker = "\n... [Context truncated due to length]"
)

// PromptConfig holds prompt assembly limits.
type PromptConfig struct {
	// MaxLength is the default soft character budget.
	MaxLength int

	// Timeout bounds a whole build. Zero means no limit beyond the caller's.
	Timeout time.Duration

	// SystemSource is the configured system prompt source.
	SystemSource domain.SystemPromptSource

	// Per-section item limits.
	RecentTurns int
	MemoryK     int
	LiveK       int
	SourceK     int
}

// DefaultPromptConfig returns the default assembly limits.
func DefaultPromptConfig() PromptConfig {
	return PromptConfigFromSettings(domain.DefaultAppSettings())
}

// PromptConfigFromSettings derives assembly limits from application settings.
func PromptConfigFromSettings(settings domain.AppSettings) PromptConfig {
	return PromptConfig{
		MaxLength:    settings.Prompt.MaxLength,
		Timeout:      time.Duration(settings.Prompt.TimeoutSeconds) * time.Second,
		SystemSource: settings.Prompt.SystemSource,
		RecentTurns:  settings.Retrieval.RecentTurns,
		MemoryK:      settings.Retrieval.MemoryK,
		LiveK:        settings.Retrieval.LiveK,
		SourceK:      settings.Retrieval.SourceK,
	}
}

// PromptService assembles prompts from rules, chat memory, live documents
// and source material.
type PromptService struct {
	embedder *Embedder
	rules    driving.RulesService
	chat     driving.ChatService
	live     driving.ContextStore
	sources  driving.ContextStore
	cfg      PromptConfig
}

// NewPromptService creates a new prompt service.
func NewPromptService(
	embedder *Embedder,
	rules driving.RulesService,
	chat driving.ChatService,
	live driving.ContextStore,
	sources driving.ContextStore,
	cfg PromptConfig,
) *PromptService {
	defaults := DefaultPromptConfig()
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = defaults.MaxLength
	}
	if cfg.SystemSource == "" {
		cfg.SystemSource = defaults.SystemSource
	}
	return &PromptService{
		embedder: embedder,
		rules:    rules,
		chat:     chat,
		live:     live,
		sources:  sources,
		cfg:      cfg,
	}
}

// MinimalPrompt is the prompt returned when assembly fails.
func MinimalPrompt(message string) string {
	return DefaultSystemPrompt + "\n\nUser query: " + message
}

// EstimateTokens roughly estimates the token count of text.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// BuildPrompt assembles a prompt for req. It never fails: any error,
// panic or deadline yields the minimal prompt with Degraded set.
func (s *PromptService) BuildPrompt(ctx context.Context, req domain.PromptRequest) domain.PromptResult {
	logger.Section("Prompt Assembly")

	if strings.TrimSpace(req.Message) == "" {
		return degraded(req.Message, domain.ErrEmptyInput)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	result, err := s.safeBuild(ctx, req)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		logger.Warn("Prompt assembly degraded: %v", err)
		return degraded(req.Message, err)
	}
	return result
}

func degraded(message string, err error) domain.PromptResult {
	return domain.PromptResult{
		Prompt:   MinimalPrompt(message),
		Degraded: true,
		Warnings: []string{err.Error()},
	}
}

func (s *PromptService) safeBuild(ctx context.Context, req domain.PromptRequest) (result domain.PromptResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prompt assembly panicked: %v", r)
		}
	}()
	return s.build(ctx, req)
}

// sections holds the retrieved context, one field per prompt section.
type sections struct {
	recent []domain.ChatMessage
	memory domain.Retrieval
	live   domain.Retrieval
	source domain.Retrieval
}

func (s *PromptService) build(ctx context.Context, req domain.PromptRequest) (domain.PromptResult, error) {
	query := domain.Query{Text: req.Message}
	if s.embedder.Available() {
		vec, err := s.embedder.Embed(ctx, req.Message)
		if err != nil {
			return domain.PromptResult{}, fmt.Errorf("embed query: %w", err)
		}
		query.Vector = vec
	}

	source := req.Source
	if source == "" {
		source = s.cfg.SystemSource
	}
	system, err := s.rules.SystemPrompt(ctx, req.WorkspaceID, source)
	if err != nil {
		return domain.PromptResult{}, fmt.Errorf("system prompt: %w", err)
	}

	secs, err := s.retrieve(ctx, req, query)
	if err != nil {
		return domain.PromptResult{}, err
	}

	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = s.cfg.MaxLength
	}

	block, reports := render(secs)
	queryPart := "\n" + headerQuery + "\n" + req.Message
	result := domain.PromptResult{Sections: reports}

	if utf8.RuneCountInString(system+block+queryPart) > maxLength {
		budget := maxLength - utf8.RuneCountInString(system) - utf8.RuneCountInString(queryPart)
		block = truncate(block, budget) + TruncationMarker
		result.Truncated = true
		logger.Debug("Context truncated to %d characters", max(budget, 0))
	}

	result.Prompt = system + block + queryPart
	logger.Debug("Prompt: %d characters, ~%d tokens", utf8.RuneCountInString(result.Prompt), EstimateTokens(result.Prompt))
	return result, nil
}

// retrieve runs the four section retrievals concurrently. The first
// failure cancels the others.
func (s *PromptService) retrieve(ctx context.Context, req domain.PromptRequest, q domain.Query) (sections, error) {
	var secs sections
	g, gctx := errgroup.WithContext(ctx)

	if req.ChatID != "" {
		chatKey := domain.ChatKey(req.ChatID)
		goSafe(g, "recent conversation", func() error {
			var err error
			secs.recent, err = s.chat.GetRecent(gctx, req.ChatID, s.cfg.RecentTurns)
			return err
		})
		goSafe(g, "past topics", func() error {
			var err error
			secs.memory, err = s.chat.Retrieve(gctx, chatKey, q, s.cfg.MemoryK)
			return err
		})
	}

	if req.WorkspaceID != "" {
		goSafe(g, "document context", func() error {
			var err error
			secs.live, err = s.live.Retrieve(gctx, domain.LiveDocKey(req.WorkspaceID, ""), q, s.cfg.LiveK)
			return err
		})
		goSafe(g, "source material", func() error {
			var err error
			secs.source, err = s.sources.Retrieve(gctx, domain.DocumentKey(req.WorkspaceID, ""), q, s.cfg.SourceK)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return sections{}, err
	}
	return secs, nil
}

// goSafe runs fn on g, turning a panic into an error.
func goSafe(g *errgroup.Group, name string, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: panic: %v", name, r)
			}
		}()
		if err := fn(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
}

// render lays out the non-empty sections in fixed order. Every line is
// preceded by a newline, so the block can be appended to the system prompt.
func render(secs sections) (string, []domain.SectionReport) {
	var b strings.Builder
	var reports []domain.SectionReport

	line := func(s string) {
		b.WriteString("\n")
		b.WriteString(s)
	}

	if len(secs.recent) > 0 {
		line(headerRecent)
		for _, msg := range secs.recent {
			line(msg.Role.Label() + ": " + msg.Content)
		}
		reports = append(reports, domain.SectionReport{
			Section: domain.SectionRecentConversation, Mode: domain.RankRecency, Items: len(secs.recent),
		})
	}

	if len(secs.memory.Chunks) > 0 {
		line(headerTopics)
		for _, text := range secs.memory.Texts() {
			line("- " + text)
		}
		reports = append(reports, domain.SectionReport{
			Section: domain.SectionPastTopics, Mode: secs.memory.Mode, Items: len(secs.memory.Chunks),
		})
	}

	if len(secs.live.Chunks) > 0 {
		line(headerLive)
		for i, text := range secs.live.Texts() {
			line("[Document Chunk " + strconv.Itoa(i+1) + "]\n" + text)
		}
		reports = append(reports, domain.SectionReport{
			Section: domain.SectionDocumentContext, Mode: secs.live.Mode, Items: len(secs.live.Chunks),
		})
	}

	if len(secs.source.Chunks) > 0 {
		line(headerSources)
		for i, text := range secs.source.Texts() {
			line("[Source " + strconv.Itoa(i+1) + "]\n" + text)
		}
		reports = append(reports, domain.SectionReport{
			Section: domain.SectionSourceMaterial, Mode: secs.source.Mode, Items: len(secs.source.Chunks),
		})
	}

	return b.String(), reports
}

// truncate cuts text to at most budget characters, preferring to end on a
// line or word break found in the last tenth of the budget.
func truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}

	cut := budget
	floor := budget - budget/10
	for i := budget; i > floor && i > 0; i-- {
		if unicode.IsSpace(runes[i-1]) {
			cut = i - 1
			break
		}
	}
	return string(runes[:cut])
}
