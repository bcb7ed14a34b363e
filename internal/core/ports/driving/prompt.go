package driving

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// PromptService assembles model-ready prompts.
type PromptService interface {
	// BuildPrompt combines rules, chat memory, live documents and source
	// material into one bounded prompt. It never fails: on any error it
	// returns a minimal prompt with Degraded set and the cause in Warnings.
	BuildPrompt(ctx context.Context, req domain.PromptRequest) domain.PromptResult
}
