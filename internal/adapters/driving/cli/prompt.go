package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boovines/Granted/internal/core/domain"
)

var promptCmd = &cobra.Command{
	Use:   "prompt [workspace-id] [chat-id] [message]",
	Short: "Build a prompt for a user message",
	Long: `Assemble the full prompt for a user message.

The prompt contains the workspace's system prompt, the recent conversation,
relevant past topics, excerpts of the documents being edited and matching
source material. Sections are dropped from the end when the result would
exceed --max-length characters.

Assembly never fails: when something goes wrong a minimal prompt is printed
and the problem is reported on stderr.`,
	Args: cobra.ExactArgs(3),
	RunE: runPrompt,
}

var (
	promptMaxLength int
	promptSource    string
	promptJSON      bool
)

func init() {
	promptCmd.Flags().IntVar(&promptMaxLength, "max-length", 0, "Soft character budget (default from settings)")
	promptCmd.Flags().StringVar(&promptSource, "source", "", "System prompt source: rules or template (default from settings)")
	promptCmd.Flags().BoolVar(&promptJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(promptCmd)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	if promptService == nil {
		return errNotConfigured("prompt")
	}

	source := domain.SystemPromptSource(promptSource)
	if source != "" && !source.IsValid() {
		return fmt.Errorf("invalid --source %q: use rules or template", promptSource)
	}

	result := promptService.BuildPrompt(commandContext(cmd), domain.PromptRequest{
		WorkspaceID: args[0],
		ChatID:      args[1],
		Message:     args[2],
		MaxLength:   promptMaxLength,
		Source:      source,
	})

	if promptJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	cmd.Println(result.Prompt)

	for _, w := range result.Warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}
	if result.Degraded {
		cmd.PrintErrln("Note: prompt assembly failed, a minimal prompt was returned.")
	} else if result.Truncated {
		cmd.PrintErrln("Note: sections were dropped to fit the length budget.")
	}
	return nil
}
