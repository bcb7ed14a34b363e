package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boovines/Granted/internal/core/domain"
)

var contextCmd = &cobra.Command{
	Use:   "context [store] [key] [query]",
	Short: "Retrieve context from a store",
	Long: `Retrieve the chunks of one store that best match a query.

Stores and key formats:
  live    workspace/filename    - live document cache
  source  workspace[/doc-id]    - uploaded source documents
  chat    chat-id               - summarised chat memory

Results are vector-ranked when an embedding provider is configured,
otherwise keyword-ranked. Use --keyword to skip embedding.`,
	Args: cobra.ExactArgs(3),
	RunE: runContext,
}

var (
	contextK       int
	contextKeyword bool
)

func init() {
	contextCmd.Flags().IntVarP(&contextK, "k", "k", 5, "Number of chunks to return")
	contextCmd.Flags().BoolVar(&contextKeyword, "keyword", false, "Rank by keyword overlap without embedding the query")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	if contextService == nil {
		return errNotConfigured("context")
	}

	kind := domain.StoreKind(args[0])
	if !kind.IsValid() {
		return fmt.Errorf("unknown store %q: use live, source or chat", args[0])
	}
	key, err := parseNamespaceKey(kind, args[1])
	if err != nil {
		return err
	}

	result, err := contextService.GetContext(commandContext(cmd), kind, key, args[2], contextK, contextKeyword)
	if err != nil {
		return fmt.Errorf("failed to get context: %w", err)
	}

	printRetrieval(cmd, result)
	return nil
}

// parseNamespaceKey turns the command-line form of a key into a NamespaceKey.
func parseNamespaceKey(kind domain.StoreKind, raw string) (domain.NamespaceKey, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.NamespaceKey{}, fmt.Errorf("%w: empty key", domain.ErrInvalidInput)
	}

	switch kind {
	case domain.StoreLiveDocs:
		ws, file, ok := strings.Cut(raw, "/")
		if !ok || ws == "" || file == "" {
			return domain.NamespaceKey{}, fmt.Errorf("%w: live key must be workspace/filename", domain.ErrInvalidInput)
		}
		return domain.LiveDocKey(ws, file), nil
	case domain.StoreSourceDocs:
		ws, doc, _ := strings.Cut(raw, "/")
		if ws == "" {
			return domain.NamespaceKey{}, fmt.Errorf("%w: source key must be workspace[/doc-id]", domain.ErrInvalidInput)
		}
		return domain.DocumentKey(ws, doc), nil
	case domain.StoreChatMemory:
		return domain.ChatKey(raw), nil
	default:
		return domain.NamespaceKey{}, fmt.Errorf("%w: unknown store %q", domain.ErrInvalidInput, kind)
	}
}

func printRetrieval(cmd *cobra.Command, result domain.Retrieval) {
	cmd.Printf("Ranking: %s\n\n", result.Mode.Description())

	if len(result.Chunks) == 0 {
		cmd.Println("No matching chunks.")
		return
	}

	for i := range result.Chunks {
		sc := result.Chunks[i]
		label := sc.Chunk.Filename
		if sc.Chunk.DocumentID != "" {
			label = sc.Chunk.DocumentID
		}
		if label != "" {
			cmd.Printf("%d. [%.3f] %s #%d\n", i+1, sc.Score, label, sc.Chunk.Index)
		} else {
			cmd.Printf("%d. [%.3f]\n", i+1, sc.Score)
		}
		cmd.Printf("   %s\n\n", sc.Chunk.Text)
	}

	cmd.Printf("Total: %d chunks\n", len(result.Chunks))
}
