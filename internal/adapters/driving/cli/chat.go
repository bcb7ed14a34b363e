package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boovines/Granted/internal/core/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage chat memory",
	Long:  `Append messages, inspect history and maintain the rolling summary of a chat.`,
}

var chatAppendCmd = &cobra.Command{
	Use:   "append [chat-id] [role] [content]",
	Short: "Append a message (role is user or assistant)",
	Args:  cobra.ExactArgs(3),
	RunE:  runChatAppend,
}

var chatRecentCmd = &cobra.Command{
	Use:   "recent [chat-id]",
	Short: "Show the most recent messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatRecent,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history [chat-id]",
	Short: "Show the chat history",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatHistory,
}

var chatSummarizeCmd = &cobra.Command{
	Use:   "summarize [chat-id]",
	Short: "Summarize the recent messages",
	Long: `Replace the chat's summary with an LLM summary of its recent messages.
Requires an LLM provider.`,
	Args: cobra.ExactArgs(1),
	RunE: runChatSummarize,
}

var chatPruneCmd = &cobra.Command{
	Use:   "prune [chat-id]",
	Short: "Delete all but the most recent messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatPrune,
}

var chatStateCmd = &cobra.Command{
	Use:   "state [chat-id]",
	Short: "Show the summarizer state",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatState,
}

var chatBackfillCmd = &cobra.Command{
	Use:   "backfill [chat-id]",
	Short: "Retry embedding of messages that failed to embed",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatBackfill,
}

var (
	chatRecentN      int
	chatHistoryLimit int
	chatKeep         int
	chatThreshold    int
)

func init() {
	chatRecentCmd.Flags().IntVarP(&chatRecentN, "n", "n", 5, "Number of messages")
	chatHistoryCmd.Flags().IntVar(&chatHistoryLimit, "limit", 50, "Maximum number of messages")
	chatPruneCmd.Flags().IntVar(&chatKeep, "keep", 0, "Messages to keep (default from settings)")
	chatStateCmd.Flags().IntVar(&chatThreshold, "threshold", 0, "Summary threshold (default from settings)")

	chatCmd.AddCommand(chatAppendCmd)
	chatCmd.AddCommand(chatRecentCmd)
	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatSummarizeCmd)
	chatCmd.AddCommand(chatPruneCmd)
	chatCmd.AddCommand(chatStateCmd)
	chatCmd.AddCommand(chatBackfillCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatAppend(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNotConfigured("chat")
	}

	role, err := domain.ParseChatRole(args[1])
	if err != nil {
		return err
	}

	msg, err := chatService.AppendMessage(commandContext(cmd), args[0], role, args[2])
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	cmd.Printf("Appended message %s (#%d)\n", msg.ID, msg.Seq)
	if !msg.Embedded {
		cmd.Println("Note: the message was stored without an embedding. Run 'granted chat backfill' later.")
	}
	return nil
}

func runChatRecent(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNotConfigured("chat")
	}

	msgs, err := chatService.GetRecent(commandContext(cmd), args[0], chatRecentN)
	if err != nil {
		return fmt.Errorf("failed to get recent messages: %w", err)
	}
	printMessages(cmd, args[0], msgs)
	return nil
}

func runChatHistory(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNotConfigured("chat")
	}

	msgs, err := chatService.History(commandContext(cmd), args[0], chatHistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}
	printMessages(cmd, args[0], msgs)
	return nil
}

func printMessages(cmd *cobra.Command, chatID string, msgs []domain.ChatMessage) {
	if len(msgs) == 0 {
		cmd.Printf("No messages in chat: %s\n", chatID)
		return
	}

	for i := range msgs {
		cmd.Printf("[%s] %s: %s\n", msgs[i].CreatedAt.Format("2006-01-02 15:04:05"), msgs[i].Role.Label(), msgs[i].Content)
	}
	cmd.Printf("\nTotal: %d messages\n", len(msgs))
}

func runChatSummarize(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNotConfigured("chat")
	}

	summary, err := chatService.Summarize(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to summarize chat: %w", err)
	}

	cmd.Printf("Summary of %s (through #%d):\n\n", summary.ChatID, summary.LastSeq)
	cmd.Println(summary.Text)
	return nil
}

func runChatPrune(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNotConfigured("chat")
	}

	n, err := chatService.Prune(commandContext(cmd), args[0], chatKeep)
	if err != nil {
		return fmt.Errorf("failed to prune chat: %w", err)
	}

	cmd.Printf("Pruned %d messages from %s\n", n, args[0])
	return nil
}

func runChatState(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNotConfigured("chat")
	}

	state, err := chatService.State(commandContext(cmd), args[0], chatThreshold)
	if err != nil {
		return fmt.Errorf("failed to get chat state: %w", err)
	}

	cmd.Printf("Chat %s: %s\n", args[0], state)
	return nil
}

func runChatBackfill(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errNotConfigured("chat")
	}

	n, err := chatService.BackfillEmbeddings(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to backfill embeddings: %w", err)
	}

	cmd.Printf("Embedded %d messages\n", n)
	return nil
}
