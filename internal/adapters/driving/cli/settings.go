package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/boovines/Granted/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure storage, AI providers, prompt limits and other options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used for vector ranking.
Without one, retrieval falls back to keyword ranking.`,
	RunE: runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used to summarise chats.`,
	RunE:  runSettingsLLM,
}

var settingsSourceCmd = &cobra.Command{
	Use:   "source [rules|template]",
	Short: "Set the system prompt source",
	Long: `Choose where system prompts come from.

  rules     - built from each workspace's rules
  template  - the fixed template in ~/.granted/prompts/system_template.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSource,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsSourceCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage.Backend)
	switch settings.Storage.Backend {
	case domain.StorageSQLite:
		path := settings.Storage.Path
		if path == "" {
			path = "~/.granted/data"
		}
		cmd.Printf("  Path: %s\n", path)
	case domain.StoragePostgres:
		if settings.Storage.DSN != "" {
			cmd.Println("  DSN: (set)")
		} else {
			cmd.Println("  DSN: (not set)")
		}
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Parser]")
	cmd.Printf("  Base URL: %s\n", settings.Parser.BaseURL)
	if settings.Parser.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Parser.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	cmd.Println()

	cmd.Println("[Prompt]")
	cmd.Printf("  Max length: %d\n", settings.Prompt.MaxLength)
	cmd.Printf("  System source: %s\n", settings.Prompt.SystemSource)
	cmd.Printf("  Timeout: %ds\n", settings.Prompt.TimeoutSeconds)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Recent turns: %d\n", settings.Retrieval.RecentTurns)
	cmd.Printf("  Memory k: %d\n", settings.Retrieval.MemoryK)
	cmd.Printf("  Live k: %d (threshold %.2f)\n", settings.Retrieval.LiveK, settings.Retrieval.LiveThreshold)
	cmd.Printf("  Source k: %d (threshold %.2f)\n", settings.Retrieval.SourceK, settings.Retrieval.SourceThreshold)
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Documents: %d chars, %d overlap\n", settings.Chunking.DocumentSize, settings.Chunking.DocumentOverlap)
	cmd.Printf("  Live: %d chars, %d overlap\n", settings.Chunking.LiveSize, settings.Chunking.LiveOverlap)
	cmd.Printf("  Min element length: %d\n", settings.Chunking.MinElementLength)
	cmd.Println()

	cmd.Println("[Chat]")
	cmd.Printf("  Summary threshold: %d\n", settings.Chat.SummaryThreshold)
	cmd.Printf("  Summary window: %d\n", settings.Chat.SummaryWindow)
	cmd.Printf("  Keep recent: %d\n", settings.Chat.KeepRecent)
	cmd.Println()

	if !settings.Embedding.IsConfigured() {
		cmd.Println("Note: no embedding provider, retrieval uses keyword ranking.")
		cmd.Println("Run 'granted settings embedding' to configure one.")
	}
	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	if provider == "" {
		cmd.Println("  Provider: (none)")
		return
	}
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	cmd.Println("Granted Settings Wizard")
	cmd.Println("=======================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	cmd.Print("Configure an embedding provider for vector ranking? [Y/n]: ")
	if !strings.EqualFold(readLine(reader), "n") {
		if err := configureEmbeddingProvider(cmd, reader); err != nil {
			return err
		}
	} else {
		cmd.Println("Skipped. Retrieval will use keyword ranking.")
		cmd.Println()
	}

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	cmd.Print("Configure an LLM provider for chat summaries? [Y/n]: ")
	if !strings.EqualFold(readLine(reader), "n") {
		if err := configureLLMProvider(cmd, reader); err != nil {
			return err
		}
	} else {
		cmd.Println("Skipped. Chats will not be summarised.")
		cmd.Println()
	}

	cmd.Println("Step 3: System Prompt Source")
	cmd.Println("----------------------------")
	sources := []domain.SystemPromptSource{domain.SystemPromptRules, domain.SystemPromptTemplate}
	for i, s := range sources {
		cmd.Printf("  %d. %s\n", i+1, s)
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(sources), 1)
	if err := settingsService.SetSystemPromptSource(sources[idx-1]); err != nil {
		return fmt.Errorf("failed to set system prompt source: %w", err)
	}
	cmd.Printf("System prompt source set to: %s\n\n", sources[idx-1])

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	cmd.Println("All settings are saved.")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsSource(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	source := domain.SystemPromptSource(args[0])
	if !source.IsValid() {
		return fmt.Errorf("invalid source %q: use rules or template", args[0])
	}
	if err := settingsService.SetSystemPromptSource(source); err != nil {
		return fmt.Errorf("failed to set system prompt source: %w", err)
	}

	cmd.Printf("System prompt source set to: %s\n", source)
	return nil
}

// selectProvider asks for a provider, model and (when needed) API key.
func selectProvider(
	cmd *cobra.Command, reader *bufio.Reader, defaults map[domain.AIProvider]string,
) (provider domain.AIProvider, model, apiKey string) {
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model = readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (blank to use the environment): ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}
	return selected, model, apiKey
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	provider, model, apiKey := selectProvider(cmd, reader, domain.DefaultEmbeddingModels())

	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	provider, model, apiKey := selectProvider(cmd, reader, domain.DefaultLLMModels())

	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal, otherwise a plain line.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
