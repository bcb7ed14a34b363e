// Package cli is the granted command-line interface.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/boovines/Granted/internal/core/ports/driving"
	"github.com/boovines/Granted/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services holds the driving ports the commands call into.
type Services struct {
	Prompt   driving.PromptService
	Context  driving.ContextService
	Live     driving.LiveDocService
	Chat     driving.ChatService
	Rules    driving.RulesService
	Ingest   driving.IngestService
	Settings driving.SettingsService
}

// Options are the persistent flag values handed to the initialiser.
type Options struct {
	// ConfigDir overrides the ~/.granted config directory.
	ConfigDir string

	// Verbose enables debug logging.
	Verbose bool
}

// Initializer builds the services for a command run. The returned cleanup
// runs after the command finishes and may be nil.
type Initializer func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	promptService   driving.PromptService
	contextService  driving.ContextService
	liveService     driving.LiveDocService
	chatService     driving.ChatService
	rulesService    driving.RulesService
	ingestService   driving.IngestService
	settingsService driving.SettingsService

	initializer Initializer
	cleanup     func()

	configDir string
	verbose   bool
)

// annotationNoServices marks commands that run without initialised services.
const annotationNoServices = "granted/no-services"

var rootCmd = &cobra.Command{
	Use:   "granted",
	Short: "Assemble grounded prompts from rules, chat memory and documents",
	Long: `Granted builds model-ready prompts for a writing assistant.

Each prompt combines workspace rules, the recent and summarised chat,
the documents being edited and the uploaded source material, ranked
by relevance to the user's message and kept within a length budget.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print retrieval and assembly details to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "Config directory (default ~/.granted)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetInitializer registers the function that builds services before each command.
func SetInitializer(fn Initializer) {
	initializer = fn
}

// SetServices installs the services used by the commands.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	promptService = s.Prompt
	contextService = s.Context
	liveService = s.Live
	chatService = s.Chat
	rulesService = s.Rules
	ingestService = s.Ingest
	settingsService = s.Settings
}

// Execute runs the root command until it completes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer teardownServices(rootCmd, nil) //nolint:errcheck // always nil
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if initializer == nil || cmd.Annotations[annotationNoServices] == "true" {
		return nil
	}

	services, done, err := initializer(cmd.Context(), Options{ConfigDir: configDir, Verbose: verbose})
	if err != nil {
		return err
	}
	SetServices(services)
	cleanup = done
	return nil
}

func teardownServices(_ *cobra.Command, _ []string) error {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
	return nil
}

// commandContext returns the command's context, or a background context
// when the command was invoked without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// errNotConfigured reports a service that was never installed.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
