package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/boovines/Granted/internal/core/domain"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage workspace rules",
	Long: `View and edit the rules that shape a workspace's system prompt:
personality, tone, style, domain expertise and constraints.`,
}

var rulesGetCmd = &cobra.Command{
	Use:   "get [workspace-id]",
	Short: "Show a workspace's rules",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesGet,
}

var rulesSetCmd = &cobra.Command{
	Use:   "set [workspace-id]",
	Short: "Update a workspace's rules",
	Long: `Replace a workspace's rules with the contents of a YAML file, or change
individual fields with flags. Fields not given keep their current value.

Example file:
  personality: encouraging mentor
  tone: formal
  domain: renewable energy grants`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesSet,
}

var rulesDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print suggested starter rules as YAML",
	Args:  cobra.NoArgs,
	RunE:  runRulesDefault,
}

var (
	rulesYAML   bool
	rulesFile   string
	rulesFields = map[string]*string{
		"personality": new(string),
		"tone":        new(string),
		"style":       new(string),
		"domain":      new(string),
		"constraints": new(string),
	}
)

func init() {
	rulesGetCmd.Flags().BoolVar(&rulesYAML, "yaml", false, "Print the rules as YAML")
	rulesSetCmd.Flags().StringVarP(&rulesFile, "file", "f", "", "YAML file with the new rules")
	for name, value := range rulesFields {
		rulesSetCmd.Flags().StringVar(value, name, "", "Set the "+name+" rule")
	}

	rulesCmd.AddCommand(rulesGetCmd)
	rulesCmd.AddCommand(rulesSetCmd)
	rulesCmd.AddCommand(rulesDefaultCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesGet(cmd *cobra.Command, args []string) error {
	if rulesService == nil {
		return errNotConfigured("rules")
	}

	rules, err := rulesService.GetRules(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get rules: %w", err)
	}

	if rulesYAML {
		return printRulesYAML(cmd, rules)
	}

	if rules.IsEmpty() {
		cmd.Printf("No rules set for workspace: %s\n\n", args[0])
	} else {
		cmd.Printf("Rules for workspace %s:\n\n", args[0])
		printRuleField(cmd, "Personality", rules.Personality)
		printRuleField(cmd, "Tone", rules.Tone)
		printRuleField(cmd, "Style", rules.Style)
		printRuleField(cmd, "Domain", rules.Domain)
		printRuleField(cmd, "Constraints", rules.Constraints)
		cmd.Println()
	}

	cmd.Println("System prompt:")
	cmd.Println(rulesService.BuildSystemPrompt(rules))
	return nil
}

func printRuleField(cmd *cobra.Command, label, value string) {
	if value != "" {
		cmd.Printf("  %-12s %s\n", label+":", value)
	}
}

func runRulesSet(cmd *cobra.Command, args []string) error {
	if rulesService == nil {
		return errNotConfigured("rules")
	}

	ctx := commandContext(cmd)
	workspaceID := args[0]

	var rules domain.Rules
	if rulesFile != "" {
		loaded, err := loadRulesFile(rulesFile)
		if err != nil {
			return err
		}
		rules = loaded
	} else {
		current, err := rulesService.GetRules(ctx, workspaceID)
		if err != nil {
			return fmt.Errorf("failed to get rules: %w", err)
		}
		rules = current
	}

	changed := rulesFile != ""
	for name, value := range rulesFields {
		if !cmd.Flags().Changed(name) {
			continue
		}
		changed = true
		switch name {
		case "personality":
			rules.Personality = *value
		case "tone":
			rules.Tone = *value
		case "style":
			rules.Style = *value
		case "domain":
			rules.Domain = *value
		case "constraints":
			rules.Constraints = *value
		}
	}
	if !changed {
		return errors.New("nothing to update: pass --file or at least one field flag")
	}

	if err := rulesService.UpdateRules(ctx, workspaceID, rules); err != nil {
		return fmt.Errorf("failed to update rules: %w", err)
	}

	cmd.Printf("Rules updated for workspace %s\n", workspaceID)
	return nil
}

func runRulesDefault(cmd *cobra.Command, _ []string) error {
	if rulesService == nil {
		return errNotConfigured("rules")
	}
	return printRulesYAML(cmd, rulesService.DefaultRules())
}

// loadRulesFile reads rules from a YAML file. Unknown keys are rejected.
func loadRulesFile(path string) (domain.Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Rules{}, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	var rules domain.Rules
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil {
		return domain.Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return rules, nil
}

func printRulesYAML(cmd *cobra.Command, rules domain.Rules) error {
	out, err := yaml.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	cmd.Print(string(out))
	return nil
}
