package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// settingsInput is where interactive commands read answers from.
var settingsInput io.Reader = os.Stdin

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage search settings",
	Long: `View and configure the search mode, AI providers and identity.

Use subcommands to change a single setting or run the interactive wizard.`,
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
	RunE:  runSettingsWizard,
}

var settingsModeCmd = &cobra.Command{
	Use:   "mode [mode]",
	Short: "Set search mode",
	Long: `Set which retrieval paths a search runs.

Available modes:
  text_only    - Full-text search only (no setup required)
  hybrid       - Full-text + vector search (requires embedding provider)
  llm_assisted - Full-text + HyDE expansion and reranking (requires LLM provider)
  full         - All paths (requires both providers)

Without an argument the mode is chosen interactively.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsMode,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for HyDE query expansion and reranking.`,
	RunE:  runSettingsLLM,
}

var settingsIdentityCmd = &cobra.Command{
	Use:   "identity <user-id>",
	Short: "Set the user searches run as",
	Long: `Set the user id CLI and MCP searches act as. Pass an empty string to
clear it; searches without identity only see public items.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsIdentity,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsModeCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsIdentityCmd)
	rootCmd.AddCommand(settingsCmd)
}

func requireSettings() error {
	if err := ensureSettings(); err != nil {
		return err
	}
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	s := settings.Search
	cmd.Println("[Search]")
	cmd.Printf("  Mode: %s\n", s.Mode.Description())
	cmd.Printf("  Default limit: %d\n", s.Limit)
	cmd.Printf("  RRF k: %d\n", s.RRFK)
	cmd.Printf("  Candidate multiplier: %d\n", s.CandidateMultiplier)
	cmd.Printf("  Rerank multiplier: %d\n", s.RerankMultiplier)
	cmd.Printf("  Timeouts: lexical %s, vector %s, hyde %s, rerank %s\n",
		s.LexicalTimeout, s.VectorTimeout, s.HydeTimeout, s.RerankTimeout)
	if s.HydeModel != "" {
		cmd.Printf("  HyDE model: %s\n", s.HydeModel)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	if settings.LLM.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %g req/s\n", settings.LLM.RequestsPerSecond)
	}
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Data dir: %s\n", orNone(settings.Storage.DataDir))
	if settings.VectorIndex.Path != "" {
		cmd.Printf("  Vector index: %s\n", settings.VectorIndex.Path)
	}
	cmd.Println()

	cmd.Println("[Identity]")
	cmd.Printf("  User: %s\n", orNone(settings.Identity.UserID))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-kb settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	if provider == "" {
		cmd.Println("  Provider: (not set)")
		return
	}
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Println("  API Key: (not set)")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	cmd.Println("sercha-kb Settings Wizard")
	cmd.Println("=========================")
	cmd.Println()

	reader := bufio.NewReader(settingsInput)

	cmd.Println("Step 1: Select Search Mode")
	cmd.Println("--------------------------")
	mode := chooseMode(cmd, reader, 1)
	if err := settingsService.SetSearchMode(mode); err != nil {
		return fmt.Errorf("failed to set search mode: %w", err)
	}
	cmd.Printf("Set search mode to: %s\n\n", mode.Description())

	cmd.Println("Step 2: Embedding Provider")
	cmd.Println("--------------------------")
	if settingsService.RequiresEmbedding() {
		if err := configureProvider(cmd, reader, embeddingTarget); err != nil {
			return err
		}
	} else {
		cmd.Println("Not required for this search mode.")
		cmd.Println()
	}

	cmd.Println("Step 3: LLM Provider")
	cmd.Println("--------------------")
	if settingsService.RequiresLLM() {
		if err := configureProvider(cmd, reader, llmTarget); err != nil {
			return err
		}
	} else {
		cmd.Println("Not required for this search mode.")
		cmd.Println()
	}

	cmd.Println("Step 4: Identity")
	cmd.Println("----------------")
	cmd.Print("User id searches run as (blank to skip): ")
	if id := readLine(reader); id != "" {
		if err := saveIdentity(id); err != nil {
			return err
		}
		cmd.Printf("Identity set to: %s\n", id)
	}
	cmd.Println()

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}
	return nil
}

func runSettingsMode(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	var mode domain.SearchMode
	if len(args) == 1 {
		mode = domain.SearchMode(args[0])
		if !mode.IsValid() {
			return fmt.Errorf("unknown search mode %q", args[0])
		}
	} else {
		mode = chooseMode(cmd, bufio.NewReader(settingsInput), 0)
		if mode == "" {
			return errors.New("invalid selection")
		}
	}

	if err := settingsService.SetSearchMode(mode); err != nil {
		return fmt.Errorf("failed to set search mode: %w", err)
	}
	cmd.Printf("Search mode set to: %s\n", mode.Description())

	settings, err := settingsService.Get()
	if err != nil {
		return nil //nolint:nilerr // mode is saved, hints are best effort
	}
	if mode.RequiresEmbedding() && !settings.Embedding.IsConfigured() {
		cmd.Println("\nNote: This mode requires an embedding provider.")
		cmd.Println("Run 'sercha-kb settings embedding' to configure.")
	}
	if mode.RequiresLLM() && !settings.LLM.IsConfigured() {
		cmd.Println("\nNote: This mode requires an LLM provider.")
		cmd.Println("Run 'sercha-kb settings llm' to configure.")
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(settingsInput), embeddingTarget)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	return configureProvider(cmd, bufio.NewReader(settingsInput), llmTarget)
}

func runSettingsIdentity(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	id := strings.TrimSpace(args[0])
	if err := saveIdentity(id); err != nil {
		return err
	}
	if id == "" {
		cmd.Println("Identity cleared. Searches will only return public items.")
		return nil
	}
	cmd.Printf("Identity set to: %s\n", id)
	return nil
}

func saveIdentity(id string) error {
	if err := settingsService.SetIdentity(id); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

// chooseMode lists the modes and returns the selection, or "" when the
// input is invalid and defaultChoice is 0.
func chooseMode(cmd *cobra.Command, reader *bufio.Reader, defaultChoice int) domain.SearchMode {
	modes := domain.AllSearchModes()
	for i, mode := range modes {
		cmd.Printf("  %d. %s\n", i+1, mode.Description())
	}
	if defaultChoice > 0 {
		cmd.Printf("\nEnter choice [%d]: ", defaultChoice)
	} else {
		cmd.Print("\nEnter choice: ")
	}
	idx := parseChoice(readLine(reader), len(modes), defaultChoice)
	if idx == 0 {
		return ""
	}
	return modes[idx-1]
}

// providerTarget describes one configurable provider slot.
type providerTarget struct {
	label    string
	defaults func() map[domain.AIProvider]string
	set      func(domain.AIProvider, string, string) error
	validate func(context.Context) error
}

var (
	embeddingTarget = providerTarget{
		label:    "embedding",
		defaults: domain.DefaultEmbeddingModels,
		set:      func(p domain.AIProvider, m, k string) error { return settingsService.SetEmbeddingProvider(p, m, k) },
		validate: func(ctx context.Context) error { return settingsService.ValidateEmbeddingConfig(ctx) },
	}
	llmTarget = providerTarget{
		label:    "LLM",
		defaults: domain.DefaultLLMModels,
		set:      func(p domain.AIProvider, m, k string) error { return settingsService.SetLLMProvider(p, m, k) },
		validate: func(ctx context.Context) error { return settingsService.ValidateLLMConfig(ctx) },
	}
)

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, target providerTarget) error {
	cmd.Printf("Select %s provider\n", target.label)
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := target.defaults()[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := target.set(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", target.label, err)
	}

	cmd.Print("Validating configuration... ")
	if err := target.validate(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", target.label, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n\n", strings.ToUpper(target.label[:1])+target.label[1:], provider.Description(), model)
	return nil
}

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

// readPassword reads without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) string {
	if f, ok := settingsInput.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
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
