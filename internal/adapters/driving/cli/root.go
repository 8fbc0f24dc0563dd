// Package cli provides the cobra command tree for sercha-kb.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var (
	verbose bool
	asUser  string
)

// Ports used by commands. Populated by the Wiring before a command runs,
// or directly by tests.
var (
	settingsService driving.SettingsService
	searchService   driving.SearchService
	itemService     driving.ItemService
	accessService   driving.AccessService
	userStore       driven.UserStore
	fixtureTarget   *FixtureTarget
	watchConfig     func(ctx context.Context, onReload func(*domain.AppSettings)) error
	identityID      string
)

// Runtime is the fully wired application for commands that search or load data.
type Runtime struct {
	Search   driving.SearchService
	Items    driving.ItemService
	Access   driving.AccessService
	Users    driven.UserStore
	Fixtures *FixtureTarget

	// Watch blocks, calling onReload whenever the config file changes. Optional.
	Watch func(ctx context.Context, onReload func(*domain.AppSettings)) error

	// Warnings are degraded-capability notices from service start-up.
	Warnings []string

	Close func() error
}

// Wiring builds services on demand so cheap commands never open stores
// or contact AI providers.
type Wiring struct {
	Settings func() (driving.SettingsService, error)
	Runtime  func(ctx context.Context, settings *domain.AppSettings) (*Runtime, error)
}

var (
	wiring  Wiring
	runtime *Runtime
)

var rootCmd = &cobra.Command{
	Use:   "sercha-kb",
	Short: "Permission-aware hybrid search over a knowledge base",
	Long: `sercha-kb answers natural-language queries with the items the requesting
user may read. It combines full-text search, optional vector search and
LLM query expansion, fuses the rankings and enforces access control at
every stage.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logger.SetOutput(cmd.ErrOrStderr())
		logger.SetVerbose(verbose)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		closeRuntime()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringVar(&asUser, "as", "", "act as this user id instead of identity.user_id")
}

// Execute runs the command tree.
func Execute(ctx context.Context, w Wiring) error {
	wiring = w
	defer closeRuntime()
	return rootCmd.ExecuteContext(ctx)
}

// ensureSettings loads the settings service if wiring provides one.
func ensureSettings() error {
	if settingsService != nil || wiring.Settings == nil {
		return nil
	}
	svc, err := wiring.Settings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settingsService = svc
	return nil
}

// ensureRuntime builds the runtime once per process.
func ensureRuntime(cmd *cobra.Command) error {
	if runtime != nil || wiring.Runtime == nil {
		return nil
	}
	if err := ensureSettings(); err != nil {
		return err
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	rt, err := wiring.Runtime(cmd.Context(), settings)
	if err != nil {
		return err
	}
	runtime = rt
	for _, w := range rt.Warnings {
		cmd.PrintErrf("warning: %s\n", w)
	}

	searchService = rt.Search
	itemService = rt.Items
	accessService = rt.Access
	userStore = rt.Users
	fixtureTarget = rt.Fixtures
	watchConfig = rt.Watch
	identityID = settings.Identity.UserID
	return nil
}

func closeRuntime() {
	if runtime == nil {
		return
	}
	if runtime.Close != nil {
		if err := runtime.Close(); err != nil {
			logger.Error("closing runtime: %v", err)
		}
	}
	runtime = nil
}

// currentSubject resolves --as, then identity.user_id. With neither set the
// request runs without identity and sees public content only.
func currentSubject(ctx context.Context) (domain.Subject, error) {
	id := asUser
	if id == "" {
		id = identityID
	}
	if id == "" {
		logger.Warn("no identity configured, results are limited to public items")
		return nil, nil
	}
	if userStore == nil {
		return nil, errors.New("user store not configured")
	}
	user, err := userStore.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user %q", domain.ErrIdentityRequired, id)
	}
	if err != nil {
		return nil, fmt.Errorf("look up user %q: %w", id, err)
	}
	return user, nil
}
