// Command sercha-kb is a permission-aware hybrid search engine over a local
// knowledge base.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-kb/internal/core/services"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		config   *file.ConfigStore
		settings *services.SettingsService
	)

	loadSettings := func() (driving.SettingsService, error) {
		if settings != nil {
			return settings, nil
		}
		cfg, err := file.NewConfigStore("")
		if err != nil {
			return nil, err
		}
		config = cfg
		settings = services.NewSettingsService(cfg, ai.NewConfigValidator())
		return settings, nil
	}

	buildRuntime := func(ctx context.Context, app *domain.AppSettings) (*cli.Runtime, error) {
		if _, err := loadSettings(); err != nil {
			return nil, err
		}
		return newRuntime(ctx, app, config, settings)
	}

	return cli.Execute(ctx, cli.Wiring{
		Settings: loadSettings,
		Runtime:  buildRuntime,
	})
}

// newRuntime opens storage, starts the optional AI services and assembles
// the search pipeline.
func newRuntime(ctx context.Context, app *domain.AppSettings, config *file.ConfigStore, settings *services.SettingsService) (*cli.Runtime, error) {
	dataDir, err := resolveDataDir(app.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		store.Close()
		return nil, err
	}

	aiResult := ai.Initialise(ctx, app, dataDir, prompts)

	lexical, err := services.NewLexicalSearchEngine(store.LexicalIndex(), 0)
	if err != nil {
		aiResult.Close()
		store.Close()
		return nil, err
	}

	access := services.NewAccessControlEngine(store.MembershipStore())

	var expander *services.QueryExpander
	if aiResult.LLMService != nil {
		expander = services.NewQueryExpander(aiResult.LLMService, nil)
		expander.SetPromptStore(prompts)
	}

	search := services.NewSearchService(
		store.ChunkStore(),
		lexical,
		access,
		expander,
		services.NewRankFusionEngine(services.WithRRFK(app.Search.RRFK)),
		app.Search,
	)
	if aiResult.VectorIndex != nil && aiResult.EmbeddingService != nil {
		search.SetVectorSearch(aiResult.VectorIndex, aiResult.EmbeddingService)
	}
	if aiResult.Reranker != nil {
		search.SetReranker(aiResult.Reranker)
	}

	logger.Debug("runtime ready: store=%s mode=%s", store.Path(), app.Search.Mode)

	return &cli.Runtime{
		Search: search,
		Items:  services.NewItemService(store.ChunkStore(), access),
		Access: access,
		Users:  store.UserStore(),
		Fixtures: &cli.FixtureTarget{
			Chunks:      store.ChunkStore(),
			Memberships: store.MembershipStore(),
			Users:       store.UserStore(),
			Vectors:     aiResult.VectorIndex,
			Embedding:   aiResult.EmbeddingService,
		},
		Watch: func(ctx context.Context, onReload func(*domain.AppSettings)) error {
			w, err := file.NewWatcher(config, prompts, func() {
				updated, err := settings.Get()
				if err != nil {
					logger.Warn("reload settings: %v", err)
					return
				}
				search.UpdateSettings(updated.Search)
				if onReload != nil {
					onReload(updated)
				}
			})
			if err != nil {
				return err
			}
			defer w.Close()
			w.Run(ctx)
			return nil
		},
		Warnings: aiResult.Warnings,
		Close: func() error {
			lexical.Close()
			aiResult.Close()
			return store.Close()
		},
	}, nil
}

func resolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return filepath.Join(home, file.DirName, "data"), nil
}
