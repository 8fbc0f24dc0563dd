package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// debounce coalesces the burst of events editors emit for a single save.
const debounce = 200 * time.Millisecond

// Watcher reloads the config store and prompt store when their files change.
type Watcher struct {
	watcher  *fsnotify.Watcher
	config   *ConfigStore
	prompts  *PromptStore
	onChange func()
	log      logger.Scope
}

// NewWatcher watches the directories holding config and prompts.
// Either store may be nil. onChange runs after a config reload.
func NewWatcher(config *ConfigStore, prompts *PromptStore, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		config:   config,
		prompts:  prompts,
		onChange: onChange,
		log:      logger.For("config"),
	}

	if config != nil {
		if err := fw.Add(filepath.Dir(config.Path())); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch config dir: %w", err)
		}
	}
	if prompts != nil {
		if err := prompts.EnsureDir(); err != nil {
			fw.Close()
			return nil, err
		}
		if err := fw.Add(prompts.Dir()); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch prompt dir: %w", err)
		}
	}

	return w, nil
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer        *time.Timer
		timerC       <-chan time.Time
		configDirty  bool
		promptsDirty bool
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			switch {
			case w.isConfig(event.Name):
				configDirty = true
			case w.isPrompt(event.Name):
				promptsDirty = true
			default:
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if promptsDirty {
				w.prompts.Reload()
				w.log.Debug("prompts reloaded")
				promptsDirty = false
			}
			if configDirty {
				configDirty = false
				if err := w.config.Load(); err != nil {
					w.log.Warn("reload %s: %v", w.config.Path(), err)
					continue
				}
				w.log.Debug("settings reloaded")
				if w.onChange != nil {
					w.onChange()
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error: %v", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) isConfig(name string) bool {
	return w.config != nil && filepath.Clean(name) == filepath.Clean(w.config.Path())
}

func (w *Watcher) isPrompt(name string) bool {
	return w.prompts != nil &&
		filepath.Dir(filepath.Clean(name)) == filepath.Clean(w.prompts.Dir()) &&
		strings.HasSuffix(name, ".txt")
}
