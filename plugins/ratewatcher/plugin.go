// Package ratewatcher re-applies the configured rate when the rtcd config
// file changes.
package ratewatcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/rtcd/internal/cliconfig"
	"github.com/bft-labs/rtcd/pkg/log"
	"github.com/bft-labs/rtcd/pkg/rtc"
	"github.com/bft-labs/rtcd/pkg/rtcd"
)

// ErrNoPath is returned by Initialize when no config file is configured.
var ErrNoPath = errors.New("ratewatcher: no config path")

// RateSetter is the part of an execution context the plugin drives.
type RateSetter interface {
	Rate() float64
	SetRate(rate float64) error
}

// Plugin watches one config file and calls SetRate when its rate changes.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	target   RateSetter
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the rate watcher plugin.
type Config struct {
	// Path of the TOML or YAML config file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config watching the default config path.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new rate watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "ratewatcher"
}

// Initialize starts watching the config file of cfg.Context.
func (p *Plugin) Initialize(ctx context.Context, cfg rtcd.PluginConfig) error {
	if cfg.Context == nil {
		return errors.New("ratewatcher: no execution context")
	}
	return p.Watch(ctx, cfg.Context, cfg.Logger)
}

// Watch starts watching for target. It is what Initialize does, usable
// without a daemon.
func (p *Plugin) Watch(ctx context.Context, target RateSetter, logger log.Logger) error {
	if p.path == "" {
		return ErrNoPath
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace files instead of writing them.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	p.mu.Lock()
	p.target = target
	p.logger = log.Named(logger, p.Name())
	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("rate watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

// watchLoop watches for config file changes.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload reads the file and applies its rate if it differs from the
// current one.
func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Warn("reload config failed", log.Err(err))
		return
	}
	if fc.Rate == nil {
		return
	}

	p.mu.Lock()
	target := p.target
	p.mu.Unlock()

	rate := *fc.Rate
	if rate == target.Rate() {
		return
	}
	if err := target.SetRate(rate); err != nil {
		p.logger.Warn("rate rejected",
			log.Float64("rate", rate),
			log.String("code", rtc.CodeOf(err).String()),
			log.Err(err))
		return
	}
	p.logger.Info("rate reloaded", log.Float64("rate", rate))
}

// Ensure Plugin implements rtcd.Plugin.
var _ rtcd.Plugin = (*Plugin)(nil)
