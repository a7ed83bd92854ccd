package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/rtcd/internal/cliconfig"
	"github.com/bft-labs/rtcd/internal/demo"
	"github.com/bft-labs/rtcd/pkg/log"
	"github.com/bft-labs/rtcd/pkg/rtcd"
	"github.com/bft-labs/rtcd/plugins/ratewatcher"
)

const helpDescription = `
Run components inside a periodic or externally triggered execution context.

Highlights:
  - Drives each component through INACTIVE, ACTIVE and ERROR, one step per cycle.
  - Components can be added, removed and activated while the context runs.
  - Configure via file (TOML or YAML), RTCD_* environment variables, or flags.
  - Writes status.json for "rtcd status" and optionally serves /metrics.
`

var exampleUsage = strings.TrimSpace(`
  rtcd --rate 100 --component counter --component sine:wave@0.5 --activate
  rtcd --kind exttrig --tick-interval 10ms --component faulty@5 --activate
  rtcd --config $HOME/.rtcd/config.yaml --watch
  rtcd status
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	logger := log.NewZerologAdapter()

	// A missing .env is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env", log.Err(err))
	}

	root := &cobra.Command{
		Use:           "rtcd",
		Short:         "Run components inside an execution context",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.rtcd/config.toml), then apply env and flag overrides
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			} else if cfgPath != "" {
				return fmt.Errorf("config file %s not found", cfgPath)
			}

			// Apply environment variables (RTCD_*)
			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(cmd.Context(), &cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			level, err := log.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger = log.NewConsoleAdapter(os.Stderr, level)
			logger.Info("configuration", log.Any("config", cfg))

			comps, err := demo.Build(cfg.Components, logger)
			if err != nil {
				return err
			}

			opts := []rtcd.Option{
				rtcd.WithLogger(logger),
				rtcd.WithComponents(comps...),
			}
			if cfg.Watch {
				if cfgFile == "" || !cliconfig.FileExists(cfgFile) {
					logger.Warn("rate watcher disabled: no config file")
				} else {
					opts = append(opts, ratewatcher.WithRateWatcher(ratewatcher.Config{Path: cfgFile}))
				}
			}

			d, err := rtcd.New(rtcd.Config{
				Name:            cfg.Name,
				Kind:            cfg.Kind,
				Rate:            cfg.Rate,
				TickInterval:    cfg.TickInterval,
				ActivateOnStart: cfg.Activate,
				StateDir:        cfg.StateDir,
				StatusInterval:  cfg.StatusInterval,
				MetricsAddr:     cfg.MetricsAddr,
			}, opts...)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			// Setup signal handling for graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if cfg.Duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
				defer cancel()
			}

			if err := d.Run(ctx); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			st := d.Status()
			logger.Info("stopped",
				log.String("ec", st.Name),
				log.Uint64("cycles", st.Cycles),
			)
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file, TOML or YAML (default: $HOME/.rtcd/config.toml)")
	root.Flags().StringVar(&cfg.Name, "name", cfg.Name, "execution context name")
	root.Flags().StringVar(&cfg.Kind, "kind", cfg.Kind, "scheduling discipline: periodic or exttrig")
	root.Flags().Float64Var(&cfg.Rate, "rate", cfg.Rate, "cycle rate in Hz (0 runs cycles back to back)")
	root.Flags().StringSliceVar(&cfg.Components, "component", cfg.Components,
		fmt.Sprintf("component spec type[:name][@arg], repeatable (types: %s)", strings.Join(demo.Types(), ", ")))
	root.Flags().BoolVar(&cfg.Activate, "activate", cfg.Activate, "activate all components after start")
	root.Flags().DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "trigger an exttrig context at this interval")
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for status.json (default: $HOME/.rtcd)")
	root.Flags().DurationVar(&cfg.StatusInterval, "status-interval", cfg.StatusInterval, "interval between status snapshots")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "listen address for /metrics (disabled when empty)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	root.Flags().DurationVar(&cfg.Duration, "duration", cfg.Duration, "stop after this long (0 runs until interrupted)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the rate when the config file changes")

	root.AddCommand(newStatusCommand())

	if err := root.Execute(); err != nil {
		logger.Error("rtcd", log.Err(err))
		os.Exit(1)
	}
}
