package ratewatcher

import "github.com/bft-labs/rtcd/pkg/rtcd"

// WithRateWatcher returns an rtcd Option that reloads the rate from the
// config file whenever it changes.
//
// Usage:
//
//	d, err := rtcd.New(cfg,
//	    ratewatcher.WithRateWatcher(ratewatcher.Config{
//	        Path:          "/etc/rtcd/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithRateWatcher(cfg Config) rtcd.Option {
	return rtcd.WithPlugin(New(cfg))
}

// WithDefaultRateWatcher watches the default config path.
func WithDefaultRateWatcher() rtcd.Option {
	return WithRateWatcher(DefaultConfig())
}
