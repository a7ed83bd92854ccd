// Package rtcd provides an embeddable host for one execution context.
//
// A Daemon builds a periodic or externally triggered execution context,
// attaches the given components, and runs the supporting services around
// it: a status reporter writing status.json, an optional Prometheus
// endpoint and any registered plugins.
//
// # Basic Usage
//
//	cfg := rtcd.Config{
//	    Name: "arm",
//	    Kind: rtcd.KindPeriodic,
//	    Rate: 100,
//	}
//
//	d, err := rtcd.New(cfg, rtcd.WithComponents(camera, planner))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := d.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer d.Stop()
//
//	_ = d.Context().ActivateComponent(camera)
//
// # Triggered contexts
//
// With [KindExtTrig] cycles are released by [Daemon.Tick]. Setting
// Config.TickInterval makes the daemon tick itself at that interval.
//
// # Plugins
//
// Plugins are initialized in registration order after the context has been
// built and shut down in reverse order:
//
//	import "github.com/bft-labs/rtcd/plugins/ratewatcher"
//
//	d, err := rtcd.New(cfg,
//	    ratewatcher.WithRateWatcher(ratewatcher.Config{Path: "/etc/rtcd/config.toml"}),
//	)
//
// # Lifecycle States
//
// A Daemon can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. Use [Daemon.State]
// to query the current state.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package rtcd
