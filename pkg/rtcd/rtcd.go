package rtcd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/rtcd/internal/adapters/fs"
	"github.com/bft-labs/rtcd/internal/adapters/metrics"
	"github.com/bft-labs/rtcd/internal/app"
	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/internal/ports"
	"github.com/bft-labs/rtcd/pkg/ec"
	"github.com/bft-labs/rtcd/pkg/rtc"
)

// metricsShutdownTimeout bounds the graceful shutdown of the /metrics server.
const metricsShutdownTimeout = 5 * time.Second

// Daemon hosts one execution context and its supporting services.
// Use New() to create an instance, then Start() to begin executing.
type Daemon struct {
	config    Config
	lifecycle *app.Lifecycle
	ec        ec.ExecutionContext
	trigger   rtc.Triggerable
	reporter  *app.Reporter
	registry  *prometheus.Registry
	logger    ports.Logger

	// Plugin support
	plugins []Plugin

	mu          sync.Mutex
	cancel      context.CancelFunc
	server      *http.Server
	metricsAddr string
}

// New creates a new Daemon with the given configuration.
// The instance is created in StateStopped; call Start() to begin executing.
// Components given with WithComponents are attached immediately.
func New(cfg Config, opts ...Option) (*Daemon, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := ports.Named(o.logger, "rtcd")

	registry := o.registry
	if registry == nil && cfg.MetricsAddr != "" {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	observer := o.observer
	if registry != nil {
		observer = metrics.NewObserver(registry)
	}

	ecOpts := []ec.Option{
		ec.WithName(cfg.Name),
		ec.WithRate(cfg.Rate),
		ec.WithLogger(o.logger),
		ec.WithObserver(observer),
	}

	d := &Daemon{
		config:    cfg,
		lifecycle: app.NewLifecycle(logger, o.eventHandler),
		registry:  registry,
		logger:    logger,
		plugins:   o.plugins,
	}

	switch cfg.Kind {
	case KindExtTrig:
		x, err := ec.NewExtTrig(ecOpts...)
		if err != nil {
			return nil, err
		}
		d.ec, d.trigger = x, x
	default:
		p, err := ec.NewPeriodic(ecOpts...)
		if err != nil {
			return nil, err
		}
		d.ec = p
	}

	if o.owner != nil {
		if err := d.ec.BindComponent(o.owner); err != nil {
			return nil, fmt.Errorf("bind owner %s: %w", rtc.NameOf(o.owner), err)
		}
	}
	for _, c := range o.components {
		if err := d.ec.AddComponent(c); err != nil {
			return nil, fmt.Errorf("add component %s: %w", rtc.NameOf(c), err)
		}
	}

	if cfg.StateDir != "" {
		repo := fs.NewStatusFileRepository(cfg.StateDir)
		d.reporter = app.NewReporter(app.ReporterConfig{Interval: cfg.StatusInterval}, repo, o.logger, d.ec)
	}

	return d, nil
}

// Start starts the execution context and the supporting services.
// Returns an error if already running or if startup fails.
// The provided context bounds the lifetime of plugins and services.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := d.lifecycle.TransitionTo(app.RunStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.lifecycle.SetCancel(cancel)

	// Initialize plugins
	pluginCfg := PluginConfig{
		Name:     d.config.Name,
		Kind:     d.config.Kind,
		StateDir: d.config.StateDir,
		Context:  d.ec,
		Logger:   d.logger,
	}
	for i, p := range d.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			d.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			d.abort(runCtx, i, "plugin init failed: "+p.Name())
			return err
		}
		d.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if d.config.MetricsAddr != "" {
		if err := d.serveMetrics(); err != nil {
			d.abort(runCtx, len(d.plugins), "metrics listen failed")
			return err
		}
	}

	if err := d.ec.Start(); err != nil {
		d.shutdownMetrics()
		d.abort(runCtx, len(d.plugins), "execution context start failed")
		return err
	}

	if d.config.ActivateOnStart {
		for _, c := range d.ec.Participants() {
			if err := d.ec.ActivateComponent(c); err != nil {
				d.logger.Warn("activate failed",
					ports.String("component", rtc.NameOf(c)),
					ports.Err(err))
			}
		}
	}

	if d.reporter != nil {
		d.lifecycle.Go(func() {
			_ = d.reporter.Run(runCtx)
		})
	}

	if d.trigger != nil && d.config.TickInterval > 0 {
		d.lifecycle.Go(func() {
			d.tickLoop(runCtx, d.config.TickInterval)
		})
	}

	return d.lifecycle.TransitionTo(app.RunRunning, "execution context started")
}

// abort undoes a partial Start: it shuts down the first n plugins and
// marks the daemon crashed.
func (d *Daemon) abort(ctx context.Context, n int, reason string) {
	d.cancel()
	for i := n - 1; i >= 0; i-- {
		_ = d.plugins[i].Shutdown(context.WithoutCancel(ctx))
	}
	_ = d.lifecycle.TransitionTo(app.RunCrashed, reason)
}

// Stop stops the execution context, then the supporting services.
// The status reporter writes a final snapshot before Stop returns.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := d.lifecycle.TransitionTo(app.RunStopping, "Stop() called"); err != nil {
		return err
	}

	// The context may have been stopped directly through Context().
	if err := d.ec.Stop(); err != nil && !errors.Is(err, rtc.ErrPreconditionNotMet) {
		d.logger.Error("execution context stop failed", ports.Err(err))
	}

	if d.cancel != nil {
		d.cancel()
	}
	d.shutdownMetrics()

	err := d.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	// Shutdown plugins (in reverse order)
	shutdownCtx := context.Background()
	for i := len(d.plugins) - 1; i >= 0; i-- {
		p := d.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			d.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			d.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	if err != nil {
		_ = d.lifecycle.TransitionTo(app.RunCrashed, "shutdown timeout")
	} else {
		_ = d.lifecycle.TransitionTo(app.RunStopped, "graceful shutdown")
	}
	return err
}

// Run starts the daemon, waits for ctx to end and stops it.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return d.Stop()
}

// Close stops the daemon if it is running and releases the execution
// context.
func (d *Daemon) Close() error {
	var err error
	if d.lifecycle.CanStop() {
		err = d.Stop()
	}
	return errors.Join(err, d.ec.Close())
}

// State returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (d *Daemon) State() State {
	return d.lifecycle.State()
}

// Context returns the hosted execution context.
func (d *Daemon) Context() ec.ExecutionContext {
	return d.ec
}

// Tick releases one cycle of a triggered context.
func (d *Daemon) Tick() error {
	if d.trigger == nil {
		return fmt.Errorf("tick on %s context: %w", d.config.Kind, rtc.ErrUnsupported)
	}
	d.trigger.Tick()
	return nil
}

// Status returns a snapshot of the execution context.
func (d *Daemon) Status() Status {
	return d.ec.Status()
}

// FlushStatus writes a status snapshot now. It is a no-op when no state
// directory is configured.
func (d *Daemon) FlushStatus(ctx context.Context) error {
	if d.reporter == nil {
		return nil
	}
	return d.reporter.Flush(ctx)
}

// Gatherer returns the metrics registry, or nil when metrics are disabled.
func (d *Daemon) Gatherer() prometheus.Gatherer {
	if d.registry == nil {
		return nil
	}
	return d.registry
}

// MetricsAddr returns the address the /metrics endpoint listens on, or ""
// when it is not serving.
func (d *Daemon) MetricsAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metricsAddr
}

func (d *Daemon) tickLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.trigger.Tick()
		}
	}
}

// serveMetrics starts the /metrics endpoint. Called with d.mu held.
func (d *Daemon) serveMetrics() error {
	ln, err := net.Listen("tcp", d.config.MetricsAddr)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", d.config.MetricsAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{Registry: d.registry}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	d.server = srv
	d.metricsAddr = ln.Addr().String()

	d.lifecycle.Go(func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("metrics server failed", ports.Err(err))
		}
	})
	d.logger.Info("metrics endpoint listening", ports.String("addr", d.metricsAddr))
	return nil
}

// shutdownMetrics stops the /metrics endpoint. Called with d.mu held.
func (d *Daemon) shutdownMetrics() {
	if d.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		d.logger.Warn("metrics server shutdown", ports.Err(err))
	}
	d.server = nil
	d.metricsAddr = ""
}
