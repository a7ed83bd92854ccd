package app

import (
	"context"
	"time"

	"github.com/bft-labs/rtcd/internal/domain"
	"github.com/bft-labs/rtcd/internal/ports"
)

// StatusSource produces status snapshots of one execution context.
type StatusSource interface {
	Status() domain.ContextStatus
}

// ReporterConfig contains configuration for the status reporter loop.
type ReporterConfig struct {
	Interval time.Duration

	// RetryInitial and RetryMax bound the backoff between failed saves.
	RetryInitial time.Duration
	RetryMax     time.Duration
}

// Reporter periodically persists status snapshots of execution contexts.
type Reporter struct {
	config  ReporterConfig
	sources []StatusSource
	repo    ports.StatusRepository
	logger  ports.Logger
}

// NewReporter creates a reporter for the given sources.
func NewReporter(config ReporterConfig, repo ports.StatusRepository, logger ports.Logger, sources ...StatusSource) *Reporter {
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if config.RetryInitial <= 0 {
		config.RetryInitial = DefaultBackoffInitial
	}
	if config.RetryMax < config.RetryInitial {
		config.RetryMax = max(DefaultBackoffMax, config.RetryInitial)
	}
	return &Reporter{
		config:  config,
		sources: sources,
		repo:    repo,
		logger:  ports.Named(logger, "status"),
	}
}

// Snapshot collects the current status of every source.
func (r *Reporter) Snapshot() []domain.ContextStatus {
	out := make([]domain.ContextStatus, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s.Status())
	}
	return out
}

// Flush saves one snapshot immediately.
func (r *Reporter) Flush(ctx context.Context) error {
	return r.repo.Save(ctx, r.Snapshot())
}

// Run saves a snapshot every interval until ctx is canceled, then saves a
// final snapshot. A failed save is retried with backoff before the next
// interval starts.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	backoff := newBackoff(r.config.RetryInitial, r.config.RetryMax)

	for {
		select {
		case <-ctx.Done():
			// Final snapshot with a fresh context; ctx is already done.
			if err := r.Flush(context.Background()); err != nil {
				r.logger.Error("failed to save final status", ports.Err(err))
			}
			return ctx.Err()
		case <-ticker.C:
		}

		r.save(ctx, backoff)
	}
}

// save flushes a snapshot, retrying with backoff until it succeeds or ctx
// ends. Each retry saves a fresh snapshot.
func (r *Reporter) save(ctx context.Context, b *backoff) {
	defer b.Reset()
	for {
		err := r.Flush(ctx)
		if err == nil {
			return
		}
		r.logger.Warn("failed to save status",
			ports.Err(err),
			ports.Duration("retry_in", b.Current()),
		)
		if !b.Wait(ctx) {
			return
		}
	}
}
