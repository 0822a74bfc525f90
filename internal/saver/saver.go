// Package saver drains the pending queue and commits each draft to the
// confirmed store. It is the single consumer of a queue: running two
// savers against the same backend can process the same draft twice.
package saver

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"callbook/internal/metrics"
	"callbook/internal/models"
	"callbook/internal/normalize"
	"callbook/internal/queue"
)

// ConfirmedStore is the system of record for finalized reservations.
// The saver treats it as opaque and only inspects the error outcome.
type ConfirmedStore interface {
	Commit(ctx context.Context, restaurantID string, fields map[string]any) error
}

// Notifier is told about each successfully committed reservation.
type Notifier interface {
	Notify(ctx context.Context, draft models.ReservationDraft)
}

// Config holds the coordinator's polling intervals.
type Config struct {
	// IdleInterval is the sleep between polls of an empty queue.
	IdleInterval time.Duration
	// BetweenJobs is the pause after processing a draft, successful or not.
	BetweenJobs time.Duration
}

// DefaultConfig returns the intervals the service has always run with.
func DefaultConfig() Config {
	return Config{
		IdleInterval: time.Second,
		BetweenJobs:  200 * time.Millisecond,
	}
}

// Coordinator is the background loop popping drafts off the pending
// queue and writing them to the confirmed store.
//
// A draft is removed from the queue before the commit is attempted, so
// a failed commit loses the draft: it is logged but not re-queued or
// persisted anywhere else. This is the as-built at-most-once policy.
// If retries become a requirement, the place to add them is a
// dead-letter queue fed from processJob, not a rollback of the pop.
type Coordinator struct {
	config   Config
	queue    queue.Queue
	store    ConfirmedStore
	notifier Notifier
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a coordinator over queue and store. notifier may be nil.
func New(config Config, q queue.Queue, store ConfirmedStore, notifier Notifier, logger zerolog.Logger) *Coordinator {
	if config.IdleInterval <= 0 {
		config.IdleInterval = DefaultConfig().IdleInterval
	}
	if config.BetweenJobs <= 0 {
		config.BetweenJobs = DefaultConfig().BetweenJobs
	}
	return &Coordinator{
		config:   config,
		queue:    q,
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "saver").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the drain loop. Safe to call once; subsequent calls are
// no-ops while running.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop(ctx)

	c.logger.Info().
		Dur("idle_interval", c.config.IdleInterval).
		Dur("between_jobs", c.config.BetweenJobs).
		Msg("background saver started")
}

// Stop stops the loop and waits for the in-flight job to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info().Msg("background saver stopped")
}

func (c *Coordinator) loop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		rec, err := c.queue.PopOldest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("pop pending reservation")
			if !c.sleep(ctx, c.config.IdleInterval) {
				return
			}
			continue
		}

		if rec == nil {
			if !c.sleep(ctx, c.config.IdleInterval) {
				return
			}
			continue
		}

		c.processJob(ctx, rec)

		if !c.sleep(ctx, c.config.BetweenJobs) {
			return
		}
	}
}

// processJob commits a single popped draft. The draft is gone from the
// queue already; failures are logged and the draft is dropped.
func (c *Coordinator) processJob(ctx context.Context, rec *models.Record) {
	// Defensive re-normalization: tool-call payloads may have been
	// enqueued with raw values ("7pm", "777 77 777").
	draft := normalize.Draft(rec.Fields)

	fields := draft.Fields()
	fields["status"] = models.StatusConfirmed

	if err := c.store.Commit(ctx, draft.RestaurantID, fields); err != nil {
		metrics.IncCommitFailure()
		c.logger.Error().Err(err).
			Str("record_id", rec.ID).
			Str("guest_name", draft.GuestName).
			Msg("confirmed-store write failed, draft dropped")
		return
	}

	metrics.IncCommitted()
	c.logger.Info().
		Str("record_id", rec.ID).
		Str("guest_name", draft.GuestName).
		Str("date", draft.Date).
		Str("time", draft.Time).
		Msg("reservation committed")

	if c.notifier != nil {
		c.notifier.Notify(ctx, draft)
	}
}

// sleep waits d unless stopped; reports whether the loop should go on.
func (c *Coordinator) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-c.stopCh:
		return false
	case <-timer.C:
		return true
	}
}
