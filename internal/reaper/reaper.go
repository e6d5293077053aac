// Package reaper retires codes whose expiry has passed. Lookup already treats
// a past expires_at as expired, so the sweep only frees indices for reuse and
// keeps the active index small; nothing depends on it running on time.
package reaper

import (
	"context"
	"log"
	"time"

	"github.com/jiglearn/playcode/internal/audit"
	"github.com/jiglearn/playcode/internal/code"
)

type Reaper struct {
	store   code.Store
	events  *audit.Log
	cadence time.Duration
	now     func() time.Time
}

func New(store code.Store, events *audit.Log, cadence time.Duration) *Reaper {
	return &Reaper{store: store, events: events, cadence: cadence, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (r *Reaper) WithClock(now func() time.Time) *Reaper {
	r.now = now
	return r
}

// Run sweeps on a fixed cadence until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	t := time.NewTicker(r.cadence)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := r.Sweep(ctx); err != nil {
				log.Printf("reaper: sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one pass. Safe to call concurrently with itself; a double reap
// is a no-op.
func (r *Reaper) Sweep(ctx context.Context) error {
	n, err := r.store.ExpireDue(ctx, r.now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("reaper: expired %d code(s)", n)
		_ = r.events.Append(ctx, audit.Event{
			Type: audit.CodesReaped,
			Key:  r.now().UTC().Format(time.RFC3339),
			Data: map[string]int64{"expired": n},
		})
	}
	return nil
}
