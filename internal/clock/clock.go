// Package clock produces the timeline the rain ledger is stamped against.
// It runs in one of two modes: a fallback mode derived from the uptime of
// the current activation, and a synchronized mode anchored to a network
// time fetch. The fallback timeline restarts with every activation, so
// timestamps written in fallback mode during different activations are not
// comparable until a synchronization succeeds; previously stored timestamps
// are never rewritten after the transition.
package clock

import (
	"context"
	"time"

	"github.com/fieldwx/stationd/internal/log"
)

// Mode identifies the active time source.
type Mode int

const (
	ModeFallback Mode = iota
	ModeSynchronized
)

func (m Mode) String() string {
	if m == ModeSynchronized {
		return "synchronized"
	}
	return "fallback"
}

const (
	// DefaultSyncTimeout bounds a single network time fetch.
	DefaultSyncTimeout = 5 * time.Second
	// DefaultResyncInterval is the minimum spacing between synchronization
	// attempts once a sync has succeeded.
	DefaultResyncInterval = time.Hour
)

// TimeFetcher obtains wall-clock time from the network. Implementations
// must honor the context deadline.
type TimeFetcher interface {
	Fetch(ctx context.Context) (time.Time, error)
}

// Clock is the per-activation time source. Not safe for concurrent use;
// an activation has a single thread of control.
type Clock struct {
	fetcher        TimeFetcher
	timeout        time.Duration
	resyncInterval time.Duration
	nowFn          func() time.Time

	mode      Mode
	started   time.Time // activation start, fallback base
	anchor    uint32    // fallback anchor carried in persistent state
	lastSync  uint64    // epoch seconds of the last successful sync, 0 = never
	syncBase  time.Time // wall time obtained by the sync
	syncAt    time.Time // local instant of the sync
	attempted bool      // one sync attempt per activation
}

// Option adjusts a Clock at construction.
type Option func(*Clock)

// WithSyncTimeout overrides the per-fetch timeout.
func WithSyncTimeout(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithResyncInterval overrides the minimum spacing between sync attempts.
func WithResyncInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.resyncInterval = d
		}
	}
}

// WithTimeSource overrides the local time source, for tests.
func WithTimeSource(now func() time.Time) Option {
	return func(c *Clock) {
		c.nowFn = now
		c.started = now()
	}
}

// New creates a clock for the current activation. fallbackAnchor and
// lastSyncEpoch come from persistent state; the clock always starts in
// fallback mode because the synchronized base does not survive suspension.
func New(fetcher TimeFetcher, fallbackAnchor uint32, lastSyncEpoch uint64, opts ...Option) *Clock {
	c := &Clock{
		fetcher:        fetcher,
		timeout:        DefaultSyncTimeout,
		resyncInterval: DefaultResyncInterval,
		nowFn:          time.Now,
		anchor:         fallbackAnchor,
		lastSync:       lastSyncEpoch,
	}
	c.started = c.nowFn()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the current time in seconds. It always succeeds. When a
// synchronization is eligible it is attempted first, bounded by the sync
// timeout; a failed attempt leaves the clock in fallback mode and is not
// retried within the same activation.
func (c *Clock) Now() uint32 {
	c.maybeSync()
	return c.Peek()
}

// Peek returns the current time without making the clock eligible for a
// synchronization attempt. Callers past the point where network work is
// allowed use this instead of Now.
func (c *Clock) Peek() uint32 {
	if c.mode == ModeSynchronized {
		return uint32(c.syncBase.Add(c.nowFn().Sub(c.syncAt)).Unix())
	}
	return c.anchor + uint32(c.nowFn().Sub(c.started)/time.Second)
}

// Mode returns the active time source mode.
func (c *Clock) Mode() Mode {
	return c.mode
}

// LastSyncEpoch returns the epoch seconds of the most recent successful
// synchronization, for carrying back into persistent state.
func (c *Clock) LastSyncEpoch() uint64 {
	return c.lastSync
}

// TrySync attempts one bounded network time fetch. Attempts within the
// resync interval of the last successful sync are short-circuited, as is
// any second attempt within the same activation.
func (c *Clock) TrySync(ctx context.Context) error {
	if c.attempted || c.fetcher == nil {
		return nil
	}
	if c.mode == ModeSynchronized {
		elapsed := uint64(c.syncBase.Add(c.nowFn().Sub(c.syncAt)).Unix()) - c.lastSync
		if elapsed < uint64(c.resyncInterval/time.Second) {
			return nil
		}
	} else if c.lastSync > 0 {
		// After a past sync the persisted anchor tracks epoch closely
		// enough to honor the spacing approximately across activations. A
		// node that has never synchronized has no basis for the estimate
		// and attempts on every activation.
		est := uint64(c.anchor) + uint64(c.nowFn().Sub(c.started)/time.Second)
		if est > c.lastSync && est-c.lastSync < uint64(c.resyncInterval/time.Second) {
			return nil
		}
	}
	c.attempted = true

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fetched, err := c.fetcher.Fetch(ctx)
	if err != nil {
		log.Warnf("wall-clock sync failed, staying on fallback clock: %v", err)
		return err
	}

	c.mode = ModeSynchronized
	c.syncBase = fetched
	c.syncAt = c.nowFn()
	c.lastSync = uint64(fetched.Unix())
	log.Infof("wall-clock synchronized at epoch %d", c.lastSync)
	return nil
}

// maybeSync performs the lazy synchronization on behalf of Now callers.
// In fallback mode the elapsed time since the last sync cannot be measured,
// so eligibility is assumed and the once-per-activation bound applies.
func (c *Clock) maybeSync() {
	if c.attempted || c.mode == ModeSynchronized {
		return
	}
	c.TrySync(context.Background())
}
