// Package state holds the small retained region that survives the
// power-off/reactivation transition. Everything else - stack, heap, the
// uptime counter - is discarded at every suspension; a cold start (first
// power-up or full power loss) resets this region to defaults as well.
package state

import (
	"github.com/fieldwx/stationd/internal/rainfall"
	"github.com/fieldwx/stationd/internal/wake"
)

// State is the persistent per-node state. It is created once on cold boot
// and mutated in place on every activation; any mutation must leave it
// consistent if power is cut immediately afterward.
type State struct {
	// TipCount is the monotonic tip counter. Never decremented; reset only
	// on cold boot. The reported cumulative rainfall derives from it.
	TipCount uint32 `msgpack:"tips"`
	// TotalMm is a cumulative rainfall accumulator maintained alongside
	// TipCount. Reporting does not read it; it is carried for parity with
	// the counter.
	TotalMm            float64           `msgpack:"total_mm"`
	FirstRun           bool              `msgpack:"first_run"`
	NeedsConfiguration bool              `msgpack:"needs_config"`
	FallbackAnchor     uint32            `msgpack:"fallback_anchor"`
	LastSyncEpoch      uint64            `msgpack:"last_sync"`
	WakeCause          wake.Reason       `msgpack:"wake_cause"`
	Records            []rainfall.Record `msgpack:"records"`
}

// New returns cold-boot defaults.
func New() *State {
	return &State{FirstRun: true}
}
