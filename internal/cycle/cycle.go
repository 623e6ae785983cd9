// Package cycle orchestrates one activation: classify the wake cause, run
// the measurement pipeline, and end the activation by arming the next wake
// and powering off. One process run is one activation; the pipeline never
// loops.
package cycle

import (
	"context"
	"fmt"

	"github.com/fieldwx/stationd/internal/budget"
	"github.com/fieldwx/stationd/internal/clock"
	"github.com/fieldwx/stationd/internal/log"
	"github.com/fieldwx/stationd/internal/rainfall"
	"github.com/fieldwx/stationd/internal/report"
	"github.com/fieldwx/stationd/internal/sensors"
	"github.com/fieldwx/stationd/internal/state"
	"github.com/fieldwx/stationd/internal/transport"
	"github.com/fieldwx/stationd/internal/wake"
	"github.com/fieldwx/stationd/pkg/config"
)

// Sleeper ends an activation by arming wake sources and powering off.
type Sleeper interface {
	Sleep(sleepMinutes, cpuFreqMHz int) error
}

// Saver persists the retained state.
type Saver interface {
	Save(*state.State) error
}

// SessionRunner hosts a configuration portal session.
type SessionRunner interface {
	Run(ctx context.Context) error
}

// Deps wires the orchestrator to its collaborators. Clock, Sensor,
// Transport, Sleeper, and Store are required; Portal may be nil when no
// session can be hosted.
type Deps struct {
	Clock     *clock.Clock
	Sensor    sensors.Sensor
	Transport transport.Transport
	Sleeper   Sleeper
	Store     Saver
	Portal    SessionRunner
	Guard     *budget.Guard
}

// Outcome summarizes what one activation did, mainly for the simulator
// and for tests. The real node never inspects it; it is asleep by then.
type Outcome struct {
	Report        *report.Report
	Delivered     bool
	Yielded       bool
	PortalSession bool
	TipRecorded   bool
}

// Run executes one activation. It always attempts to persist state and
// schedule the next wake before returning, even when the pipeline was cut
// short by the runtime allowance or an error.
func Run(ctx context.Context, st *state.State, cfg *config.Snapshot, cause wake.Reason, deps Deps) (Outcome, error) {
	var out Outcome

	st.WakeCause = cause
	log.Infof("activation start: wake cause %s, tips %d", cause, st.TipCount)

	// The end of every activation, regardless of how the pipeline went:
	// persist the retained state, then arm the next wake and power off.
	// Peek, not Now: no network work belongs on the terminal path.
	defer func() {
		st.FallbackAnchor = deps.Clock.Peek()
		st.LastSyncEpoch = deps.Clock.LastSyncEpoch()
		if err := deps.Store.Save(st); err != nil {
			log.Errorf("persisting retained state: %v", err)
		}
		if err := deps.Sleeper.Sleep(cfg.Station.SleepMinutes, cfg.Station.CPUFreqMHz); err != nil {
			log.Errorf("scheduling next wake: %v", err)
		}
	}()

	// A config request, or a pending needs-configuration flag, diverts the
	// whole activation to a portal session. The flag persists until a
	// session can actually be hosted; it is consumed before the session
	// runs so a crash mid-session does not loop the node into the portal.
	if cause == wake.ConfigRequest {
		st.NeedsConfiguration = true
	}
	if st.NeedsConfiguration {
		out.PortalSession = true
		if deps.Portal == nil {
			log.Warn("config session requested but no portal available")
			return out, nil
		}
		st.NeedsConfiguration = false
		if err := deps.Portal.Run(ctx); err != nil {
			return out, fmt.Errorf("config portal session: %w", err)
		}
		return out, nil
	}

	if st.FirstRun {
		log.Info("first activation since cold boot")
		st.FirstRun = false
	}

	ledger := rainfall.NewLedger(rainfall.DefaultCapacity)
	ledger.Restore(st.Records)

	if deps.Guard.ShouldYield() {
		log.Warnf("runtime allowance spent before sensor read (%s), yielding", deps.Guard.Elapsed())
		out.Yielded = true
		return out, nil
	}

	// A sensor that stays dead through the retries does not abort the
	// cycle: the report goes out with zeroed readings so the rain figures
	// and battery telemetry still arrive.
	reading, err := deps.Sensor.Read(ctx)
	if err != nil {
		log.Errorf("sensor read failed, reporting zeroed readings: %v", err)
		reading = sensors.Reading{}
	}

	if deps.Guard.ShouldYield() {
		log.Warnf("runtime allowance spent after sensor read (%s), yielding", deps.Guard.Elapsed())
		out.Yielded = true
		return out, nil
	}

	// First Now() of the activation: triggers the lazy time sync, so this
	// is the network-touching step of the pipeline.
	now := deps.Clock.Now()

	if cause == wake.ExternalSignal {
		st.TipCount++
		st.TotalMm += cfg.Station.RainMmPerTip
		ledger.RecordTip(cfg.Station.RainMmPerTip, now)
		out.TipRecorded = true
		log.Infof("rain tip recorded: count %d, %.2f mm at %d", st.TipCount, cfg.Station.RainMmPerTip, now)
	}

	ledger.Prune(now)
	st.Records = ledger.Records()

	// Persist immediately after the tip is accounted for. Losing power
	// during the rest of the pipeline must not lose the tip.
	if err := deps.Store.Save(st); err != nil {
		log.Errorf("persisting retained state after tip: %v", err)
	}

	if deps.Guard.ShouldYield() {
		log.Warnf("runtime allowance spent after time sync (%s), yielding", deps.Guard.Elapsed())
		out.Yielded = true
		return out, nil
	}

	out.Report = report.Build(report.Params{
		Reading:      reading,
		SensorName:   deps.Sensor.Name(),
		NodeName:     cfg.Station.DeviceName,
		TipCount:     st.TipCount,
		RainMmPerTip: cfg.Station.RainMmPerTip,
		Ledger:       ledger,
		Now:          now,
		Synchronized: deps.Clock.Mode() == clock.ModeSynchronized,
	})

	if deps.Guard.ShouldYield() {
		log.Warnf("runtime allowance spent before transmission (%s), yielding", deps.Guard.Elapsed())
		out.Yielded = true
		return out, nil
	}

	if err := deps.Transport.Deliver(ctx, out.Report); err != nil {
		log.Errorf("report delivery failed, dropping this cycle's report: %v", err)
	} else {
		out.Delivered = true
	}

	return out, nil
}
