// Package main provides a field node activation simulator: it runs a
// sequence of wake cycles in one process, with a synthetic sensor and a
// recording power controller instead of real hardware, and prints the
// report each cycle would have transmitted.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldwx/stationd/internal/budget"
	"github.com/fieldwx/stationd/internal/clock"
	"github.com/fieldwx/stationd/internal/cycle"
	"github.com/fieldwx/stationd/internal/log"
	"github.com/fieldwx/stationd/internal/power"
	"github.com/fieldwx/stationd/internal/report"
	"github.com/fieldwx/stationd/internal/sensors"
	"github.com/fieldwx/stationd/internal/state"
	"github.com/fieldwx/stationd/internal/wake"
	"github.com/fieldwx/stationd/pkg/config"
)

// conditionsEmulator generates synthetic sensor readings with a diurnal
// temperature swing and a slowly draining battery.
type conditionsEmulator struct {
	baseTemp     float64
	baseHumidity float64
	baseVolts    float64
	cycles       int
}

func newConditionsEmulator() *conditionsEmulator {
	return &conditionsEmulator{
		baseTemp:     15,
		baseHumidity: 60,
		baseVolts:    4.15,
	}
}

func (e *conditionsEmulator) next(simTime time.Time) sensors.Reading {
	e.cycles++
	hour := float64(simTime.Hour()) + float64(simTime.Minute())/60
	diurnal := 6 * math.Sin(2*math.Pi*(hour-9)/24)

	return sensors.Reading{
		TemperatureC: e.baseTemp + diurnal + rand.Float64(),
		Humidity:     sensors.Float(e.baseHumidity - diurnal + 2*rand.Float64()),
		BatteryVolts: e.baseVolts - 0.002*float64(e.cycles),
	}
}

// printTransport writes each report to stdout instead of a radio.
type printTransport struct{}

func (printTransport) Deliver(ctx context.Context, r *report.Report) error {
	payload, err := r.JSON()
	if err != nil {
		return err
	}
	fmt.Printf("  report: %s\n", payload)
	return nil
}

func main() {
	cycles := flag.Int("cycles", 24, "Number of wake cycles to simulate")
	tipEvery := flag.Int("tip-every", 4, "Simulate a rain tip wake every Nth cycle (0 = never)")
	sleepMinutes := flag.Int("sleep-minutes", 5, "Simulated sleep interval between cycles")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	stateDir, err := os.MkdirTemp("", "station-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating state directory: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(stateDir)

	cfg := config.Default()
	cfg.Station.DeviceName = "simulated-node"
	cfg.Station.SleepMinutes = *sleepMinutes

	store := state.NewStore(filepath.Join(stateDir, "state.bin"))
	emulator := newConditionsEmulator()
	controller := &power.Recorder{}

	// Simulated wall time advances by the sleep interval between cycles.
	simTime := time.Now()

	for i := 1; i <= *cycles; i++ {
		st, err := store.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading state: %v\n", err)
			os.Exit(1)
		}

		cause := wake.Timer
		if *tipEvery > 0 && i%*tipEvery == 0 {
			cause = wake.ExternalSignal
		}

		fmt.Printf("cycle %d: wake cause %s\n", i, cause)

		deps := cycle.Deps{
			Clock:     clock.New(nil, st.FallbackAnchor, st.LastSyncEpoch),
			Sensor:    &sensors.Simulated{SensorName: "SIMULATED", Value: emulator.next(simTime)},
			Transport: printTransport{},
			Sleeper:   power.NewScheduler(controller),
			Store:     store,
			Guard:     budget.NewGuard(budget.DefaultMaxRuntime),
		}

		out, err := cycle.Run(context.Background(), st, cfg, cause, deps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cycle %d failed: %v\n", i, err)
			os.Exit(1)
		}
		if out.TipRecorded {
			fmt.Printf("  tip recorded, count now %d\n", st.TipCount)
		}

		// Fake the passage of the sleep interval. The fallback anchor
		// advances the same way the real node's does, one activation at
		// a time, so the simulated ledger ages realistically except for
		// the sleep gap, which only a synchronized clock would cover.
		st.FallbackAnchor += uint32(*sleepMinutes * 60)
		if err := store.Save(st); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving state: %v\n", err)
			os.Exit(1)
		}
		simTime = simTime.Add(time.Duration(*sleepMinutes) * time.Minute)
	}

	fmt.Printf("simulation complete: %d cycles, %d arms, %d power-offs\n",
		*cycles, len(controller.ArmCalls), controller.PowerOffs)
}
