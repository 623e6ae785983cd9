package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fieldwx/stationd/internal/budget"
	"github.com/fieldwx/stationd/internal/clock"
	"github.com/fieldwx/stationd/internal/cycle"
	"github.com/fieldwx/stationd/internal/log"
	"github.com/fieldwx/stationd/internal/portal"
	"github.com/fieldwx/stationd/internal/power"
	"github.com/fieldwx/stationd/internal/sensors"
	"github.com/fieldwx/stationd/internal/sensors/bridge"
	"github.com/fieldwx/stationd/internal/state"
	"github.com/fieldwx/stationd/internal/transport"
	"github.com/fieldwx/stationd/internal/wake"
	"github.com/fieldwx/stationd/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

const defaultStatePath = "/var/lib/stationd/state.bin"

func main() {
	cfgFile := flag.String("config", "station.yaml", "Path to configuration source:\n\t\t\t  YAML: station.yaml\n\t\t\t  SQLite: station.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	statePath := flag.String("state", defaultStatePath, "Path to the retained state file")
	wakeCause := flag.String("wake-cause", "", "Hardware wake cause reported by the platform (rain, button, timer)")
	portalAddr := flag.String("portal-addr", ":8080", "Listen address for the configuration portal")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stationd %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// The runtime allowance starts counting here, before config and state
	// are even loaded.
	guard := budget.NewGuard(budget.DefaultMaxRuntime)

	// From this point on, nothing is fatal: every failure degrades to a
	// default and the activation still ends with wake sources armed. A
	// node that exited here would never wake again.
	cfg, provider := loadConfigOrDefaults(*cfgFile, *cfgBackend)
	if provider != nil {
		defer provider.Close()
	}

	store := state.NewStore(*statePath)
	st := loadStateOrColdBoot(store)

	cause := wake.Classify(wake.ParseCause(*wakeCause))

	clk := clock.New(
		&clock.NTPFetcher{Server: cfg.TimeSync.Server},
		st.FallbackAnchor,
		st.LastSyncEpoch,
		clock.WithSyncTimeout(time.Duration(cfg.TimeSync.TimeoutMs)*time.Millisecond),
		clock.WithResyncInterval(time.Duration(cfg.TimeSync.ResyncIntervalSec)*time.Second),
	)

	deps := cycle.Deps{
		Clock:     clk,
		Sensor:    buildSensor(cfg),
		Transport: buildTransport(cfg),
		Sleeper:   power.NewScheduler(power.NewPMUController("", nil)),
		Store:     store,
		Portal:    buildPortal(provider, *portalAddr),
		Guard:     guard,
	}

	if _, err := cycle.Run(context.Background(), st, cfg, cause, deps); err != nil {
		log.Errorf("Activation error: %v", err)
		os.Exit(1)
	}
}

// loadConfigOrDefaults loads the configuration snapshot, falling back to
// defaults on any failure so the activation can proceed. The provider is
// nil when the backend itself could not be opened.
func loadConfigOrDefaults(cfgFile, cfgBackend string) (*config.Snapshot, config.Provider) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.Provider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			log.Errorf("Failed to open SQLite config backend, continuing with defaults: %v", err)
			return config.Default(), nil
		}
	default:
		log.Errorf("Unsupported configuration backend %q, continuing with defaults. Use 'yaml' or 'sqlite'", cfgBackend)
		return config.Default(), nil
	}

	cfg, err := provider.LoadConfig()
	if err != nil {
		log.Errorf("Failed to load configuration, continuing with defaults: %v", err)
		return config.Default(), provider
	}

	return cfg, provider
}

// loadStateOrColdBoot treats an unreadable retained state file as a cold
// boot rather than a fatal error.
func loadStateOrColdBoot(store *state.Store) *state.State {
	st, err := store.Load()
	if err != nil {
		log.Warnf("Failed to load retained state, treating as cold boot: %v", err)
		return state.New()
	}
	return st
}

// buildSensor never fails: a sensor that cannot be opened is replaced with
// one whose reads fail, and the cycle reports zeroed readings.
func buildSensor(cfg *config.Snapshot) sensors.Sensor {
	b, err := bridge.New(cfg.Station.SerialDevice, cfg.Station.Baud, cfg.Station.SensorKind)
	if err != nil {
		log.Errorf("Failed to set up sensor, reports will carry zeroed readings: %v", err)
		return &sensors.Unavailable{SensorName: cfg.Station.SensorKind, Reason: err}
	}
	return sensors.WithRetries(b, sensors.DefaultReadAttempts, sensors.DefaultReadBackoff)
}

func buildTransport(cfg *config.Snapshot) transport.Transport {
	switch {
	case cfg.Meshtastic != nil:
		return transport.NewMeshtastic(cfg.Meshtastic.Host, cfg.Meshtastic.Port)
	case cfg.MQTT != nil:
		return transport.NewMQTT(cfg.MQTT.Broker, cfg.MQTT.Topic, cfg.Station.DeviceName, cfg.MQTT.Username, cfg.MQTT.Password)
	default:
		return transport.Discard{}
	}
}

// buildPortal returns nil when the config backend cannot accept writes;
// the orchestrator skips the session in that case.
func buildPortal(provider config.Provider, addr string) cycle.SessionRunner {
	if provider == nil || provider.IsReadOnly() {
		return nil
	}
	p, err := portal.NewServer(provider, addr, portal.DefaultSessionTimeout)
	if err != nil {
		log.Warnf("config portal unavailable: %v", err)
		return nil
	}
	return p
}
