package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fieldwx/stationd/internal/sensors"
	"github.com/fieldwx/stationd/internal/state"
	"github.com/fieldwx/stationd/pkg/config"
)

func TestLoadConfigOrDefaultsMissingFile(t *testing.T) {
	cfg, provider := loadConfigOrDefaults(filepath.Join(t.TempDir(), "nope.yaml"), "yaml")

	if cfg == nil {
		t.Fatal("expected a config snapshot, got nil")
	}
	if cfg.Station.DeviceName != config.DefaultDeviceName {
		t.Errorf("device name = %q, want default %q", cfg.Station.DeviceName, config.DefaultDeviceName)
	}
	if cfg.Station.SleepMinutes != config.DefaultSleepMinutes {
		t.Errorf("sleep = %d, want default %d", cfg.Station.SleepMinutes, config.DefaultSleepMinutes)
	}
	if provider == nil {
		t.Error("yaml backend opened fine, provider should be returned")
	}
}

func TestLoadConfigOrDefaultsUnsupportedBackend(t *testing.T) {
	cfg, provider := loadConfigOrDefaults("station.toml", "toml")

	if cfg == nil {
		t.Fatal("expected a default config snapshot, got nil")
	}
	if cfg.Station.SensorKind != config.DefaultSensorKind {
		t.Errorf("sensor kind = %q, want default", cfg.Station.SensorKind)
	}
	if provider != nil {
		t.Error("no backend was opened, provider should be nil")
	}
}

func TestLoadStateOrColdBootUnreadablePath(t *testing.T) {
	// A directory at the state path makes the read fail with something
	// other than not-exist.
	store := state.NewStore(t.TempDir())

	st := loadStateOrColdBoot(store)
	if st == nil {
		t.Fatal("expected cold-boot state, got nil")
	}
	if !st.FirstRun {
		t.Error("cold-boot state should have FirstRun set")
	}
	if st.TipCount != 0 {
		t.Errorf("TipCount = %d, want 0", st.TipCount)
	}
}

func TestBuildSensorFallsBackOnBadKind(t *testing.T) {
	cfg := config.Default()
	cfg.Station.SensorKind = "bme680"

	sensor := buildSensor(cfg)
	if sensor == nil {
		t.Fatal("expected a fallback sensor, got nil")
	}
	if sensor.Name() != "bme680" {
		t.Errorf("Name = %q, want the configured kind", sensor.Name())
	}
	if _, err := sensor.Read(context.Background()); err == nil {
		t.Fatal("fallback sensor reads must fail so the cycle zeroes the readings")
	}
	if _, ok := sensor.(*sensors.Unavailable); !ok {
		t.Errorf("expected an unavailable sensor, got %T", sensor)
	}
}

func TestBuildPortalNilProvider(t *testing.T) {
	if p := buildPortal(nil, ":8080"); p != nil {
		t.Error("nil provider should yield no portal")
	}
}
