package sensors

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	sim := &Simulated{
		SensorName: "DHT22",
		Value:      Reading{TemperatureC: 21.0, Humidity: Float(60), BatteryVolts: 3.9},
		FailFirst:  2,
	}
	s := WithRetries(sim, 3, 0)

	reading, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if sim.Reads != 3 {
		t.Errorf("expected 3 reads, got %d", sim.Reads)
	}
	if reading.TemperatureC != 21.0 {
		t.Errorf("unexpected reading: %+v", reading)
	}
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	readErr := errors.New("checksum mismatch")
	sim := &Simulated{Err: readErr}
	s := WithRetries(sim, 3, 0)

	reading, err := s.Read(context.Background())
	if !errors.Is(err, readErr) {
		t.Fatalf("expected last read error, got %v", err)
	}
	if sim.Reads != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", sim.Reads)
	}
	// The zero-valued reading is what the cycle proceeds with.
	if reading.TemperatureC != 0 || reading.Humidity != nil {
		t.Errorf("expected zero reading on exhaustion, got %+v", reading)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	sim := &Simulated{Err: errors.New("no response")}
	s := WithRetries(sim, 3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got %v", err)
	}
	if sim.Reads != 1 {
		t.Errorf("expected a single attempt before cancellation, got %d", sim.Reads)
	}
}

func TestRetryBackoffInterruptedByCancel(t *testing.T) {
	sim := &Simulated{Err: errors.New("no response")}
	s := WithRetries(sim, 3, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := s.Read(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancellation took %s to interrupt the backoff", elapsed)
	}
	if sim.Reads != 1 {
		t.Errorf("expected a single attempt before cancellation, got %d", sim.Reads)
	}
}

func TestUnavailableSensorAlwaysFails(t *testing.T) {
	setupErr := errors.New("open /dev/ttyUSB0: no such file or directory")
	u := &Unavailable{SensorName: "dht22", Reason: setupErr}

	if u.Name() != "dht22" {
		t.Errorf("Name = %q, want dht22", u.Name())
	}
	if _, err := u.Read(context.Background()); !errors.Is(err, setupErr) {
		t.Errorf("expected the setup error, got %v", err)
	}
}
