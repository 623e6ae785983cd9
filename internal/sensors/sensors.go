// Package sensors defines the capability interface for the node's
// environmental sensors and the bounded-retry policy around reads.
package sensors

import (
	"context"
	"time"

	"github.com/fieldwx/stationd/internal/log"
)

// Reading is one environmental sample. Humidity and Pressure are nil when
// the sensor variant does not measure them.
type Reading struct {
	TemperatureC float64
	Humidity     *float64
	Pressure     *float64
	BatteryVolts float64
}

// Sensor reads environmental data. One implementation exists per sensor
// kind; the pipeline is sensor-agnostic.
type Sensor interface {
	// Name identifies the sensor variant in outbound reports, e.g. "DHT22".
	Name() string
	Read(ctx context.Context) (Reading, error)
}

// Retry policy for flaky sensor reads.
const (
	DefaultReadAttempts = 3
	DefaultReadBackoff  = 2 * time.Second
)

type retrySensor struct {
	inner    Sensor
	attempts int
	backoff  time.Duration
}

// WithRetries wraps a sensor with a bounded retry policy: up to attempts
// reads with a fixed backoff between them. The last error is returned when
// all attempts fail; the caller proceeds with a zero-valued reading rather
// than aborting the cycle.
func WithRetries(s Sensor, attempts int, backoff time.Duration) Sensor {
	if attempts <= 0 {
		attempts = DefaultReadAttempts
	}
	return &retrySensor{inner: s, attempts: attempts, backoff: backoff}
}

func (r *retrySensor) Name() string {
	return r.inner.Name()
}

func (r *retrySensor) Read(ctx context.Context) (Reading, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		reading, err := r.inner.Read(ctx)
		if err == nil {
			return reading, nil
		}
		lastErr = err
		log.Warnf("sensor %s read attempt %d/%d failed: %v", r.inner.Name(), attempt, r.attempts, err)

		if attempt < r.attempts {
			timer := time.NewTimer(r.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Reading{}, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return Reading{}, lastErr
}

// Unavailable is a Sensor whose reads always fail with the recorded setup
// error. It stands in when the configured sensor could not be opened, so
// the cycle still runs and reports zeroed readings.
type Unavailable struct {
	SensorName string
	Reason     error
}

func (u *Unavailable) Name() string { return u.SensorName }

func (u *Unavailable) Read(ctx context.Context) (Reading, error) {
	return Reading{}, u.Reason
}
