// Package power arms the hardware wake sources for the next low-power
// interval and performs the power-off transition. Arming is the terminal
// step of every activation: skipping it would leave no wake source armed
// and strand the node powered down.
package power

import (
	"errors"

	"github.com/fieldwx/stationd/internal/log"
)

// Default wake pin assignments.
const (
	DefaultRainGaugePin    = 27
	DefaultConfigButtonPin = 33
)

// usPerMinute converts whole minutes to the wake timer's microsecond unit.
const usPerMinute = 60_000_000

// Directives describes the wake sources to arm before powering off.
type Directives struct {
	// RainGaugePin is armed as a level-triggered external wake source.
	RainGaugePin   int
	RainGaugeLevel int
	// ConfigPinMask is the pin set armed to wake on an all-low combination.
	ConfigPinMask uint64
	// TimerWakeUS is the wake timer interval in microseconds.
	TimerWakeUS uint64
	// CPUFreqMHz is the power profile to apply on the next activation.
	CPUFreqMHz int
}

// Controller is the platform interface that applies directives and cuts
// power. The real controller never returns from PowerOff; fakes do.
type Controller interface {
	Arm(Directives) error
	PowerOff() error
}

// Scheduler builds wake directives from the configured sleep interval and
// hands them to the platform controller.
type Scheduler struct {
	ctrl Controller
}

// NewScheduler creates a scheduler on top of a platform controller.
func NewScheduler(ctrl Controller) *Scheduler {
	return &Scheduler{ctrl: ctrl}
}

// BuildDirectives assembles the wake source set for the next interval:
// the rain gauge pin (level-triggered), the config button combination
// (all-low), and the timer converted from minutes to microseconds.
func BuildDirectives(sleepMinutes, cpuFreqMHz int) Directives {
	return Directives{
		RainGaugePin:   DefaultRainGaugePin,
		RainGaugeLevel: 1,
		ConfigPinMask:  1 << DefaultConfigButtonPin,
		TimerWakeUS:    uint64(sleepMinutes) * usPerMinute,
		CPUFreqMHz:     cpuFreqMHz,
	}
}

// Sleep arms the wake sources and powers the node off. An arming failure is
// logged but the power-off is still attempted: the platform watchdog timer
// is the last line of defense, and staying powered up drains the battery
// either way.
func (s *Scheduler) Sleep(sleepMinutes, cpuFreqMHz int) error {
	d := BuildDirectives(sleepMinutes, cpuFreqMHz)

	log.Infof("arming wake sources: rain pin %d, config mask %#x, timer %d min",
		d.RainGaugePin, d.ConfigPinMask, sleepMinutes)

	armErr := s.ctrl.Arm(d)
	if armErr != nil {
		log.Errorf("failed to arm wake sources: %v", armErr)
	}

	log.Info("entering low-power state")
	if err := s.ctrl.PowerOff(); err != nil {
		return errors.Join(armErr, err)
	}
	return armErr
}
