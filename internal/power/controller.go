package power

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// DefaultPMUPath is the default attribute directory of the platform power
// management unit driver.
const DefaultPMUPath = "/sys/devices/platform/fieldwx-pmu"

// PMUController applies wake directives by writing the PMU driver's sysfs
// attributes and powers off via a platform command.
type PMUController struct {
	path        string
	powerOffCmd []string
}

// NewPMUController creates a controller over the PMU sysfs directory. An
// empty powerOffCmd defaults to a system suspend.
func NewPMUController(path string, powerOffCmd []string) *PMUController {
	if path == "" {
		path = DefaultPMUPath
	}
	if len(powerOffCmd) == 0 {
		powerOffCmd = []string{"systemctl", "suspend"}
	}
	return &PMUController{path: path, powerOffCmd: powerOffCmd}
}

// Arm writes each wake source attribute in order: the level-triggered rain
// gauge pin, the config button combination mask, then the wake timer.
func (c *PMUController) Arm(d Directives) error {
	attrs := []struct {
		name  string
		value string
	}{
		{"wake_pin", strconv.Itoa(d.RainGaugePin)},
		{"wake_pin_level", strconv.Itoa(d.RainGaugeLevel)},
		{"wake_combo_mask", strconv.FormatUint(d.ConfigPinMask, 10)},
		{"wake_timer_us", strconv.FormatUint(d.TimerWakeUS, 10)},
		{"cpu_freq_mhz", strconv.Itoa(d.CPUFreqMHz)},
	}
	for _, a := range attrs {
		if err := os.WriteFile(filepath.Join(c.path, a.name), []byte(a.value), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", a.name, err)
		}
	}
	return nil
}

// PowerOff runs the platform power-off command. On the real platform this
// does not return.
func (c *PMUController) PowerOff() error {
	cmd := exec.Command(c.powerOffCmd[0], c.powerOffCmd[1:]...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("power-off command: %w", err)
	}
	return nil
}

// Recorder is a Controller fake that records calls, for tests and the
// activation simulator.
type Recorder struct {
	ArmCalls  []Directives
	PowerOffs int
	ArmErr    error
}

func (r *Recorder) Arm(d Directives) error {
	r.ArmCalls = append(r.ArmCalls, d)
	return r.ArmErr
}

func (r *Recorder) PowerOff() error {
	r.PowerOffs++
	return nil
}
