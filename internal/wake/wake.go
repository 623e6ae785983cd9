// Package wake classifies the hardware-reported cause of the current
// activation into the small set of reasons the pipeline branches on.
package wake

// HardwareCause is the raw wake cause reported by the platform wake circuit.
type HardwareCause int

const (
	// CauseUndefined covers cold boot and anything the platform cannot name.
	CauseUndefined HardwareCause = iota
	// CauseExternalLevel is a level-triggered external signal (rain gauge pin).
	CauseExternalLevel
	// CauseExternalCombo is the logic-low pin combination (config button).
	CauseExternalCombo
	// CauseTimerExpiry is the wake timer firing.
	CauseTimerExpiry
)

// Reason is the classified wake reason. It is derived exactly once per
// activation and read-only for the remainder of the cycle.
type Reason int

const (
	Unknown Reason = iota
	Timer
	ExternalSignal
	ConfigRequest
)

func (r Reason) String() string {
	switch r {
	case Timer:
		return "timer"
	case ExternalSignal:
		return "external-signal"
	case ConfigRequest:
		return "config-request"
	default:
		return "unknown"
	}
}

// Classify maps a hardware cause to its wake reason.
func Classify(c HardwareCause) Reason {
	switch c {
	case CauseExternalLevel:
		return ExternalSignal
	case CauseExternalCombo:
		return ConfigRequest
	case CauseTimerExpiry:
		return Timer
	default:
		return Unknown
	}
}

// ParseCause converts a supervisor-reported cause string into a
// HardwareCause. Unrecognized strings, including the empty string passed on
// cold boot, map to CauseUndefined.
func ParseCause(s string) HardwareCause {
	switch s {
	case "ext0", "rain", "external-level":
		return CauseExternalLevel
	case "ext1", "button", "external-combo":
		return CauseExternalCombo
	case "timer":
		return CauseTimerExpiry
	default:
		return CauseUndefined
	}
}
