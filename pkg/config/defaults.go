package config

// Defaults and accepted ranges for station parameters. Out-of-range values
// loaded from a backend are replaced with defaults rather than rejected:
// the node must always come up with something workable.
const (
	DefaultDeviceName   = "fieldwx-node"
	DefaultSleepMinutes = 5
	DefaultCPUFreqMHz   = 160
	DefaultRainMmPerTip = 0.25
	DefaultSensorKind   = "dht22"
	DefaultSerialDevice = "/dev/ttyUSB0"
	DefaultBaud         = 115200

	MinSleepMinutes = 1
	MaxSleepMinutes = 360
	MinRainMmPerTip = 0.1
	MaxRainMmPerTip = 5.0

	DefaultSyncTimeoutMs  = 5000
	DefaultResyncInterval = 3600
)

// Default returns a snapshot populated with defaults and no transports.
func Default() *Snapshot {
	return &Snapshot{
		Station: StationData{
			DeviceName:   DefaultDeviceName,
			SleepMinutes: DefaultSleepMinutes,
			CPUFreqMHz:   DefaultCPUFreqMHz,
			RainMmPerTip: DefaultRainMmPerTip,
			SensorKind:   DefaultSensorKind,
			SerialDevice: DefaultSerialDevice,
			Baud:         DefaultBaud,
		},
		TimeSync: TimeSyncData{
			TimeoutMs:         DefaultSyncTimeoutMs,
			ResyncIntervalSec: DefaultResyncInterval,
		},
	}
}

// Normalize replaces out-of-range or missing values with defaults.
func Normalize(s *Snapshot) {
	st := &s.Station
	if st.DeviceName == "" {
		st.DeviceName = DefaultDeviceName
	}
	if st.SleepMinutes < MinSleepMinutes || st.SleepMinutes > MaxSleepMinutes {
		st.SleepMinutes = DefaultSleepMinutes
	}
	if st.CPUFreqMHz != 80 && st.CPUFreqMHz != 160 {
		st.CPUFreqMHz = DefaultCPUFreqMHz
	}
	if st.RainMmPerTip < MinRainMmPerTip || st.RainMmPerTip > MaxRainMmPerTip {
		st.RainMmPerTip = DefaultRainMmPerTip
	}
	switch st.SensorKind {
	case "dht22", "aht20", "bmp280", "aht20+bmp280":
	default:
		st.SensorKind = DefaultSensorKind
	}
	if st.SerialDevice == "" {
		st.SerialDevice = DefaultSerialDevice
	}
	if st.Baud <= 0 {
		st.Baud = DefaultBaud
	}
	if s.TimeSync.TimeoutMs <= 0 {
		s.TimeSync.TimeoutMs = DefaultSyncTimeoutMs
	}
	if s.TimeSync.ResyncIntervalSec <= 0 {
		s.TimeSync.ResyncIntervalSec = DefaultResyncInterval
	}
}
