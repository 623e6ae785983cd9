// Package config provides the station configuration layer: an immutable
// per-activation snapshot loaded through pluggable providers.
package config

// Provider defines the interface for configuration data sources
type Provider interface {
	// Load the complete configuration snapshot
	LoadConfig() (*Snapshot, error)

	// Persist an updated snapshot (config portal sessions)
	SaveConfig(*Snapshot) error

	// IsReadOnly reports whether SaveConfig is supported
	IsReadOnly() bool
	Close() error
}

// Snapshot is the complete configuration view for one activation. The core
// never mutates it; updates happen only through a writable provider during
// a config portal session, taking effect on the next activation.
type Snapshot struct {
	Station    StationData     `json:"station"`
	Meshtastic *MeshtasticData `json:"meshtastic,omitempty"`
	MQTT       *MQTTData       `json:"mqtt,omitempty"`
	TimeSync   TimeSyncData    `json:"time_sync"`
}

// StationData holds the node's own operating parameters.
type StationData struct {
	DeviceName   string  `json:"device_name"`
	SleepMinutes int     `json:"sleep_minutes"`
	CPUFreqMHz   int     `json:"cpu_freq_mhz"`
	RainMmPerTip float64 `json:"rain_mm_per_tip"`
	SensorKind   string  `json:"sensor_kind"`
	SerialDevice string  `json:"serial_device,omitempty"`
	Baud         int     `json:"baud,omitempty"`
}

// MeshtasticData holds the Meshtastic node transport addresses.
type MeshtasticData struct {
	Host string `json:"host"`
	Port int    `json:"port,omitempty"`
}

// MQTTData holds the MQTT transport addresses and credentials.
type MQTTData struct {
	Broker   string `json:"broker"`
	Topic    string `json:"topic"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// TimeSyncData holds the wall-clock synchronization settings.
type TimeSyncData struct {
	Server            string `json:"server,omitempty"`
	TimeoutMs         int    `json:"timeout_ms,omitempty"`
	ResyncIntervalSec int    `json:"resync_interval_sec,omitempty"`
}
