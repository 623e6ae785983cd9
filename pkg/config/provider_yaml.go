package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v2"
)

// ErrReadOnly is returned by SaveConfig on read-only providers.
var ErrReadOnly = errors.New("configuration backend is read-only")

// YAMLProvider implements Provider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *Snapshot
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*Snapshot, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Station    StationYAML     `yaml:"station"`
		Meshtastic *MeshtasticYAML `yaml:"meshtastic,omitempty"`
		MQTT       *MQTTYAML       `yaml:"mqtt,omitempty"`
		TimeSync   TimeSyncYAML    `yaml:"time-sync,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &Snapshot{
		Station: StationData{
			DeviceName:   yamlConfig.Station.DeviceName,
			SleepMinutes: yamlConfig.Station.SleepMinutes,
			CPUFreqMHz:   yamlConfig.Station.CPUFreqMHz,
			RainMmPerTip: yamlConfig.Station.RainMmPerTip,
			SensorKind:   yamlConfig.Station.SensorKind,
			SerialDevice: yamlConfig.Station.SerialDevice,
			Baud:         yamlConfig.Station.Baud,
		},
		TimeSync: TimeSyncData{
			Server:            yamlConfig.TimeSync.Server,
			TimeoutMs:         yamlConfig.TimeSync.TimeoutMs,
			ResyncIntervalSec: yamlConfig.TimeSync.ResyncIntervalSec,
		},
	}

	if yamlConfig.Meshtastic != nil {
		config.Meshtastic = &MeshtasticData{
			Host: yamlConfig.Meshtastic.Host,
			Port: yamlConfig.Meshtastic.Port,
		}
	}
	if yamlConfig.MQTT != nil {
		config.MQTT = &MQTTData{
			Broker:   yamlConfig.MQTT.Broker,
			Topic:    yamlConfig.MQTT.Topic,
			Username: yamlConfig.MQTT.Username,
			Password: yamlConfig.MQTT.Password,
		}
	}

	Normalize(config)
	y.config = config
	return config, nil
}

// SaveConfig is unsupported for YAML files
func (y *YAMLProvider) SaveConfig(*Snapshot) error {
	return ErrReadOnly
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the file format
type StationYAML struct {
	DeviceName   string  `yaml:"device-name,omitempty"`
	SleepMinutes int     `yaml:"sleep-minutes,omitempty"`
	CPUFreqMHz   int     `yaml:"cpu-freq-mhz,omitempty"`
	RainMmPerTip float64 `yaml:"rain-mm-per-tip,omitempty"`
	SensorKind   string  `yaml:"sensor,omitempty"`
	SerialDevice string  `yaml:"serial-device,omitempty"`
	Baud         int     `yaml:"baud,omitempty"`
}

type MeshtasticYAML struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port,omitempty"`
}

type MQTTYAML struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type TimeSyncYAML struct {
	Server            string `yaml:"server,omitempty"`
	TimeoutMs         int    `yaml:"timeout-ms,omitempty"`
	ResyncIntervalSec int    `yaml:"resync-interval-sec,omitempty"`
}
