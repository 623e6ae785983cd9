package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements Provider for SQLite database configuration.
// Unlike the YAML backend it is writable, which is what the config portal
// uses to persist updates.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS station_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	device_name TEXT,
	sleep_minutes INTEGER,
	cpu_freq_mhz INTEGER,
	rain_mm_per_tip REAL,
	sensor_kind TEXT,
	serial_device TEXT,
	baud INTEGER,
	meshtastic_host TEXT,
	meshtastic_port INTEGER,
	mqtt_broker TEXT,
	mqtt_topic TEXT,
	mqtt_username TEXT,
	mqtt_password TEXT,
	ntp_server TEXT,
	ntp_timeout_ms INTEGER,
	resync_interval_sec INTEGER
)`

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create config schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from the SQLite database.
// An empty database yields defaults.
func (s *SQLiteProvider) LoadConfig() (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT device_name, sleep_minutes, cpu_freq_mhz, rain_mm_per_tip,
		       sensor_kind, serial_device, baud,
		       meshtastic_host, meshtastic_port,
		       mqtt_broker, mqtt_topic, mqtt_username, mqtt_password,
		       ntp_server, ntp_timeout_ms, resync_interval_sec
		FROM station_config WHERE id = 1
	`)

	var deviceName, sensorKind, serialDevice sql.NullString
	var meshHost, mqttBroker, mqttTopic, mqttUser, mqttPass, ntpServer sql.NullString
	var sleepMinutes, cpuFreq, baud, meshPort, ntpTimeout, resyncInterval sql.NullInt64
	var rainMmPerTip sql.NullFloat64

	err := row.Scan(
		&deviceName, &sleepMinutes, &cpuFreq, &rainMmPerTip,
		&sensorKind, &serialDevice, &baud,
		&meshHost, &meshPort,
		&mqttBroker, &mqttTopic, &mqttUser, &mqttPass,
		&ntpServer, &ntpTimeout, &resyncInterval,
	)
	if err == sql.ErrNoRows {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan config row: %w", err)
	}

	config := &Snapshot{
		Station: StationData{
			DeviceName:   deviceName.String,
			SleepMinutes: int(sleepMinutes.Int64),
			CPUFreqMHz:   int(cpuFreq.Int64),
			RainMmPerTip: rainMmPerTip.Float64,
			SensorKind:   sensorKind.String,
			SerialDevice: serialDevice.String,
			Baud:         int(baud.Int64),
		},
		TimeSync: TimeSyncData{
			Server:            ntpServer.String,
			TimeoutMs:         int(ntpTimeout.Int64),
			ResyncIntervalSec: int(resyncInterval.Int64),
		},
	}

	if meshHost.Valid && meshHost.String != "" {
		config.Meshtastic = &MeshtasticData{
			Host: meshHost.String,
			Port: int(meshPort.Int64),
		}
	}
	if mqttBroker.Valid && mqttBroker.String != "" {
		config.MQTT = &MQTTData{
			Broker:   mqttBroker.String,
			Topic:    mqttTopic.String,
			Username: mqttUser.String,
			Password: mqttPass.String,
		}
	}

	Normalize(config)
	return config, nil
}

// SaveConfig replaces the stored configuration.
func (s *SQLiteProvider) SaveConfig(snap *Snapshot) error {
	var meshHost string
	var meshPort int
	if snap.Meshtastic != nil {
		meshHost = snap.Meshtastic.Host
		meshPort = snap.Meshtastic.Port
	}
	var mqttBroker, mqttTopic, mqttUser, mqttPass string
	if snap.MQTT != nil {
		mqttBroker = snap.MQTT.Broker
		mqttTopic = snap.MQTT.Topic
		mqttUser = snap.MQTT.Username
		mqttPass = snap.MQTT.Password
	}

	_, err := s.db.Exec(`
		INSERT INTO station_config (
			id, device_name, sleep_minutes, cpu_freq_mhz, rain_mm_per_tip,
			sensor_kind, serial_device, baud,
			meshtastic_host, meshtastic_port,
			mqtt_broker, mqtt_topic, mqtt_username, mqtt_password,
			ntp_server, ntp_timeout_ms, resync_interval_sec
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			device_name = excluded.device_name,
			sleep_minutes = excluded.sleep_minutes,
			cpu_freq_mhz = excluded.cpu_freq_mhz,
			rain_mm_per_tip = excluded.rain_mm_per_tip,
			sensor_kind = excluded.sensor_kind,
			serial_device = excluded.serial_device,
			baud = excluded.baud,
			meshtastic_host = excluded.meshtastic_host,
			meshtastic_port = excluded.meshtastic_port,
			mqtt_broker = excluded.mqtt_broker,
			mqtt_topic = excluded.mqtt_topic,
			mqtt_username = excluded.mqtt_username,
			mqtt_password = excluded.mqtt_password,
			ntp_server = excluded.ntp_server,
			ntp_timeout_ms = excluded.ntp_timeout_ms,
			resync_interval_sec = excluded.resync_interval_sec
	`,
		snap.Station.DeviceName, snap.Station.SleepMinutes, snap.Station.CPUFreqMHz,
		snap.Station.RainMmPerTip, snap.Station.SensorKind, snap.Station.SerialDevice,
		snap.Station.Baud,
		meshHost, meshPort,
		mqttBroker, mqttTopic, mqttUser, mqttPass,
		snap.TimeSync.Server, snap.TimeSync.TimeoutMs, snap.TimeSync.ResyncIntervalSec,
	)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// IsReadOnly returns false; the SQLite backend accepts updates.
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database handle.
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
