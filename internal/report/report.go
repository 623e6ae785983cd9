// Package report builds the outbound observation sent to the transport.
package report

import (
	"encoding/json"

	"github.com/fieldwx/stationd/internal/rainfall"
	"github.com/fieldwx/stationd/internal/sensors"
)

// Report is the flat outbound object. Field names are part of the wire
// format consumed downstream; BatteryLevel keeps its historical casing.
type Report struct {
	Temperature  float64  `json:"temperature"`
	Humidity     *float64 `json:"humidity,omitempty"`
	Pressure     *float64 `json:"pressure,omitempty"`
	Sensor       string   `json:"sensor"`
	Rain         float64  `json:"rain"`
	Rain1h       float64  `json:"rain_1h"`
	Rain24h      float64  `json:"rain_24h"`
	NodeName     string   `json:"node_name"`
	Voltage      float64  `json:"voltage"`
	BatteryLevel int      `json:"BatteryLevel"`
	Timestamp    *int64   `json:"timestamp,omitempty"`
}

// Params carries everything a report derives from.
type Params struct {
	Reading      sensors.Reading
	SensorName   string
	NodeName     string
	TipCount     uint32
	RainMmPerTip float64
	Ledger       *rainfall.Ledger
	Now          uint32
	// Synchronized gates the timestamp field: fallback-clock values are
	// meaningless downstream and are omitted.
	Synchronized bool
}

// Build assembles a report. The cumulative rain figure derives from the tip
// counter and the calibration value, not from the ledger contents.
func Build(p Params) *Report {
	r := &Report{
		Temperature:  p.Reading.TemperatureC,
		Humidity:     p.Reading.Humidity,
		Pressure:     p.Reading.Pressure,
		Sensor:       p.SensorName,
		Rain:         float64(p.TipCount) * p.RainMmPerTip,
		Rain1h:       p.Ledger.WindowSum(p.Now, rainfall.WindowOneHour),
		Rain24h:      p.Ledger.WindowSum(p.Now, rainfall.WindowOneDay),
		NodeName:     p.NodeName,
		Voltage:      p.Reading.BatteryVolts,
		BatteryLevel: BatteryPercent(p.Reading.BatteryVolts),
	}
	if p.Synchronized {
		ts := int64(p.Now)
		r.Timestamp = &ts
	}
	return r
}

// BatteryPercent discretizes a battery voltage into the coarse levels the
// downstream dashboards expect.
func BatteryPercent(volts float64) int {
	switch {
	case volts >= 4.2:
		return 100
	case volts >= 3.95:
		return 75
	case volts >= 3.7:
		return 50
	case volts >= 3.5:
		return 25
	default:
		return 10
	}
}

// JSON serializes the report for the transport payload.
func (r *Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}
