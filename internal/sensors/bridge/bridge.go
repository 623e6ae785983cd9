// Package bridge reads environmental samples from the serial-attached
// sensor hub. The hub answers a single poll request with one line of
// space-separated KEY=VALUE fields, e.g.
//
//	T=21.4 H=63.1 P=1012.8 V=3.92
//
// Which fields are required depends on the configured sensor kind.
package bridge

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	serial "github.com/tarm/goserial"

	"github.com/fieldwx/stationd/internal/sensors"
)

// Supported sensor kinds, matching the hub firmware variants.
const (
	KindDHT22  = "dht22"
	KindAHT20  = "aht20"
	KindBMP280 = "bmp280"
	KindCombo  = "aht20+bmp280"
)

// Bridge is a Sensor implementation over the serial hub.
type Bridge struct {
	device string
	baud   int
	kind   string

	// openPort is swappable for tests.
	openPort func(*serial.Config) (io.ReadWriteCloser, error)
}

// New creates a bridge for the given serial device and sensor kind.
func New(device string, baud int, kind string) (*Bridge, error) {
	switch kind {
	case KindDHT22, KindAHT20, KindBMP280, KindCombo:
	default:
		return nil, fmt.Errorf("unknown sensor kind %q", kind)
	}
	return &Bridge{
		device:   device,
		baud:     baud,
		kind:     kind,
		openPort: serial.OpenPort,
	}, nil
}

// Name returns the sensor identifier used in outbound reports.
func (b *Bridge) Name() string {
	return strings.ToUpper(b.kind)
}

// Read polls the hub once and parses its response. The port is opened and
// closed per read; the node is only awake for seconds at a time.
func (b *Bridge) Read(ctx context.Context) (sensors.Reading, error) {
	port, err := b.openPort(&serial.Config{Name: b.device, Baud: b.baud})
	if err != nil {
		return sensors.Reading{}, fmt.Errorf("opening sensor hub %s: %w", b.device, err)
	}
	defer port.Close()

	if _, err := port.Write([]byte("R\n")); err != nil {
		return sensors.Reading{}, fmt.Errorf("polling sensor hub: %w", err)
	}

	line, err := readLine(ctx, port)
	if err != nil {
		return sensors.Reading{}, fmt.Errorf("reading sensor hub response: %w", err)
	}
	return b.parse(line)
}

// readLine reads one newline-terminated response, abandoning the blocked
// read if the context expires first.
func readLine(ctx context.Context, r io.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(r).ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.line), nil
	}
}

func (b *Bridge) parse(line string) (sensors.Reading, error) {
	fields := make(map[string]float64)
	for _, tok := range strings.Fields(line) {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return sensors.Reading{}, fmt.Errorf("bad field %q in hub response", tok)
		}
		fields[key] = f
	}

	temp, ok := fields["T"]
	if !ok {
		return sensors.Reading{}, fmt.Errorf("hub response missing temperature: %q", line)
	}

	reading := sensors.Reading{
		TemperatureC: temp,
		BatteryVolts: fields["V"],
	}

	switch b.kind {
	case KindDHT22, KindAHT20:
		hum, ok := fields["H"]
		if !ok {
			return sensors.Reading{}, fmt.Errorf("hub response missing humidity: %q", line)
		}
		reading.Humidity = &hum
	case KindBMP280:
		pres, ok := fields["P"]
		if !ok {
			return sensors.Reading{}, fmt.Errorf("hub response missing pressure: %q", line)
		}
		reading.Pressure = &pres
	case KindCombo:
		hum, hOK := fields["H"]
		pres, pOK := fields["P"]
		if !hOK || !pOK {
			return sensors.Reading{}, fmt.Errorf("hub response missing humidity or pressure: %q", line)
		}
		reading.Humidity = &hum
		reading.Pressure = &pres
	}
	return reading, nil
}
