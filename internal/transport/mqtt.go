package transport

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fieldwx/stationd/internal/log"
	"github.com/fieldwx/stationd/internal/report"
)

const mqttConnectTimeout = 10 * time.Second

// MQTT publishes reports to a broker. The connection is established per
// delivery and torn down afterwards so nothing lingers across power-off.
type MQTT struct {
	broker   string
	topic    string
	clientID string
	username string
	password string

	// newClient is swappable for tests.
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

// NewMQTT creates a transport publishing to topic on broker, e.g.
// "tcp://broker.example.com:1883".
func NewMQTT(broker, topic, clientID, username, password string) *MQTT {
	return &MQTT{
		broker:    broker,
		topic:     topic,
		clientID:  clientID,
		username:  username,
		password:  password,
		newClient: mqtt.NewClient,
	}
}

// Deliver connects to the broker, publishes the report JSON, and disconnects.
func (m *MQTT) Deliver(ctx context.Context, r *report.Report) error {
	payload, err := r.JSON()
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(m.broker)
	opts.SetClientID(m.clientID)
	opts.SetConnectTimeout(mqttConnectTimeout)
	if m.username != "" {
		opts.SetUsername(m.username)
		opts.SetPassword(m.password)
	}

	client := m.newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return fmt.Errorf("timed out connecting to MQTT broker %s", m.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to MQTT broker %s: %w", m.broker, err)
	}
	defer client.Disconnect(250)

	log.Debugf("publishing report to MQTT topic %s", m.topic)

	pub := client.Publish(m.topic, 1, false, payload)
	deadline := mqttConnectTimeout
	if d, ok := ctx.Deadline(); ok {
		if remaining := time.Until(d); remaining < deadline {
			deadline = remaining
		}
	}
	if !pub.WaitTimeout(deadline) {
		return fmt.Errorf("timed out publishing to MQTT topic %s", m.topic)
	}
	if err := pub.Error(); err != nil {
		return fmt.Errorf("publishing to MQTT topic %s: %w", m.topic, err)
	}

	log.Infof("report published to MQTT topic %s", m.topic)
	return nil
}
