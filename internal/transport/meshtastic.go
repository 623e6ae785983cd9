package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fieldwx/stationd/internal/log"
	"github.com/fieldwx/stationd/internal/report"
)

// broadcastAddr addresses every node on the mesh.
const broadcastAddr = 0xffffffff

const toRadioEndpoint = "/api/v1/toRadio"

// Meshtastic delivers reports to a Meshtastic node over its HTTP API for
// LoRa propagation. The report JSON rides as a text-message payload inside
// a ToRadio envelope.
type Meshtastic struct {
	host   string
	port   int
	client *http.Client
}

// NewMeshtastic creates a transport for the given node address. Port 0
// selects the default HTTP port.
func NewMeshtastic(host string, port int) *Meshtastic {
	if port == 0 {
		port = 80
	}
	return &Meshtastic{
		host:   host,
		port:   port,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// ToRadio message envelope, per the Meshtastic protobuf structure.
type toRadio struct {
	Packet meshPacket `json:"packet"`
}

type meshPacket struct {
	From     uint32         `json:"from"`
	To       uint32         `json:"to"`
	ID       uint32         `json:"id"`
	WantAck  bool           `json:"want_ack"`
	Priority string         `json:"priority"`
	Decoded  decodedPayload `json:"decoded"`
}

type decodedPayload struct {
	PortNum string `json:"portnum"`
	Payload string `json:"payload"`
}

// Deliver wraps the report in a ToRadio envelope and PUTs it to the node.
func (m *Meshtastic) Deliver(ctx context.Context, r *report.Report) error {
	payload, err := r.JSON()
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	envelope := toRadio{
		Packet: meshPacket{
			From:     0, // 0 lets the node substitute its own number
			To:       broadcastAddr,
			ID:       uuid.New().ID(),
			WantAck:  false,
			Priority: "RELIABLE",
			Decoded: decodedPayload{
				PortNum: "TEXT_MESSAGE_APP",
				Payload: string(payload),
			},
		},
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding ToRadio envelope: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d%s", m.host, m.port, toRadioEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debugf("sending report to meshtastic node at %s", url)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending to meshtastic node: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("meshtastic node returned status %d", resp.StatusCode)
	}

	log.Infof("report sent to meshtastic node %s", m.host)
	return nil
}
