// Package transport delivers outbound reports. Delivery is best-effort:
// a failed delivery is logged and that cycle's report is lost. There is
// no retry queue or store-and-forward.
package transport

import (
	"context"

	"github.com/fieldwx/stationd/internal/log"
	"github.com/fieldwx/stationd/internal/report"
)

// Transport delivers one report per activation.
type Transport interface {
	Deliver(ctx context.Context, r *report.Report) error
}

// Discard is the transport used when no delivery target is configured.
type Discard struct{}

func (Discard) Deliver(ctx context.Context, r *report.Report) error {
	log.Warn("no transport configured, dropping report")
	return nil
}
