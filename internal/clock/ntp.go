package clock

import (
	"context"
	"time"

	"github.com/beevik/ntp"
)

// DefaultNTPServer is used when no time server is configured.
const DefaultNTPServer = "pool.ntp.org"

// NTPFetcher fetches wall-clock time from an NTP server.
type NTPFetcher struct {
	Server string
}

// Fetch queries the server once, bounded by the context deadline.
func (f *NTPFetcher) Fetch(ctx context.Context) (time.Time, error) {
	server := f.Server
	if server == "" {
		server = DefaultNTPServer
	}

	opts := ntp.QueryOptions{}
	if deadline, ok := ctx.Deadline(); ok {
		opts.Timeout = time.Until(deadline)
	}

	resp, err := ntp.QueryWithOptions(server, opts)
	if err != nil {
		return time.Time{}, err
	}
	if err := resp.Validate(); err != nil {
		return time.Time{}, err
	}
	return time.Now().Add(resp.ClockOffset), nil
}
