// Package portal serves the on-demand configuration UI. A session is
// raised only when the operator asked for one (config button wake or a
// node that has never been configured) and runs for a bounded window, so
// a forgotten browser tab cannot keep the node awake.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fieldwx/stationd/internal/log"
	"github.com/fieldwx/stationd/pkg/config"
)

// DefaultSessionTimeout bounds a portal session. The node goes back to
// sleep when it expires, whether or not anything was saved.
const DefaultSessionTimeout = 300 * time.Second

// Server hosts one configuration session.
type Server struct {
	provider config.Provider
	addr     string
	timeout  time.Duration

	saved chan struct{}
}

// NewServer creates a portal bound to addr, saving through provider.
// The provider must be writable.
func NewServer(provider config.Provider, addr string, timeout time.Duration) (*Server, error) {
	if provider.IsReadOnly() {
		return nil, errors.New("config portal requires a writable config backend")
	}
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &Server{
		provider: provider,
		addr:     addr,
		timeout:  timeout,
		saved:    make(chan struct{}, 1),
	}, nil
}

// Run serves one session. It returns when configuration was saved, the
// session timeout expired, or ctx was canceled. A save ends the session
// early so the node can get back to sleep.
func (s *Server) Run(ctx context.Context) error {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
	router.HandleFunc("/config", s.handlePostConfig).Methods(http.MethodPost)

	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("starting config portal listener: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Infof("config portal listening on %s for up to %s", listener.Addr(), s.timeout)

	var reason string
	select {
	case <-time.After(s.timeout):
		reason = "session timeout"
	case <-s.saved:
		reason = "configuration saved"
	case <-ctx.Done():
		reason = "canceled"
	case err := <-errCh:
		return fmt.Errorf("config portal server: %w", err)
	}

	log.Infof("config portal session ending: %s", reason)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down config portal: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := s.provider.LoadConfig()
	if err != nil {
		http.Error(w, "loading configuration failed", http.StatusInternalServerError)
		log.Errorf("portal: loading config: %v", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, snap); err != nil {
		log.Errorf("portal: rendering index: %v", err)
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	snap, err := s.provider.LoadConfig()
	if err != nil {
		http.Error(w, "loading configuration failed", http.StatusInternalServerError)
		log.Errorf("portal: loading config: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Errorf("portal: encoding config: %v", err)
	}
}

func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	var snap config.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, fmt.Sprintf("invalid configuration payload: %v", err), http.StatusBadRequest)
		return
	}

	config.Normalize(&snap)

	if err := s.provider.SaveConfig(&snap); err != nil {
		http.Error(w, "saving configuration failed", http.StatusInternalServerError)
		log.Errorf("portal: saving config: %v", err)
		return
	}

	log.Infof("portal: configuration saved, device %s, sleep %d min",
		snap.Station.DeviceName, snap.Station.SleepMinutes)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "saved"})

	// Non-blocking: only the first save needs to end the session.
	select {
	case s.saved <- struct{}{}:
	default:
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Station.DeviceName}} configuration</title></head>
<body>
<h1>{{.Station.DeviceName}}</h1>
<p>Station configuration. Changes take effect on the next wake cycle.</p>
<form id="cfg">
  <label>Device name <input name="device_name" value="{{.Station.DeviceName}}"></label><br>
  <label>Sleep minutes (1-360) <input name="sleep_minutes" type="number" value="{{.Station.SleepMinutes}}"></label><br>
  <label>CPU MHz (80 or 160) <input name="cpu_freq_mhz" type="number" value="{{.Station.CPUFreqMHz}}"></label><br>
  <label>Rain mm per tip (0.1-5.0) <input name="rain_mm_per_tip" type="number" step="0.01" value="{{.Station.RainMmPerTip}}"></label><br>
  <label>Sensor <input name="sensor_kind" value="{{.Station.SensorKind}}"></label><br>
  <button type="submit">Save</button>
</form>
<script>
document.getElementById("cfg").addEventListener("submit", async function(e) {
  e.preventDefault();
  const f = new FormData(e.target);
  const resp = await fetch("/config");
  const cfg = await resp.json();
  cfg.station.device_name = f.get("device_name");
  cfg.station.sleep_minutes = parseInt(f.get("sleep_minutes"), 10);
  cfg.station.cpu_freq_mhz = parseInt(f.get("cpu_freq_mhz"), 10);
  cfg.station.rain_mm_per_tip = parseFloat(f.get("rain_mm_per_tip"));
  cfg.station.sensor_kind = f.get("sensor_kind");
  const save = await fetch("/config", {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(cfg)});
  document.body.innerHTML = save.ok ? "<p>Saved. The node is going back to sleep.</p>" : "<p>Save failed.</p>";
});
</script>
</body>
</html>
`))
