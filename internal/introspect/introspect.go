// Package introspect implements the local-only HTTP surface described in
// §6: a read-only JSON clone of the debug mirror alongside the metrics and
// readiness endpoints, modeled on the teacher's metrics.StartHTTP.
package introspect

import (
	"encoding/json"
	"net/http"

	"github.com/driftwoodav/obsbridge/internal/debugmirror"
	"github.com/driftwoodav/obsbridge/internal/metrics"
)

// DebugHandler returns an http.HandlerFunc serving GET /debug: a JSON clone
// of the mirror's current state, taken under its lock.
func DebugHandler(m *debugmirror.Mirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.Snapshot())
	}
}

// Start serves /debug, /metrics, and /ready on addr, mirroring
// metrics.StartHTTP with the debug mirror wired in.
func Start(addr string, m *debugmirror.Mirror) *http.Server {
	return metrics.StartHTTP(addr, DebugHandler(m))
}
