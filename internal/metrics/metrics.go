// Package metrics exposes Prometheus counters and gauges for the bridge
// process, plus a cheap local mirror for logging without re-scraping
// Prometheus in-process. Modeled on the teacher's internal/metrics package.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/driftwoodav/obsbridge/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus series.
var (
	EvtFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evt_frames_sent_total",
		Help: "Total envelopes written to the evt channel.",
	})
	CmdFramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cmd_frames_received_total",
		Help: "Total envelopes read from the cmd channel.",
	})
	ProtocolErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "protocol_errors_total",
		Help: "Total protocol_error frames emitted, by code.",
	}, []string{"code"})
	SessionResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_resets_total",
		Help: "Total sessions torn down after the protocol-error threshold was exceeded.",
	})
	HeartbeatTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "heartbeat_timeouts_total",
		Help: "Total sessions terminated for missing the heartbeat deadline.",
	})
	SwitchSceneAcks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "switch_scene_acks_total",
		Help: "Total scene_switch_result outcomes, by status.",
	}, []string{"status"})
	SwitchSceneTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "switch_scene_timeouts_total",
		Help: "Total pending switch_scene commands that aged out before an ack arrived.",
	})
	BusCommandDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_command_drops_total",
		Help: "Total switch_scene commands dropped because the attached session's queue was full.",
	})
	SessionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_accepted_total",
		Help: "Total plugin sessions accepted on the local transport.",
	})
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_active",
		Help: "1 while a plugin session is attached, 0 otherwise (at most one at a time).",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrAccept      = "accept"
	ErrHandshake   = "handshake"
	ErrCmdRead     = "cmd_read"
	ErrEvtWrite    = "evt_write"
	ErrRelayPoll   = "relay_poll"
	ErrPeerReject  = "peer_reject"
	ErrContext     = "context_cancelled"
)

// StartHTTP serves Prometheus metrics, readiness, and the debug mirror via
// debugHandler (nil skips /debug) on addr.
func StartHTTP(addr string, debugHandler http.HandlerFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	if debugHandler != nil {
		mux.HandleFunc("/debug", debugHandler)
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging without re-scraping Prometheus.
var (
	localEvtSent       uint64
	localCmdReceived   uint64
	localProtocolErrs  uint64
	localSessionResets uint64
	localSwitchAcks    uint64
	localSwitchTimeout uint64
	localBusDrops      uint64
	localErrors        uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	EvtSent       uint64
	CmdReceived   uint64
	ProtocolErrs  uint64
	SessionResets uint64
	SwitchAcks    uint64
	SwitchTimeout uint64
	BusDrops      uint64
	Errors        uint64
}

func Snap() Snapshot {
	return Snapshot{
		EvtSent:       atomic.LoadUint64(&localEvtSent),
		CmdReceived:   atomic.LoadUint64(&localCmdReceived),
		ProtocolErrs:  atomic.LoadUint64(&localProtocolErrs),
		SessionResets: atomic.LoadUint64(&localSessionResets),
		SwitchAcks:    atomic.LoadUint64(&localSwitchAcks),
		SwitchTimeout: atomic.LoadUint64(&localSwitchTimeout),
		BusDrops:      atomic.LoadUint64(&localBusDrops),
		Errors:        atomic.LoadUint64(&localErrors),
	}
}

func IncEvtSent() {
	EvtFramesSent.Inc()
	atomic.AddUint64(&localEvtSent, 1)
}

func IncCmdReceived() {
	CmdFramesReceived.Inc()
	atomic.AddUint64(&localCmdReceived, 1)
}

func IncProtocolError(code string) {
	ProtocolErrors.WithLabelValues(code).Inc()
	atomic.AddUint64(&localProtocolErrs, 1)
}

func IncSessionReset() {
	SessionResets.Inc()
	atomic.AddUint64(&localSessionResets, 1)
}

func IncHeartbeatTimeout() { HeartbeatTimeouts.Inc() }

func IncSwitchSceneAck(status string) {
	SwitchSceneAcks.WithLabelValues(status).Inc()
	atomic.AddUint64(&localSwitchAcks, 1)
}

func IncSwitchSceneTimeout() {
	SwitchSceneTimeouts.Inc()
	atomic.AddUint64(&localSwitchTimeout, 1)
}

func IncBusCommandDrop() {
	BusCommandDrops.Inc()
	atomic.AddUint64(&localBusDrops, 1)
}

func IncSessionAccepted() { SessionsAccepted.Inc() }

func SetSessionActive(active bool) {
	if active {
		SessionsActive.Set(1)
		return
	}
	SessionsActive.Set(0)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers common error
// label series so the first error doesn't pay registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrAccept, ErrHandshake, ErrCmdRead, ErrEvtWrite, ErrRelayPoll, ErrPeerReject} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
