package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/driftwoodav/obsbridge/internal/bus"
	"github.com/driftwoodav/obsbridge/internal/debugmirror"
	"github.com/driftwoodav/obsbridge/internal/discovery"
	"github.com/driftwoodav/obsbridge/internal/introspect"
	"github.com/driftwoodav/obsbridge/internal/listener"
	"github.com/driftwoodav/obsbridge/internal/metrics"
	"github.com/driftwoodav/obsbridge/internal/relay"
	"github.com/driftwoodav/obsbridge/internal/telemetry"
)

// Helper implementations moved to dedicated files: version.go, config.go,
// logger.go, metrics_logger.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("bridged %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(2)
	}

	l := setupLogger(cfg.logFormat, cfg.logLevel)

	if err := os.MkdirAll(cfg.socketDir, 0o700); err != nil {
		l.Error("socket_dir_error", "error", err)
		os.Exit(1)
	}

	commandBus := bus.New(bus.MinBuffer)
	mirror := debugmirror.New(nil)
	telemetryCell := &telemetry.Cell{}
	relayMirror := &relay.Mirror{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	startMetricsLogger(ctx, 10*time.Second, l, &wg)

	if cfg.samplerEnable {
		sampler := &telemetry.Sampler{
			Cell:     telemetryCell,
			Interval: cfg.samplerInterval,
			Next:     syntheticFrame,
		}
		wg.Add(1)
		go func() { defer wg.Done(); sampler.Run(ctx) }()
	}

	if cfg.relayBaseURL != "" {
		rc := &relay.ControlPlaneClient{
			BaseURL:  cfg.relayBaseURL,
			Interval: cfg.relayPollEvery,
			HTTP:     http.DefaultClient,
			Mirror:   relayMirror,
		}
		wg.Add(1)
		go func() { defer wg.Done(); rc.Run(ctx) }()
	}

	listenerReady := make(chan struct{})
	listenerErrCh := make(chan error, 1)
	go func() {
		close(listenerReady) // sockets are bound synchronously inside Serve before it blocks on Accept
		err := listener.Serve(ctx, listener.Config{
			CmdSocketPath:    cfg.cmdSocketPath(),
			EvtSocketPath:    cfg.evtSocketPath(),
			Bus:              commandBus,
			Mirror:           mirror,
			Telemetry:        telemetryCell,
			Relay:            relayMirror,
			CoreVersion:      cfg.coreVersion,
			ReadPollTimeout:  cfg.readPollTO,
			PushInterval:     cfg.pushInterval,
			HeartbeatTimeout: cfg.heartbeatTO,
			HandshakeTimeout: cfg.handshakeTO,
			Logger:           l,
		})
		if err != nil {
			listenerErrCh <- err
		}
	}()

	var httpSrv *http.Server
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		httpSrv = introspect.Start(cfg.metricsAddr, mirror)
		defer func() { _ = httpSrv.Shutdown(context.Background()) }()
	}
	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })

	if cfg.mdnsEnable && cfg.metricsAddr != "" {
		go func() {
			<-listenerReady
			port := portFromAddr(cfg.metricsAddr)
			cleanup, err := discovery.Advertise(ctx, cfg.mdnsName, cfg.coreVersion, port)
			if err != nil {
				l.Warn("mdns_start_failed", "error", err)
				return
			}
			l.Info("mdns_started", "service", discovery.ServiceType, "port", port)
			go func() { <-ctx.Done(); cleanup() }()
		}()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigCh:
		l.Info("shutdown_signal", "signal", s.String())
	case err := <-listenerErrCh:
		l.Error("listener_error", "error", err)
	}
	cancel()
	wg.Wait()
}

// syntheticFrame produces a plausible telemetry frame for local development
// when no real producer is attached (cfg.samplerEnable); it carries no
// correctness obligations per §1.
func syntheticFrame() telemetry.Frame {
	return telemetry.Frame{
		Obs: telemetry.ObsFrame{
			Streaming: true,
			Recording: false,
		},
	}
}

func portFromAddr(addr string) int {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			var port int
			_, _ = fmt.Sscanf(addr[i+1:], "%d", &port)
			return port
		}
	}
	return 0
}
