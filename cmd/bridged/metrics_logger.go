package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/driftwoodav/obsbridge/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"evt_sent", snap.EvtSent,
					"cmd_received", snap.CmdReceived,
					"protocol_errors", snap.ProtocolErrs,
					"session_resets", snap.SessionResets,
					"switch_acks", snap.SwitchAcks,
					"switch_timeouts", snap.SwitchTimeout,
					"bus_drops", snap.BusDrops,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
