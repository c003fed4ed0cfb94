package snapshot

import (
	"testing"

	"github.com/driftwoodav/obsbridge/internal/overrides"
	"github.com/driftwoodav/obsbridge/internal/relay"
	"github.com/driftwoodav/obsbridge/internal/telemetry"
)

// S3: request-status with no relay.
func TestBuild_StudioNoRelay(t *testing.T) {
	frame := telemetry.Frame{
		Obs:     telemetry.ObsFrame{Connected: true},
		Network: telemetry.NetworkFrame{LatencyMs: 42.0},
		Streams: []telemetry.StreamOutput{{BitrateKbps: 2222}},
	}
	snap := Build(frame, nil, overrides.New())
	if snap.Mode != "studio" || snap.StateMode != "studio" {
		t.Fatalf("unexpected mode/state: %+v", snap)
	}
	if snap.BitrateKbps != 2222 {
		t.Fatalf("unexpected bitrate: %d", snap.BitrateKbps)
	}
	if snap.RttMs != 42 {
		t.Fatalf("unexpected rtt: %d", snap.RttMs)
	}
	if snap.Relay.Status != "inactive" || snap.Relay.HasRegion || snap.Relay.GraceRemainingSeconds != 0 {
		t.Fatalf("unexpected relay block: %+v", snap.Relay)
	}
}

// S4: irl-grace derivation.
func TestBuild_IrlGrace(t *testing.T) {
	frame := telemetry.Frame{
		Health:  0.9,
		Obs:     telemetry.ObsFrame{Connected: true},
		Network: telemetry.NetworkFrame{LatencyMs: 72.4},
		Streams: []telemetry.StreamOutput{{BitrateKbps: 4500}},
	}
	rs := &relay.Session{
		Status:    relay.StatusGrace,
		Region:    "us-west-2",
		HasRegion: true,
		Timers:    &relay.Timers{GraceRemainingSeconds: 321},
	}
	snap := Build(frame, rs, overrides.New())
	if snap.Mode != "irl" || snap.StateMode != "irl_grace" {
		t.Fatalf("unexpected mode/state: %+v", snap)
	}
	if snap.Relay.Status != "grace" || snap.Relay.Region != "us-west-2" || snap.Relay.GraceRemainingSeconds != 321 {
		t.Fatalf("unexpected relay block: %+v", snap.Relay)
	}
	if snap.BitrateKbps != 4500 || snap.RttMs != 72 {
		t.Fatalf("unexpected bitrate/rtt: %+v", snap)
	}
}

// Invariant 8: state_mode=degraded iff obs_connected=false.
func TestBuild_DegradedIffDisconnected(t *testing.T) {
	frame := telemetry.Frame{Obs: telemetry.ObsFrame{Connected: false}}
	snap := Build(frame, &relay.Session{Status: relay.StatusActive}, overrides.New())
	if snap.StateMode != StateDegraded {
		t.Fatalf("expected degraded when disconnected, got %s", snap.StateMode)
	}

	frame.Obs.Connected = true
	snap = Build(frame, nil, overrides.New())
	if snap.StateMode == StateDegraded {
		t.Fatalf("did not expect degraded when connected")
	}
}

// Invariant 9: saturating bitrate aggregation never wraps.
func TestBuild_BitrateSaturatesInsteadOfWrapping(t *testing.T) {
	frame := telemetry.Frame{
		Obs: telemetry.ObsFrame{Connected: true},
		Streams: []telemetry.StreamOutput{
			{BitrateKbps: 4000000000},
			{BitrateKbps: 4000000000},
		},
	}
	snap := Build(frame, nil, overrides.New())
	if snap.BitrateKbps != 4294967295 {
		t.Fatalf("expected saturation at uint32 max, got %d", snap.BitrateKbps)
	}
}

func TestBuild_ModeOverrideWins(t *testing.T) {
	frame := telemetry.Frame{Obs: telemetry.ObsFrame{Connected: true}}
	ov := overrides.New()
	ov.SetMode(overrides.ModeIrl)
	snap := Build(frame, nil, ov)
	if snap.Mode != "irl" {
		t.Fatalf("expected override to win, got mode=%s", snap.Mode)
	}
	// state_mode itself is not overridden, only mode.
	if snap.StateMode != StateStudio {
		t.Fatalf("expected state_mode unaffected by override, got %s", snap.StateMode)
	}
}

func TestBuild_HealthBuckets(t *testing.T) {
	cases := []struct {
		connected bool
		health    float32
		want      string
	}{
		{false, 0.9, HealthOffline},
		{true, 0.2, HealthDegraded},
		{true, 0.8, HealthGood},
	}
	for _, c := range cases {
		frame := telemetry.Frame{Health: c.health, Obs: telemetry.ObsFrame{Connected: c.connected}}
		snap := Build(frame, nil, overrides.New())
		if snap.Health != c.want {
			t.Fatalf("health(%v,%v) = %s, want %s", c.connected, c.health, snap.Health, c.want)
		}
	}
}
