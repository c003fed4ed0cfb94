// Package snapshot implements the pure derivation of a StatusSnapshot from
// a telemetry frame, an optional relay session, and session overrides
// (§4.6). It has no side effects and no concurrency concerns of its own.
package snapshot

import (
	"math"

	"github.com/driftwoodav/obsbridge/internal/overrides"
	"github.com/driftwoodav/obsbridge/internal/relay"
	"github.com/driftwoodav/obsbridge/internal/telemetry"
	"github.com/driftwoodav/obsbridge/internal/wire"
)

// StateMode values, exact wire strings.
const (
	StateDegraded     = "degraded"
	StateIrlConnecting = "irl_connecting"
	StateIrlActive    = "irl_active"
	StateIrlGrace     = "irl_grace"
	StateStudio       = "studio"
)

// Health buckets, exact wire strings.
const (
	HealthOffline  = "offline"
	HealthDegraded = "degraded"
	HealthGood     = "good"
)

// Build derives the outbound status_snapshot payload. relaySession may be
// nil (no relay collaborator attached yet).
func Build(frame telemetry.Frame, relaySession *relay.Session, ov *overrides.Overrides) wire.StatusSnapshotPayload {
	stateMode := deriveStateMode(frame, relaySession)
	mode := deriveMode(stateMode, ov)
	health := deriveHealth(frame)
	bitrate := aggregateBitrate(frame)
	rtt := roundRTT(frame.Network.LatencyMs)
	relayBlock := deriveRelayBlock(relaySession)

	return wire.StatusSnapshotPayload{
		Mode:            mode,
		StateMode:       stateMode,
		Health:          health,
		BitrateKbps:     bitrate,
		RttMs:           rtt,
		OverrideEnabled: ov.ManualOverride(),
		Relay:           relayBlock,
		Settings:        ov.SetSettings(),
	}
}

func deriveStateMode(frame telemetry.Frame, rs *relay.Session) string {
	if !frame.Obs.Connected {
		return StateDegraded
	}
	if rs != nil {
		switch rs.Status {
		case relay.StatusProvisioning:
			return StateIrlConnecting
		case relay.StatusActive:
			return StateIrlActive
		case relay.StatusGrace:
			return StateIrlGrace
		}
	}
	return StateStudio
}

func deriveMode(stateMode string, ov *overrides.Overrides) string {
	wantIrl := stateMode == StateIrlConnecting || stateMode == StateIrlActive || stateMode == StateIrlGrace
	derived := string(overrides.ModeStudio)
	if wantIrl {
		derived = string(overrides.ModeIrl)
	}
	if m, ok := ov.Mode(); ok {
		return string(m)
	}
	return derived
}

func deriveHealth(frame telemetry.Frame) string {
	if !frame.Obs.Connected {
		return HealthOffline
	}
	if frame.Health < 0.5 {
		return HealthDegraded
	}
	return HealthGood
}

// aggregateBitrate sums stream bitrates, saturating at math.MaxUint32
// instead of wrapping (invariant 9, §8).
func aggregateBitrate(frame telemetry.Frame) uint32 {
	var sum uint64
	for _, s := range frame.Streams {
		sum += uint64(s.BitrateKbps)
		if sum > math.MaxUint32 {
			return math.MaxUint32
		}
	}
	return uint32(sum)
}

// roundRTT rounds half-away-from-zero, clamps at 0, and truncates to
// unsigned 32-bit, per §4.6.
func roundRTT(latencyMs float32) uint32 {
	if latencyMs <= 0 {
		return 0
	}
	rounded := math.Floor(float64(latencyMs) + 0.5)
	if rounded < 0 {
		return 0
	}
	if rounded > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(rounded)
}

func deriveRelayBlock(rs *relay.Session) wire.RelayBlock {
	if rs == nil {
		return wire.RelayBlock{Status: "inactive"}
	}
	status := string(rs.Status)
	switch rs.Status {
	case relay.StatusProvisioning, relay.StatusActive, relay.StatusGrace:
		// recognized, pass through as-is
	default:
		status = "inactive"
	}
	block := wire.RelayBlock{Status: status}
	if rs.HasRegion {
		block.Region = rs.Region
		block.HasRegion = true
	}
	if rs.Timers != nil {
		block.GraceRemainingSeconds = rs.Timers.GraceRemainingSeconds
	}
	return block
}
