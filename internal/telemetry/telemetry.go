// Package telemetry holds the wire-adjacent TelemetryFrame record produced
// by the sampler collaborator (out of scope per §1) and the single-slot,
// multi-writer-last-wins cell the session loop reads it from (§5, §9).
//
// The richer Obs/System/Network/StreamOutput fields below are restored from
// the original telemetry model (model/mod.rs in the source project this
// module's specification was distilled from); only a subset
// (Obs.Connected, Health, Network.LatencyMs, Streams[].BitrateKbps) feeds
// the snapshot builder in package snapshot, matching §4.6 exactly.
package telemetry

import "sync/atomic"

type Frame struct {
	TimestampUnixMs uint64
	Health          float32
	Obs             ObsFrame
	System          SystemFrame
	Streams         []StreamOutput
	Network         NetworkFrame
}

type ObsFrame struct {
	Connected             bool
	Streaming             bool
	Recording             bool
	StudioMode            bool
	TotalDroppedFrames    uint64
	TotalFrames           uint64
	RenderMissedFrames    uint32
	RenderTotalFrames     uint32
	OutputSkippedFrames   uint32
	OutputTotalFrames     uint32
	ActiveFPS             float32
	AvailableDiskSpaceMB  float64
}

type SystemFrame struct {
	CPUPercent float32
	MemPercent float32
	GPUPercent *float32
	GPUTempC   *float32
}

type NetworkFrame struct {
	UploadMbps   float32
	DownloadMbps float32
	LatencyMs    float32
}

type StreamOutput struct {
	Name          string
	BitrateKbps   uint32
	DropPct       float32
	FPS           float32
	EncodingLagMs float32
}

// Cell is a single-slot, lock-free latest-value cell: many producers may
// Store concurrently (last write wins, per §9 "latest-value sharing without
// locks on the hot path"), and the session loop's Load never blocks a
// writer.
type Cell struct {
	v atomic.Pointer[Frame]
}

// Store publishes a new frame, replacing whatever was there.
func (c *Cell) Store(f Frame) { c.v.Store(&f) }

// Load returns the most recently stored frame, or the zero value and false
// if nothing has been published yet.
func (c *Cell) Load() (Frame, bool) {
	p := c.v.Load()
	if p == nil {
		return Frame{}, false
	}
	return *p, true
}
