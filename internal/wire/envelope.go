// Package wire implements the framed MessagePack envelope protocol spoken
// between the core and the plugin: a length-prefixed wire frame carrying a
// versioned envelope whose payload is decoded in two stages (the envelope
// first, the payload once the type tag is known).
package wire

// Priority is advisory and does not alter delivery ordering on this transport.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Message type tags, exact wire strings.
const (
	TypeHello             = "hello"
	TypePing              = "ping"
	TypeRequestStatus     = "request_status"
	TypeSetModeRequest    = "set_mode_request"
	TypeSetSettingRequest = "set_setting_request"
	TypeSceneSwitchResult = "scene_switch_result"
	TypeObsShutdownNotice = "obs_shutdown_notice"

	TypeHelloAck       = "hello_ack"
	TypePong           = "pong"
	TypeStatusSnapshot = "status_snapshot"
	TypeSwitchScene    = "switch_scene"
	TypeUserNotice     = "user_notice"
	TypeProtocolError  = "protocol_error"
)

// Protocol-error codes, exact wire strings (§6).
const (
	CodeFrameTooLarge = "frame_too_large"
	CodeDecodeFailed  = "decode_failed"
	CodeUnknownType   = "unknown_type"
	CodeTimeout       = "timeout"
	CodeInvalidPayload = "invalid_payload"
)

// ProtocolVersion is the only version this core speaks.
const ProtocolVersion uint8 = 1

// Envelope is the outer record carried on both channels.
//
// Payload is left untyped by Decode: it is whatever msgpack produced
// (map[string]interface{}, strings, numbers, slices, nil). Callers decode it
// further via DecodeHelloPayload et al. once Type is known. Encode accepts
// either a concrete payload struct exposing ToMap(), or a plain
// map[string]interface{}.
type Envelope struct {
	Version     uint8
	ID          string
	TimestampMs uint64
	Type        string
	Priority    Priority
	Payload     interface{}
}

// mapPayload returns env.Payload as something AppendIntf can serialize.
func (env *Envelope) mapPayload() interface{} {
	if m, ok := env.Payload.(interface{ ToMap() map[string]interface{} }); ok {
		return m.ToMap()
	}
	return env.Payload
}
