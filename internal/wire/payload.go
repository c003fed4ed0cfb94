package wire

import "fmt"

// ErrInvalidPayload is returned by the Decode* functions when a required
// field is missing or of the wrong dynamic type.
type ErrInvalidPayload struct {
	Field string
}

func (e *ErrInvalidPayload) Error() string {
	return fmt.Sprintf("wire: invalid payload field %q", e.Field)
}

// --- generic extraction helpers over the untyped map produced by decodeEnvelope ---

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asString(m map[string]interface{}, k string) (string, bool) {
	v, ok := m[k]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func asBool(m map[string]interface{}, k string) (bool, bool) {
	v, ok := m[k]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// asUint64 tolerates the several numeric representations msgp.ReadIntfBytes
// may produce for an integer (int64 for signed-encoded small ints, uint64
// for large unsigned ones).
func asUint64(m map[string]interface{}, k string) (uint64, bool) {
	v, ok := m[k]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}

func asFloat64(m map[string]interface{}, k string) (float64, bool) {
	v, ok := m[k]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asStringSlice(m map[string]interface{}, k string) ([]string, bool) {
	v, ok := m[k]
	if !ok {
		return nil, true // absent capabilities list is treated as empty, not invalid
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// --- Inbound payloads (plugin -> core) ---

type HelloPayload struct {
	PluginVersion   string
	ProtocolVersion uint8
	Pid             uint32
	Capabilities    []string
}

func DecodeHelloPayload(v interface{}) (HelloPayload, error) {
	m, ok := asMap(v)
	if !ok {
		return HelloPayload{}, &ErrInvalidPayload{Field: "payload"}
	}
	var p HelloPayload
	var ok2 bool
	if p.PluginVersion, ok2 = asString(m, "plugin_version"); !ok2 {
		return HelloPayload{}, &ErrInvalidPayload{Field: "plugin_version"}
	}
	pv, ok3 := asUint64(m, "protocol_version")
	if !ok3 {
		return HelloPayload{}, &ErrInvalidPayload{Field: "protocol_version"}
	}
	p.ProtocolVersion = uint8(pv)
	pid, ok4 := asUint64(m, "pid")
	if !ok4 {
		return HelloPayload{}, &ErrInvalidPayload{Field: "pid"}
	}
	p.Pid = uint32(pid)
	caps, ok5 := asStringSlice(m, "capabilities")
	if !ok5 {
		return HelloPayload{}, &ErrInvalidPayload{Field: "capabilities"}
	}
	p.Capabilities = caps
	return p, nil
}

type PingPayload struct {
	Nonce string
}

func DecodePingPayload(v interface{}) (PingPayload, error) {
	m, ok := asMap(v)
	if !ok {
		return PingPayload{}, &ErrInvalidPayload{Field: "payload"}
	}
	nonce, ok := asString(m, "nonce")
	if !ok {
		return PingPayload{}, &ErrInvalidPayload{Field: "nonce"}
	}
	return PingPayload{Nonce: nonce}, nil
}

type SetModeRequestPayload struct {
	Mode string
}

func DecodeSetModeRequestPayload(v interface{}) (SetModeRequestPayload, error) {
	m, ok := asMap(v)
	if !ok {
		return SetModeRequestPayload{}, &ErrInvalidPayload{Field: "payload"}
	}
	mode, ok := asString(m, "mode")
	if !ok {
		return SetModeRequestPayload{}, &ErrInvalidPayload{Field: "mode"}
	}
	return SetModeRequestPayload{Mode: mode}, nil
}

type SetSettingRequestPayload struct {
	Key   string
	Value bool
}

func DecodeSetSettingRequestPayload(v interface{}) (SetSettingRequestPayload, error) {
	m, ok := asMap(v)
	if !ok {
		return SetSettingRequestPayload{}, &ErrInvalidPayload{Field: "payload"}
	}
	key, ok := asString(m, "key")
	if !ok {
		return SetSettingRequestPayload{}, &ErrInvalidPayload{Field: "key"}
	}
	val, ok := asBool(m, "value")
	if !ok {
		return SetSettingRequestPayload{}, &ErrInvalidPayload{Field: "value"}
	}
	return SetSettingRequestPayload{Key: key, Value: val}, nil
}

type SceneSwitchResultPayload struct {
	RequestID string
	OK        bool
	Error     string
	HasError  bool
}

func DecodeSceneSwitchResultPayload(v interface{}) (SceneSwitchResultPayload, error) {
	m, ok := asMap(v)
	if !ok {
		return SceneSwitchResultPayload{}, &ErrInvalidPayload{Field: "payload"}
	}
	reqID, ok := asString(m, "request_id")
	if !ok {
		return SceneSwitchResultPayload{}, &ErrInvalidPayload{Field: "request_id"}
	}
	okVal, ok := asBool(m, "ok")
	if !ok {
		return SceneSwitchResultPayload{}, &ErrInvalidPayload{Field: "ok"}
	}
	p := SceneSwitchResultPayload{RequestID: reqID, OK: okVal}
	if errStr, present := asString(m, "error"); present {
		p.Error = errStr
		p.HasError = true
	}
	return p, nil
}

type ObsShutdownNoticePayload struct {
	Reason string
}

func DecodeObsShutdownNoticePayload(v interface{}) (ObsShutdownNoticePayload, error) {
	m, ok := asMap(v)
	if !ok {
		return ObsShutdownNoticePayload{}, &ErrInvalidPayload{Field: "payload"}
	}
	reason, ok := asString(m, "reason")
	if !ok {
		return ObsShutdownNoticePayload{}, &ErrInvalidPayload{Field: "reason"}
	}
	return ObsShutdownNoticePayload{Reason: reason}, nil
}

// RequestStatusPayload carries no fields.
type RequestStatusPayload struct{}

func DecodeRequestStatusPayload(v interface{}) (RequestStatusPayload, error) {
	if v == nil {
		return RequestStatusPayload{}, nil
	}
	if _, ok := asMap(v); !ok {
		return RequestStatusPayload{}, &ErrInvalidPayload{Field: "payload"}
	}
	return RequestStatusPayload{}, nil
}

// --- Outbound payloads (core -> plugin) ---

type HelloAckPayload struct {
	CoreVersion     string
	ProtocolVersion uint8
	Capabilities    []string
}

func (p HelloAckPayload) ToMap() map[string]interface{} {
	caps := make([]interface{}, len(p.Capabilities))
	for i, c := range p.Capabilities {
		caps[i] = c
	}
	return map[string]interface{}{
		"core_version":     p.CoreVersion,
		"protocol_version": p.ProtocolVersion,
		"capabilities":     caps,
	}
}

type PongPayload struct {
	Nonce string
}

func (p PongPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{"nonce": p.Nonce}
}

type RelayBlock struct {
	Status                string
	Region                string
	HasRegion            bool
	GraceRemainingSeconds uint32
}

func (r RelayBlock) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"status":                  r.Status,
		"grace_remaining_seconds": r.GraceRemainingSeconds,
	}
	if r.HasRegion {
		m["region"] = r.Region
	} else {
		m["region"] = nil
	}
	return m
}

type StatusSnapshotPayload struct {
	Mode            string
	StateMode       string
	Health          string
	BitrateKbps     uint32
	RttMs           uint32
	OverrideEnabled bool
	Relay           RelayBlock
	Settings        map[string]bool // nil/empty => omitted on the wire
}

func (p StatusSnapshotPayload) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"mode":             p.Mode,
		"state_mode":       p.StateMode,
		"health":           p.Health,
		"bitrate_kbps":     p.BitrateKbps,
		"rtt_ms":           p.RttMs,
		"override_enabled": p.OverrideEnabled,
		"relay":            p.Relay.ToMap(),
	}
	if len(p.Settings) > 0 {
		settings := make(map[string]interface{}, len(p.Settings))
		for k, v := range p.Settings {
			settings[k] = v
		}
		m["settings"] = settings
	}
	return m
}

type SwitchScenePayload struct {
	RequestID  string
	SceneName  string
	Reason     string
	DeadlineMs uint32
}

func (p SwitchScenePayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"request_id":  p.RequestID,
		"scene_name":  p.SceneName,
		"reason":      p.Reason,
		"deadline_ms": p.DeadlineMs,
	}
}

type UserNoticePayload struct {
	Level   string
	Message string
}

func (p UserNoticePayload) ToMap() map[string]interface{} {
	return map[string]interface{}{"level": p.Level, "message": p.Message}
}

type ProtocolErrorPayload struct {
	Code             string
	Message          string
	RelatedMessageID string
	HasRelated       bool
}

func (p ProtocolErrorPayload) ToMap() map[string]interface{} {
	m := map[string]interface{}{"code": p.Code, "message": p.Message}
	if p.HasRelated {
		m["related_message_id"] = p.RelatedMessageID
	} else {
		m["related_message_id"] = nil
	}
	return m
}
