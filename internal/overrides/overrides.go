// Package overrides implements the per-session mode and boolean-setting
// overrides described in §4.5: idempotent transitions with explicit change
// detection so the session loop can suppress redundant outbound traffic.
package overrides

import "fmt"

// Mode is the plugin-settable studio/irl override.
type Mode string

const (
	ModeStudio Mode = "studio"
	ModeIrl    Mode = "irl"
)

// ErrUnknownKey is returned by SetSetting for any key outside the known set.
type ErrUnknownKey struct {
	Key string
}

func (e *ErrUnknownKey) Error() string { return fmt.Sprintf("overrides: unknown setting key %q", e.Key) }

// Known boolean setting keys, exact wire strings (§4.5).
const (
	KeyAutoSceneSwitch   = "auto_scene_switch"
	KeyLowQualityFallback = "low_quality_fallback"
	KeyManualOverride    = "manual_override"
	KeyChatBot           = "chat_bot"
	KeyAlerts            = "alerts"
)

// Overrides holds one session's plugin-supplied preferences. All fields
// start unset (nil); zero value is ready to use.
type Overrides struct {
	mode                *Mode
	autoSceneSwitch     *bool
	lowQualityFallback  *bool
	manualOverride      *bool
	chatBot             *bool
	alerts              *bool
}

// New returns an empty Overrides with nothing set.
func New() *Overrides { return &Overrides{} }

// SetMode updates the mode override if it differs from the current value
// (or is not yet set), reporting whether anything changed.
func (o *Overrides) SetMode(m Mode) (changed bool) {
	if o.mode != nil && *o.mode == m {
		return false
	}
	o.mode = &m
	return true
}

// Mode returns the current mode override and whether it is set.
func (o *Overrides) Mode() (Mode, bool) {
	if o.mode == nil {
		return "", false
	}
	return *o.mode, true
}

// SetSetting applies a known boolean setting, returning whether it changed.
// An unknown key yields ErrUnknownKey, which the session loop surfaces as
// protocol_error{invalid_payload}.
func (o *Overrides) SetSetting(key string, value bool) (changed bool, err error) {
	field := o.fieldFor(key)
	if field == nil {
		return false, &ErrUnknownKey{Key: key}
	}
	if *field != nil && **field == value {
		return false, nil
	}
	*field = &value
	return true, nil
}

func (o *Overrides) fieldFor(key string) **bool {
	switch key {
	case KeyAutoSceneSwitch:
		return &o.autoSceneSwitch
	case KeyLowQualityFallback:
		return &o.lowQualityFallback
	case KeyManualOverride:
		return &o.manualOverride
	case KeyChatBot:
		return &o.chatBot
	case KeyAlerts:
		return &o.alerts
	default:
		return nil
	}
}

// ManualOverride reports the manual_override setting, defaulting to false
// when unset (used by the snapshot builder's override_enabled field).
func (o *Overrides) ManualOverride() bool {
	if o.manualOverride == nil {
		return false
	}
	return *o.manualOverride
}

// SetSettings returns the set boolean overrides as a map, keyed by their
// wire names, for the snapshot builder's optional settings block. Returns
// nil (not an empty map) when nothing is set.
func (o *Overrides) SetSettings() map[string]bool {
	out := map[string]bool{}
	add := func(key string, v *bool) {
		if v != nil {
			out[key] = *v
		}
	}
	add(KeyAutoSceneSwitch, o.autoSceneSwitch)
	add(KeyLowQualityFallback, o.lowQualityFallback)
	add(KeyManualOverride, o.manualOverride)
	add(KeyChatBot, o.chatBot)
	add(KeyAlerts, o.alerts)
	if len(out) == 0 {
		return nil
	}
	return out
}
