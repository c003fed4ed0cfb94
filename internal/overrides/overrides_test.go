package overrides

import "testing"

func TestOverrides_SetModeIdempotent(t *testing.T) {
	o := New()
	if changed := o.SetMode(ModeIrl); !changed {
		t.Fatalf("expected first set to change")
	}
	if changed := o.SetMode(ModeIrl); changed {
		t.Fatalf("expected repeated identical set to be a no-op")
	}
	if changed := o.SetMode(ModeStudio); !changed {
		t.Fatalf("expected differing value to change")
	}
}

func TestOverrides_SetSetting_UnknownKey(t *testing.T) {
	o := New()
	_, err := o.SetSetting("not_a_real_key", true)
	var unknown *ErrUnknownKey
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !asUnknownKey(err, &unknown) {
		t.Fatalf("expected ErrUnknownKey, got %T: %v", err, err)
	}
}

func asUnknownKey(err error, target **ErrUnknownKey) bool {
	e, ok := err.(*ErrUnknownKey)
	if ok {
		*target = e
	}
	return ok
}

func TestOverrides_SetSetting_Idempotent(t *testing.T) {
	o := New()
	changed, err := o.SetSetting(KeyChatBot, true)
	if err != nil || !changed {
		t.Fatalf("expected first set to change, err=%v changed=%v", err, changed)
	}
	changed, err = o.SetSetting(KeyChatBot, true)
	if err != nil || changed {
		t.Fatalf("expected repeated identical set to be a no-op, err=%v changed=%v", err, changed)
	}
}

func TestOverrides_ManualOverrideDefaultsFalse(t *testing.T) {
	o := New()
	if o.ManualOverride() {
		t.Fatalf("expected default false")
	}
	if _, err := o.SetSetting(KeyManualOverride, true); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if !o.ManualOverride() {
		t.Fatalf("expected true after setting")
	}
}

func TestOverrides_SetSettingsNilWhenEmpty(t *testing.T) {
	o := New()
	if s := o.SetSettings(); s != nil {
		t.Fatalf("expected nil settings map, got %v", s)
	}
	o.SetSetting(KeyAlerts, false)
	if s := o.SetSettings(); len(s) != 1 || s[KeyAlerts] != false {
		t.Fatalf("unexpected settings: %v", s)
	}
}
