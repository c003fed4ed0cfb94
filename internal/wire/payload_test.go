package wire

import "testing"

func TestDecodeSetSettingRequestPayload(t *testing.T) {
	p, err := DecodeSetSettingRequestPayload(map[string]interface{}{
		"key":   "chat_bot",
		"value": true,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Key != "chat_bot" || !p.Value {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodeSetSettingRequestPayload_MissingKey(t *testing.T) {
	_, err := DecodeSetSettingRequestPayload(map[string]interface{}{"value": true})
	if err == nil {
		t.Fatalf("expected error for missing key")
	}
}

func TestDecodeSceneSwitchResultPayload_WithoutError(t *testing.T) {
	p, err := DecodeSceneSwitchResultPayload(map[string]interface{}{
		"request_id": "r1",
		"ok":         true,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.HasError || p.Error != "" {
		t.Fatalf("expected no error field, got %+v", p)
	}
}

func TestDecodeSceneSwitchResultPayload_WithError(t *testing.T) {
	p, err := DecodeSceneSwitchResultPayload(map[string]interface{}{
		"request_id": "r1",
		"ok":         false,
		"error":      "scene not found",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.HasError || p.Error != "scene not found" {
		t.Fatalf("expected error field, got %+v", p)
	}
}

func TestStatusSnapshotPayload_ToMap_OmitsEmptySettings(t *testing.T) {
	p := StatusSnapshotPayload{Mode: "studio", StateMode: "studio", Health: "good"}
	m := p.ToMap()
	if _, present := m["settings"]; present {
		t.Fatalf("expected settings to be omitted when empty")
	}
}

func TestStatusSnapshotPayload_ToMap_IncludesSetSettings(t *testing.T) {
	p := StatusSnapshotPayload{Settings: map[string]bool{"chat_bot": true}}
	m := p.ToMap()
	settings, ok := m["settings"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected settings map, got %v", m["settings"])
	}
	if settings["chat_bot"] != true {
		t.Fatalf("unexpected settings: %v", settings)
	}
}

func TestRelayBlock_ToMap_NoRegionIsNil(t *testing.T) {
	m := RelayBlock{Status: "inactive"}.ToMap()
	if m["region"] != nil {
		t.Fatalf("expected nil region, got %v", m["region"])
	}
}
