package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec := Codec{}
	env := &Envelope{
		Version:     ProtocolVersion,
		ID:          "abc-123",
		TimestampMs: 1700000000000,
		Type:        TypeHello,
		Priority:    PriorityNormal,
		// hello is inbound-only in the real protocol; encode it here via an
		// explicit map the way the plugin side would, to exercise the
		// decode-side DecodeHelloPayload below.
		Payload: map[string]interface{}{
			"plugin_version":   "0.0.3",
			"protocol_version": uint8(1),
			"pid":              uint32(1234),
			"capabilities":     []interface{}{"dock"},
		},
	}

	var buf bytes.Buffer
	if err := codec.WriteEnvelope(&buf, env); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	out, err := codec.ReadEnvelope(&buf)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if out.Version != env.Version || out.ID != env.ID || out.Type != env.Type || out.Priority != env.Priority {
		t.Fatalf("envelope mismatch: %+v", out)
	}
	hello, err := DecodeHelloPayload(out.Payload)
	if err != nil {
		t.Fatalf("DecodeHelloPayload: %v", err)
	}
	if hello.PluginVersion != "0.0.3" || hello.Pid != 1234 || len(hello.Capabilities) != 1 {
		t.Fatalf("hello payload mismatch: %+v", hello)
	}
}

func TestCodec_FrameTooLarge(t *testing.T) {
	codec := Codec{}
	env := &Envelope{
		Version: ProtocolVersion,
		ID:      "x",
		Type:    TypeUserNotice,
		Payload: UserNoticePayload{Level: "info", Message: string(make([]byte, MaxFrameSize+10))}.ToMap(),
	}
	var buf bytes.Buffer
	err := codec.WriteEnvelope(&buf, env)
	if err == nil || !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestCodec_EndOfStream(t *testing.T) {
	codec := Codec{}
	_, err := codec.ReadEnvelope(bytes.NewReader(nil))
	if !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
}

func TestCodec_ShortBodyIsDecodeFailed(t *testing.T) {
	codec := Codec{}
	var buf bytes.Buffer
	buf.Write([]byte{10, 0, 0, 0}) // claims 10 bytes, provides none
	_, err := codec.ReadEnvelope(&buf)
	if !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("expected ErrDecodeFailed, got %v", err)
	}
}

func TestCodec_LengthPrefixOverCapRejectedBeforeReadingBody(t *testing.T) {
	codec := Codec{}
	var buf bytes.Buffer
	over := uint32(MaxFrameSize + 1)
	buf.WriteByte(byte(over))
	buf.WriteByte(byte(over >> 8))
	buf.WriteByte(byte(over >> 16))
	buf.WriteByte(byte(over >> 24))
	_, err := codec.ReadEnvelope(&buf)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}
