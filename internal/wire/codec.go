package wire

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// encodeEnvelope serializes env as a 6-field MessagePack map. The payload
// field is appended generically via msgp.AppendIntf, which understands the
// plain Go value trees (map[string]interface{}, []interface{}, scalars)
// produced by ToMap() on the payload types in payload.go.
func encodeEnvelope(env *Envelope) ([]byte, error) {
	b := make([]byte, 0, 256)
	b = msgp.AppendMapHeader(b, 6)

	b = msgp.AppendString(b, "version")
	b = msgp.AppendUint8(b, env.Version)

	b = msgp.AppendString(b, "id")
	b = msgp.AppendString(b, env.ID)

	b = msgp.AppendString(b, "timestamp_ms")
	b = msgp.AppendUint64(b, env.TimestampMs)

	b = msgp.AppendString(b, "type")
	b = msgp.AppendString(b, env.Type)

	b = msgp.AppendString(b, "priority")
	b = msgp.AppendString(b, string(env.Priority))

	b = msgp.AppendString(b, "payload")
	var err error
	b, err = msgp.AppendIntf(b, env.mapPayload())
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

// decodeEnvelope parses the envelope fields and leaves Payload as whatever
// msgp.ReadIntfBytes produced — per §4.2, the second decode stage (payload
// type selected by env.Type) happens in payload.go.
func decodeEnvelope(b []byte) (*Envelope, error) {
	sz, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return nil, fmt.Errorf("read envelope map header: %w", err)
	}
	env := &Envelope{}
	for i := uint32(0); i < sz; i++ {
		var key string
		key, b, err = msgp.ReadStringBytes(b)
		if err != nil {
			return nil, fmt.Errorf("read envelope key: %w", err)
		}
		switch key {
		case "version":
			env.Version, b, err = msgp.ReadUint8Bytes(b)
		case "id":
			env.ID, b, err = msgp.ReadStringBytes(b)
		case "timestamp_ms":
			env.TimestampMs, b, err = msgp.ReadUint64Bytes(b)
		case "type":
			env.Type, b, err = msgp.ReadStringBytes(b)
		case "priority":
			var p string
			p, b, err = msgp.ReadStringBytes(b)
			env.Priority = Priority(p)
		case "payload":
			env.Payload, b, err = msgp.ReadIntfBytes(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return nil, fmt.Errorf("read envelope field %q: %w", key, err)
		}
	}
	return env, nil
}
