// Package codec encodes events and snapshots for storage and transport.
package codec

import "encoding/json"

// Codec encodes events and snapshots.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, out any) error
	// ContentType names the encoding on transports that carry it, such as bus metadata.
	ContentType() string
}

// JSON is the default codec of stores and the event bus.
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(b []byte, out any) error {
	return json.Unmarshal(b, out)
}

func (jsonCodec) ContentType() string {
	return "application/json"
}
