// Package codec serializes values V to []byte for storage. Backends use a
// Codec to turn cache records into bytes before framing them; which codec
// wrote a record is captured in the frame, not here.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
