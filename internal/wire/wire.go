// Package wire frames serialized cache records so stored bytes are
// self-describing: fixed magic, format version, and the codec that produced
// the body. Anything failing validation decodes as ErrCorrupt and is treated
// by backends as a miss.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const version byte = 1

// Codec identifies the serialization of the record body.
type Codec byte

const (
	CodecMsgpack Codec = 1
	CodecCBOR    Codec = 2
	CodecJSON    Codec = 3
)

var (
	ErrCorrupt = errors.New("artifactcache: corrupt record")
	magic4     = [...]byte{'A', 'R', 'T', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

func validCodec(c byte) bool {
	return c >= byte(CodecMsgpack) && c <= byte(CodecJSON)
}

// Encode frames body: magic(4) | ver(1) | codec(1) | blen(u32 be) | body(blen)
func Encode(c Codec, body []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 4 + len(body))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(byte(c))

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], uint32(len(body)))
	buf.Write(u4[:])

	buf.Write(body)
	return buf.Bytes()
}

// Decode validates the frame and returns the codec and body.
// The body slices into b (zero-copy). Trailing bytes are rejected.
func Decode(b []byte) (Codec, []byte, error) {
	const hdr = 4 + 1 + 1 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || !validCodec(b[5]) {
		return 0, nil, ErrCorrupt
	}

	blen := int(binary.BigEndian.Uint32(b[6:10]))
	if blen < 0 || blen != len(b)-hdr { // overflow-safe bound check
		return 0, nil, ErrCorrupt
	}
	return Codec(b[5]), b[hdr : hdr+blen], nil
}
