package backend

import (
	"fmt"

	"github.com/fraware/artifactcache/codec"
	"github.com/fraware/artifactcache/internal/wire"
)

// Codec bodies per wire id. Records are self-describing: Decode dispatches on
// the id embedded in the frame, so a store written under one serialization
// setting stays readable after the setting changes.
var bodyCodecs = map[wire.Codec]codec.Codec[Entry]{
	wire.CodecMsgpack: codec.Msgpack[Entry]{},
	wire.CodecCBOR:    codec.MustCBOR[Entry](true),
	wire.CodecJSON:    codec.JSON[Entry]{},
}

// EncodeRecord serializes e with the codec identified by c and frames it.
// c == 0 selects msgpack.
func EncodeRecord(c wire.Codec, e *Entry) ([]byte, error) {
	if c == 0 {
		c = wire.CodecMsgpack
	}
	bc, ok := bodyCodecs[c]
	if !ok {
		return nil, fmt.Errorf("artifactcache: unknown record codec %d", c)
	}
	body, err := bc.Encode(*e)
	if err != nil {
		return nil, err
	}
	return wire.Encode(c, body), nil
}

// DecodeRecord validates the frame and decodes the body with the codec the
// record declares. maxBody > 0 bounds the accepted body size.
func DecodeRecord(b []byte, maxBody int) (*Entry, error) {
	c, body, err := wire.Decode(b)
	if err != nil {
		return nil, err
	}
	lim := codec.Limit[Entry]{Inner: bodyCodecs[c], MaxDecode: maxBody}
	e, err := lim.Decode(body)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
