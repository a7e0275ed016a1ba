package codec

import "encoding/json"

// JSON serializes values as JSON. Slower and larger than Msgpack, but records
// on disk stay greppable; useful when debugging a local cache directory.
// Note that []byte fields are base64 strings under JSON.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
