package cache

import (
	"encoding/json"

	"github.com/golang/snappy"

	bserrors "github.com/brainscore/brainscore/internal/errors"
)

// Encode serializes v as snappy-compressed JSON.
func Encode(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, bserrors.NewCacheError(bserrors.CodeCodecFailed, "failed to encode value", err)
	}
	return snappy.Encode(nil, raw), nil
}

// Decode reverses Encode into v.
func Decode(data []byte, v interface{}) error {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return bserrors.NewCacheError(bserrors.CodeCodecFailed, "failed to decompress value", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return bserrors.NewCacheError(bserrors.CodeCodecFailed, "failed to decode value", err)
	}
	return nil
}
