package utils

import (
	"bytes"
	"encoding/json"
)

// DecodeStrict decodes JSON data into out and rejects unknown fields.
func DecodeStrict(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
