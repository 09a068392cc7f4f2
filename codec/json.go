package codec

import "encoding/json"

// JSON is the standard-library JSON codec: the most portable, lowest
// dependency option for mask files that other tooling (e.g. the import
// side of the export pipeline) also reads.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }
