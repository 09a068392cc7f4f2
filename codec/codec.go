// Package codec centralizes the encoding of persisted structures (mask
// files, bundle indexes).
//
// Codec selection is a compatibility boundary: files written by one codec
// must stay decodable, so persisted formats record no codec-specific
// framing beyond plain JSON documents.
package codec

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Default is the codec used when none is configured explicitly.
var Default Codec = GoJSON{}
