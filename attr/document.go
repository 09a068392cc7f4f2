package attr

import (
	"sort"
	"strings"
)

// Document is the flat attribute bag of one epoch record. Keys are
// dot-separated paths ("cell.type", "block.params.spot_intensity")
// produced by the ingestion walk.
type Document map[string]Value

// aliases normalizes legacy attribute names, used by older analysis
// scripts, to their current paths before lookup.
var aliases = map[string]string{
	"cellType":     "cell.type",
	"cellLabel":    "cell.label",
	"protocol":     "block.protocol_name",
	"protocolName": "block.protocol_name",
	"displayName":  "epoch.label",
	"startTime":    "epoch.start_time",
	"expName":      "experiment.name",
}

// NormalizePath resolves legacy aliases to the current attribute path.
func NormalizePath(path string) string {
	if p, ok := aliases[path]; ok {
		return p
	}
	return path
}

// Lookup resolves a dot-separated path against the document, applying the
// legacy alias table first. The second return is false when the attribute
// is absent; callers that bucket on the result should treat that as the
// Missing sentinel, not an error.
func (d Document) Lookup(path string) (Value, bool) {
	v, ok := d[NormalizePath(path)]
	if !ok {
		return Missing, false
	}
	return v, true
}

// Set stores a value under the given path.
func (d Document) Set(path string, v Value) { d[path] = v }

// Keys returns the document's paths in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten converts a nested parameter map into single-level entries with
// underscore-joined keys, matching the upstream export convention
// ({"spot": {"intensity": 0.5}} becomes "spot_intensity"). The flattened
// entries are stored under prefix+"."+key in the document.
func (d Document) Flatten(prefix string, params map[string]any) {
	flattenInto(d, prefix, "", params)
}

func flattenInto(d Document, prefix, sub string, params map[string]any) {
	for k, v := range params {
		key := k
		if sub != "" {
			key = sub + "_" + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(d, prefix, key, nested)
			continue
		}
		d[prefix+"."+key] = FromAny(v)
	}
}

// WithPrefix returns the subset of paths under the given dot-prefix.
func (d Document) WithPrefix(prefix string) []string {
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	var keys []string
	for k := range d {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
