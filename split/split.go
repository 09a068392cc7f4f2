// Package split defines the grouping functions used to partition epochs
// into tree branches.
//
// A Splitter is a closed union of the two supported shapes: a named
// attribute path resolved against the record's attribute document, or an
// arbitrary pure function of the record. Both are evaluated through the
// same dispatch point, so the tree builder never inspects which shape it
// was given.
package split

import (
	"errors"
	"fmt"

	"github.com/hupe1980/epictree/attr"
	"github.com/hupe1980/epictree/store"
)

// Func is a pure grouping function. It must return the same bucket value
// for the same record on every call; returning attr.Missing buckets the
// record under the missing sentinel.
type Func func(store.Record) attr.Value

// Splitter buckets epochs by a derived scalar key.
type Splitter struct {
	key  string
	path string
	fn   Func
}

// ByPath creates a splitter that groups on a dot-separated attribute path
// ("cell.type", "block.params.spot_intensity"). Legacy aliases are
// normalized at evaluation time.
func ByPath(path string) Splitter {
	return Splitter{key: attr.NormalizePath(path), path: attr.NormalizePath(path)}
}

// ByFunc creates a splitter that groups on an arbitrary function of the
// record. The name is used for node labels and diagnostics only.
func ByFunc(name string, fn Func) Splitter {
	return Splitter{key: name, fn: fn}
}

// Key returns the splitter's label (the attribute path, or the function
// name).
func (s Splitter) Key() string { return s.key }

// Validate reports a programmer error in the splitter definition. A blank
// path or nil function is unresolvable and must fail the build up front
// rather than silently bucketing everything together.
func (s Splitter) Validate() error {
	if s.fn == nil && s.path == "" {
		return errors.New("unresolvable splitter: empty attribute path and no function")
	}
	if s.fn != nil && s.key == "" {
		return errors.New("unresolvable splitter: function splitter without a name")
	}
	return nil
}

// Eval returns the bucket value for the record. Records lacking the
// requested attribute yield the missing sentinel, never an error.
func (s Splitter) Eval(r store.Record) attr.Value {
	if s.fn != nil {
		return s.fn(r)
	}
	v, _ := r.Attr(s.path)
	return v
}

// String implements fmt.Stringer.
func (s Splitter) String() string {
	if s.fn != nil {
		return fmt.Sprintf("func(%s)", s.key)
	}
	return fmt.Sprintf("path(%s)", s.key)
}
