package attr

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Epsilon is the absolute tolerance used for float equality during bucket
// grouping and value matching. The constant is carried over from the
// original analysis tooling; it is not scale-aware, so values many orders
// of magnitude away from 1 may merge or separate unexpectedly.
const Epsilon = 1e-10

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindMissing marks an attribute that is absent on a record. Missing
	// values are valid bucket keys and sort after every present value.
	KindMissing Kind = iota
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindTime represents a timestamp value.
	KindTime
)

// Value is a small typed scalar used for epoch attributes and splitter
// bucket keys.
//
// The representation is designed to make grouping fast and predictable:
// no reflection and no fmt-based stringification on hot paths.
type Value struct {
	kind Kind
	i64  int64
	f64  float64
	str  string
	b    bool
	t    time.Time
}

// Missing is the sentinel for an absent attribute.
var Missing = Value{kind: KindMissing}

// Int constructs an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i64: v} }

// Float constructs a float value.
func Float(v float64) Value { return Value{kind: KindFloat, f64: v} }

// String constructs a string value.
func String(v string) Value { return Value{kind: KindString, str: v} }

// Bool constructs a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Time constructs a timestamp value.
func Time(v time.Time) Value { return Value{kind: KindTime, t: v} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is the missing sentinel.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Int64 returns the integer value, or 0 for other kinds.
func (v Value) Int64() int64 { return v.i64 }

// Float64 returns the numeric value as a float for KindInt and KindFloat.
func (v Value) Float64() float64 {
	if v.kind == KindInt {
		return float64(v.i64)
	}
	return v.f64
}

// Str returns the string value, or "" for other kinds.
func (v Value) Str() string { return v.str }

// BoolValue returns the boolean value, or false for other kinds.
func (v Value) BoolValue() bool { return v.b }

// TimeValue returns the timestamp value, or the zero time for other kinds.
func (v Value) TimeValue() time.Time { return v.t }

// numeric reports whether the value participates in tolerance-based
// numeric comparison.
func (v Value) numeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Equal reports value equality. Numeric kinds compare with the Epsilon
// absolute tolerance (an int and a float of the same magnitude are equal);
// strings compare case-sensitively; times compare by instant.
func (v Value) Equal(o Value) bool {
	if v.numeric() && o.numeric() {
		return math.Abs(v.Float64()-o.Float64()) <= Epsilon
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindMissing:
		return true
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return false
	}
}

// Compare orders values deterministically for bucket sorting: numerics
// ascending, then booleans (false before true), then strings
// lexicographically, then times chronologically, with missing last.
// Values of different classes order by class.
func (v Value) Compare(o Value) int {
	ca, cb := v.class(), o.class()
	if ca != cb {
		if ca < cb {
			return -1
		}
		return 1
	}
	switch {
	case v.numeric():
		a, b := v.Float64(), o.Float64()
		if math.Abs(a-b) <= Epsilon {
			return 0
		}
		if a < b {
			return -1
		}
		return 1
	case v.kind == KindBool:
		if v.b == o.b {
			return 0
		}
		if !v.b {
			return -1
		}
		return 1
	case v.kind == KindString:
		return strings.Compare(v.str, o.str)
	case v.kind == KindTime:
		return v.t.Compare(o.t)
	default: // missing
		return 0
	}
}

func (v Value) class() int {
	switch v.kind {
	case KindInt, KindFloat:
		return 0
	case KindBool:
		return 1
	case KindString:
		return 2
	case KindTime:
		return 3
	default:
		return 4
	}
}

// Canonical returns a stable, human-readable string form of the value,
// used for node labels and diagnostics.
func (v Value) Canonical() string {
	switch v.kind {
	case KindMissing:
		return "missing"
	case KindInt:
		return strconv.FormatInt(v.i64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case KindString:
		return v.str
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	default:
		return "invalid"
	}
}

// FromAny converts a dynamically typed value (as decoded from upstream
// parameter documents) into a Value. Unsupported types stringify.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Missing
	case Value:
		return x
	case int:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Int(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		// JSON numbers decode as float64; keep exact integers as ints so
		// bucket labels stay clean.
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return Int(int64(x))
		}
		return Float(x)
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case time.Time:
		return Time(x)
	default:
		return String(canonicalAny(v))
	}
}

func canonicalAny(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}
