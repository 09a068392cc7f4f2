// Package attr provides the typed attribute values attached to epoch
// records and the path lookup rules used by splitters.
//
// Values are small tagged scalars (int, float, string, bool, time) with a
// deterministic sort order and tolerance-based numeric equality, so that
// repeated tree builds over the same data bucket identically.
package attr
