package tree

import (
	"fmt"
	"sort"

	"github.com/hupe1980/epictree/attr"
	"github.com/hupe1980/epictree/split"
	"github.com/hupe1980/epictree/store"
)

// Build partitions the whole store into a hierarchy using the given
// splitter sequence. An empty store yields a valid leaf root with zero
// members; an invalid splitter fails the build immediately.
func Build(s *store.Store, splitters ...split.Splitter) (*Node, error) {
	return BuildFrom(s.Records(), splitters...)
}

// BuildFrom partitions an epoch subset. The records keep their handle
// semantics: leaves alias the store, they do not copy it.
func BuildFrom(records []store.Record, splitters ...split.Splitter) (*Node, error) {
	for _, sp := range splitters {
		if err := sp.Validate(); err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
	}
	root := buildNode(nil, "", attr.Missing, records, splitters)
	root.RefreshSelectionCache()
	return root, nil
}

func buildNode(parent *Node, key string, value attr.Value, records []store.Record, splitters []split.Splitter) *Node {
	n := &Node{
		splitKey:   key,
		splitValue: value,
		parent:     parent,
	}

	if len(splitters) == 0 || len(records) == 0 {
		n.leaf = true
		n.members = sortMembers(records)
		return n
	}

	head, rest := splitters[0], splitters[1:]

	// Bucket by value equality. Floats merge under the grouping tolerance,
	// so near-identical stimulus values land in one bucket instead of two
	// adjacent ones.
	type bucket struct {
		value   attr.Value
		records []store.Record
	}
	var buckets []*bucket
	for _, r := range records {
		v := head.Eval(r)
		var b *bucket
		for _, existing := range buckets {
			if existing.value.Equal(v) {
				b = existing
				break
			}
		}
		if b == nil {
			b = &bucket{value: v}
			buckets = append(buckets, b)
		}
		b.records = append(b.records, r)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].value.Compare(buckets[j].value) < 0
	})

	for _, b := range buckets {
		n.children = append(n.children, buildNode(n, head.Key(), b.value, b.records, rest))
	}
	return n
}

// sortMembers orders leaf members by acquisition start time, keeping the
// incoming order for ties and missing times, so repeated builds of the
// same input produce identical leaves.
func sortMembers(records []store.Record) []store.Record {
	out := make([]store.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime().Before(out[j].StartTime())
	})
	return out
}
