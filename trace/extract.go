package trace

import (
	"context"
	"fmt"

	"github.com/hupe1980/epictree/store"
)

// Extract assembles the data matrix for device across records. Resident
// channels are used directly; non-resident channels are loaded through
// fetcher and cached back onto their records so a later extraction does
// not refetch.
//
// Extraction is strict: a record without a channel for device fails with
// ChannelNotFoundError, and a trace whose length differs from the first
// row fails with LengthMismatchError. Partial matrices are never
// returned.
func Extract(ctx context.Context, records []store.Record, device string, fetcher Fetcher) (*Matrix, error) {
	m := &Matrix{device: device}
	if len(records) == 0 {
		return m, nil
	}

	for _, r := range records {
		ch, ok := r.Channel(device)
		if !ok {
			return nil, &ChannelNotFoundError{Device: device, StableID: r.StableID()}
		}

		samples := ch.Samples
		rate := ch.SampleRate
		units := ch.Units
		if !ch.Resident() {
			if fetcher == nil {
				return nil, ErrNoFetcher
			}
			sig, err := fetcher.Fetch(ctx, ch.Ref)
			if err != nil {
				return nil, fmt.Errorf("fetch %s for epoch %s: %w", ch.Ref, r.StableID(), err)
			}
			samples = sig.Samples
			if sig.SampleRate != 0 {
				rate = sig.SampleRate
			}
			if sig.Units != "" {
				units = sig.Units
			}
			r.Store().CacheSamples(r.Index(), device, samples, rate, units)
		}

		if m.rows == 0 {
			m.cols = len(samples)
			m.sampleRate = rate
			m.units = units
		} else if len(samples) != m.cols {
			return nil, &LengthMismatchError{
				Device:   device,
				StableID: r.StableID(),
				Expected: m.cols,
				Actual:   len(samples),
			}
		}

		m.data = append(m.data, samples...)
		m.stableIDs = append(m.stableIDs, r.StableID())
		m.rows++
	}

	return m, nil
}
