package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EpochIndex is the dense, process-local index of an epoch in the canonical
// store. It is assigned once at ingestion and is never persisted; use
// StableID for anything that outlives the process.
type EpochIndex int

// StableID is the externally durable identifier of a record, typically the
// acquisition system's per-object UUID. It is empty for legacy data that
// predates stable identifiers.
type StableID string

// IsZero reports whether the identifier is absent.
func (id StableID) IsZero() bool { return id == "" }

// SignalRef locates out-of-line channel payload in an external trace bundle.
type SignalRef struct {
	// File names the bundle blob holding the trace.
	File string `json:"file"`
	// Path is the trace's path within the bundle.
	Path string `json:"path"`
}

// IsZero reports whether the reference is absent.
func (r SignalRef) IsZero() bool { return r.File == "" && r.Path == "" }

// String returns a string representation of the reference.
func (r SignalRef) String() string {
	return fmt.Sprintf("Ref(%s:%s)", r.File, r.Path)
}

// SampleRate is a sampling frequency in Hz. On the wire it may appear as a
// bare number or as a unit-suffixed string such as "10 kHz"; both decode to
// Hz.
type SampleRate float64

// UnmarshalJSON implements json.Unmarshaler.
func (sr *SampleRate) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		hz, err := ParseSampleRate(s)
		if err != nil {
			return err
		}
		*sr = SampleRate(hz)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*sr = SampleRate(f)
	return nil
}

// ParseSampleRate converts a rate string like "10000", "10000 Hz" or
// "10 kHz" into Hz.
func ParseSampleRate(s string) (float64, error) {
	num := s
	mult := 1.0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' {
			num = s[:i]
			switch strings.TrimSpace(s[i:]) {
			case "", "Hz", "hz":
			case "kHz", "khz":
				mult = 1e3
			case "MHz", "mhz":
				mult = 1e6
			default:
				return 0, fmt.Errorf("unknown sample rate unit %q", strings.TrimSpace(s[i:]))
			}
			break
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed sample rate %q", s)
	}
	return f * mult, nil
}

// Channel is one recorded or applied signal of an epoch. Samples may be
// resident inline, or absent with Ref pointing at a trace bundle for lazy
// loading.
type Channel struct {
	Device     string     `json:"device_name"`
	Units      string     `json:"units,omitempty"`
	SampleRate SampleRate `json:"sample_rate,omitempty"`
	Samples    []float64  `json:"data,omitempty"`
	Ref        SignalRef  `json:"ref,omitzero"`
}

// Resident reports whether the channel payload is already in memory.
func (c *Channel) Resident() bool { return c.Samples != nil }

// Export is the nested document produced by the upstream export pipeline.
// The ingestion walk flattens it into the canonical epoch store; it is
// consumed read-only.
type Export struct {
	FormatVersion string       `json:"format_version"`
	CreatedAt     string       `json:"created_date,omitempty"`
	Experiments   []Experiment `json:"experiments"`
}

// Experiment is the top ingestion level.
type Experiment struct {
	StableID     StableID  `json:"h5_uuid,omitempty"`
	Name         string    `json:"exp_name"`
	Label        string    `json:"label,omitempty"`
	Experimenter string    `json:"experimenter,omitempty"`
	Rig          string    `json:"rig,omitempty"`
	Institution  string    `json:"institution,omitempty"`
	StartTime    time.Time `json:"start_time,omitzero"`
	Cells        []Cell    `json:"cells"`
}

// Cell is one recorded cell within an experiment.
type Cell struct {
	StableID    StableID       `json:"h5_uuid,omitempty"`
	Label       string         `json:"label,omitempty"`
	Type        string         `json:"type,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"`
	EpochGroups []EpochGroup   `json:"epoch_groups"`
}

// EpochGroup is a protocol-level grouping of epoch blocks.
type EpochGroup struct {
	StableID     StableID     `json:"h5_uuid,omitempty"`
	Label        string       `json:"label,omitempty"`
	ProtocolName string       `json:"protocol_name,omitempty"`
	StartTime    time.Time    `json:"start_time,omitzero"`
	EndTime      time.Time    `json:"end_time,omitzero"`
	EpochBlocks  []EpochBlock `json:"epoch_blocks"`
}

// EpochBlock is a run of epochs acquired with fixed protocol parameters.
type EpochBlock struct {
	StableID     StableID       `json:"h5_uuid,omitempty"`
	Label        string         `json:"label,omitempty"`
	ProtocolName string         `json:"protocol_name,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	DataFile     string         `json:"data_file,omitempty"`
	StartTime    time.Time      `json:"start_time,omitzero"`
	EndTime      time.Time      `json:"end_time,omitzero"`
	Epochs       []Epoch        `json:"epochs"`
}

// Epoch is one recorded trial, the atomic analysis unit.
type Epoch struct {
	StableID   StableID       `json:"h5_uuid,omitempty"`
	Label      string         `json:"label,omitempty"`
	StartTime  time.Time      `json:"start_time,omitzero"`
	EndTime    time.Time      `json:"end_time,omitzero"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Responses  []Channel      `json:"responses,omitempty"`
	Stimuli    []Channel      `json:"stimuli,omitempty"`
}
