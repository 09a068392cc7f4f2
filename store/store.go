package store

import (
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/epictree/attr"
	"github.com/hupe1980/epictree/model"
)

// Store is the canonical, ordered collection of epoch records. It is built
// once per ingestion and owns the per-epoch selection flag; every other
// component holds Record handles into it rather than copies, so a flag
// written anywhere is observed everywhere.
type Store struct {
	records  []epochData
	selected *roaring.Bitmap
}

// epochData is the backing storage of one record. Attributes are immutable
// after ingestion except for lazily resolved channel payload.
type epochData struct {
	stableID  model.StableID
	startTime time.Time
	attrs     attr.Document
	responses []model.Channel
	stimuli   []model.Channel
}

// New ingests the nested export document into a flat store. Epochs within
// each block are ordered by acquisition start time (ties keep export
// order), internal indices are assigned sequentially from 0 and every
// epoch starts selected.
func New(export *model.Export) *Store {
	s := &Store{selected: roaring.New()}
	if export == nil {
		return s
	}
	for i := range export.Experiments {
		exp := &export.Experiments[i]
		for j := range exp.Cells {
			cell := &exp.Cells[j]
			for k := range cell.EpochGroups {
				group := &cell.EpochGroups[k]
				for l := range group.EpochBlocks {
					s.ingestBlock(exp, cell, group, &group.EpochBlocks[l])
				}
			}
		}
	}
	s.selected.AddRange(0, uint64(len(s.records)))
	return s
}

func (s *Store) ingestBlock(exp *model.Experiment, cell *model.Cell, group *model.EpochGroup, block *model.EpochBlock) {
	order := make([]int, len(block.Epochs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return block.Epochs[order[a]].StartTime.Before(block.Epochs[order[b]].StartTime)
	})

	for _, i := range order {
		epoch := &block.Epochs[i]

		doc := attr.Document{}
		putString := func(path, v string) {
			if v != "" {
				doc.Set(path, attr.String(v))
			}
		}
		putString("experiment.name", exp.Name)
		putString("experiment.label", exp.Label)
		putString("experiment.experimenter", exp.Experimenter)
		putString("experiment.rig", exp.Rig)
		putString("experiment.institution", exp.Institution)
		putString("cell.label", cell.Label)
		putString("cell.type", cell.Type)
		doc.Flatten("cell.properties", cell.Properties)
		putString("group.label", group.Label)
		putString("group.protocol_name", group.ProtocolName)
		putString("block.label", block.Label)
		putString("block.protocol_name", block.ProtocolName)
		putString("block.data_file", block.DataFile)
		doc.Flatten("block.params", block.Parameters)
		putString("epoch.label", epoch.Label)
		if !epoch.StartTime.IsZero() {
			doc.Set("epoch.start_time", attr.Time(epoch.StartTime))
		}
		doc.Flatten("epoch.params", epoch.Parameters)

		s.records = append(s.records, epochData{
			stableID:  epoch.StableID,
			startTime: epoch.StartTime,
			attrs:     doc,
			responses: adoptChannels(epoch.Responses, block.DataFile),
			stimuli:   adoptChannels(epoch.Stimuli, block.DataFile),
		})
	}
}

// adoptChannels copies the channel slice and completes partial signal refs
// with the block-level data file, so lazy loading never needs to re-walk
// the export document.
func adoptChannels(chans []model.Channel, dataFile string) []model.Channel {
	if len(chans) == 0 {
		return nil
	}
	out := make([]model.Channel, len(chans))
	copy(out, chans)
	for i := range out {
		if out[i].Ref.Path != "" && out[i].Ref.File == "" {
			out[i].Ref.File = dataFile
		}
	}
	return out
}

// Len returns the number of epochs in canonical order.
func (s *Store) Len() int { return len(s.records) }

// Record returns a handle for the epoch at the given internal index.
func (s *Store) Record(idx model.EpochIndex) Record {
	return Record{s: s, idx: idx}
}

// Records returns handles for all epochs in canonical store order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	for i := range out {
		out[i] = Record{s: s, idx: model.EpochIndex(i)}
	}
	return out
}

// IsSelected reports the inclusion flag of the epoch at idx.
func (s *Store) IsSelected(idx model.EpochIndex) bool {
	return s.selected.Contains(uint32(idx))
}

// SetSelected writes the inclusion flag of the epoch at idx.
func (s *Store) SetSelected(idx model.EpochIndex, v bool) {
	if v {
		s.selected.Add(uint32(idx))
	} else {
		s.selected.Remove(uint32(idx))
	}
}

// SelectedCount returns the number of currently included epochs.
func (s *Store) SelectedCount() int {
	return int(s.selected.GetCardinality())
}

// StableIDs projects the stable identifiers in canonical store order.
// Epochs without an identifier yield the empty id.
func (s *Store) StableIDs() []model.StableID {
	out := make([]model.StableID, len(s.records))
	for i := range s.records {
		out[i] = s.records[i].stableID
	}
	return out
}

// SelectionFlags projects the inclusion flags in canonical store order.
func (s *Store) SelectionFlags() []bool {
	out := make([]bool, len(s.records))
	for i := range out {
		out[i] = s.selected.Contains(uint32(i))
	}
	return out
}

// CacheSamples attaches lazily fetched payload to a channel of the epoch
// at idx, so repeated extraction does not refetch. It is a no-op if the
// device is unknown.
func (s *Store) CacheSamples(idx model.EpochIndex, device string, samples []float64, rate model.SampleRate, units string) {
	d := &s.records[idx]
	for _, chans := range [][]model.Channel{d.responses, d.stimuli} {
		for i := range chans {
			if chans[i].Device == device {
				chans[i].Samples = samples
				if rate != 0 {
					chans[i].SampleRate = rate
				}
				if units != "" {
					chans[i].Units = units
				}
				return
			}
		}
	}
}

// Record is a shared-ownership handle to one epoch. Copying a Record
// copies the handle, never the record, so selection flags written through
// any handle are visible through all of them.
type Record struct {
	s   *Store
	idx model.EpochIndex
}

// Index returns the process-local internal index.
func (r Record) Index() model.EpochIndex { return r.idx }

// StableID returns the externally durable identifier ("" for legacy data).
func (r Record) StableID() model.StableID { return r.s.records[r.idx].stableID }

// StartTime returns the acquisition start time.
func (r Record) StartTime() time.Time { return r.s.records[r.idx].startTime }

// Attr resolves a dot-separated attribute path. Absent attributes return
// the missing sentinel with ok=false.
func (r Record) Attr(path string) (attr.Value, bool) {
	return r.s.records[r.idx].attrs.Lookup(path)
}

// Attrs returns the record's attribute document. Treat it as read-only.
func (r Record) Attrs() attr.Document { return r.s.records[r.idx].attrs }

// Selected reports the inclusion flag.
func (r Record) Selected() bool { return r.s.IsSelected(r.idx) }

// SetSelected writes the inclusion flag through the store.
func (r Record) SetSelected(v bool) { r.s.SetSelected(r.idx, v) }

// Channel returns the named response or stimulus channel. Responses
// shadow stimuli with the same device name.
func (r Record) Channel(device string) (*model.Channel, bool) {
	d := &r.s.records[r.idx]
	for i := range d.responses {
		if d.responses[i].Device == device {
			return &d.responses[i], true
		}
	}
	for i := range d.stimuli {
		if d.stimuli[i].Device == device {
			return &d.stimuli[i], true
		}
	}
	return nil, false
}

// Responses returns the record's response channels in export order.
// Treat the slice as read-only.
func (r Record) Responses() []model.Channel { return r.s.records[r.idx].responses }

// Stimuli returns the record's stimulus channels in export order.
// Treat the slice as read-only.
func (r Record) Stimuli() []model.Channel { return r.s.records[r.idx].stimuli }

// Devices returns the device names of all channels on the record.
func (r Record) Devices() []string {
	d := &r.s.records[r.idx]
	out := make([]string, 0, len(d.responses)+len(d.stimuli))
	for i := range d.responses {
		out = append(out, d.responses[i].Device)
	}
	for i := range d.stimuli {
		out = append(out, d.stimuli[i].Device)
	}
	return out
}

// Store returns the owning store.
func (r Record) Store() *Store { return r.s }
