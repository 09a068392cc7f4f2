package testutil

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/epictree/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Samples returns n pseudo-random samples in [-1, 1).
// Locks only once per call (preferred over calling Float64 in a loop).
func (r *RNG) Samples(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 2*r.rand.Float64() - 1
	}
	return samples
}

// ExportSpec describes the shape of a synthetic export.
type ExportSpec struct {
	Cells           int
	GroupsPerCell   int
	BlocksPerGroup  int
	EpochsPerBlock  int
	SamplesPerEpoch int
	Device          string
	// Resident controls whether epochs carry sample data inline or only
	// payload references into Export.DataFile.
	Resident bool
}

// DefaultExportSpec is a small export suitable for most tests:
// 2 cells x 1 group x 2 blocks x 3 epochs = 12 epochs.
func DefaultExportSpec() ExportSpec {
	return ExportSpec{
		Cells:           2,
		GroupsPerCell:   1,
		BlocksPerGroup:  2,
		EpochsPerBlock:  3,
		SamplesPerEpoch: 16,
		Device:          "Amp1",
		Resident:        true,
	}
}

// MakeExport builds a deterministic synthetic export. Epoch start times
// are strictly increasing across the whole export, stable IDs are unique,
// and blocks alternate between two protocols so splitter tests have
// something to bucket on.
func MakeExport(rng *RNG, spec ExportSpec) *model.Export {
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	protocols := []string{"LedPulse", "Chirp"}
	epochSeq := 0

	exp := &model.Experiment{
		StableID:     "exp-0001",
		Name:         "synthetic",
		Experimenter: "tester",
		Rig:          "rig-a",
	}

	for c := 0; c < spec.Cells; c++ {
		cell := model.Cell{
			StableID: model.StableID(fmt.Sprintf("cell-%04d", c)),
			Label:    fmt.Sprintf("c%d", c),
			Type:     []string{"RGC\\ON-alpha", "RGC\\OFF-alpha"}[c%2],
		}

		for g := 0; g < spec.GroupsPerCell; g++ {
			group := model.EpochGroup{
				StableID: model.StableID(fmt.Sprintf("group-%04d-%02d", c, g)),
				Label:    fmt.Sprintf("g%d", g),
			}

			for b := 0; b < spec.BlocksPerGroup; b++ {
				block := model.EpochBlock{
					StableID:     model.StableID(fmt.Sprintf("block-%04d-%02d-%02d", c, g, b)),
					ProtocolName: protocols[b%len(protocols)],
					DataFile:     "synthetic.bundle",
					Parameters: map[string]any{
						"contrast":   0.5 + 0.1*float64(b),
						"numEpochs":  float64(spec.EpochsPerBlock),
						"sampleRate": "10 kHz",
					},
				}

				for e := 0; e < spec.EpochsPerBlock; e++ {
					epochSeq++
					epoch := model.Epoch{
						StableID:  model.StableID(fmt.Sprintf("epoch-%06d", epochSeq)),
						Label:     fmt.Sprintf("epoch %d", epochSeq),
						StartTime: base.Add(time.Duration(epochSeq) * time.Minute),
						Parameters: map[string]any{
							"currentStep": float64(e) * 10,
						},
					}

					ch := model.Channel{
						Device:     spec.Device,
						Units:      "pA",
						SampleRate: 10000,
					}
					if spec.Resident {
						ch.Samples = rng.Samples(spec.SamplesPerEpoch)
					} else {
						ch.Ref = model.SignalRef{
							File: block.DataFile,
							Path: fmt.Sprintf("/responses/%s/%s", spec.Device, epoch.StableID),
						}
					}
					epoch.Responses = append(epoch.Responses, ch)

					block.Epochs = append(block.Epochs, epoch)
				}
				group.EpochBlocks = append(group.EpochBlocks, block)
			}
			cell.EpochGroups = append(cell.EpochGroups, group)
		}
		exp.Cells = append(exp.Cells, cell)
	}

	return &model.Export{Experiments: []model.Experiment{*exp}}
}
