package trace

import (
	"github.com/hupe1980/epictree/model"
)

// Matrix is an epochs-by-samples data matrix for a single device. Rows
// are ordered like the records they were extracted from; every row has
// the same length.
type Matrix struct {
	data       []float64
	rows       int
	cols       int
	stableIDs  []model.StableID
	device     string
	sampleRate model.SampleRate
	units      string
}

// Rows returns the number of epochs in the matrix.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of samples per epoch.
func (m *Matrix) Cols() int { return m.cols }

// Device returns the device the matrix was extracted for.
func (m *Matrix) Device() string { return m.device }

// SampleRate returns the sample rate shared by all rows.
func (m *Matrix) SampleRate() model.SampleRate { return m.sampleRate }

// Units returns the recorded units.
func (m *Matrix) Units() string { return m.units }

// Row returns row i as a slice into the matrix backing array. The caller
// must not grow it.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// At returns the sample at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// StableID returns the stable identifier of the epoch behind row i.
func (m *Matrix) StableID(i int) model.StableID {
	return m.stableIDs[i]
}

// StableIDs returns the per-row epoch identifiers.
func (m *Matrix) StableIDs() []model.StableID { return m.stableIDs }
