package trace

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/epictree/model"
)

// Signal is a fully resident recorded trace: the sample vector plus the
// acquisition metadata needed to interpret it.
type Signal struct {
	Samples    []float64
	SampleRate model.SampleRate
	Units      string
}

// Len returns the number of samples.
func (s Signal) Len() int { return len(s.Samples) }

// encodeSamples serializes samples as little-endian float64.
func encodeSamples(samples []float64) []byte {
	buf := make([]byte, 8*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeSamples deserializes little-endian float64 samples.
func decodeSamples(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, errTruncatedSamples
	}
	samples := make([]float64, len(data)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return samples, nil
}
