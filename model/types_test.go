package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSampleRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10000", 10000},
		{"10000 Hz", 10000},
		{"10 kHz", 10000},
		{"10kHz", 10000},
		{"0.5 MHz", 500000},
	}
	for _, tt := range tests {
		got, err := ParseSampleRate(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}

	_, err := ParseSampleRate("10 GHz")
	assert.Error(t, err)
	_, err = ParseSampleRate("fast")
	assert.Error(t, err)
}

func TestSampleRateUnmarshal(t *testing.T) {
	var sr SampleRate
	require.NoError(t, json.Unmarshal([]byte(`10000`), &sr))
	assert.Equal(t, SampleRate(10000), sr)

	require.NoError(t, json.Unmarshal([]byte(`"10 kHz"`), &sr))
	assert.Equal(t, SampleRate(10000), sr)
}

func TestExportDecode(t *testing.T) {
	body := `{
		"format_version": "1.1",
		"experiments": [{
			"h5_uuid": "exp-1",
			"exp_name": "test",
			"cells": [{
				"h5_uuid": "cell-1",
				"type": "RGC\\ON-alpha",
				"epoch_groups": [{
					"h5_uuid": "group-1",
					"epoch_blocks": [{
						"h5_uuid": "block-1",
						"protocol_name": "LedPulse",
						"data_file": "a.bundle",
						"epochs": [{
							"h5_uuid": "epoch-1",
							"start_time": "2024-03-15T10:00:00Z",
							"responses": [{
								"device_name": "Amp1",
								"units": "pA",
								"sample_rate": "10 kHz",
								"ref": {"file": "", "path": "/responses/Amp1/epoch-1"}
							}]
						}]
					}]
				}]
			}]
		}]
	}`

	var export Export
	require.NoError(t, json.Unmarshal([]byte(body), &export))

	epoch := export.Experiments[0].Cells[0].EpochGroups[0].EpochBlocks[0].Epochs[0]
	assert.Equal(t, StableID("epoch-1"), epoch.StableID)
	ch := epoch.Responses[0]
	assert.Equal(t, "Amp1", ch.Device)
	assert.Equal(t, SampleRate(10000), ch.SampleRate)
	assert.False(t, ch.Resident())
	assert.Equal(t, "/responses/Amp1/epoch-1", ch.Ref.Path)
}
