package attr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupAliases(t *testing.T) {
	d := Document{
		"cell.type":           String("RGC\\ON-alpha"),
		"block.protocol_name": String("LedPulse"),
		"epoch.label":         String("epoch 1"),
	}

	v, ok := d.Lookup("cellType")
	require.True(t, ok)
	assert.Equal(t, "RGC\\ON-alpha", v.Str())

	v, ok = d.Lookup("protocolName")
	require.True(t, ok)
	assert.Equal(t, "LedPulse", v.Str())

	// Canonical paths pass through untouched.
	v, ok = d.Lookup("block.protocol_name")
	require.True(t, ok)
	assert.Equal(t, "LedPulse", v.Str())
}

func TestLookupMissing(t *testing.T) {
	d := Document{"epoch.label": String("x")}

	v, ok := d.Lookup("no.such.path")
	assert.False(t, ok)
	assert.True(t, v.IsMissing())
}

func TestFlattenNestedParams(t *testing.T) {
	d := Document{}
	d.Flatten("block.params", map[string]any{
		"contrast": 0.5,
		"led": map[string]any{
			"color":     "blue",
			"intensity": 100,
		},
	})

	v, ok := d.Lookup("block.params.contrast")
	require.True(t, ok)
	assert.InDelta(t, 0.5, v.Float64(), 1e-12)

	// Nested maps flatten with underscore-joined keys.
	v, ok = d.Lookup("block.params.led_color")
	require.True(t, ok)
	assert.Equal(t, "blue", v.Str())

	v, ok = d.Lookup("block.params.led_intensity")
	require.True(t, ok)
	assert.Equal(t, int64(100), v.Int64())
}

func TestWithPrefix(t *testing.T) {
	d := Document{
		"block.params.contrast": Float(0.5),
		"block.params.mean":     Float(1.0),
		"epoch.params.step":     Float(10),
	}

	keys := d.WithPrefix("block.params.")
	assert.Equal(t, []string{"block.params.contrast", "block.params.mean"}, keys)
}
