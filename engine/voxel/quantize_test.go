package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantizeDequantizeRoundTrip(t *testing.T) {
	for q := uint16(0); q <= MaxQ; q++ {
		kelvin := Dequantize(q)
		got := Quantize(kelvin)
		assert.Equal(t, q, got, "round-trip mismatch at q=%d (kelvin=%f)", q, kelvin)
	}
}

func TestQuantizeClampsOutOfRange(t *testing.T) {
	assert.Equal(t, uint16(0), Quantize(-10))
	assert.Equal(t, uint16(MaxQ), Quantize(float32(MaxKelvin)*2))
}
