package voxel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	flagsSamples := []uint8{0, 1, 2, 4, 0x3F, 0x15}
	velSamples := []int8{0, 1, -1, 127, -128, 42, -42}
	pressureSamples := []uint8{0, 1, 32, 63}
	tempSamples := []uint16{0, 1, 2047, 4094, MaxQ}
	matSamples := []uint16{0, 1, 10000, 65535}

	for _, mat := range matSamples {
		for _, temp := range tempSamples {
			for _, vx := range velSamples {
				for _, vy := range velSamples {
					for _, vz := range velSamples {
						for _, p := range pressureSamples {
							for _, f := range flagsSamples {
								in := Voxel{
									Material: mat,
									Temp:     temp,
									VelX:     vx,
									VelY:     vy,
									VelZ:     vz,
									Pressure: p,
									Flags:    f,
								}
								w0, w1 := Pack(in)
								out := Unpack(w0, w1)
								require.Equal(t, in, out, "round-trip mismatch for %+v", in)
							}
						}
					}
				}
			}
		}
	}
}

func TestPackUnpackHostDeviceAgreement(t *testing.T) {
	// The WGSL mirror (engine/sim/shaders/common.wgsl) must pack this
	// exact voxel to these exact two words; this pins the layout so a
	// shader-side regression shows up as a host-side test failure too.
	v := Voxel{Material: 7, Temp: 100, VelX: -1, VelY: 2, VelZ: -3, Pressure: 5, Flags: 3}
	w0, w1 := Pack(v)

	wantW0 := uint32(7) | (uint32(100) << 16) | ((uint32(0xFF) & 0xF) << 28)
	if w0 != wantW0 {
		t.Fatalf("word0 = 0x%08x, want 0x%08x", w0, wantW0)
	}

	out := Unpack(w0, w1)
	require.Equal(t, v, out)
}

func TestAirIsZero(t *testing.T) {
	w0, w1 := Pack(Air)
	if w0 != 0 || w1 != 0 {
		t.Fatalf("Air must pack to zero words, got 0x%08x 0x%08x", w0, w1)
	}
}
