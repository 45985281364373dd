package voxel

// Pack and Unpack implement the two-word voxel layout of §3.1. The bit
// layout below is mirrored verbatim in engine/sim/shaders/common.wgsl;
// any change here must be mirrored there or host/device determinism
// (§8 "Pack/unpack round-trip") breaks.
//
// word0: material(16) | temp(12) | velX_lo(4)
// word1: velX_hi(4) | velY(8) | velZ(8) | pressure(6) | flags(6)

const (
	shiftMaterial = 0
	shiftTemp     = 16
	shiftVelXLo   = 28

	shiftVelXHi    = 0
	shiftVelY      = 4
	shiftVelZ      = 12
	shiftPressure  = 20
	shiftFlagsWord = 26
)

// Pack encodes v into its two 32-bit words.
func Pack(v Voxel) (word0, word1 uint32) {
	vx := uint32(uint8(v.VelX))
	vxLo := vx & 0xF
	vxHi := (vx >> 4) & 0xF

	word0 = (uint32(v.Material) << shiftMaterial) |
		((uint32(v.Temp) & tempMask) << shiftTemp) |
		(vxLo << shiftVelXLo)

	word1 = (vxHi << shiftVelXHi) |
		(uint32(uint8(v.VelY)) << shiftVelY) |
		(uint32(uint8(v.VelZ)) << shiftVelZ) |
		((uint32(v.Pressure) & pressureMask) << shiftPressure) |
		((uint32(v.Flags) & flagsMask) << shiftFlagsWord)

	return word0, word1
}

// Unpack decodes the two-word representation back into a Voxel. Unpack
// is the exact inverse of Pack for every bit pattern: reserved flag
// bits round-trip along with the documented ones.
func Unpack(word0, word1 uint32) Voxel {
	material := uint16(word0 & 0xFFFF)
	temp := uint16((word0 >> shiftTemp) & tempMask)
	vxLo := (word0 >> shiftVelXLo) & 0xF

	vxHi := (word1 >> shiftVelXHi) & 0xF
	vy := uint8((word1 >> shiftVelY) & 0xFF)
	vz := uint8((word1 >> shiftVelZ) & 0xFF)
	pressure := uint8((word1 >> shiftPressure) & pressureMask)
	flags := uint8((word1 >> shiftFlagsWord) & flagsMask)

	vx := uint8(vxLo | (vxHi << 4))

	return Voxel{
		Material: material,
		Temp:     temp,
		VelX:     int8(vx),
		VelY:     int8(vy),
		VelZ:     int8(vz),
		Pressure: pressure,
		Flags:    flags,
	}
}

// Air is the zero voxel: material 0, everything else zeroed. Returned
// by cross-chunk reads that resolve to an unloaded neighbor (§4.1.9).
var Air = Voxel{}
