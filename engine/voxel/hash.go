package voxel

// Hash is the deterministic, stateless per-voxel PRNG used throughout the
// simulation passes (§4.1.10). It has no state and no atomics: calling it
// twice with the same inputs on host or device must produce the same u32.
// The WGSL mirror in engine/sim/shaders/common.wgsl performs the identical
// sequence of operations in the identical order; wraparound on uint32
// multiplication/addition is required behavior, not overflow to guard
// against.
func Hash(x, y, z, tick int32) uint32 {
	h := uint32(x)*0x8da6b343 +
		uint32(y)*0xd8163841 +
		uint32(z)*0xcb1ab31f +
		uint32(tick)*0x165667b1

	h ^= h >> 16
	h *= 0x45d9f3b
	h ^= h >> 16
	h *= 0x45d9f3b
	h ^= h >> 16

	return h
}

// Unit derives u ∈ [0,1) from a hash value, per §4.1.10: (hash >> 8) / 2^24.
func Unit(h uint32) float32 {
	return float32(h>>8) / float32(1<<24)
}

// PRNG computes Unit(Hash(x, y, z, tick)) directly, the form most call
// sites in the simulation passes want.
func PRNG(x, y, z, tick int32) float32 {
	return Unit(Hash(x, y, z, tick))
}
