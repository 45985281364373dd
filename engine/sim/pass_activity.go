package sim

import "github.com/alkahest-engine/alkahest/engine/voxel"

// runActivityScan compares each dispatched chunk's read pool against
// its write pool word-wise and returns the set of chunks (by dispatch
// index) with at least one differing word (§4.1.8). Contract C-SIM-8:
// false positives are harmless; false negatives are forbidden — any
// byte difference must trigger dirty, which a full word-wise compare
// guarantees by construction.
func runActivityScan(pool *Pool, descs []voxel.ChunkDescriptor, readSlots []uint32) []bool {
	dirty := make([]bool, len(descs))
	for i, desc := range descs {
		if i >= len(readSlots) {
			continue
		}
		dirty[i] = slotsDiffer(pool.VoxelSlot(readSlots[i]), pool.VoxelSlot(desc.OwnSlot)) ||
			slotsDiffer(pool.ChargeSlot(readSlots[i]), pool.ChargeSlot(desc.OwnSlot))
	}
	return dirty
}

func slotsDiffer(a, b []byte) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return true
		}
	}
	return false
}
