package voxel

// ChunkDescriptor is one dispatch-list entry's 27-u32 block: the
// chunk's own write-slot offset followed by the 26 neighbor read-slot
// offsets in Neighbor26 order (§3.4, §4.1.9, §4.3). Shared by
// engine/world (which builds these) and engine/sim (which consumes
// them), living in the dependency-free core package so neither needs
// to import the other for this shape.
type ChunkDescriptor struct {
	OwnSlot       uint32
	NeighborSlots [26]uint32
}

// Resolve turns a possibly-out-of-bounds local position into either an
// in-slot index (dirIndex == -1) or a neighbor lookup: the neighbor's
// slot offset (or SentinelOffset if unloaded) and the position remapped
// into that neighbor's local space (§4.1.9).
func (d ChunkDescriptor) Resolve(x, y, z int) (slot uint32, rx, ry, rz int, crossesBoundary bool) {
	dirIndex, nx, ny, nz := ResolveLocal(x, y, z)
	if dirIndex < 0 {
		return d.OwnSlot, nx, ny, nz, false
	}
	return d.NeighborSlots[dirIndex], nx, ny, nz, true
}
