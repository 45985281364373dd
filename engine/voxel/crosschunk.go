package voxel

// ResolveLocal implements the position-remapping half of §4.1.9: given a
// local voxel position that may lie outside [0, ChunkSize)^3, it returns
// the direction index into a chunk descriptor's neighbor block (or -1 if
// the position is in-bounds) along with the position remapped into that
// neighbor's local coordinate space by modular reduction.
func ResolveLocal(x, y, z int) (dirIndex int, rx, ry, rz int) {
	if InBounds(x, y, z) {
		return -1, x, y, z
	}
	dx := signOutside(x)
	dy := signOutside(y)
	dz := signOutside(z)
	dirIndex = NeighborDirIndex(dx, dy, dz)
	rx = wrap(x)
	ry = wrap(y)
	rz = wrap(z)
	return dirIndex, rx, ry, rz
}

func signOutside(v int) int8 {
	switch {
	case v < 0:
		return -1
	case v >= ChunkSize:
		return 1
	default:
		return 0
	}
}

func wrap(v int) int {
	m := v % ChunkSize
	if m < 0 {
		m += ChunkSize
	}
	return m
}
