package world

// UpdateStreaming enumerates chunk coordinates within the load radius
// of cameraChunk, loading any that are Unloaded, and unloads any chunk
// outside the unload radius that has no Active neighbor (§4.3 step 2).
// Grounded on Gekko3D's updateWorldStreaming (world.go): a
// camera-distance radius walk with floor-division chunk coordinates,
// generalized here from a 2D region grid to the engine's 3D chunk grid.
func (w *World) UpdateStreaming(cameraChunk Coord) {
	r := w.streamR
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				c := Coord{cameraChunk.X + dx, cameraChunk.Y + dy, cameraChunk.Z + dz}
				if chebyshev(dx, dy, dz) > r {
					continue
				}
				if _, ok := w.chunks[c]; !ok {
					w.load(c)
				}
			}
		}
	}

	outer := w.unloadR
	var toUnload []Coord
	for c := range w.chunks {
		d := chebyshev(c.X-cameraChunk.X, c.Y-cameraChunk.Y, c.Z-cameraChunk.Z)
		if d <= outer {
			continue
		}
		if w.hasActiveNeighbor(c) {
			continue
		}
		if r, ok := w.chunks[c]; ok && r.State == Active {
			continue
		}
		toUnload = append(toUnload, c)
	}
	for _, c := range toUnload {
		w.unload(c)
	}
}

func chebyshev(dx, dy, dz int32) int32 {
	m := abs32(dx)
	if v := abs32(dy); v > m {
		m = v
	}
	if v := abs32(dz); v > m {
		m = v
	}
	return m
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
