package voxel

// Dir3 is a signed unit-or-zero direction offset.
type Dir3 struct {
	X, Y, Z int8
}

// Weight classifies a 26-neighbor offset as face/edge/corner for the
// thermal pass's weighted diffusion sum (§4.1.5).
const (
	WeightFace   float32 = 1.0
	WeightEdge   float32 = 0.7
	WeightCorner float32 = 0.5
)

// Neighbor26 is the canonical, fixed ordering of the 26 neighbor offsets
// used for: the chunk descriptor's neighbor-slot-offset block (§3.4,
// §4.3 get_dispatch_list), the thermal pass's weighted diffusion sum
// (§4.1.5), and NeighborDir below. The order never varies by tick or
// device. Offsets are generated face-first, then edges, then corners so
// the first six entries double as the face-adjacent set used by
// Reactions and Pressure passes (§4.1.4, §4.1.6) — see FaceDirs, which
// lists those same six faces in the same order.
var Neighbor26 = buildNeighbor26()

// NeighborWeight26 holds WeightFace/WeightEdge/WeightCorner indexed in
// lockstep with Neighbor26.
var NeighborWeight26 [26]float32

func buildNeighbor26() [26]Dir3 {
	var out [26]Dir3
	var w [26]float32
	i := 0
	// Faces: exactly one nonzero axis.
	faces := []Dir3{
		{0, -1, 0}, {0, 1, 0}, // down, up
		{0, 0, -1}, {0, 0, 1}, // north, south
		{1, 0, 0}, {-1, 0, 0}, // east, west
	}
	for _, d := range faces {
		out[i] = d
		w[i] = WeightFace
		i++
	}
	// Edges: exactly two nonzero axes.
	for dx := int8(-1); dx <= 1; dx++ {
		for dy := int8(-1); dy <= 1; dy++ {
			for dz := int8(-1); dz <= 1; dz++ {
				n := nonzero(dx) + nonzero(dy) + nonzero(dz)
				if n != 2 {
					continue
				}
				out[i] = Dir3{dx, dy, dz}
				w[i] = WeightEdge
				i++
			}
		}
	}
	// Corners: all three axes nonzero.
	for dx := int8(-1); dx <= 1; dx += 2 {
		for dy := int8(-1); dy <= 1; dy += 2 {
			for dz := int8(-1); dz <= 1; dz += 2 {
				out[i] = Dir3{dx, dy, dz}
				w[i] = WeightCorner
				i++
			}
		}
	}
	NeighborWeight26 = w
	return out
}

func nonzero(v int8) int {
	if v != 0 {
		return 1
	}
	return 0
}

// FaceDirs is the fixed face-adjacent neighbor order used by the
// Reactions pass (§4.1.4: "Down, Up, North, South, East, West") and
// reused by the Pressure pass's 6-neighbor enclosure test (§4.1.6).
var FaceDirs = [6]Dir3{
	{0, -1, 0}, // Down
	{0, 1, 0},  // Up
	{0, 0, -1}, // North
	{0, 0, 1},  // South
	{1, 0, 0},  // East
	{-1, 0, 0}, // West
}

// NeighborDirIndex returns the index into Neighbor26 (and therefore into
// a chunk descriptor's neighbor_slot_offsets) for a given offset, or -1
// if the offset is not one of the 26 canonical directions. Used by
// cross-chunk reads (§4.1.9) to turn "which face/edge/corner of the
// chunk did this position fall outside of" into a descriptor slot index.
func NeighborDirIndex(dx, dy, dz int8) int {
	for i, d := range Neighbor26 {
		if d.X == dx && d.Y == dy && d.Z == dz {
			return i
		}
	}
	return -1
}
