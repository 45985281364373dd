package sim

import (
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// movementDir names one of the 10 directional groups in the fixed
// movement schedule (§4.1.3).
type movementDir struct {
	name   string
	offset [3]int
	class  movementClass
}

type movementClass uint8

const (
	classDown movementClass = iota
	classLateral
	classUp
)

// movementSchedule is the fixed, documented sub-pass order (§4.1.3):
// down, four down-diagonals, four laterals, up — each at both
// parities. This order never varies by tick or device.
var movementSchedule = []movementDir{
	{"down", [3]int{0, -1, 0}, classDown},
	{"down-diag-dl", [3]int{-1, -1, 0}, classDown},
	{"down-diag-dr", [3]int{1, -1, 0}, classDown},
	{"down-diag-df", [3]int{0, -1, -1}, classDown},
	{"down-diag-db", [3]int{0, -1, 1}, classDown},
	{"lateral-l", [3]int{-1, 0, 0}, classLateral},
	{"lateral-r", [3]int{1, 0, 0}, classLateral},
	{"lateral-f", [3]int{0, 0, -1}, classLateral},
	{"lateral-b", [3]int{0, 0, 1}, classLateral},
	{"up", [3]int{0, 1, 0}, classUp},
}

// runMovement executes the fixed checkerboard sub-pass schedule over
// every voxel of every dispatched chunk (§4.1.3). Movement operates
// entirely within the write pool: cross-chunk destinations are skipped
// so only the owning chunk ever writes its own slot (§3.8, §9).
func runMovement(pool *Pool, descs []voxel.ChunkDescriptor, rs *rules.RuleSet, tick int32) {
	for _, dir := range movementSchedule {
		for parity := 0; parity < 2; parity++ {
			for _, desc := range descs {
				runMovementSubPass(pool, desc, dir, parity, rs, tick)
			}
		}
	}
}

func runMovementSubPass(pool *Pool, desc voxel.ChunkDescriptor, dir movementDir, parity int, rs *rules.RuleSet, tick int32) {
	for x := 0; x < voxel.ChunkSize; x++ {
		for y := 0; y < voxel.ChunkSize; y++ {
			for z := 0; z < voxel.ChunkSize; z++ {
				if (x+z)%2 != parity {
					continue
				}
				stepMovementCell(pool, desc, x, y, z, dir, rs, tick)
			}
		}
	}
}

func stepMovementCell(pool *Pool, desc voxel.ChunkDescriptor, x, y, z int, dir movementDir, rs *rules.RuleSet, tick int32) {
	idx := voxel.Index3(x, y, z)
	src := pool.ReadVoxel(desc.OwnSlot, idx)
	if src.Material == 0 {
		return
	}
	mat := materialOf(rs, src.Material)
	if mat.Phase == rules.PhaseSolid {
		return
	}

	switch dir.class {
	case classDown:
		if mat.Phase != rules.PhasePowder && mat.Phase != rules.PhaseLiquid {
			return
		}
	case classLateral:
		if mat.Phase != rules.PhaseLiquid {
			return
		}
		if mat.Viscosity > 0 {
			u := voxel.PRNG(int32(x), int32(y), int32(z), tick)
			if u < mat.Viscosity {
				return
			}
		}
	case classUp:
		if mat.Phase != rules.PhaseGas || mat.Density <= 0 {
			return
		}
	}

	dx, dy, dz := x+dir.offset[0], y+dir.offset[1], z+dir.offset[2]
	if !voxel.InBounds(dx, dy, dz) {
		return // neighbor chunk handles it from its own side (§4.1.3 step 3)
	}
	dstIdx := voxel.Index3(dx, dy, dz)
	dst := pool.ReadVoxel(desc.OwnSlot, dstIdx)

	if dst.Material == 0 {
		pool.WriteVoxel(desc.OwnSlot, idx, voxel.Air)
		pool.WriteVoxel(desc.OwnSlot, dstIdx, src)
		return
	}

	dstMat := materialOf(rs, dst.Material)
	if dstMat.Phase == rules.PhaseSolid {
		return
	}
	if mat.Density > dstMat.Density {
		pool.WriteVoxel(desc.OwnSlot, idx, dst)
		pool.WriteVoxel(desc.OwnSlot, dstIdx, src)
	}
}

func materialOf(rs *rules.RuleSet, internalID uint16) rules.MatProperty {
	if rs == nil || int(internalID) >= len(rs.Materials) {
		return rules.MatProperty{}
	}
	return rs.Materials[internalID]
}
