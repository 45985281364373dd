package sim

import (
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// runReactions executes self-decay, upward phase change, and pairwise
// interaction rules for every voxel of every dispatched chunk
// (§4.1.4).
func runReactions(pool *Pool, descs []voxel.ChunkDescriptor, rs *rules.RuleSet, tick int32) {
	for _, desc := range descs {
		for x := 0; x < voxel.ChunkSize; x++ {
			for y := 0; y < voxel.ChunkSize; y++ {
				for z := 0; z < voxel.ChunkSize; z++ {
					stepReactionCell(pool, desc, x, y, z, rs, tick)
				}
			}
		}
	}
}

func stepReactionCell(pool *Pool, desc voxel.ChunkDescriptor, x, y, z int, rs *rules.RuleSet, tick int32) {
	idx := voxel.Index3(x, y, z)
	v := pool.ReadVoxel(desc.OwnSlot, idx)
	if v.Material == 0 {
		return
	}
	mat := materialOf(rs, v.Material)

	// Self-decay (§4.1.4 step 2).
	if mat.DecayRate > 0 {
		t := int32(v.Temp) - mat.DecayRate
		if t < 0 {
			t = 0
		}
		v.Temp = uint16(t)
		if t < mat.DecayThreshold {
			v.Material = uint16(mat.DecayProduct)
			pool.WriteVoxel(desc.OwnSlot, idx, v)
			return
		}
	}

	// Upward phase change (§4.1.4 step 3).
	if mat.PhaseChangeTemp > 0 && int32(v.Temp) >= mat.PhaseChangeTemp {
		v.Material = uint16(mat.PhaseChangeProduct)
		pool.WriteVoxel(desc.OwnSlot, idx, v)
		return
	}

	// Pairwise reactions (§4.1.4 step 4): fixed face order, first
	// matching neighbor wins.
	for ni, dir := range voxel.FaceDirs {
		nx, ny, nz := x+int(dir.X), y+int(dir.Y), z+int(dir.Z)
		nSlot, rx, ry, rz, _ := desc.Resolve(nx, ny, nz)
		var neighbor voxel.Voxel
		if nSlot == voxel.SentinelOffset {
			neighbor = voxel.Air
		} else {
			neighbor = pool.ReadVoxel(nSlot, voxel.Index3(rx, ry, rz))
		}
		if neighbor.Material == 0 {
			continue
		}

		ruleIdx := rs.Lookup[rs.LookupIndex(uint32(v.Material), uint32(neighbor.Material))]
		if ruleIdx == voxel.NoRule {
			continue
		}
		rule := rs.Rules[ruleIdx]

		if rule.MinTemp != 0 && int32(v.Temp) < rule.MinTemp {
			continue
		}
		if rule.MaxTemp != 0 && int32(v.Temp) > rule.MaxTemp {
			continue
		}

		charge := pool.ReadCharge(desc.OwnSlot, idx)
		if rule.MinCharge != 0 && int32(charge) < rule.MinCharge {
			continue
		}
		if rule.MaxCharge != 0 && int32(charge) > rule.MaxCharge {
			continue
		}

		u := voxel.PRNG(int32(x)+int32(ni), int32(y), int32(z), tick)
		if u >= rule.Probability {
			continue
		}

		v.Material = uint16(rule.OutputA)
		v.Temp = voxel.ClampTemp(int32(v.Temp) + rule.TempDelta)
		v.Pressure = voxel.ClampPressure(int32(v.Pressure) + rule.PressureDelta)
		pool.WriteVoxel(desc.OwnSlot, idx, v)
		return // first matching neighbor wins
	}

	pool.WriteVoxel(desc.OwnSlot, idx, v)
}
