package sim

import (
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// runElectrical operates on the parallel charge buffer, implementing
// emission, insulation decay, grounding, conduction with activation
// thresholds, and joule heating (§4.1.7).
func runElectrical(pool *Pool, descs []voxel.ChunkDescriptor, rs *rules.RuleSet) {
	for _, desc := range descs {
		for x := 0; x < voxel.ChunkSize; x++ {
			for y := 0; y < voxel.ChunkSize; y++ {
				for z := 0; z < voxel.ChunkSize; z++ {
					stepElectricalCell(pool, desc, x, y, z, rs)
				}
			}
		}
	}
}

func stepElectricalCell(pool *Pool, desc voxel.ChunkDescriptor, x, y, z int, rs *rules.RuleSet) {
	idx := voxel.Index3(x, y, z)
	v := pool.ReadVoxel(desc.OwnSlot, idx)
	if v.Material == 0 {
		return
	}
	mat := materialOf(rs, v.Material)
	e := mat.Electrical
	current := pool.ReadCharge(desc.OwnSlot, idx)

	var newCharge uint32
	switch {
	case e.ChargeEmission > 0:
		newCharge = uint32(e.ChargeEmission)
	case e.Conductivity == 0:
		newCharge = decayToward(current, voxel.ChargeDecayRate, 0)
	case e.Conductivity >= 0.999 && e.Resistance == 0 && e.ChargeEmission == 0:
		newCharge = 0
	default:
		count := 0
		var sum uint32
		for _, dir := range voxel.FaceDirs {
			nx, ny, nz := x+int(dir.X), y+int(dir.Y), z+int(dir.Z)
			nSlot, rx, ry, rz, _ := desc.Resolve(nx, ny, nz)
			if nSlot == voxel.SentinelOffset {
				continue
			}
			nCharge := pool.ReadCharge(nSlot, voxel.Index3(rx, ry, rz))
			if nCharge > 0 {
				count++
				sum += nCharge
			}
		}
		if count >= e.ActivationThreshold {
			candidate := uint32(float64(sum) * float64(e.Conductivity) * voxel.ElectricalDiffusionRate)
			if candidate > voxel.ChargeMax {
				candidate = voxel.ChargeMax
			}
			lowerBound := decayToward(current, voxel.ChargeDecayRate, 0)
			if candidate > lowerBound {
				newCharge = candidate
			} else {
				newCharge = lowerBound
			}
		} else {
			newCharge = decayToward(current, voxel.ChargeDecayRate, 0)
		}
	}

	pool.WriteCharge(desc.OwnSlot, idx, newCharge)

	if newCharge > 0 && e.Resistance > 0 {
		heating := int32(float64(newCharge) * float64(newCharge) * float64(e.Resistance) * voxel.JouleFactor)
		v.Temp = voxel.ClampTemp(int32(v.Temp) + heating)
		pool.WriteVoxel(desc.OwnSlot, idx, v)
	}
}

func decayToward(current uint32, step uint32, target uint32) uint32 {
	if current > target {
		if current-target <= step {
			return target
		}
		return current - step
	}
	if target-current <= step {
		return target
	}
	return current + step
}
