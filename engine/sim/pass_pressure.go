package sim

import (
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// runPressure performs enclosure detection, thermal pressure
// generation, diffusion, and rupture for every voxel of every
// dispatched chunk (§4.1.6).
func runPressure(pool *Pool, descs []voxel.ChunkDescriptor, rs *rules.RuleSet, tick int32, events *destructionRing) {
	for _, desc := range descs {
		for x := 0; x < voxel.ChunkSize; x++ {
			for y := 0; y < voxel.ChunkSize; y++ {
				for z := 0; z < voxel.ChunkSize; z++ {
					stepPressureCell(pool, desc, x, y, z, rs, tick, events)
				}
			}
		}
	}
}

func stepPressureCell(pool *Pool, desc voxel.ChunkDescriptor, x, y, z int, rs *rules.RuleSet, tick int32, events *destructionRing) {
	idx := voxel.Index3(x, y, z)
	v := pool.ReadVoxel(desc.OwnSlot, idx)
	if v.Material == 0 {
		return
	}
	mat := materialOf(rs, v.Material)

	enclosed := true
	var neighborPressureSum int32
	for _, dir := range voxel.FaceDirs {
		nx, ny, nz := x+int(dir.X), y+int(dir.Y), z+int(dir.Z)
		nSlot, rx, ry, rz, _ := desc.Resolve(nx, ny, nz)
		var neighbor voxel.Voxel
		if nSlot == voxel.SentinelOffset {
			neighbor = voxel.Air
		} else {
			neighbor = pool.ReadVoxel(nSlot, voxel.Index3(rx, ry, rz))
		}
		if neighbor.Material == 0 {
			enclosed = false
		}
		neighborPressureSum += int32(neighbor.Pressure)
	}

	if enclosed && (mat.Phase == rules.PhaseGas || mat.Phase == rules.PhaseLiquid) && int32(v.Temp) > voxel.AmbientQ {
		v.Pressure = voxel.ClampPressure(int32(v.Pressure) + voxel.ThermalPressureFactor)
	}

	avgNeighborP := neighborPressureSum / 6
	diffused := int32(v.Pressure) + int32(voxel.PressureDiffusionRate*float64(avgNeighborP-int32(v.Pressure)))
	v.Pressure = voxel.ClampPressure(diffused)

	if mat.StructuralIntegrity > 0 && int32(v.Pressure) > int32(mat.StructuralIntegrity) {
		preservedPressure := v.Pressure
		u := voxel.PRNG(int32(x), int32(y), int32(z), tick)
		dirIdx := int(u*6) % 6
		speed := clampSpeed(int32(preservedPressure) / 8)

		v = voxel.Voxel{Pressure: preservedPressure}
		dir := voxel.FaceDirs[dirIdx]
		v.VelX = voxel.ClampVelocity(int32(dir.X) * speed)
		v.VelY = voxel.ClampVelocity(int32(dir.Y) * speed)
		v.VelZ = voxel.ClampVelocity(int32(dir.Z) * speed)

		if events != nil {
			events.push(DestructionEvent{OwnSlot: desc.OwnSlot, X: x, Y: y, Z: z})
		}
	}

	pool.WriteVoxel(desc.OwnSlot, idx, v)
}

func clampSpeed(v int32) int32 {
	if v < 1 {
		return 1
	}
	if v > 4 {
		return 4
	}
	return v
}
