package sim

import (
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// runThermal performs 26-neighbor weighted diffusion, entropy drain,
// and convection bias for every voxel of every dispatched chunk
// (§4.1.5).
func runThermal(pool *Pool, descs []voxel.ChunkDescriptor, rs *rules.RuleSet) {
	for _, desc := range descs {
		for x := 0; x < voxel.ChunkSize; x++ {
			for y := 0; y < voxel.ChunkSize; y++ {
				for z := 0; z < voxel.ChunkSize; z++ {
					stepThermalCell(pool, desc, x, y, z, rs)
				}
			}
		}
	}
}

func stepThermalCell(pool *Pool, desc voxel.ChunkDescriptor, x, y, z int, rs *rules.RuleSet) {
	idx := voxel.Index3(x, y, z)
	v := pool.ReadVoxel(desc.OwnSlot, idx)
	if v.Material == 0 {
		return
	}
	mat := materialOf(rs, v.Material)

	var sum float64
	for i, dir := range voxel.Neighbor26 {
		nx, ny, nz := x+int(dir.X), y+int(dir.Y), z+int(dir.Z)
		nSlot, rx, ry, rz, _ := desc.Resolve(nx, ny, nz)
		var neighbor voxel.Voxel
		if nSlot == voxel.SentinelOffset {
			neighbor = voxel.Air
		} else {
			neighbor = pool.ReadVoxel(nSlot, voxel.Index3(rx, ry, rz))
		}
		nMat := materialOf(rs, neighbor.Material)
		kAvg := (float64(mat.ThermalConductivity) + float64(nMat.ThermalConductivity)) / 2
		w := float64(voxel.NeighborWeight26[i])
		sum += w * kAvg * (float64(neighbor.Temp) - float64(v.Temp))
	}

	delta := int32(voxel.DiffusionRate * sum / 26)
	newTemp := int32(v.Temp) + delta
	v.Temp = voxel.ClampTemp(newTemp)

	// Entropy drain (§4.1.5): move one EntropyStep toward AmbientQ.
	switch {
	case int32(v.Temp) > voxel.AmbientQ:
		v.Temp = voxel.ClampTemp(int32(v.Temp) - voxel.EntropyStep)
	case int32(v.Temp) < voxel.AmbientQ:
		v.Temp = voxel.ClampTemp(int32(v.Temp) + voxel.EntropyStep)
	}

	// Convection bias (§4.1.5): hot liquid/gas gets upward velocity.
	if (mat.Phase == rules.PhaseLiquid || mat.Phase == rules.PhaseGas) &&
		int32(v.Temp) > voxel.AmbientQ+voxel.ConvectionThreshold {
		v.VelY = 1
	}

	pool.WriteVoxel(desc.OwnSlot, idx, v)
}
