package sim

import (
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// runCommands applies queued edits to the write pool (§4.1.1 step 1,
// §4.1.2). Brushed commands expand over a bounded volume; cube writes
// unconditionally within the brush, sphere filters by squared distance.
func runCommands(pool *Pool, descs []voxel.ChunkDescriptor, cmds []Command, rs *rules.RuleSet) {
	for _, cmd := range cmds {
		if cmd.DispatchIndex < 0 || cmd.DispatchIndex >= len(descs) {
			continue
		}
		desc := descs[cmd.DispatchIndex]
		applyCommand(pool, desc, cmd, rs)
	}
}

func applyCommand(pool *Pool, desc voxel.ChunkDescriptor, cmd Command, rs *rules.RuleSet) {
	r := cmd.BrushRadius
	if r <= 0 {
		r = 0
	}
	if r > voxel.MaxBrushRadius {
		r = voxel.MaxBrushRadius
	}
	x0, y0, z0 := int(cmd.LocalPos[0]), int(cmd.LocalPos[1]), int(cmd.LocalPos[2])

	if r == 0 || cmd.BrushShape == BrushSingle {
		applyAt(pool, desc, x0, y0, z0, cmd, rs)
		return
	}

	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if cmd.BrushShape == BrushSphere && dx*dx+dy*dy+dz*dz > r*r {
					continue
				}
				applyAt(pool, desc, x0+dx, y0+dy, z0+dz, cmd, rs)
			}
		}
	}
}

// applyAt performs one command write. Commands never cross chunk
// boundaries (§4.1.9 "This applies only to read operations. Writes
// never cross chunk boundaries."): out-of-bounds brush cells are
// silently skipped.
func applyAt(pool *Pool, desc voxel.ChunkDescriptor, x, y, z int, cmd Command, rs *rules.RuleSet) {
	if !voxel.InBounds(x, y, z) {
		return
	}
	idx := voxel.Index3(x, y, z)

	switch cmd.Tool {
	case ToolPlace:
		v := voxel.Voxel{Material: cmd.Material}
		if rs != nil && int(cmd.Material) < len(rs.Materials) {
			mp := rs.Materials[cmd.Material]
			if mp.DecayRate > 0 {
				v.Temp = InitialPlaceTemp(mp.DecayThreshold)
			}
		}
		pool.WriteVoxel(desc.OwnSlot, idx, v)
	case ToolRemove:
		pool.WriteVoxel(desc.OwnSlot, idx, voxel.Air)
	case ToolHeat:
		v := pool.ReadVoxel(desc.OwnSlot, idx)
		v.Temp = voxel.ClampTemp(int32(v.Temp) + cmd.TempDelta)
		pool.WriteVoxel(desc.OwnSlot, idx, v)
	case ToolPush:
		v := pool.ReadVoxel(desc.OwnSlot, idx)
		v.VelX = voxel.ClampVelocity(int32(v.VelX) + int32(cmd.Direction[0]))
		v.VelY = voxel.ClampVelocity(int32(v.VelY) + int32(cmd.Direction[1]))
		v.VelZ = voxel.ClampVelocity(int32(v.VelZ) + int32(cmd.Direction[2]))
		pool.WriteVoxel(desc.OwnSlot, idx, v)
	}
}

// InitialPlaceTemp computes the initial temperature for a freshly
// placed voxel of a decaying material, per §4.1.2: "initial temperature
// is min(3 * decay_threshold, MAX_Q) so the voxel does not immediately
// self-destruct."
func InitialPlaceTemp(decayThreshold int32) uint16 {
	t := decayThreshold * 3
	return voxel.ClampTemp(t)
}
