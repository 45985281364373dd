// Package structural implements the bounded flood-fill structural
// solver (§4.4): it consumes destruction events produced by the
// Pressure pass and detects solid clusters left without support,
// feeding fall commands back through the normal command queue rather
// than mutating the voxel pool directly.
package structural

import (
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/sim"
	"github.com/alkahest-engine/alkahest/engine/voxel"
	"github.com/alkahest-engine/alkahest/enginelog"
)

// Job is one queued piece of work: a destruction event to re-examine
// for newly unsupported structure.
type Job struct {
	Desc voxel.ChunkDescriptor
	X, Y, Z int
}

// Solver holds a bounded backlog of destruction-triggered
// connectivity checks. It is driven by the orchestrator loop, one
// Drain per frame, never by the simulation tick itself (§5:
// "Suspension points: only at GPU readback boundaries" — the solver
// lives entirely off the hot tick path).
type Solver struct {
	log     enginelog.Logger
	backlog []Job
	maxJobsPerDrain int
}

// New constructs a Solver. maxJobsPerDrain bounds how many destruction
// events are examined per call to Drain, so a large collapse cannot
// stall a frame.
func New(log enginelog.Logger, maxJobsPerDrain int) *Solver {
	if log == nil {
		log = enginelog.NewNopLogger()
	}
	if maxJobsPerDrain <= 0 {
		maxJobsPerDrain = 8
	}
	return &Solver{log: log, maxJobsPerDrain: maxJobsPerDrain}
}

// Enqueue accepts the destruction events drained from a Pipeline tick
// (Pipeline.DestructionEvents) along with the dispatch list that tick
// ran against, matching each event's OwnSlot back to the
// ChunkDescriptor it belongs to so floodFill can resolve cross-chunk
// neighbors. An event whose OwnSlot no longer appears in dispatch
// (chunk unloaded since the destructive tick) is dropped.
func (s *Solver) Enqueue(dispatch []voxel.ChunkDescriptor, events []sim.DestructionEvent) {
	for _, e := range events {
		for _, desc := range dispatch {
			if desc.OwnSlot == e.OwnSlot {
				s.backlog = append(s.backlog, Job{Desc: desc, X: e.X, Y: e.Y, Z: e.Z})
				break
			}
		}
	}
}

// Drain processes up to maxJobsPerDrain backlog entries: for each, it
// flood-fills the connected solid cluster touching the destruction
// site (bounded by voxel.MaxFallFloodFill voxels) and, if the cluster
// has no path to a supported voxel, emits a one-step-down relocation
// command for every voxel in it via queue.
func (s *Solver) Drain(pool *sim.Pool, rs *rules.RuleSet, queue *sim.Queue) {
	n := len(s.backlog)
	if n > s.maxJobsPerDrain {
		n = s.maxJobsPerDrain
	}
	jobs := s.backlog[:n]
	s.backlog = s.backlog[n:]

	for _, j := range jobs {
		cluster, supported := floodFill(pool, rs, j.Desc, j.X, j.Y, j.Z)
		if supported || len(cluster) == 0 {
			continue
		}
		s.log.Debugf("structural: cluster of %d voxels unsupported at (%d,%d,%d)", len(cluster), j.X, j.Y, j.Z)
		for _, c := range cluster {
			dropOne(pool, queue, j.Desc, c)
		}
	}
}

type cell struct{ x, y, z int }

// floodFill walks the face-connected cluster of solid, structural
// voxels reachable from (x0,y0,z0), bounded by voxel.MaxFallFloodFill.
// A cluster counts as supported if any voxel in it sits at y=0 (world
// floor) or is adjacent to a voxel whose material has no structural
// integrity configured at all (treated as ground/bedrock, per §4.4's
// "a material with structural_integrity = 0 never itself ruptures and
// is assumed load-bearing").
func floodFill(pool *sim.Pool, rs *rules.RuleSet, desc voxel.ChunkDescriptor, x0, y0, z0 int) ([]cell, bool) {
	start := pool.ReadVoxel(desc.OwnSlot, voxel.Index3(x0, y0, z0))
	if start.Material == 0 {
		return nil, true
	}
	startMat := materialAt(rs, start.Material)
	if startMat.StructuralIntegrity == 0 {
		return nil, true
	}

	visited := map[cell]bool{{x0, y0, z0}: true}
	queue := []cell{{x0, y0, z0}}
	var cluster []cell
	supported := false

	for len(queue) > 0 && len(cluster) < voxel.MaxFallFloodFill {
		c := queue[0]
		queue = queue[1:]
		cluster = append(cluster, c)

		if c.y == 0 {
			supported = true
		}

		for _, dir := range voxel.FaceDirs {
			nx, ny, nz := c.x+int(dir.X), c.y+int(dir.Y), c.z+int(dir.Z)
			slot, rx, ry, rz, crosses := desc.Resolve(nx, ny, nz)
			if crosses && slot == voxel.SentinelOffset {
				continue // unloaded neighbor chunk: treat as open air, not support
			}
			ownerSlot := desc.OwnSlot
			if crosses {
				ownerSlot = slot
			}
			nv := pool.ReadVoxel(ownerSlot, voxel.Index3(rx, ry, rz))
			if nv.Material == 0 {
				continue
			}
			nMat := materialAt(rs, nv.Material)
			if nMat.StructuralIntegrity == 0 {
				supported = true
				continue
			}
			key := cell{nx, ny, nz}
			if crosses || visited[key] {
				continue // cross-chunk cluster continuation is out of scope for this pass
			}
			visited[key] = true
			queue = append(queue, key)
		}
	}
	return cluster, supported
}

// dropOne relocates a single voxel one cell down via Remove+Place
// commands, the way a structural collapse is expressed without the
// Movement pass (which never moves solid-phase materials).
func dropOne(pool *sim.Pool, queue *sim.Queue, desc voxel.ChunkDescriptor, c cell) {
	if c.y == 0 {
		return
	}
	below := pool.ReadVoxel(desc.OwnSlot, voxel.Index3(c.x, c.y-1, c.z))
	if below.Material != 0 {
		return
	}
	v := pool.ReadVoxel(desc.OwnSlot, voxel.Index3(c.x, c.y, c.z))
	_ = queue.Push(sim.Command{Tool: sim.ToolRemove, LocalPos: [3]int32{int32(c.x), int32(c.y), int32(c.z)}})
	_ = queue.Push(sim.Command{Tool: sim.ToolPlace, LocalPos: [3]int32{int32(c.x), int32(c.y - 1), int32(c.z)}, Material: v.Material})
}

func materialAt(rs *rules.RuleSet, internalID uint16) rules.MatProperty {
	if rs == nil || int(internalID) >= len(rs.Materials) {
		return rules.MatProperty{}
	}
	return rs.Materials[internalID]
}
