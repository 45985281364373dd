package structural

import (
	"testing"

	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/sim"
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

func harness(t *testing.T) (*sim.Pool, voxel.ChunkDescriptor, *rules.RuleSet) {
	t.Helper()
	pool := sim.NewPool(4)
	_, writeSlot, ok := pool.Allocate()
	if !ok {
		t.Fatal("pool allocation failed")
	}
	desc := voxel.ChunkDescriptor{OwnSlot: writeSlot}
	for i := range desc.NeighborSlots {
		desc.NeighborSlots[i] = voxel.SentinelOffset
	}
	rs, report := rules.Load([]rules.ModSource{{
		Name: "test", IsBase: true,
		Files: map[string]string{"materials.txt": `
material 0 { name: "air", phase: gas }
material 1 { name: "stone", phase: solid, structural_integrity: 40 }
material 2 { name: "bedrock", phase: solid }
`},
	}}, nil)
	if !report.OK() {
		t.Fatalf("rule load failed: %v", report)
	}
	return pool, desc, rs
}

func TestFloodFillGroundedAtFloorIsSupported(t *testing.T) {
	pool, desc, rs := harness(t)
	pool.WriteVoxel(desc.OwnSlot, voxel.Index3(5, 0, 5), voxel.Voxel{Material: 1})
	pool.WriteVoxel(desc.OwnSlot, voxel.Index3(5, 1, 5), voxel.Voxel{Material: 1})
	pool.WriteVoxel(desc.OwnSlot, voxel.Index3(5, 2, 5), voxel.Voxel{Material: 1})

	cluster, supported := floodFill(pool, rs, desc, 5, 2, 5)
	if !supported {
		t.Fatalf("column resting on the floor must be reported supported, got cluster of %d", len(cluster))
	}
}

func TestFloodFillFloatingIslandIsUnsupported(t *testing.T) {
	pool, desc, rs := harness(t)
	// A 2-voxel stone block floating at y=10, touching nothing else.
	pool.WriteVoxel(desc.OwnSlot, voxel.Index3(10, 10, 10), voxel.Voxel{Material: 1})
	pool.WriteVoxel(desc.OwnSlot, voxel.Index3(11, 10, 10), voxel.Voxel{Material: 1})

	cluster, supported := floodFill(pool, rs, desc, 10, 10, 10)
	if supported {
		t.Fatalf("disconnected floating cluster must not be reported supported")
	}
	if len(cluster) != 2 {
		t.Fatalf("expected cluster of 2 voxels, got %d", len(cluster))
	}
}

func TestFloodFillAdjacentToBedrockIsSupported(t *testing.T) {
	pool, desc, rs := harness(t)
	// bedrock has structural_integrity: 0, so it counts as load-bearing
	// ground regardless of where it sits.
	pool.WriteVoxel(desc.OwnSlot, voxel.Index3(8, 15, 8), voxel.Voxel{Material: 2})
	pool.WriteVoxel(desc.OwnSlot, voxel.Index3(8, 16, 8), voxel.Voxel{Material: 1})

	cluster, supported := floodFill(pool, rs, desc, 8, 16, 8)
	if !supported {
		t.Fatalf("stone resting directly on bedrock must be reported supported, cluster size %d", len(cluster))
	}
}

func TestDrainDropsUnsupportedClusterOneStep(t *testing.T) {
	pool, desc, rs := harness(t)
	pool.WriteVoxel(desc.OwnSlot, voxel.Index3(4, 9, 4), voxel.Voxel{Material: 1})

	s := New(nil, 8)
	s.Enqueue([]voxel.ChunkDescriptor{desc}, []sim.DestructionEvent{
		{OwnSlot: desc.OwnSlot, X: 4, Y: 9, Z: 4},
	})

	queue := sim.NewQueue()
	s.Drain(pool, rs, queue)

	cmds := queue.Drain()
	if len(cmds) != 2 {
		t.Fatalf("expected a Remove+Place pair for the one unsupported voxel, got %d commands", len(cmds))
	}
	if cmds[0].Tool != sim.ToolRemove || cmds[1].Tool != sim.ToolPlace {
		t.Fatalf("expected Remove followed by Place, got %v then %v", cmds[0].Tool, cmds[1].Tool)
	}
	if cmds[1].LocalPos != [3]int32{4, 8, 4} {
		t.Fatalf("expected relocation one cell down to (4,8,4), got %v", cmds[1].LocalPos)
	}
}

func TestDrainRespectsMaxJobsPerDrain(t *testing.T) {
	pool, desc, _ := harness(t)
	s := New(nil, 1)

	events := make([]sim.DestructionEvent, 5)
	for i := range events {
		events[i] = sim.DestructionEvent{OwnSlot: desc.OwnSlot, X: i, Y: 1, Z: 0}
	}
	s.Enqueue([]voxel.ChunkDescriptor{desc}, events)
	if len(s.backlog) != 5 {
		t.Fatalf("expected all 5 jobs enqueued, got %d", len(s.backlog))
	}

	rs, report := rules.Load([]rules.ModSource{{
		Name: "test", IsBase: true,
		Files: map[string]string{"materials.txt": `material 0 { name: "air", phase: gas }`},
	}}, nil)
	if !report.OK() {
		t.Fatalf("rule load failed: %v", report)
	}
	queue := sim.NewQueue()
	s.Drain(pool, rs, queue)
	if len(s.backlog) != 4 {
		t.Fatalf("expected exactly one job drained per call, %d left in backlog", len(s.backlog))
	}
}
