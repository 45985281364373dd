package sim

import (
	"testing"

	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// singleChunkHarness sets up a Pipeline with one loaded chunk and no
// loaded neighbors (every neighbor slot is the sentinel), matching the
// "32^3 world" shape of the end-to-end scenarios in §8: CHUNK_SIZE is
// exactly 32, so one chunk is the whole world under test.
func singleChunkHarness(t *testing.T) (*Pipeline, voxel.ChunkDescriptor, uint32) {
	t.Helper()
	pool := NewPool(4)
	readSlot, writeSlot, ok := pool.Allocate()
	if !ok {
		t.Fatal("pool allocation failed")
	}
	desc := voxel.ChunkDescriptor{OwnSlot: writeSlot}
	for i := range desc.NeighborSlots {
		desc.NeighborSlots[i] = voxel.SentinelOffset
	}
	return NewPipeline(pool), desc, readSlot
}

func mustLoad(t *testing.T, src string) *rules.RuleSet {
	t.Helper()
	rs, report := rules.Load([]rules.ModSource{{
		Name: "test", IsBase: true,
		Files: map[string]string{"materials.txt": src},
	}}, nil)
	if !report.OK() {
		t.Fatalf("rule load failed: %v", report)
	}
	return rs
}

func mustLoadFull(t *testing.T, materials, ruleText string) *rules.RuleSet {
	t.Helper()
	rs, report := rules.Load([]rules.ModSource{{
		Name: "test", IsBase: true,
		Files: map[string]string{
			"materials.txt": materials,
			"rules.txt":     ruleText,
		},
	}}, nil)
	if !report.OK() {
		t.Fatalf("rule load failed: %v", report)
	}
	return rs
}

func setVoxel(pool *Pool, desc voxel.ChunkDescriptor, x, y, z int, v voxel.Voxel) {
	pool.WriteVoxel(desc.OwnSlot, voxel.Index3(x, y, z), v)
}

func getVoxel(pool *Pool, desc voxel.ChunkDescriptor, x, y, z int) voxel.Voxel {
	return pool.ReadVoxel(desc.OwnSlot, voxel.Index3(x, y, z))
}

// fillFloor writes a solid floor layer at y=0 of the given material.
func fillFloor(pool *Pool, desc voxel.ChunkDescriptor, mat uint32) {
	for x := 0; x < voxel.ChunkSize; x++ {
		for z := 0; z < voxel.ChunkSize; z++ {
			setVoxel(pool, desc, x, 0, z, voxel.Voxel{Material: uint16(mat)})
		}
	}
}

// readSlotsFor builds a readSlots array for a single-descriptor
// dispatch, pointing at a snapshot slot the caller manages.
func readSlotsFor(slot uint32) []uint32 {
	return []uint32{slot}
}
