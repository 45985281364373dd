package world

import (
	"testing"

	"github.com/alkahest-engine/alkahest/engine/voxel"
)

type fakeAllocator struct {
	next uint32
	free []uint32
}

func (f *fakeAllocator) Allocate() (uint32, uint32, bool) {
	var r, w uint32
	if len(f.free) > 0 {
		r = f.free[len(f.free)-1]
		f.free = f.free[:len(f.free)-1]
	} else {
		r = f.next
		f.next++
	}
	if len(f.free) > 0 {
		w = f.free[len(f.free)-1]
		f.free = f.free[:len(f.free)-1]
	} else {
		w = f.next
		f.next++
	}
	return r, w, true
}

func (f *fakeAllocator) Free(readSlot, writeSlot uint32) {
	f.free = append(f.free, readSlot, writeSlot)
}

func TestMarkActivePromotesNeighborsToBoundary(t *testing.T) {
	w := New(&fakeAllocator{}, nil, Config{StreamRadius: 1})
	origin := Coord{0, 0, 0}
	w.MarkActive(origin)

	r, ok := w.Get(origin)
	if !ok || r.State != Active {
		t.Fatalf("expected origin Active, got %v", r)
	}
	for _, d := range voxel.Neighbor26 {
		nc := origin.Add(d)
		nr, ok := w.Get(nc)
		if !ok || nr.State != Boundary {
			t.Fatalf("expected neighbor %v Boundary, got %v", nc, nr)
		}
	}
}

func TestSettleDemotesAfterSettleTicks(t *testing.T) {
	w := New(&fakeAllocator{}, nil, Config{StreamRadius: 1})
	c := Coord{0, 0, 0}
	w.MarkActive(c)

	for i := 0; i < voxel.SettleTicks-1; i++ {
		w.ApplyReadback(ActivityReadback{Dirty: map[Coord]bool{}})
		r, _ := w.Get(c)
		if r.State != Active {
			t.Fatalf("demoted too early at tick %d", i)
		}
	}
	w.ApplyReadback(ActivityReadback{Dirty: map[Coord]bool{}})
	r, _ := w.Get(c)
	if r.State != Static {
		t.Fatalf("expected Static after %d clean ticks, got %v", voxel.SettleTicks, r.State)
	}
}

func TestDirtyResetsIdleCounter(t *testing.T) {
	w := New(&fakeAllocator{}, nil, Config{StreamRadius: 1})
	c := Coord{0, 0, 0}
	w.MarkActive(c)

	for i := 0; i < voxel.SettleTicks+5; i++ {
		w.ApplyReadback(ActivityReadback{Dirty: map[Coord]bool{c: true}})
	}
	r, _ := w.Get(c)
	if r.State != Active {
		t.Fatalf("expected to remain Active while dirty, got %v", r.State)
	}
}

func TestDispatchListSentinelForUnloadedNeighbors(t *testing.T) {
	w := New(&fakeAllocator{}, nil, Config{StreamRadius: 0})
	c := Coord{5, 5, 5}
	w.MarkActive(c)
	// Unload every neighbor to exercise the sentinel path.
	for _, d := range voxel.Neighbor26 {
		w.unload(c.Add(d))
	}

	dl := w.BuildDispatchList()
	if len(dl.Entries) != 1 {
		t.Fatalf("expected exactly 1 active chunk in dispatch list, got %d", len(dl.Entries))
	}
	for i, s := range dl.Entries[0].NeighborSlots {
		if s != voxel.SentinelOffset {
			t.Fatalf("neighbor %d: expected sentinel, got %d", i, s)
		}
	}
}

func TestDispatchListStableLexOrder(t *testing.T) {
	w := New(&fakeAllocator{}, nil, Config{StreamRadius: 0})
	coords := []Coord{{2, 0, 0}, {0, 0, 0}, {1, 0, 0}}
	for _, c := range coords {
		w.MarkActive(c)
	}
	dl := w.BuildDispatchList()
	for i := 1; i < len(dl.Entries); i++ {
		if !dl.Entries[i-1].Coord.Less(dl.Entries[i].Coord) {
			t.Fatalf("dispatch list not lex-sorted at index %d: %v then %v", i, dl.Entries[i-1].Coord, dl.Entries[i].Coord)
		}
	}
}

func TestStreamingLoadsWithinRadius(t *testing.T) {
	w := New(&fakeAllocator{}, nil, Config{StreamRadius: 1, UnloadRadius: 3})
	w.UpdateStreaming(Coord{0, 0, 0})
	if _, ok := w.Get(Coord{1, 0, 0}); !ok {
		t.Fatalf("expected chunk within radius 1 to be loaded")
	}
	if _, ok := w.Get(Coord{5, 0, 0}); ok {
		t.Fatalf("expected chunk outside radius to remain unloaded")
	}
}

func TestStreamingUnloadsFarChunks(t *testing.T) {
	w := New(&fakeAllocator{}, nil, Config{StreamRadius: 2, UnloadRadius: 3})
	w.UpdateStreaming(Coord{0, 0, 0})
	if _, ok := w.Get(Coord{2, 0, 0}); !ok {
		t.Fatalf("setup: expected chunk loaded")
	}
	// Camera moves far away; the chunk is now outside the unload radius
	// and has no Active neighbor.
	w.UpdateStreaming(Coord{100, 0, 0})
	if _, ok := w.Get(Coord{2, 0, 0}); ok {
		t.Fatalf("expected distant chunk to be unloaded")
	}
}
