package world

import (
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// World owns the chunk map and drives its lifecycle. It holds no GPU
// resources itself (see SlotAllocator).
type World struct {
	chunks   map[Coord]*Record
	alloc    SlotAllocator
	seed     *TerrainSeeder
	streamR  int32 // load radius, in chunks
	unloadR  int32 // unload radius, in chunks (> streamR, hysteresis)
}

// Config configures a World (§A.3 of SPEC_FULL: engine.Config carries
// world grid / stream radius defaults).
type Config struct {
	StreamRadius int32
	UnloadRadius int32
}

func New(alloc SlotAllocator, seed *TerrainSeeder, cfg Config) *World {
	if cfg.UnloadRadius <= cfg.StreamRadius {
		cfg.UnloadRadius = cfg.StreamRadius + 2
	}
	return &World{
		chunks:  make(map[Coord]*Record),
		alloc:   alloc,
		seed:    seed,
		streamR: cfg.StreamRadius,
		unloadR: cfg.UnloadRadius,
	}
}

// Get returns the chunk record at c and whether it exists (is loaded).
func (w *World) Get(c Coord) (*Record, bool) {
	r, ok := w.chunks[c]
	return r, ok
}

// load brings a chunk from Unloaded to Static, allocating slots and
// seeding terrain (§3.3 "Unloaded → Static on allocation").
func (w *World) load(c Coord) *Record {
	if r, ok := w.chunks[c]; ok {
		return r
	}
	readSlot, writeSlot, ok := w.alloc.Allocate()
	if !ok {
		return nil // pool exhausted; caller retries next tick
	}
	r := &Record{State: Static, ReadSlot: readSlot, WriteSlot: writeSlot}
	w.chunks[c] = r
	if w.seed != nil {
		w.seed.Seed(c, writeSlot)
	}
	return r
}

// unload releases a chunk's slots and removes it from the map (§3.3
// "Any loaded state → Unloaded when outside stream radius and not a
// neighbor of an active chunk").
func (w *World) unload(c Coord) {
	r, ok := w.chunks[c]
	if !ok {
		return
	}
	w.alloc.Free(r.ReadSlot, r.WriteSlot)
	delete(w.chunks, c)
}

// MarkActive promotes c to Active (allocating it first if necessary)
// and promotes its 26 neighbors to at least Boundary (§3.3 "When a
// chunk becomes Active, its 26 chunk-neighbors are promoted to at
// least Boundary").
func (w *World) MarkActive(c Coord) {
	r := w.chunks[c]
	if r == nil {
		r = w.load(c)
		if r == nil {
			return
		}
	}
	r.State = Active
	r.IdleTicks = 0
	for _, d := range voxel.Neighbor26 {
		nc := c.Add(d)
		nr := w.chunks[nc]
		if nr == nil {
			nr = w.load(nc)
			if nr == nil {
				continue
			}
		}
		if nr.State == Unloaded || nr.State == Static {
			nr.State = Boundary
		}
	}
}

// ActivityReadback is the (possibly 1-2 tick stale) async result of
// the previous tick's activity scan (§4.1.8, §4.3 step 1).
type ActivityReadback struct {
	Dirty map[Coord]bool
}

// ApplyReadback consumes a (possibly stale) activity readback: dirty
// chunks reset their idle counter, clean ones increment it; chunks
// that reach SettleTicks demote Active->Static (§3.3, §4.3 step 1).
func (w *World) ApplyReadback(rb ActivityReadback) {
	for c, r := range w.chunks {
		if r.State != Active {
			continue
		}
		if rb.Dirty[c] {
			r.IdleTicks = 0
			continue
		}
		r.IdleTicks++
		if r.IdleTicks >= voxel.SettleTicks {
			r.State = Static
			w.reevaluateBoundaryNeighbors(c)
		}
	}
}

// reevaluateBoundaryNeighbors demotes a neighbor from Boundary to
// Static if none of ITS neighbors are Active anymore, mirroring §3.3's
// "re-evaluate whether its neighbors should remain Boundary".
func (w *World) reevaluateBoundaryNeighbors(c Coord) {
	for _, d := range voxel.Neighbor26 {
		nc := c.Add(d)
		nr, ok := w.chunks[nc]
		if !ok || nr.State != Boundary {
			continue
		}
		if !w.hasActiveNeighbor(nc) {
			nr.State = Static
		}
	}
}

func (w *World) hasActiveNeighbor(c Coord) bool {
	for _, d := range voxel.Neighbor26 {
		if r, ok := w.chunks[c.Add(d)]; ok && r.State == Active {
			return true
		}
	}
	return false
}

// Swap flips a chunk's read/write slot offsets after a tick (mirrors
// the pool-level double buffer swap at the chunk's own bookkeeping
// level; the pool itself performs the authoritative swap).
func (w *World) Swap(c Coord) {
	if r, ok := w.chunks[c]; ok {
		r.ReadSlot, r.WriteSlot = r.WriteSlot, r.ReadSlot
	}
}
