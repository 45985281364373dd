package sim

import "github.com/alkahest-engine/alkahest/engine/voxel"

// DestructionEvent records a destroyed-solid site for the structural
// solver (§4.4, §9 "Async collapse detection"): "a small 'destruction
// events' side-buffer that records (chunk, local pos) of destroyed
// solids, bounded".
type DestructionEvent struct {
	OwnSlot uint32
	X, Y, Z int
}

// destructionRing is the bounded, single-producer (pressure pass)
// single-consumer (structural solver) ring buffer; overflow drops the
// oldest event (§5 "Destruction-event buffer").
type destructionRing struct {
	items []DestructionEvent
}

func newDestructionRing() *destructionRing {
	return &destructionRing{items: make([]DestructionEvent, 0, voxel.MaxDestructionEvents)}
}

func (r *destructionRing) push(e DestructionEvent) {
	if len(r.items) >= voxel.MaxDestructionEvents {
		r.items = r.items[1:]
	}
	r.items = append(r.items, e)
}

// Drain returns and clears all queued events, for consumption by the
// structural solver.
func (r *destructionRing) Drain() []DestructionEvent {
	out := r.items
	r.items = make([]DestructionEvent, 0, voxel.MaxDestructionEvents)
	return out
}
