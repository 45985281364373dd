package world

import (
	"sort"

	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// Descriptor is one chunk's 27-entry dispatch block: its own slot
// offset followed by the 26 neighbor slot offsets in Neighbor26 order,
// with voxel.SentinelOffset standing in for unloaded neighbors (§3.4,
// §4.1.9, §4.3).
type Descriptor struct {
	Coord         Coord
	OwnSlot       uint32
	NeighborSlots [26]uint32
}

// DispatchList is the per-tick set of Active chunks the simulation
// pipeline will run its 7 passes over, in the stable lex-sorted order
// get_dispatch_list produces (§4.3).
type DispatchList struct {
	Entries []Descriptor
}

// BuildDispatchList assembles this tick's dispatch list: every Active
// chunk, lex-sorted by coordinate, each carrying a fully populated
// 26-neighbor descriptor (§3.8 invariant: "Every chunk in a given
// tick's dispatch list has a fully populated 26-neighbor descriptor").
func (w *World) BuildDispatchList() DispatchList {
	var coords []Coord
	for c, r := range w.chunks {
		if r.State == Active {
			coords = append(coords, c)
		}
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })

	entries := make([]Descriptor, len(coords))
	for i, c := range coords {
		r := w.chunks[c]
		d := Descriptor{Coord: c, OwnSlot: r.WriteSlot}
		for dirIdx, dir := range voxel.Neighbor26 {
			nc := c.Add(dir)
			if nr, ok := w.chunks[nc]; ok && nr.State != Unloaded {
				d.NeighborSlots[dirIdx] = nr.ReadSlot
			} else {
				d.NeighborSlots[dirIdx] = voxel.SentinelOffset
			}
		}
		entries[i] = d
	}
	return DispatchList{Entries: entries}
}
