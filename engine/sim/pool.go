// Package sim implements the 7-pass per-tick simulation pipeline
// (§4.1): the double-buffered chunk-slot pool, the bounded command
// queue, the diagnostic buffer, and the ordered compute-pass sequence.
// The GPU-facing dispatch path (gpu.go, shaders/*.wgsl) drives
// Gekko3D's wgpu buffer-manager pattern; the host-testable surface
// (the pass_*.go files) is a byte-for-byte CPU mirror of the same
// passes, used for everything in §8's test suite that does not require
// an actual device.
package sim

import (
	"fmt"

	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// Pool is the double-buffered chunk-slot pool (§3.4); Allocate grows
// it when fewer than two slots are free. It
// owns every voxel and charge byte for the engine's lifetime; chunks
// address their storage only through opaque slot offsets handed out by
// Allocate.
type Pool struct {
	capacity int
	voxels   [][]byte // capacity slots, each ChunkVoxelBytes
	charges  [][]byte // capacity slots, each ChunkChargeBytes
	free     []uint32
	used     map[uint32]bool
}

// NewPool allocates a pool with room for capacity chunk slots. Callers
// typically size capacity as 2x the expected number of simultaneously
// loaded chunks (one read + one write slot per chunk).
func NewPool(capacity int) *Pool {
	p := &Pool{
		capacity: capacity,
		voxels:   make([][]byte, capacity),
		charges:  make([][]byte, capacity),
		used:     make(map[uint32]bool, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.voxels[i] = make([]byte, voxel.ChunkVoxelBytes)
		p.charges[i] = make([]byte, voxel.ChunkChargeBytes)
		p.free = append(p.free, uint32(i))
	}
	return p
}

// Allocate reserves two slots for a newly loaded chunk and returns
// their offsets. Satisfies world.SlotAllocator.
func (p *Pool) Allocate() (readSlot, writeSlot uint32, ok bool) {
	if len(p.free) < 2 {
		p.grow()
	}
	if len(p.free) < 2 {
		return 0, 0, false
	}
	readSlot = p.free[len(p.free)-1]
	writeSlot = p.free[len(p.free)-2]
	p.free = p.free[:len(p.free)-2]
	p.used[readSlot] = true
	p.used[writeSlot] = true
	for i := range p.voxels[readSlot] {
		p.voxels[readSlot][i] = 0
	}
	for i := range p.voxels[writeSlot] {
		p.voxels[writeSlot][i] = 0
	}
	return readSlot, writeSlot, true
}

// Free returns a chunk's two slots to the free list (§3.4).
func (p *Pool) Free(readSlot, writeSlot uint32) {
	delete(p.used, readSlot)
	delete(p.used, writeSlot)
	p.free = append(p.free, readSlot, writeSlot)
}

// SwapChunk copies writeSlot's bytes into readSlot, the authoritative
// double-buffer swap world.World.Swap's bookkeeping mirrors: after
// this call the caller flips which offset it calls ReadSlot/WriteSlot,
// so the new WriteSlot starts the next tick holding an exact copy of
// the state every pass just finished, while the new ReadSlot keeps
// that same state stable for the activity scan and cross-chunk
// neighbor reads to diff and sample against until the next swap.
func (p *Pool) SwapChunk(readSlot, writeSlot uint32) {
	copy(p.voxels[readSlot], p.voxels[writeSlot])
	copy(p.charges[readSlot], p.charges[writeSlot])
}

// grow expands the pool by 1.5x with headroom, mirroring Gekko3D's
// gpu/manager.go:ensureBuffer geometric growth policy (§C of
// SPEC_FULL.md) so repeated world growth doesn't thrash allocation.
func (p *Pool) grow() {
	newCap := p.capacity + p.capacity/2 + 2
	for i := p.capacity; i < newCap; i++ {
		p.voxels = append(p.voxels, make([]byte, voxel.ChunkVoxelBytes))
		p.charges = append(p.charges, make([]byte, voxel.ChunkChargeBytes))
		p.free = append(p.free, uint32(i))
	}
	p.capacity = newCap
}

// VoxelSlot returns the raw voxel byte slice for a slot, for direct
// pass access. Panics on an out-of-range slot: a pass reading an
// invalid slot is a programming error, not a recoverable condition.
func (p *Pool) VoxelSlot(slot uint32) []byte {
	if int(slot) >= len(p.voxels) {
		panic(fmt.Sprintf("sim: slot %d out of range (capacity %d)", slot, len(p.voxels)))
	}
	return p.voxels[slot]
}

// ChargeSlot returns the raw charge byte slice for a slot.
func (p *Pool) ChargeSlot(slot uint32) []byte {
	if int(slot) >= len(p.charges) {
		panic(fmt.Sprintf("sim: slot %d out of range (capacity %d)", slot, len(p.charges)))
	}
	return p.charges[slot]
}

// ReadVoxel reads the voxel at local index idx from a slot.
func (p *Pool) ReadVoxel(slot uint32, idx int) voxel.Voxel {
	b := p.VoxelSlot(slot)
	off := idx * 8
	w0 := le32(b[off:])
	w1 := le32(b[off+4:])
	return voxel.Unpack(w0, w1)
}

// WriteVoxel writes v at local index idx into a slot.
func (p *Pool) WriteVoxel(slot uint32, idx int, v voxel.Voxel) {
	b := p.VoxelSlot(slot)
	off := idx * 8
	w0, w1 := voxel.Pack(v)
	putLE32(b[off:], w0)
	putLE32(b[off+4:], w1)
}

// ReadCharge reads the u32 charge at local index idx from a slot.
func (p *Pool) ReadCharge(slot uint32, idx int) uint32 {
	return le32(p.charges[slot][idx*4:])
}

// WriteCharge writes the u32 charge at local index idx into a slot.
func (p *Pool) WriteCharge(slot uint32, idx int, v uint32) {
	putLE32(p.charges[slot][idx*4:], v)
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
