package sim

import (
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// Readback is the async handle a tick returns for its activity flags
// (§4.1 "tick(...) → readback handle", §5 "Suspension points: only at
// GPU readback boundaries"). The CPU-mirror pipeline has no device
// round-trip to wait on, so it resolves eagerly; the gpu.go dispatch
// path wraps a real wgpu buffer-mapping future behind the same
// interface so callers (engine/world) never need to know which backend
// produced it.
type Readback struct {
	dirty        []bool
	ready        bool
	destructions []DestructionEvent // device-path only; nil on the CPU mirror
}

// Ready reports whether the activity flags are available yet. The
// world package must tolerate false here for 1-2 ticks (§3.3, §4.3).
func (r *Readback) Ready() bool { return r.ready }

// Dirty returns the per-dispatch-index activity flags. Valid only once
// Ready() is true.
func (r *Readback) Dirty() []bool { return r.dirty }

// Destructions returns the destruction events the pressure pass wrote
// this tick. Only populated by GpuPipeline.Tick; the CPU mirror's
// Pipeline exposes the same data via DestructionEvents instead, since
// it never needs an async round trip to read them back.
func (r *Readback) Destructions() []DestructionEvent { return r.destructions }

// Pipeline is the simulation pipeline (§4.1): owns the pool, the
// command queue, the destruction-event ring, and drives the 7 ordered
// passes every tick.
type Pipeline struct {
	Pool    *Pool
	Queue   *Queue
	events  *destructionRing
	diag    *Diagnostics
	tick    int32

	// The read slots the activity scan compares against (§4.1.8) are
	// not stored here: Tick takes them as its readSlots argument.
}

// NewPipeline constructs a Pipeline over an existing Pool.
func NewPipeline(pool *Pool) *Pipeline {
	return &Pipeline{
		Pool:   pool,
		Queue:  NewQueue(),
		events: newDestructionRing(),
		diag:   newDiagnostics(),
	}
}

// PushCommand enqueues a command (§4.1 "push_command(cmd) → bool").
// Returns false only if dropping the oldest command was required to
// make room; the new command is always accepted.
func (p *Pipeline) PushCommand(cmd Command) bool {
	return p.Queue.Push(cmd) == nil
}

// Tick runs the fixed 7-pass sequence against dispatch for one
// simulation step (§4.1.1). readSlots must align index-for-index with
// dispatch: readSlots[i] is the read-pool slot for dispatch[i]'s chunk,
// used only by the activity scan (own-slot reads/writes inside the
// other 6 passes always address dispatch[i].OwnSlot, the write slot).
func (p *Pipeline) Tick(dispatch []voxel.ChunkDescriptor, readSlots []uint32, rs *rules.RuleSet) *Readback {
	cmds := p.Queue.Drain()

	runCommands(p.Pool, dispatch, cmds, rs)
	runMovement(p.Pool, dispatch, rs, p.tick)
	runReactions(p.Pool, dispatch, rs, p.tick)
	runThermal(p.Pool, dispatch, rs)
	runElectrical(p.Pool, dispatch, rs)
	runPressure(p.Pool, dispatch, rs, p.tick, p.events)
	dirty := runActivityScan(p.Pool, dispatch, readSlots)

	p.tick++
	return &Readback{dirty: dirty, ready: true}
}

// DestructionEvents drains the destruction-event ring for the
// structural solver (§4.4).
func (p *Pipeline) DestructionEvents() []DestructionEvent {
	return p.events.Drain()
}

// DrainDiagnostics returns and clears the named scalar diagnostic
// values written during the last tick (§6.6; compiled out in release
// builds by the caller simply not invoking it).
func (p *Pipeline) DrainDiagnostics() map[string]float64 {
	return p.diag.drain()
}

// CurrentTick returns the tick counter, for deterministic PRNG seeding
// by callers outside the pipeline (e.g. the structural solver).
func (p *Pipeline) CurrentTick() int32 { return p.tick }
