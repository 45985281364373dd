// Package orchestrator drives the fixed per-frame sequence (§4.6):
// drain input, update the world's chunk lifecycle, tick the
// simulation, then run the caller's render/UI hooks. Grounded on
// Gekko3D's rt_main.go top-level loop (glfw.PollEvents /
// application.Update() / application.Render(), called once per host
// frame) generalized from a window-driven loop into the ordered,
// frame-delta-clamped sequence the simulation's double-buffered pool
// and activity-scan staleness window require.
package orchestrator

import (
	"errors"
	"time"

	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/sim"
	"github.com/alkahest-engine/alkahest/engine/structural"
	"github.com/alkahest-engine/alkahest/engine/voxel"
	"github.com/alkahest-engine/alkahest/engine/world"
	"github.com/alkahest-engine/alkahest/enginelog"
)

// DefaultMaxFrameDelta is the example cross-tab throttling bound from
// §4.6 ("MAX_FRAME_DELTA (e.g. 100 ms)").
const DefaultMaxFrameDelta = 100 * time.Millisecond

// Loop sequences one World/Pipeline pair through the fixed 5-step
// frame order. RenderFunc/UIFunc are optional hooks so a headless
// binary (no GPU device, no window) can drive the same loop as a full
// client: nil simply skips that step, rather than this package needing
// two parallel loop implementations.
type Loop struct {
	World      *world.World
	Sim        *sim.Pipeline
	Pool       *sim.Pool
	Structural *structural.Solver
	Rules      *rules.RuleSet
	Log        enginelog.Logger

	// RenderFunc runs step 4 (§4.6); rb is the previous tick's
	// readback, which may not be Ready() yet (§5 "no code path may
	// block waiting for it").
	RenderFunc func(rb *sim.Readback) error
	// UIFunc runs step 5.
	UIFunc func() error

	// OnFatal receives a *sim.DeviceError surfaced by RenderFunc or
	// UIFunc (§A.2 of SPEC_FULL.md: device errors are fatal but must
	// reach a caller-chosen reporting path, not a bare panic). Nil
	// means such an error is simply returned from Step like any other.
	OnFatal func(error)

	MaxFrameDelta time.Duration

	pendingDispatch []world.Descriptor
	pendingReadback *sim.Readback
	tick            int32
}

// NewLoop constructs a Loop with the default frame-delta bound (§4.6).
func NewLoop(w *world.World, pool *sim.Pool, pipeline *sim.Pipeline, solver *structural.Solver, rs *rules.RuleSet, log enginelog.Logger) *Loop {
	return &Loop{
		World:         w,
		Sim:           pipeline,
		Pool:          pool,
		Structural:    solver,
		Rules:         rs,
		Log:           log,
		MaxFrameDelta: DefaultMaxFrameDelta,
	}
}

// PushCommand enqueues a command for the next tick (§4.6 step 1,
// §6.4). The orchestrator doesn't own an input device itself — callers
// translate raw input into SimCommands and push them here, the same
// separation Gekko3D keeps between glfw's callbacks and
// application.HandleClick.
func (l *Loop) PushCommand(cmd sim.Command) bool {
	return l.Sim.PushCommand(cmd)
}

// Step runs one frame: resolve the previous tick's readback if it has
// arrived, update world streaming/activity state, run a simulation
// tick unless wallDelta exceeds MaxFrameDelta, then the render/UI
// hooks (§4.6, §5 "do not catch up — skip those ticks").
func (l *Loop) Step(cameraChunk world.Coord, wallDelta time.Duration) error {
	l.resolvePendingReadback()

	l.World.UpdateStreaming(cameraChunk)
	l.World.MarkActive(cameraChunk)

	if wallDelta > l.MaxFrameDelta {
		l.Log.Warnf("frame delta %s exceeds max %s, skipping tick", wallDelta, l.MaxFrameDelta)
	} else {
		l.runTick()
	}

	if l.RenderFunc != nil {
		if err := l.RenderFunc(l.pendingReadback); err != nil {
			return l.handleStepError(err)
		}
	}
	if l.UIFunc != nil {
		if err := l.UIFunc(); err != nil {
			return l.handleStepError(err)
		}
	}
	return nil
}

// handleStepError routes a fatal device error to OnFatal rather than
// returning it like a recoverable error, matching the DeviceError
// taxonomy's "surfaced through a callback, never a silent fallback"
// contract. Any other error is returned unchanged.
func (l *Loop) handleStepError(err error) error {
	var devErr *sim.DeviceError
	if errors.As(err, &devErr) && l.OnFatal != nil {
		l.OnFatal(err)
		return nil
	}
	return err
}

func (l *Loop) runTick() {
	dispatch := l.World.BuildDispatchList()
	descs := make([]voxel.ChunkDescriptor, len(dispatch.Entries))
	readSlots := make([]uint32, len(dispatch.Entries))
	for i, d := range dispatch.Entries {
		descs[i] = voxel.ChunkDescriptor{OwnSlot: d.OwnSlot, NeighborSlots: d.NeighborSlots}
		rec, ok := l.World.Get(d.Coord)
		if ok {
			readSlots[i] = rec.ReadSlot
		} else {
			readSlots[i] = voxel.SentinelOffset
		}
	}

	// The previous tick's dispatch/readback pair must be fully
	// resolved before this tick's pool swap, since swapping a chunk
	// whose activity flag hasn't been consumed yet would corrupt the
	// snapshot the scan was about to compare against.
	l.resolvePendingReadback()

	rb := l.Sim.Tick(descs, readSlots, l.Rules)
	l.pendingDispatch = dispatch.Entries
	l.pendingReadback = rb
	l.tick++

	events := l.Sim.DestructionEvents()
	if len(events) > 0 {
		l.Structural.Enqueue(descs, events)
	}
	l.Structural.Drain(l.Pool, l.Rules, l.Sim.Queue)
}

// resolvePendingReadback applies the dirty-chunk set to the world and
// performs this tick's double-buffer swap (§5 "pool swap is sequential
// and atomic") once the readback is ready; a not-yet-ready readback is
// left pending for the next Step, per the activity scan's 1-2 tick
// latency (§4.3).
func (l *Loop) resolvePendingReadback() {
	if l.pendingReadback == nil || !l.pendingReadback.Ready() {
		return
	}
	dirty := l.pendingReadback.Dirty()
	m := make(map[world.Coord]bool, len(l.pendingDispatch))
	for i, d := range l.pendingDispatch {
		if i < len(dirty) {
			m[d.Coord] = dirty[i]
		}
	}
	l.World.ApplyReadback(world.ActivityReadback{Dirty: m})

	for _, d := range l.pendingDispatch {
		rec, ok := l.World.Get(d.Coord)
		if !ok {
			continue
		}
		l.Pool.SwapChunk(rec.ReadSlot, rec.WriteSlot)
		l.World.Swap(d.Coord)
	}

	l.pendingDispatch = nil
	l.pendingReadback = nil
}

// CurrentTick returns the completed tick count, for deterministic PRNG
// seeding by callers outside the loop (mirrors sim.Pipeline.CurrentTick).
func (l *Loop) CurrentTick() int32 { return l.tick }
