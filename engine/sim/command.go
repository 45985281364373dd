package sim

import "github.com/alkahest-engine/alkahest/engine/voxel"

// Tool enumerates the command tool types (§3.7).
type Tool uint8

const (
	ToolPlace Tool = iota
	ToolRemove
	ToolHeat
	ToolPush
)

// BrushShape enumerates brush expansion shapes (§3.7, §4.1.2).
type BrushShape uint8

const (
	BrushSingle BrushShape = iota
	BrushCube
	BrushSphere
)

// Command is a single-voxel-scope edit request (§3.7). DispatchIndex
// identifies which dispatch-list entry (chunk) LocalPos is relative to.
type Command struct {
	Tool          Tool
	LocalPos      [3]int32
	DispatchIndex int

	// Payload interpretation depends on Tool: Place uses Material;
	// Heat uses TempDelta; Push uses Direction (a unit-ish vector,
	// saturating-clamped into i8 velocity deltas per §4.1.2).
	Material  uint16
	TempDelta int32
	Direction [3]int8

	BrushRadius int
	BrushShape  BrushShape
}

// Queue is the bounded, single-producer/single-consumer command queue
// (§3.7: "bounded (≤ 64 per tick); overflow drops the oldest", §5
// "Command queue: single-producer / single-consumer. Bounded and
// lock-free"). The Go implementation here is not lock-free (no
// CPU-side data parallelism touches it per §5), but preserves the
// drop-oldest overflow contract exactly.
type Queue struct {
	items []Command
}

// NewQueue creates an empty command queue with capacity
// voxel.MaxQueuedCommands.
func NewQueue() *Queue {
	return &Queue{items: make([]Command, 0, voxel.MaxQueuedCommands)}
}

// ErrQueueFull is returned by Push when it had to drop the oldest
// command to make room (§7 "Submission errors... recoverable by
// caller (drop or retry)"). Push still accepts the new command; the
// error only signals that an older one was discarded.
type ErrQueueFull struct{}

func (ErrQueueFull) Error() string { return "sim: command queue full, dropped oldest command" }

// Push appends cmd, dropping the oldest queued command first if the
// queue is already at capacity (§3.7). Never rejects the new command.
func (q *Queue) Push(cmd Command) error {
	if len(q.items) >= voxel.MaxQueuedCommands {
		q.items = q.items[1:]
		q.items = append(q.items, cmd)
		return ErrQueueFull{}
	}
	q.items = append(q.items, cmd)
	return nil
}

// Drain returns and clears all queued commands, for consumption by the
// Commands pass at the start of a tick.
func (q *Queue) Drain() []Command {
	out := q.items
	q.items = make([]Command, 0, voxel.MaxQueuedCommands)
	return out
}

// Len reports the number of currently queued commands.
func (q *Queue) Len() int { return len(q.items) }
