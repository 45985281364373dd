// Package engine wires the rule engine, double-buffered chunk pool,
// world, simulation pipeline and structural solver into a single
// runnable orchestrator.Loop. Grounded on Gekko3D's app_builder.go
// fluent NewApp().UseModules(...) pattern (§A.3 of SPEC_FULL.md),
// generalized from ECS module registration into assembling Alkahest's
// fixed set of subsystems from one Config.
package engine

// Config carries the knobs an embedder sets once at startup (§A.3).
// Defaults match §3.2's 8x4x8 default grid of chunks.
type Config struct {
	// GridX, GridY, GridZ are the world grid size in chunks; they are
	// used only to size the default PoolCapacity.
	GridX, GridY, GridZ int32

	// PoolCapacity is the number of chunk slots to preallocate; each
	// loaded chunk consumes two (a read slot and a write slot). Zero
	// picks a default sized for a fully loaded default grid.
	PoolCapacity int

	// StreamRadius and UnloadRadius configure world.Config (chunks
	// stream in within StreamRadius of the camera chunk, and unload
	// once farther than UnloadRadius). A zero StreamRadius defaults to
	// DefaultConfig's 4; a zero UnloadRadius defaults to StreamRadius+2.
	StreamRadius int32
	UnloadRadius int32

	// TickRate is the simulation's intended ticks-per-second. Builder
	// does not derive anything from it directly; callers use it to
	// pace their own Step loop (the orchestrator's own MaxFrameDelta
	// throttle is independent, see orchestrator.DefaultMaxFrameDelta).
	TickRate float64
}

// DefaultConfig returns a Config matching §3.2's 8x4x8 default grid.
func DefaultConfig() Config {
	return Config{
		GridX: 8, GridY: 4, GridZ: 8,
		PoolCapacity: 8 * 4 * 8 * 2,
		StreamRadius: 4,
		UnloadRadius: 6,
		TickRate:     20,
	}
}

// withDefaults fills any zero-valued field from DefaultConfig, so a
// caller can supply a partially-populated Config (e.g. just
// PoolCapacity for a test fixture).
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GridX == 0 {
		c.GridX = d.GridX
	}
	if c.GridY == 0 {
		c.GridY = d.GridY
	}
	if c.GridZ == 0 {
		c.GridZ = d.GridZ
	}
	if c.PoolCapacity == 0 {
		c.PoolCapacity = int(c.GridX*c.GridY*c.GridZ) * 2
	}
	if c.StreamRadius == 0 {
		c.StreamRadius = d.StreamRadius
	}
	if c.UnloadRadius == 0 {
		c.UnloadRadius = c.StreamRadius + 2
	}
	if c.TickRate == 0 {
		c.TickRate = d.TickRate
	}
	return c
}
