package engine

import (
	"github.com/alkahest-engine/alkahest/engine/orchestrator"
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/sim"
	"github.com/alkahest-engine/alkahest/engine/structural"
	"github.com/alkahest-engine/alkahest/engine/voxel"
	"github.com/alkahest-engine/alkahest/engine/world"
	"github.com/alkahest-engine/alkahest/enginelog"
)

// Builder assembles a runnable orchestrator.Loop from a Config and a
// compiled rule set, fluent in the same register as Gekko3D's
// App.UseModules chain: each With* call mutates and returns the
// builder so callers compose it in one expression before Build.
type Builder struct {
	cfg            Config
	rules          *rules.RuleSet
	log            enginelog.Logger
	seeder         *world.TerrainSeeder
	maxJobsPerTick int
}

// NewBuilder starts a Builder from cfg (zero fields take
// DefaultConfig's values) and a compiled rule set. rs must be non-nil;
// the engine never boots with a failed rule set (§7), so callers are
// expected to have already checked rules.Load's report.
func NewBuilder(cfg Config, rs *rules.RuleSet) *Builder {
	return &Builder{
		cfg:            cfg.withDefaults(),
		rules:          rs,
		maxJobsPerTick: 64,
	}
}

// WithLogger overrides the default no-op logger.
func (b *Builder) WithLogger(log enginelog.Logger) *Builder {
	b.log = log
	return b
}

// WithTerrainSeeder installs a deterministic terrain generator for
// newly streamed-in chunks. Without one, new chunks load as air.
func (b *Builder) WithTerrainSeeder(seeder *world.TerrainSeeder) *Builder {
	b.seeder = seeder
	return b
}

// WithMaxStructuralJobsPerTick overrides the structural solver's
// per-drain backlog cap (default 64).
func (b *Builder) WithMaxStructuralJobsPerTick(n int) *Builder {
	b.maxJobsPerTick = n
	return b
}

// Engine is the assembled, runnable set of subsystems a Builder
// produces. Loop is the only piece most callers drive directly;
// Pool/World/Pipeline/Solver are exposed for embedders that need
// direct access (e.g. a renderer binding to Pool's GPU-resident
// buffers, or a save/load path walking World's chunk map).
type Engine struct {
	Pool     *sim.Pool
	World    *world.World
	Pipeline *sim.Pipeline
	Solver   *structural.Solver
	Rules    *rules.RuleSet
	Log      enginelog.Logger
	Loop     *orchestrator.Loop
}

// Build wires a Pool, World, Pipeline, structural Solver and
// orchestrator.Loop together per the Builder's configuration.
func (b *Builder) Build() *Engine {
	log := b.log
	if log == nil {
		log = enginelog.NewNopLogger()
	}

	pool := sim.NewPool(b.cfg.PoolCapacity)

	if b.seeder != nil {
		b.seeder.WriteVoxel = func(slot uint32, localIdx int, w0, w1 uint32) {
			pool.WriteVoxel(slot, localIdx, voxel.Unpack(w0, w1))
		}
	}

	w := world.New(pool, b.seeder, world.Config{
		StreamRadius: b.cfg.StreamRadius,
		UnloadRadius: b.cfg.UnloadRadius,
	})
	pipeline := sim.NewPipeline(pool)
	solver := structural.New(log, b.maxJobsPerTick)

	loop := orchestrator.NewLoop(w, pool, pipeline, solver, b.rules, log)

	return &Engine{
		Pool:     pool,
		World:    w,
		Pipeline: pipeline,
		Solver:   solver,
		Rules:    b.rules,
		Log:      log,
		Loop:     loop,
	}
}
