package orchestrator

import (
	"testing"
	"time"

	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/sim"
	"github.com/alkahest-engine/alkahest/engine/structural"
	"github.com/alkahest-engine/alkahest/engine/world"
	"github.com/alkahest-engine/alkahest/enginelog"
)

func minimalRuleSet(t *testing.T) *rules.RuleSet {
	t.Helper()
	src := rules.ModSource{
		Name: "core", IsBase: true,
		Files: map[string]string{
			"materials.txt": `
material 0 { name: "air", phase: gas }
material 1 { name: "stone", phase: solid, structural_integrity: 60 }
material 2 { name: "sand", phase: powder, density: 1.5 }
`,
		},
	}
	rs, report := rules.Load([]rules.ModSource{src}, nil)
	if !report.OK() {
		t.Fatalf("loading test rule set: %v", report)
	}
	return rs
}

func TestLoopStepsWithoutPanicking(t *testing.T) {
	rs := minimalRuleSet(t)
	pool := sim.NewPool(64)
	w := world.New(pool, nil, world.Config{StreamRadius: 1, UnloadRadius: 3})
	pipeline := sim.NewPipeline(pool)
	solver := structural.New(enginelog.NewNopLogger(), 8)

	loop := NewLoop(w, pool, pipeline, solver, rs, enginelog.NewNopLogger())

	var rendered int
	loop.RenderFunc = func(rb *sim.Readback) error {
		rendered++
		return nil
	}

	origin := world.Coord{}
	for i := 0; i < 5; i++ {
		if err := loop.Step(origin, 16*time.Millisecond); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	if rendered != 5 {
		t.Fatalf("expected 5 render calls, got %d", rendered)
	}
	if loop.CurrentTick() != 5 {
		t.Fatalf("expected 5 ticks to have run, got %d", loop.CurrentTick())
	}
}

func TestLoopSkipsTickOnLargeFrameDelta(t *testing.T) {
	rs := minimalRuleSet(t)
	pool := sim.NewPool(64)
	w := world.New(pool, nil, world.Config{StreamRadius: 1, UnloadRadius: 3})
	pipeline := sim.NewPipeline(pool)
	solver := structural.New(enginelog.NewNopLogger(), 8)

	loop := NewLoop(w, pool, pipeline, solver, rs, enginelog.NewNopLogger())
	loop.MaxFrameDelta = 50 * time.Millisecond

	origin := world.Coord{}
	if err := loop.Step(origin, 500*time.Millisecond); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if loop.CurrentTick() != 0 {
		t.Fatalf("expected the oversized-delta frame to skip its tick, got tick %d", loop.CurrentTick())
	}
}
