package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/world"
)

func testRuleSet(t *testing.T) *rules.RuleSet {
	t.Helper()
	src := rules.ModSource{
		Name: "core", IsBase: true,
		Files: map[string]string{
			"materials.txt": `
material 0 { name: "air", phase: gas }
material 1 { name: "stone", phase: solid, structural_integrity: 60 }
`,
		},
	}
	rs, report := rules.Load([]rules.ModSource{src}, nil)
	require.True(t, report.OK(), "%v", report)
	return rs
}

func TestBuilderProducesRunnableEngine(t *testing.T) {
	rs := testRuleSet(t)
	cfg := Config{PoolCapacity: 16, StreamRadius: 1}

	eng := NewBuilder(cfg, rs).Build()
	require.NotNil(t, eng.Loop)
	require.NotNil(t, eng.Pool)
	require.NotNil(t, eng.World)

	err := eng.Loop.Step(world.Coord{}, 16*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, int32(1), eng.Loop.CurrentTick())
}

func TestBuilderWithTerrainSeederFillsChunks(t *testing.T) {
	rs := testRuleSet(t)
	cfg := Config{PoolCapacity: 16, StreamRadius: 1}

	seeder := &world.TerrainSeeder{
		StoneID:    rs.AuthoredToInternal[1],
		SeaLevel:   -1,
		BaseHeight: 8,
		Amplitude:  0,
	}

	eng := NewBuilder(cfg, rs).WithTerrainSeeder(seeder).Build()
	require.NoError(t, eng.Loop.Step(world.Coord{}, 16*time.Millisecond))

	_, ok := eng.World.Get(world.Coord{})
	require.True(t, ok, "origin chunk should have streamed in")
}

func TestDefaultConfigFillsZeroFields(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, DefaultConfig(), cfg)

	partial := Config{StreamRadius: 10}.withDefaults()
	require.Equal(t, int32(10), partial.StreamRadius)
	require.Equal(t, int32(12), partial.UnloadRadius)
}
