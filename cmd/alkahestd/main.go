// alkahestd is the headless simulation daemon: no glfw window, no
// wgpu device, just the rule loader, chunk pool, world streaming and
// the fixed per-frame sequence ticking on a timer. It exists as the
// host-independent surface windowed clients (excluded from this
// repo, same as Gekko3D's own rt_main.go window glue) drive
// through PushCommand/Step instead of owning their own copy of the
// wiring.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/alkahest-engine/alkahest/engine"
	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/world"
	"github.com/alkahest-engine/alkahest/enginelog"
)

func main() {
	modDir := flag.String("mods", "", "directory of additional mod material/rule files (not loaded; logs a warning)")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	tickRate := flag.Float64("tick-rate", 20, "simulation ticks per second")
	streamRadius := flag.Int("stream-radius", 4, "chunk streaming radius around the origin camera")
	flag.Parse()

	sessionID := uuid.New()

	log := enginelog.NewDefaultLogger("alkahest", *debug)
	log.Infof("starting session %s", sessionID)

	rs, err := loadRuleSet(*modDir, log)
	if err != nil {
		log.Errorf("rule load failed: %v", err)
		os.Exit(1)
	}

	cfg := engine.DefaultConfig()
	cfg.TickRate = *tickRate
	cfg.StreamRadius = int32(*streamRadius)

	eng := engine.NewBuilder(cfg, rs).
		WithLogger(log).
		WithTerrainSeeder(defaultSeeder(rs)).
		Build()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	period := time.Duration(float64(time.Second) / cfg.TickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	origin := world.Coord{}
	last := time.Now()

	log.Infof("running at %.1f ticks/sec, stream radius %d", cfg.TickRate, cfg.StreamRadius)

	for {
		select {
		case <-ctx.Done():
			log.Infof("session %s shutting down", sessionID)
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if err := eng.Loop.Step(origin, delta); err != nil {
				log.Errorf("step failed: %v", err)
				return
			}
			if diag := eng.Pipeline.DrainDiagnostics(); len(diag) > 0 && log.DebugEnabled() {
				log.Debugf("tick %d diagnostics: %v", eng.Loop.CurrentTick(), diag)
			}
		}
	}
}

// loadRuleSet loads the built-in base materials inline. A non-empty
// modDir (--mods) is not read from disk: it only logs a warning and
// the load continues with the base set alone, never a hard failure
// for the optional directory.
func loadRuleSet(modDir string, log enginelog.Logger) (*rules.RuleSet, error) {
	base := rules.ModSource{
		Name:          "base",
		LoadOrderHint: 0,
		IsBase:        true,
		Files: map[string]string{
			"materials.txt": baseMaterials,
		},
	}

	sources := []rules.ModSource{base}
	if modDir != "" {
		log.Warnf("--mods=%s requested but on-disk mod loading is not wired into this daemon; ignoring", modDir)
	}

	rs, report := rules.Load(sources, log.Warnf)
	if !report.OK() {
		return nil, fmt.Errorf("base rule set failed validation: %w", report)
	}
	return rs, nil
}

// defaultSeeder builds the terrain seeder used for newly streamed-in
// chunks, resolving authored ids through the compiled rule set so the
// daemon isn't hardcoding internal ids directly.
func defaultSeeder(rs *rules.RuleSet) *world.TerrainSeeder {
	return &world.TerrainSeeder{
		StoneID:    rs.AuthoredToInternal[1],
		SandID:     rs.AuthoredToInternal[2],
		WaterID:    rs.AuthoredToInternal[3],
		SeaLevel:   8,
		BaseHeight: 16,
		Amplitude:  10,
	}
}

const baseMaterials = `
material 0 { name: "air", phase: gas }
material 1 { name: "stone", phase: solid, structural_integrity: 60 }
material 2 { name: "sand", phase: powder, density: 1.5 }
material 3 { name: "water", phase: liquid, density: 1.0, viscosity: 0.2 }
`
