package rules

import (
	"hash/fnv"
	"sort"

	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// compile assigns contiguous internal ids (base materials first, then
// mod materials, each group in ascending authored id), builds the flat
// material-property table, and builds the symmetric rule lookup
// (§4.2 "Compilation"). materials and resolved must already have
// passed validation; compile does not re-validate.
func compile(materials []MaterialDef, resolved map[[2]uint32]RuleDef) *RuleSet {
	sort.Slice(materials, func(i, j int) bool {
		aMod := materials[i].ID >= voxel.ModIDBase
		bMod := materials[j].ID >= voxel.ModIDBase
		if aMod != bMod {
			return !aMod // base materials first, then mods
		}
		return materials[i].ID < materials[j].ID
	})

	authoredToInternal := make(map[uint32]uint32, len(materials))
	for i, m := range materials {
		authoredToInternal[m.ID] = uint32(i)
	}
	props := make([]MatProperty, len(materials))
	for i, m := range materials {
		props[i] = toMatProperty(uint32(i), m)
		if m.DecayProduct != 0 || m.DecayRate > 0 {
			props[i].DecayProduct = authoredToInternal[m.DecayProduct]
		}
		if m.PhaseChangeProduct != 0 || m.PhaseChangeTemp > 0 {
			props[i].PhaseChangeProduct = authoredToInternal[m.PhaseChangeProduct]
		}
	}

	n := len(materials)
	lookup := make([]uint32, n*n)
	for i := range lookup {
		lookup[i] = voxel.NoRule
	}

	var compiledRules []CompiledRule
	// Deterministic iteration order: sort authored pairs so the
	// compiled rule array (and therefore RuleSet.Hash) is stable across
	// runs regardless of map iteration order.
	pairs := make([][2]uint32, 0, len(resolved))
	for pair := range resolved {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	for _, pair := range pairs {
		r := resolved[pair]
		a := authoredToInternal[r.A]
		b := authoredToInternal[r.B]
		outA := authoredToInternal[r.OutputA]
		outB := authoredToInternal[r.OutputB]

		// Forward (A,B) entry.
		fwdIdx := len(compiledRules)
		compiledRules = append(compiledRules, CompiledRule{
			OutputA: outA, OutputB: outB,
			Probability: r.Probability, TempDelta: r.TempDelta,
			PressureDelta: r.PressureDelta,
			MinTemp:       r.MinTemp, MaxTemp: r.MaxTemp,
			MinCharge: r.MinCharge, MaxCharge: r.MaxCharge,
			Name: r.Name,
		})
		lookup[int(a)*n+int(b)] = uint32(fwdIdx)

		// Mirrored (B,A) entry: "§3.6 expands each authored rule into
		// both directions at compile time so the shader needs only one
		// direction of lookup". The mirrored entry swaps the roles of
		// self/neighbor: B becomes self, its relevant output is OutputB.
		revIdx := len(compiledRules)
		compiledRules = append(compiledRules, CompiledRule{
			OutputA: outB, OutputB: outA,
			Probability: r.Probability, TempDelta: r.TempDelta,
			PressureDelta: r.PressureDelta,
			MinTemp:       r.MinTemp, MaxTemp: r.MaxTemp,
			MinCharge: r.MinCharge, MaxCharge: r.MaxCharge,
			Name: r.Name + " (mirrored)",
		})
		lookup[int(b)*n+int(a)] = uint32(revIdx)
	}

	rs := &RuleSet{
		Materials:          props,
		Lookup:             lookup,
		Rules:              compiledRules,
		AuthoredToInternal: authoredToInternal,
	}
	rs.Hash = hashRuleSet(rs)
	return rs
}

func toMatProperty(internal uint32, m MaterialDef) MatProperty {
	return MatProperty{
		InternalID:          internal,
		Phase:               m.Phase,
		Density:             m.Density,
		Color:               m.Color,
		Emission:            m.Emission,
		Flammability:        m.Flammability,
		IgnitionTemp:        m.IgnitionTemp,
		DecayRate:           m.DecayRate,
		DecayThreshold:      m.DecayThreshold,
		DecayProduct:        0, // remapped by caller once all ids are known
		Viscosity:           m.Viscosity,
		ThermalConductivity: m.ThermalConductivity,
		PhaseChangeTemp:     m.PhaseChangeTemp,
		PhaseChangeProduct:  0,
		StructuralIntegrity: m.StructuralIntegrity,
		Opacity:             effectiveOpacity(m),
		Absorption:          m.Absorption,
		Electrical:          m.Electrical,
	}
}

func effectiveOpacity(m MaterialDef) float32 {
	if m.HasOpacity {
		return m.Opacity
	}
	switch m.Phase {
	case PhaseGas:
		return 0.1
	case PhaseLiquid:
		return 0.6
	default:
		return 1.0
	}
}

// hashRuleSet computes a deterministic hash of the compiled rule set
// for save-compatibility checks (§6.3). It hashes over the sorted,
// already-deterministic Materials/Lookup/Rules slices.
func hashRuleSet(rs *RuleSet) uint64 {
	h := fnv.New64a()
	writeU32 := func(v uint32) {
		h.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
	}
	for _, m := range rs.Materials {
		writeU32(m.InternalID)
		writeU32(uint32(m.Phase))
		writeU32(uint32(m.StructuralIntegrity))
	}
	for _, l := range rs.Lookup {
		writeU32(l)
	}
	for _, r := range rs.Rules {
		writeU32(r.OutputA)
		writeU32(r.OutputB)
		writeU32(uint32(r.TempDelta))
	}
	return h.Sum64()
}
