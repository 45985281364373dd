package rules

import (
	"fmt"

	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// validateMaterial enforces the per-record range checks of §4.2. It is
// called both for base-game and mod materials before compile remaps
// ids, so the id-range check below runs against authored ids, matching §4.2's own wording: "base game 0 ≤ id <
// MOD_ID_BASE; mods id ≥ 10000").
func validateMaterial(file string, m MaterialDef, isMod bool, report *LoadReport) bool {
	recKey := fmt.Sprintf("material %d", m.ID)
	ok := true
	fail := func(format string, args ...any) {
		report.add(file, recKey, format, args...)
		ok = false
	}

	if isMod && m.ID < voxel.ModIDBase {
		fail("mod material id %d is below ModIDBase (%d)", m.ID, voxel.ModIDBase)
	}
	if !isMod && m.ID >= voxel.ModIDBase {
		fail("base material id %d must be below ModIDBase (%d)", m.ID, voxel.ModIDBase)
	}

	if m.IgnitionTemp < 0 || m.IgnitionTemp > voxel.MaxKelvin {
		fail("ignition_temp %f out of [0,%d]", m.IgnitionTemp, voxel.MaxKelvin)
	}
	if m.StructuralIntegrity > 63 {
		fail("structural_integrity %d exceeds 63", m.StructuralIntegrity)
	}
	if m.ThermalConductivity < 0 || m.ThermalConductivity > 1 {
		fail("thermal_conductivity %f out of [0,1]", m.ThermalConductivity)
	}
	if m.Flammability < 0 || m.Flammability > 1 {
		fail("flammability %f out of [0,1]", m.Flammability)
	}
	if m.Emission < 0 || m.Emission > 5 {
		fail("emission %f out of [0,5]", m.Emission)
	}
	if m.Viscosity < 0 || m.Viscosity > 1 {
		fail("viscosity %f out of [0,1]", m.Viscosity)
	}

	// CFL stability (§4.1.5): DiffusionRate * conductivity * 26 < 1.0.
	if voxel.DiffusionRate*float64(m.ThermalConductivity)*26 >= 1.0 {
		fail("thermal_conductivity %f violates CFL stability (DiffusionRate*k*26 must be < 1.0)", m.ThermalConductivity)
	}

	if m.Electrical.Conductivity < 0 || m.Electrical.Conductivity > 1 {
		fail("electrical.conductivity %f out of [0,1]", m.Electrical.Conductivity)
	}
	if m.Electrical.Resistance < 0 || m.Electrical.Resistance > 1 {
		fail("electrical.resistance %f out of [0,1]", m.Electrical.Resistance)
	}
	if m.Electrical.ActivationThreshold < 0 || m.Electrical.ActivationThreshold > 6 {
		fail("electrical.activation_threshold %d out of [0,6]", m.Electrical.ActivationThreshold)
	}

	return ok
}

// validateCrossReferences checks that every rule references materials
// that actually exist, by authored id before remapping (§4.2 "Every rule references
// existing material ids").
func validateCrossReferences(file string, r RuleDef, known map[uint32]bool, report *LoadReport) bool {
	recKey := fmt.Sprintf("rule at line %d", r.SourceLine)
	ok := true
	check := func(id uint32, field string) {
		if !known[id] {
			report.add(file, recKey, "%s references unknown material id %d", field, id)
			ok = false
		}
	}
	check(r.A, "a")
	check(r.B, "b")
	check(r.OutputA, "output_a")
	check(r.OutputB, "output_b")
	return ok
}

// validateEnergyConservation rejects rules that generate heat without
// transforming any material (§4.2 "Energy conservation", §8 "No energy
// from nothing").
func validateEnergyConservation(file string, r RuleDef, report *LoadReport) bool {
	if r.TempDelta > 0 && r.OutputA == r.A && r.OutputB == r.B {
		report.add(file, fmt.Sprintf("rule at line %d", r.SourceLine),
			"temp_delta > 0 with no material transformation generates energy from nothing")
		return false
	}
	return true
}

// validateNoOscillation enforces §4.2's "No infinite oscillation":
// if both (A,B)->(A',B') and (A',B')->(A,B) exist, their temperature
// ranges must be disjoint. Compares every unordered pair of rules whose
// forward/reverse material signatures match.
func validateNoOscillation(file string, rules []RuleDef, report *LoadReport) bool {
	ok := true
	for i, r1 := range rules {
		for j := i + 1; j < len(rules); j++ {
			r2 := rules[j]
			if r1.A == r2.OutputA && r1.B == r2.OutputB &&
				r2.A == r1.OutputA && r2.B == r1.OutputB {
				if rangesOverlap(r1.MinTemp, r1.MaxTemp, r2.MinTemp, r2.MaxTemp) {
					report.add(file, fmt.Sprintf("rules at lines %d and %d", r1.SourceLine, r2.SourceLine),
						"reversible rule pair has overlapping temperature ranges, risking infinite oscillation")
					ok = false
				}
			}
		}
	}
	return ok
}

// rangesOverlap treats 0 as "unbounded" on either side, per §3.6's
// "0 means unbounded" convention for temperature gates.
func rangesOverlap(min1, max1, min2, max2 int32) bool {
	lo1, hi1 := effectiveRange(min1, max1)
	lo2, hi2 := effectiveRange(min2, max2)
	return lo1 <= hi2 && lo2 <= hi1
}

func effectiveRange(min, max int32) (int32, int32) {
	lo := min
	hi := max
	if hi == 0 {
		hi = voxel.MaxQ
	}
	return lo, hi
}
