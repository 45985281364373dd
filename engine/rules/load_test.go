package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alkahest-engine/alkahest/engine/voxel"
)

func baseSource(files map[string]string) ModSource {
	return ModSource{Name: "core", LoadOrderHint: 0, IsBase: true, Files: files}
}

func TestLoadSimpleRuleSet(t *testing.T) {
	src := baseSource(map[string]string{
		"materials.txt": `
material 0 { name: "air", phase: gas, density: 0.1 }
material 1 { name: "stone", phase: solid, density: 2.5, structural_integrity: 60 }
material 2 { name: "sand", phase: powder, density: 1.5 }
`,
	})
	rs, report := Load([]ModSource{src}, nil)
	require.True(t, report.OK(), "%v", report)
	require.NotNil(t, rs)
	require.Len(t, rs.Materials, 3)
	require.Len(t, rs.Lookup, 9)
}

func TestRuleSymmetry(t *testing.T) {
	src := baseSource(map[string]string{
		"materials.txt": `
material 0 { name: "air", phase: gas }
material 10 { name: "fire", phase: gas, density: 0.2 }
material 11 { name: "wood", phase: solid, flammability: 0.8 }
material 12 { name: "ash", phase: powder }
material 13 { name: "smoke", phase: gas }
`,
		"rules.txt": `
rule { a: 10, b: 11, output_a: 10, output_b: 12, probability: 0.5, temp_delta: 50, name: "fire burns wood" }
`,
	})
	rs, report := Load([]ModSource{src}, nil)
	require.True(t, report.OK(), "%v", report)

	a := rs.AuthoredToInternal[10]
	b := rs.AuthoredToInternal[11]
	n := len(rs.Materials)
	fwd := rs.Lookup[int(a)*n+int(b)]
	rev := rs.Lookup[int(b)*n+int(a)]
	if (fwd != voxel.NoRule) != (rev != voxel.NoRule) {
		t.Fatalf("rule symmetry violated: fwd=%d rev=%d", fwd, rev)
	}
	if fwd == voxel.NoRule {
		t.Fatalf("expected a compiled rule for (fire, wood)")
	}
}

func TestEnergyConservationRejected(t *testing.T) {
	src := baseSource(map[string]string{
		"materials.txt": `
material 0 { name: "air", phase: gas }
material 1 { name: "stone", phase: solid }
`,
		"rules.txt": `
rule { a: 0, b: 1, output_a: 0, output_b: 1, temp_delta: 10, name: "free energy" }
`,
	})
	_, report := Load([]ModSource{src}, nil)
	if report.OK() {
		t.Fatalf("expected energy-conservation rejection, got a clean report")
	}
}

func TestModIDRangeRejected(t *testing.T) {
	base := baseSource(map[string]string{
		"materials.txt": `material 0 { name: "air", phase: gas }`,
	})
	mod := ModSource{
		Name: "addon", LoadOrderHint: 1, IsBase: false,
		Files: map[string]string{
			"materials.txt": `material 5 { name: "bad-id-mod-material", phase: solid }`,
		},
	}
	_, report := Load([]ModSource{base, mod}, nil)
	if report.OK() {
		t.Fatalf("expected rejection of mod material id below ModIDBase")
	}
}

func TestCFLStabilityRejected(t *testing.T) {
	src := baseSource(map[string]string{
		"materials.txt": `
material 0 { name: "air", phase: gas }
material 1 { name: "superconductor", phase: solid, thermal_conductivity: 1.0 }
`,
	})
	_, report := Load([]ModSource{src}, nil)
	if report.OK() {
		t.Fatalf("expected CFL stability rejection for thermal_conductivity=1.0")
	}
}

func TestModLastWinsConflictWarns(t *testing.T) {
	base := baseSource(map[string]string{
		"materials.txt": `material 0 { name: "air", phase: gas }`,
	})
	modA := ModSource{
		Name: "addon-a", LoadOrderHint: 1,
		Files: map[string]string{
			"materials.txt": `material 10000 { name: "addon-a-mat", phase: solid }`,
		},
	}
	modB := ModSource{
		Name: "addon-b", LoadOrderHint: 2,
		Files: map[string]string{
			"materials.txt": `material 10000 { name: "addon-b-mat", phase: liquid }`,
		},
	}
	var warnings []string
	rs, report := Load([]ModSource{base, modA, modB}, func(format string, args ...any) {
		warnings = append(warnings, FormatWarning(format, args...))
	})
	require.True(t, report.OK(), "%v", report)
	if len(warnings) == 0 {
		t.Fatalf("expected a conflict warning for redefined material 10000")
	}
	internal := rs.AuthoredToInternal[10000]
	if rs.Materials[internal].Phase != PhaseLiquid {
		t.Fatalf("expected last-loaded (addon-b) definition to win, got phase %v", rs.Materials[internal].Phase)
	}
}
