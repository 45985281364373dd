package rules

import "fmt"

// decodeMaterial converts a parsed raw record into a MaterialDef,
// appending a LoadError to report for any missing or mistyped field
// instead of aborting the whole file load (§7 "reported per-record").
func decodeMaterial(file string, rec rawRecord, report *LoadReport) (MaterialDef, bool) {
	recKey := fmt.Sprintf("material %d", rec.id)
	ok := true
	fail := func(format string, args ...any) {
		report.add(file, recKey, format, args...)
		ok = false
	}

	m := MaterialDef{ID: rec.id}
	m.Name, _ = str(rec.fields, "name", "")

	phaseName, _ := str(rec.fields, "phase", "solid")
	switch phaseName {
	case "gas":
		m.Phase = PhaseGas
	case "liquid":
		m.Phase = PhaseLiquid
	case "solid":
		m.Phase = PhaseSolid
	case "powder":
		m.Phase = PhasePowder
	default:
		fail("unknown phase %q", phaseName)
	}

	m.Density = num32(rec.fields, "density", 1.0)
	if arr, has := rec.fields["color"].([]any); has && len(arr) == 3 {
		m.Color = Color{R: toF32(arr[0]), G: toF32(arr[1]), B: toF32(arr[2])}
	}
	m.Emission = num32(rec.fields, "emission", 0)
	m.Flammability = num32(rec.fields, "flammability", 0)
	m.IgnitionTemp = num32(rec.fields, "ignition_temp", 0)
	m.DecayRate = int32(num32(rec.fields, "decay_rate", 0))
	m.DecayThreshold = int32(num32(rec.fields, "decay_threshold", 0))
	m.DecayProduct = uint32(num32(rec.fields, "decay_product", 0))
	m.Viscosity = num32(rec.fields, "viscosity", 0)
	m.ThermalConductivity = num32(rec.fields, "thermal_conductivity", 0)
	m.PhaseChangeTemp = int32(num32(rec.fields, "phase_change_temp", 0))
	m.PhaseChangeProduct = uint32(num32(rec.fields, "phase_change_product", 0))
	m.StructuralIntegrity = uint8(num32(rec.fields, "structural_integrity", 0))
	if v, has := rec.fields["opacity"]; has {
		m.Opacity = toF32(v)
		m.HasOpacity = true
	}
	m.Absorption = num32(rec.fields, "absorption", 0)

	if raw, has := rec.fields["electrical"]; has {
		obj, isObj := raw.(map[string]any)
		if !isObj {
			fail("electrical must be an object")
		} else {
			m.Electrical = Electrical{
				Conductivity:        num32(obj, "conductivity", 0),
				Resistance:          num32(obj, "resistance", 0),
				ActivationThreshold: int(num32(obj, "activation_threshold", 1)),
				ChargeEmission:      num32(obj, "charge_emission", 0),
			}
		}
	} else {
		m.Electrical.ActivationThreshold = 1
	}

	return m, ok
}

func decodeRule(file string, rec rawRecord, report *LoadReport) (RuleDef, bool) {
	recKey := fmt.Sprintf("rule at line %d", rec.line)
	ok := true

	a, haveA := rec.fields["a"]
	b, haveB := rec.fields["b"]
	if !haveA || !haveB {
		report.add(file, recKey, "rule must declare both 'a' and 'b'")
		return RuleDef{}, false
	}

	r := RuleDef{
		A:             uint32(toF32(a)),
		B:             uint32(toF32(b)),
		OutputA:       uint32(num32(rec.fields, "output_a", toF32(a))),
		OutputB:       uint32(num32(rec.fields, "output_b", toF32(b))),
		Probability:   num32(rec.fields, "probability", 1.0),
		TempDelta:     int32(num32(rec.fields, "temp_delta", 0)),
		MinTemp:       int32(num32(rec.fields, "min_temp", 0)),
		MaxTemp:       int32(num32(rec.fields, "max_temp", 0)),
		PressureDelta: int32(num32(rec.fields, "pressure_delta", 0)),
		MinCharge:     int32(num32(rec.fields, "min_charge", 0)),
		MaxCharge:     int32(num32(rec.fields, "max_charge", 0)),
		SourceFile:    file,
		SourceLine:    rec.line,
	}
	r.Name, _ = str(rec.fields, "name", recKey)

	if r.Probability < 0 || r.Probability > 1 {
		report.add(file, recKey, "probability %f out of [0,1]", r.Probability)
		ok = false
	}
	return r, ok
}

func str(fields map[string]any, key, def string) (string, bool) {
	if v, has := fields[key]; has {
		if s, isStr := v.(string); isStr {
			return s, true
		}
	}
	return def, false
}

func num32(fields map[string]any, key string, def float32) float32 {
	if v, has := fields[key]; has {
		return toF32(v)
	}
	return def
}

func toF32(v any) float32 {
	switch t := v.(type) {
	case float64:
		return float32(t)
	case float32:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}
