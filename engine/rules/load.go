package rules

import (
	"fmt"
	"sort"
)

// ModSource is one directory's worth of declarative text to load,
// ordered by LoadOrderHint ascending (§4.2 "Mod loading"). IsBase marks
// the core game's own material/rule directory, whose materials must
// fall below ModIDBase; every other source is a mod and must declare
// ids at or above it (§4.2, §8 "Mod id range").
type ModSource struct {
	Name          string
	LoadOrderHint int
	IsBase        bool
	Files         map[string]string // filename -> file contents
}

// Load parses, validates and compiles every ModSource in load-order,
// remapping mod material ids and resolving rule conflicts last-wins
// with a warning (§4.2, §4.3, §7 "local recovery is permitted in the
// loader"). warn receives one message per recoverable conflict; it may
// be nil. Load returns (nil, report) if the report contains hard
// errors — "the engine never boots with a failed rule set" (§7).
func Load(sources []ModSource, warn func(string, ...any)) (*RuleSet, *LoadReport) {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	report := &LoadReport{}

	sorted := append([]ModSource(nil), sources...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LoadOrderHint < sorted[j].LoadOrderHint
	})

	materialsByID := map[uint32]MaterialDef{}
	var materialOrder []uint32
	rulesByPair := map[[2]uint32]RuleDef{}

	for _, src := range sorted {
		isMod := !src.IsBase
		filenames := make([]string, 0, len(src.Files))
		for fn := range src.Files {
			filenames = append(filenames, fn)
		}
		sort.Strings(filenames)

		for _, fn := range filenames {
			records, err := parseFile(fn, src.Files[fn])
			if err != nil {
				report.add(fn, "parse", "%v", err)
				continue
			}
			for _, rec := range records {
				switch rec.kind {
				case "material":
					m, ok := decodeMaterial(fn, rec, report)
					if !ok {
						continue
					}
					if !validateMaterial(fn, m, isMod, report) {
						continue
					}
					if _, exists := materialsByID[m.ID]; exists {
						warn("material %d redefined by %s; last-loaded wins", m.ID, src.Name)
					} else {
						materialOrder = append(materialOrder, m.ID)
					}
					materialsByID[m.ID] = m
				case "rule":
					r, ok := decodeRule(fn, rec, report)
					if !ok {
						continue
					}
					key := [2]uint32{r.A, r.B}
					if _, exists := rulesByPair[key]; exists {
						warn("rule (%d,%d) redefined by %s; last-loaded wins", r.A, r.B, src.Name)
					}
					rulesByPair[key] = r
				}
			}
		}
	}

	materials := make([]MaterialDef, 0, len(materialOrder))
	for _, id := range materialOrder {
		materials = append(materials, materialsByID[id])
	}

	known := make(map[uint32]bool, len(materials))
	for _, m := range materials {
		known[m.ID] = true
	}

	ruleList := make([]RuleDef, 0, len(rulesByPair))
	for _, r := range rulesByPair {
		ruleList = append(ruleList, r)
	}
	sort.Slice(ruleList, func(i, j int) bool { return ruleList[i].SourceLine < ruleList[j].SourceLine })

	for _, r := range ruleList {
		if !validateCrossReferences(r.SourceFile, r, known, report) {
			delete(rulesByPair, [2]uint32{r.A, r.B})
			continue
		}
		if !validateEnergyConservation(r.SourceFile, r, report) {
			delete(rulesByPair, [2]uint32{r.A, r.B})
		}
	}
	remaining := make([]RuleDef, 0, len(rulesByPair))
	for _, r := range rulesByPair {
		remaining = append(remaining, r)
	}
	validateNoOscillation("<ruleset>", remaining, report)

	if !report.OK() {
		return nil, report
	}

	rs := compile(materials, rulesByPair)
	return rs, report
}

// FormatWarning is a convenience default for Load's warn callback,
// matching Gekko3D's plain-text warning style (logging.go's
// Warnf passthrough).
func FormatWarning(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
