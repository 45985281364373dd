// Package rules loads material and interaction-rule declarative text
// files, validates them against the engine's quantization and stability
// constraints, and compiles them into the two flat GPU tables the
// simulation pipeline dispatches against: a material-property table
// indexed by material id, and a symmetric interaction-rule lookup
// indexed by an ordered material-id pair (§4.2).
package rules

// Phase enumerates a material's physical phase (§3.5).
type Phase uint8

const (
	PhaseGas Phase = iota
	PhaseLiquid
	PhaseSolid
	PhasePowder
)

func (p Phase) String() string {
	switch p {
	case PhaseGas:
		return "gas"
	case PhaseLiquid:
		return "liquid"
	case PhaseSolid:
		return "solid"
	case PhasePowder:
		return "powder"
	default:
		return "unknown"
	}
}

// Color is an abstract rgb color in [0,1]^3, carried through to the
// material table for the renderer.
type Color struct {
	R, G, B float32
}

// Electrical is a material's electrical sub-record (§3.5).
type Electrical struct {
	Conductivity        float32 // [0,1]
	Resistance          float32 // [0,1]
	ActivationThreshold int     // [0,6], default 1
	ChargeEmission      float32 // constant charge for power sources, 0 otherwise
}

// MaterialDef is the authored, in-memory form of a material record
// (§3.5), keyed by its authored id (base ids 0..9999, mod ids ≥10000).
type MaterialDef struct {
	ID   uint32
	Name string

	Phase       Phase
	Density     float32
	Color       Color
	Emission    float32 // [0,5]
	Flammability float32 // [0,1]

	IgnitionTemp   float32 // kelvin
	DecayRate      int32   // quantized per-tick decrement
	DecayThreshold int32   // quantized
	DecayProduct   uint32

	Viscosity           float32 // 0 free flow .. 1 no flow
	ThermalConductivity float32 // [0,1]

	PhaseChangeTemp    int32 // quantized; 0 means none
	PhaseChangeProduct uint32

	StructuralIntegrity uint8 // [0,63]
	Opacity             float32
	HasOpacity          bool // false => derive from Phase
	Absorption          float32

	Electrical Electrical
}

// RuleDef is the authored, in-memory form of an interaction rule
// (§3.6), before the compiler mirrors it into both directions.
type RuleDef struct {
	Name string

	A, B           uint32
	OutputA, OutputB uint32

	Probability float32 // [0,1]
	TempDelta   int32   // signed, quantized, applied to A
	MinTemp     int32   // quantized; 0 = unbounded
	MaxTemp     int32

	PressureDelta int32 // signed
	MinCharge     int32 // 0 = unbounded
	MaxCharge     int32

	SourceFile string
	SourceLine int
}

// NoRule is the rule-lookup sentinel shared across compile, validate
// and the sim package.
const NoRule uint32 = 0xFFFFFFFF

// MatProperty is one record of the compiled flat material-property
// table (§4.2 "three to four vec4 records"). Stored as plain float32
// fields here; sim/gpu.go packs these into the vec4 layout the shader
// expects.
type MatProperty struct {
	InternalID uint32

	Phase               Phase
	Density             float32
	Color               Color
	Emission            float32
	Flammability        float32
	IgnitionTemp        float32
	DecayRate           int32
	DecayThreshold      int32
	DecayProduct        uint32
	Viscosity           float32
	ThermalConductivity float32
	PhaseChangeTemp     int32
	PhaseChangeProduct  uint32
	StructuralIntegrity uint8
	Opacity             float32
	Absorption          float32
	Electrical          Electrical
}

// CompiledRule is one packed rule-data record (§4.2): "(output_a,
// output_b, probability_as_u32, temp_delta, pressure_delta, min_t,
// max_t, min_c, max_c)".
type CompiledRule struct {
	OutputA, OutputB uint32
	Probability      float32
	TempDelta        int32
	PressureDelta    int32
	MinTemp, MaxTemp int32
	MinCharge, MaxCharge int32
	Name             string
}

// RuleSet is the fully compiled, GPU-ready output of Compile: a dense
// material-property table indexed by internal id, and a dense
// material_count^2 lookup array of rule indices into Rules (or NoRule).
type RuleSet struct {
	Materials []MatProperty // indexed by internal id
	Lookup    []uint32      // len == len(Materials)^2
	Rules     []CompiledRule

	// AuthoredToInternal maps an authored material id to its assigned
	// internal id (§4.2 "Compilation", §9 "Mod remapping").
	AuthoredToInternal map[uint32]uint32

	// Hash is a deterministic hash of the compiled rule set, recorded
	// in save headers (§6.3) so restore can warn on mismatch.
	Hash uint64
}

func (rs *RuleSet) materialCount() int { return len(rs.Materials) }

// LookupIndex returns the index into RuleSet.Lookup for an ordered
// internal-id pair, matching the shader's `rule_lookup[my_mat *
// material_count + neighbor_mat]` indexing (§4.1.4).
func (rs *RuleSet) LookupIndex(self, neighbor uint32) int {
	return int(self)*rs.materialCount() + int(neighbor)
}
