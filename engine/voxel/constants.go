package voxel

// Tunable simulation constants (§4.1.5–§4.1.7, §3.3). These are shared
// between the rule validator (CFL stability check) and the simulation
// passes themselves, so they live in the dependency-free core package
// rather than in either of the packages that consume them.
const (
	// DiffusionRate scales the thermal pass's weighted neighbor sum
	// (§4.1.5). The CFL stability contract requires
	// DiffusionRate * maxConductivity * 26 < 1.0.
	DiffusionRate = 0.02

	// AmbientQ is the quantized ambient temperature voxels decay toward
	// (§4.1.5 "Entropy drain") and the baseline pressure/convection
	// comparisons are taken against (§4.1.5 convection, §4.1.6 pressure).
	AmbientQ = 512

	// EntropyStep is how far, per tick, a voxel's temperature moves
	// toward AmbientQ during the thermal pass's entropy drain.
	EntropyStep = 1

	// ConvectionThreshold is how far above AmbientQ a liquid/gas voxel's
	// temperature must be before it receives upward convection bias.
	ConvectionThreshold = 200

	// ThermalPressureFactor is the pressure increment applied to an
	// enclosed, hot gas/liquid voxel each tick (§4.1.6).
	ThermalPressureFactor = 2

	// PressureDiffusionRate scales the pressure pass's neighbor-average
	// diffusion term (§4.1.6).
	PressureDiffusionRate = 0.1

	// ChargeDecayRate is the per-tick charge decrement for insulators
	// and otherwise-idle conductors (§4.1.7).
	ChargeDecayRate = 4

	// ChargeMax is the saturating ceiling for the charge buffer (§4.1.7).
	ChargeMax = 1 << 16

	// ElectricalDiffusionRate scales the conductor charge-sum term
	// (§4.1.7).
	ElectricalDiffusionRate = 0.5

	// JouleFactor scales resistive heating: added temperature =
	// floor(charge^2 * resistance * JouleFactor) (§4.1.7).
	JouleFactor = 1e-6

	// SettleTicks is the number of consecutive clean-activity ticks
	// required before an Active chunk demotes to Static (§3.3).
	SettleTicks = 8

	// ModIDBase is the first authored id reserved for mod-provided
	// materials; base-game materials occupy [0, ModIDBase) (§4.2).
	ModIDBase = 10000

	// MaxBrushRadius bounds brush commands (§4.1.2): "max radius 16".
	MaxBrushRadius = 16

	// MaxQueuedCommands bounds the per-tick command queue (§3.7).
	MaxQueuedCommands = 64

	// MaxDestructionEvents bounds the destruction-event ring shared
	// between the activity scan and the structural solver (§4.4, §9).
	MaxDestructionEvents = 256

	// MaxFallFloodFill bounds the structural solver's per-event
	// flood-fill (§4.4): "≤ 4096 voxels per event".
	MaxFallFloodFill = 4096
)
