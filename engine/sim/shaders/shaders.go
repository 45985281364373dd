// Package shaders embeds the WGSL compute kernels for the 7-pass
// pipeline, one file per pass plus a shared common.wgsl of types,
// constants and the pack/unpack pair. gpu.go concatenates CommonWGSL
// ahead of each pass source before handing it to
// wgpu.Device.CreateShaderModule, the same way the CPU mirror shares
// helpers across the pass_*.go files.
package shaders

import (
	_ "embed"
)

//go:embed common.wgsl
var CommonWGSL string

//go:embed commands.wgsl
var CommandsWGSL string

//go:embed movement.wgsl
var MovementWGSL string

//go:embed reactions.wgsl
var ReactionsWGSL string

//go:embed thermal.wgsl
var ThermalWGSL string

//go:embed electrical.wgsl
var ElectricalWGSL string

//go:embed pressure.wgsl
var PressureWGSL string

//go:embed activity_scan.wgsl
var ActivityScanWGSL string
