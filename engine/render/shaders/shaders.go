// Package shaders embeds the renderer's compute kernel. common.wgsl is
// not embedded here: render.go reuses engine/sim/shaders.CommonWGSL
// directly rather than copying the pack/unpack and constant
// definitions a second time.
package shaders

import (
	_ "embed"
)

//go:embed raymarch.wgsl
var RaymarchWGSL string
