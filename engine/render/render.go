// Package render implements the two-level DDA raymarcher (§4.5): a
// single compute kernel that reads the simulation's current write pool
// directly, composites front-to-back through transparent voxels, and
// writes the shared pick buffer when the cursor pixel is hit.
//
// Grounded on Gekko3D's voxelrt/rt raymarch pipeline and
// gpu/manager.go's buffer-growth/bind-group-rebuild conventions, the
// same shape engine/sim/gpu.go already follows for the simulation
// dispatch path.
package render

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/render/shaders"
	simshaders "github.com/alkahest-engine/alkahest/engine/sim/shaders"
	"github.com/alkahest-engine/alkahest/engine/voxel"
	"github.com/alkahest-engine/alkahest/engine/world"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	cameraParamsBytes = 112
	pickBufferBytes   = 8 * 4
	diagnosticsBytes  = 4 * 4
	renderMaterialBytes = 32

	// DefaultRenderRadius bounds the chunk map around the camera's
	// chunk, independent of engine/world's streaming radius: render
	// distance and simulation distance are different tunables (§4.5
	// doesn't tie the two together).
	DefaultRenderRadius int32 = 6

	// AOScale scales the 6-face-neighbor occupancy count into a
	// darkening factor (§4.5 "ambient occlusion ... scaled by a
	// constant").
	AOScale float32 = 1.0 / 8.0
)

// Light is a point light source (§4.5 "lights are point sources passed
// as a separate small array").
type Light struct {
	Position  mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
}

// Camera describes the frame's view for ray generation; TanHalfFOV and
// Aspect are precomputed by the caller so the kernel does no
// trigonometry per pixel.
type Camera struct {
	Origin, Forward, Right, Up mgl32.Vec3
	TanHalfFOV, Aspect         float32
}

// Renderer owns the device-side raymarch pipeline and its own buffers
// for everything except the voxel/charge pools, which it binds
// directly from engine/sim.GpuPipeline (§5 "the renderer reads the
// current write pool"; pool buffers are mutated only by the simulation
// pipeline).
type Renderer struct {
	Device *wgpu.Device

	voxelBuf *wgpu.Buffer // bound externally via BindPool, never allocated here

	materialBuf *wgpu.Buffer
	chunkMapBuf *wgpu.Buffer
	cameraBuf   *wgpu.Buffer
	lightsBuf   *wgpu.Buffer
	colorBuf    *wgpu.Buffer
	pickBuf     *wgpu.Buffer
	diagBuf     *wgpu.Buffer

	pickReadbackBuf *wgpu.Buffer
	diagReadbackBuf *wgpu.Buffer

	pipeline *wgpu.ComputePipeline
	poolBG, materialsBG, sceneBG, outputBG *wgpu.BindGroup
	bindGroupsDirty bool

	width, height  uint32
	chunkOrigin    world.Coord
	renderDiameter uint32
	lightCount     uint32
}

// NewRenderer compiles the raymarch kernel. Callers must BindPool,
// Resize, UploadMaterials, UploadChunkMap and SetLights before the
// first Render.
func NewRenderer(device *wgpu.Device) (*Renderer, error) {
	r := &Renderer{Device: device}

	mod, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "raymarch CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: simshaders.CommonWGSL + "\n" + shaders.RaymarchWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("render: compiling raymarch shader: %w", err)
	}
	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "raymarch pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     mod,
			EntryPoint: "cs_raymarch",
		},
	})
	mod.Release()
	if err != nil {
		return nil, fmt.Errorf("render: creating raymarch pipeline: %w", err)
	}
	r.pipeline = pipeline

	cameraBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "camera params",
		Size:  cameraParamsBytes,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: allocating camera buffer: %w", err)
	}
	r.cameraBuf = cameraBuf

	pickBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "pick buffer",
		Size:  pickBufferBytes,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: allocating pick buffer: %w", err)
	}
	r.pickBuf = pickBuf

	pickReadback, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "pick readback",
		Size:  pickBufferBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: allocating pick readback buffer: %w", err)
	}
	r.pickReadbackBuf = pickReadback

	diagBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "render diagnostics",
		Size:  diagnosticsBytes,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: allocating diagnostics buffer: %w", err)
	}
	r.diagBuf = diagBuf

	diagReadback, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "render diagnostics readback",
		Size:  diagnosticsBytes,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("render: allocating diagnostics readback buffer: %w", err)
	}
	r.diagReadbackBuf = diagReadback

	r.bindGroupsDirty = true
	return r, nil
}

// BindPool points the renderer at the simulation's current device pool
// buffer. Cheap to call every frame: it only marks bind groups dirty
// when the buffer identity actually changed, which happens whenever
// GpuPipeline.ensureBuffer reallocates on growth.
func (r *Renderer) BindPool(voxelBuf *wgpu.Buffer) {
	if voxelBuf == r.voxelBuf {
		return
	}
	r.voxelBuf = voxelBuf
	r.bindGroupsDirty = true
}

func (r *Renderer) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage) {
	needed := uint64(len(data))
	if needed == 0 {
		needed = 4
	}
	usage = usage | wgpu.BufferUsageCopyDst

	current := *buf
	if current != nil && current.GetSize() >= needed {
		if len(data) > 0 {
			r.Device.GetQueue().WriteBuffer(current, 0, data)
		}
		return
	}
	if current != nil {
		current.Release()
	}
	newBuf, err := r.Device.CreateBuffer(&wgpu.BufferDescriptor{Label: name, Size: needed, Usage: usage})
	if err != nil {
		panic(fmt.Sprintf("render: allocating %s: %v", name, err))
	}
	*buf = newBuf
	r.bindGroupsDirty = true
	if len(data) > 0 {
		r.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
}

// Resize grows the color output buffer to width*height packed RGBA8
// pixels.
func (r *Renderer) Resize(width, height uint32) {
	r.width, r.height = width, height
	r.ensureBuffer("color_out", &r.colorBuf, make([]byte, int(width)*int(height)*4), wgpu.BufferUsageStorage)
}

// UploadMaterials packs a second, renderer-only flattening of the
// compiled rule set's material table (color/opacity/emission/
// absorption/phase) — a distinct, smaller layout from sim/gpu.go's
// MatProperty table, since the renderer never touches
// decay/viscosity/electrical fields.
func (r *Renderer) UploadMaterials(rs *rules.RuleSet) {
	buf := make([]byte, len(rs.Materials)*renderMaterialBytes)
	for i, m := range rs.Materials {
		off := i * renderMaterialBytes
		putF32(buf[off:], m.Color.R)
		putF32(buf[off+4:], m.Color.G)
		putF32(buf[off+8:], m.Color.B)
		putF32(buf[off+12:], m.Opacity)
		putF32(buf[off+16:], m.Emission)
		putF32(buf[off+20:], m.Absorption)
		binary.LittleEndian.PutUint32(buf[off+24:], uint32(m.Phase))
	}
	r.ensureBuffer("render_materials", &r.materialBuf, buf, wgpu.BufferUsageStorage)
}

// ChunkLookup is the subset of *world.World the renderer needs: a
// coordinate-to-record lookup, accepted as an interface so this
// package never has to know about World's streaming/terrain internals.
type ChunkLookup interface {
	Get(c world.Coord) (*world.Record, bool)
}

// UploadChunkMap rebuilds the dense chunk-map grid centered on
// cameraChunk (§4.5's outer DDA "chunk_map"). Any chunk whose state is
// not Unloaded is included — Static chunks hold valid voxel data even
// though they're not in this tick's simulation dispatch list.
func (r *Renderer) UploadChunkMap(cameraChunk world.Coord, lookup ChunkLookup, radius int32) {
	if radius <= 0 {
		radius = DefaultRenderRadius
	}
	diameter := radius*2 + 1
	cells := int(diameter) * int(diameter) * int(diameter)
	buf := make([]byte, cells*4)
	for i := 0; i < cells; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], voxel.SentinelOffset)
	}

	origin := world.Coord{X: cameraChunk.X - radius, Y: cameraChunk.Y - radius, Z: cameraChunk.Z - radius}
	for dx := int32(0); dx < diameter; dx++ {
		for dy := int32(0); dy < diameter; dy++ {
			for dz := int32(0); dz < diameter; dz++ {
				c := world.Coord{X: origin.X + dx, Y: origin.Y + dy, Z: origin.Z + dz}
				rec, ok := lookup.Get(c)
				if !ok || rec.State == world.Unloaded {
					continue
				}
				idx := int(dx) + int(dy)*int(diameter) + int(dz)*int(diameter)*int(diameter)
				binary.LittleEndian.PutUint32(buf[idx*4:], rec.WriteSlot)
			}
		}
	}

	r.chunkOrigin = origin
	r.renderDiameter = uint32(diameter)
	r.ensureBuffer("chunk_map", &r.chunkMapBuf, buf, wgpu.BufferUsageStorage)
}

// SetLights uploads this frame's point lights, bounded by the caller
// (the shader shades with only the first SHADOW_RAY_BUDGET of them, in
// slice order; see raymarch.wgsl).
func (r *Renderer) SetLights(lights []Light) {
	r.lightCount = uint32(len(lights))
	buf := make([]byte, len(lights)*32)
	for i, l := range lights {
		off := i * 32
		putF32(buf[off:], l.Position.X())
		putF32(buf[off+4:], l.Position.Y())
		putF32(buf[off+8:], l.Position.Z())
		putF32(buf[off+16:], l.Color.X())
		putF32(buf[off+20:], l.Color.Y())
		putF32(buf[off+24:], l.Color.Z())
		putF32(buf[off+28:], l.Intensity)
	}
	r.ensureBuffer("lights", &r.lightsBuf, buf, wgpu.BufferUsageStorage)
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func (r *Renderer) ensureBindGroups() {
	if !r.bindGroupsDirty {
		return
	}
	entry := func(binding uint32, buf *wgpu.Buffer) wgpu.BindGroupEntry {
		return wgpu.BindGroupEntry{Binding: binding, Buffer: buf, Size: wgpu.WholeSize}
	}
	build := func(group uint32, entries []wgpu.BindGroupEntry) *wgpu.BindGroup {
		bg, err := r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout:  r.pipeline.GetBindGroupLayout(group),
			Entries: entries,
		})
		if err != nil {
			panic(fmt.Sprintf("render: building bind group: %v", err))
		}
		return bg
	}

	r.poolBG = build(0, []wgpu.BindGroupEntry{entry(0, r.voxelBuf)})
	r.materialsBG = build(1, []wgpu.BindGroupEntry{entry(0, r.materialBuf)})
	r.sceneBG = build(2, []wgpu.BindGroupEntry{
		entry(0, r.chunkMapBuf), entry(1, r.cameraBuf), entry(2, r.lightsBuf),
	})
	r.outputBG = build(3, []wgpu.BindGroupEntry{
		entry(0, r.colorBuf), entry(1, r.pickBuf), entry(2, r.diagBuf),
	})
	r.bindGroupsDirty = false
}

// Render dispatches one frame of the raymarch kernel and begins the
// pick-buffer/diagnostics readback (§5 "suspension points: only at GPU
// readback boundaries"). cursorX/cursorY select which pixel's hit
// populates the pick buffer.
func (r *Renderer) Render(cam Camera, cursorX, cursorY uint32) (*Readback, error) {
	r.ensureBindGroups()

	camBytes := make([]byte, cameraParamsBytes)
	putF32(camBytes[0:], cam.Origin.X())
	putF32(camBytes[4:], cam.Origin.Y())
	putF32(camBytes[8:], cam.Origin.Z())
	putF32(camBytes[16:], cam.Forward.X())
	putF32(camBytes[20:], cam.Forward.Y())
	putF32(camBytes[24:], cam.Forward.Z())
	putF32(camBytes[32:], cam.Right.X())
	putF32(camBytes[36:], cam.Right.Y())
	putF32(camBytes[40:], cam.Right.Z())
	putF32(camBytes[48:], cam.Up.X())
	putF32(camBytes[52:], cam.Up.Y())
	putF32(camBytes[56:], cam.Up.Z())
	binary.LittleEndian.PutUint32(camBytes[64:], uint32(int32(r.chunkOrigin.X)))
	binary.LittleEndian.PutUint32(camBytes[68:], uint32(int32(r.chunkOrigin.Y)))
	binary.LittleEndian.PutUint32(camBytes[72:], uint32(int32(r.chunkOrigin.Z)))
	binary.LittleEndian.PutUint32(camBytes[76:], r.renderDiameter)
	binary.LittleEndian.PutUint32(camBytes[80:], r.width)
	binary.LittleEndian.PutUint32(camBytes[84:], r.height)
	binary.LittleEndian.PutUint32(camBytes[88:], cursorX)
	binary.LittleEndian.PutUint32(camBytes[92:], cursorY)
	putF32(camBytes[96:], cam.TanHalfFOV)
	putF32(camBytes[100:], cam.Aspect)
	binary.LittleEndian.PutUint32(camBytes[104:], r.lightCount)
	putF32(camBytes[108:], AOScale)
	r.Device.GetQueue().WriteBuffer(r.cameraBuf, 0, camBytes)

	r.Device.GetQueue().WriteBuffer(r.diagBuf, 0, make([]byte, diagnosticsBytes))

	encoder, err := r.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(r.pipeline)
	pass.SetBindGroup(0, r.poolBG, nil)
	pass.SetBindGroup(1, r.materialsBG, nil)
	pass.SetBindGroup(2, r.sceneBG, nil)
	pass.SetBindGroup(3, r.outputBG, nil)
	pass.DispatchWorkgroups((r.width+7)/8, (r.height+7)/8, 1)
	pass.End()

	encoder.CopyBufferToBuffer(r.pickBuf, 0, r.pickReadbackBuf, 0, pickBufferBytes)
	encoder.CopyBufferToBuffer(r.diagBuf, 0, r.diagReadbackBuf, 0, diagnosticsBytes)

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return nil, err
	}
	r.Device.GetQueue().Submit(cmdBuf)

	return r.beginReadback(), nil
}

// Readback is the async handle Render returns for the pick buffer and
// diagnostic counters, following the same Ready()-gated contract as
// sim.Readback (§5 "no code path may block waiting for it").
type Readback struct {
	ready bool
	pick  [8]uint32
	diag  [4]uint32
}

func (r *Readback) Ready() bool     { return r.ready }
func (r *Readback) Pick() [8]uint32 { return r.pick }

// DiagnosticCounters returns the four raw scalar counters the kernel
// wrote this frame: total pixels, inner-loop voxel steps visited,
// reserved, reserved (§6.6; debug-build callers only).
func (r *Readback) DiagnosticCounters() [4]uint32 { return r.diag }

func (r *Renderer) beginReadback() *Readback {
	out := &Readback{}
	pickMapped, diagMapped := false, false
	r.pickReadbackBuf.MapAsync(wgpu.MapModeRead, 0, pickBufferBytes, func(status wgpu.BufferMapAsyncStatus) {
		pickMapped = status == wgpu.BufferMapAsyncStatusSuccess
	})
	r.diagReadbackBuf.MapAsync(wgpu.MapModeRead, 0, diagnosticsBytes, func(status wgpu.BufferMapAsyncStatus) {
		diagMapped = status == wgpu.BufferMapAsyncStatusSuccess
	})
	r.Device.Poll(false, nil)

	if pickMapped && diagMapped {
		pickData := r.pickReadbackBuf.GetMappedRange(0, pickBufferBytes)
		for i := 0; i < 8; i++ {
			out.pick[i] = binary.LittleEndian.Uint32(pickData[i*4:])
		}
		r.pickReadbackBuf.Unmap()

		diagData := r.diagReadbackBuf.GetMappedRange(0, diagnosticsBytes)
		for i := 0; i < 4; i++ {
			out.diag[i] = binary.LittleEndian.Uint32(diagData[i*4:])
		}
		r.diagReadbackBuf.Unmap()

		out.ready = true
	}
	return out
}
