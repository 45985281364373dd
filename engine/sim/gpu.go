package sim

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/alkahest-engine/alkahest/engine/rules"
	"github.com/alkahest-engine/alkahest/engine/sim/shaders"
	"github.com/alkahest-engine/alkahest/engine/voxel"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// headroomVoxels/headroomTables mirror Gekko3D's
	// gpu/manager.go HeadroomPayload/HeadroomTables: extra bytes
	// requested on growth so a slowly-growing pool doesn't reallocate
	// every single chunk load.
	headroomVoxels = 1 * 1024 * 1024
	headroomTables = 64 * 1024

	workgroupSize      = 4 // cs_movement/reactions/thermal/electrical/pressure: 4^3 threads
	workgroupsPerChunk = (voxel.ChunkSize + workgroupSize - 1) / workgroupSize

	maxDestructionEvents  = 256 // must match DestructionEvent's fixed array size in pressure.wgsl
	destructionEventBytes = 16
	maxGpuParamsBytes     = 64 // big enough for the largest uniform params struct (MovementParams)
)

// GpuPipeline is the device-backed mirror of Pipeline: the same 7
// passes, dispatched as compute shaders against storage buffers
// instead of walked in a Go loop. It owns no simulation state itself —
// Pool remains the host-authoritative source; GpuPipeline only keeps
// the device-side copies and the compiled pipelines/bind groups needed
// to dispatch against them, following the same
// ensureBuffer-grows-the-device-copy shape as gpu/manager.go.
//
// Every pass dispatch covers all active chunks in one call: the z
// workgroup count is extended to workgroupsPerChunk*chunkCount and
// each shader recovers its own chunk index from gid.z rather than
// reading it from a per-chunk uniform, which avoids rebuilding a
// uniform buffer once per chunk per pass.
type GpuPipeline struct {
	Device *wgpu.Device

	voxelBuf           *wgpu.Buffer
	chargeBuf          *wgpu.Buffer
	dispatchBuf        *wgpu.Buffer
	materialBuf        *wgpu.Buffer
	lookupBuf          *wgpu.Buffer
	rulesBuf           *wgpu.Buffer
	commandsBuf        *wgpu.Buffer
	destructionBuf     *wgpu.Buffer
	destructionIndexBuf *wgpu.Buffer
	dirtyFlagsBuf      *wgpu.Buffer
	readSlotsBuf       *wgpu.Buffer
	readbackBuf        *wgpu.Buffer
	destructionReadbackBuf *wgpu.Buffer

	// paramsBuf is reused across the movement/reactions/pressure
	// uniforms: Tick submits one dispatch at a time (WriteBuffer then
	// Submit before the next WriteBuffer), so reusing a single small
	// buffer never races a write against a dispatch that hasn't
	// consumed the previous one yet, the same way UpdateCamera rewrites
	// one small uniform buffer once per frame.
	paramsBuf *wgpu.Buffer

	bindGroupsDirty bool // set whenever a buffer referenced by a bind group is recreated by growth

	commandsPipeline  *wgpu.ComputePipeline
	commandsPoolBG    *wgpu.BindGroup
	commandsRulesBG   *wgpu.BindGroup
	commandsQueueBG   *wgpu.BindGroup // group 2: the uploaded command list

	movementPipeline *wgpu.ComputePipeline
	movementPoolBG   *wgpu.BindGroup
	movementRulesBG  *wgpu.BindGroup
	movementParamsBG *wgpu.BindGroup

	reactionsPipeline *wgpu.ComputePipeline
	reactionsPoolBG   *wgpu.BindGroup
	reactionsRulesBG  *wgpu.BindGroup
	reactionsParamsBG *wgpu.BindGroup

	thermalPipeline *wgpu.ComputePipeline
	thermalPoolBG   *wgpu.BindGroup
	thermalRulesBG  *wgpu.BindGroup

	electricalPipeline *wgpu.ComputePipeline
	electricalPoolBG   *wgpu.BindGroup
	electricalRulesBG  *wgpu.BindGroup

	pressurePipeline *wgpu.ComputePipeline
	pressurePoolBG   *wgpu.BindGroup
	pressureRulesBG  *wgpu.BindGroup
	pressureParamsBG *wgpu.BindGroup

	activityPipeline *wgpu.ComputePipeline
	activityPoolBG   *wgpu.BindGroup
	activityScanBG   *wgpu.BindGroup // group 2: read_slots + dirty_flags

	readSlots     []uint32
	materialCount int
	chunkCount    int
}

// NewGpuPipeline compiles the 7 pass kernels (common.wgsl prefixed
// onto each, matching Gekko3D's single-shared-header convention in
// voxelrt/rt/shaders) and returns a pipeline with no buffers allocated
// yet: callers must Resize, UploadRuleSet, and SetDispatchList before
// the first Tick.
func NewGpuPipeline(device *wgpu.Device) (*GpuPipeline, error) {
	g := &GpuPipeline{Device: device}

	specs := []struct {
		name   string
		source string
		entry  string
		dst    **wgpu.ComputePipeline
	}{
		{"commands", shaders.CommandsWGSL, "cs_commands", &g.commandsPipeline},
		{"movement", shaders.MovementWGSL, "cs_movement", &g.movementPipeline},
		{"reactions", shaders.ReactionsWGSL, "cs_reactions", &g.reactionsPipeline},
		{"thermal", shaders.ThermalWGSL, "cs_thermal", &g.thermalPipeline},
		{"electrical", shaders.ElectricalWGSL, "cs_electrical", &g.electricalPipeline},
		{"pressure", shaders.PressureWGSL, "cs_pressure", &g.pressurePipeline},
		{"activity_scan", shaders.ActivityScanWGSL, "cs_activity_scan", &g.activityPipeline},
	}

	for _, s := range specs {
		mod, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          s.name + " CS",
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.CommonWGSL + "\n" + s.source},
		})
		if err != nil {
			return nil, fmt.Errorf("sim: compiling %s shader: %w", s.name, err)
		}
		pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label: s.name + " pipeline",
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     mod,
				EntryPoint: s.entry,
			},
		})
		mod.Release()
		if err != nil {
			return nil, fmt.Errorf("sim: creating %s pipeline: %w", s.name, err)
		}
		*s.dst = pipeline
	}

	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "gpu params",
		Size:  maxGpuParamsBytes,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("sim: allocating params buffer: %w", err)
	}
	g.paramsBuf = buf

	destructionBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "destruction_events",
		Size:  maxDestructionEvents * destructionEventBytes,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("sim: allocating destruction_events buffer: %w", err)
	}
	g.destructionBuf = destructionBuf

	destructionIndexBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "destruction_write_index",
		Size:  4,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("sim: allocating destruction_write_index buffer: %w", err)
	}
	g.destructionIndexBuf = destructionIndexBuf

	destructionReadback, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "destruction readback",
		Size:  maxDestructionEvents*destructionEventBytes + 4,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("sim: allocating destruction readback buffer: %w", err)
	}
	g.destructionReadbackBuf = destructionReadback

	g.bindGroupsDirty = true
	return g, nil
}

// VoxelPoolBuffer and ChargePoolBuffer expose the device-resident pool
// buffers to the renderer, which reads the current write pool directly
// rather than keeping its own copy (§5 "the renderer reads the current
// write pool"). The returned pointers change identity whenever
// ensureBuffer reallocates on growth, so callers must re-fetch and
// rebind every frame rather than caching them.
func (g *GpuPipeline) VoxelPoolBuffer() *wgpu.Buffer  { return g.voxelBuf }
func (g *GpuPipeline) ChargePoolBuffer() *wgpu.Buffer { return g.chargeBuf }

// ensureBuffer grows *buf geometrically (1.5x plus headroom) when data
// no longer fits, exactly mirroring gpu/manager.go's ensureBuffer. data
// may be nil to just ensure capacity without writing. Any reallocation
// marks the bind groups dirty, mirroring CreateShadowBindGroups being
// re-invoked after manager.go's own ensureBuffer grows a buffer.
func (g *GpuPipeline) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) {
	needed := uint64(len(data) + headroom)
	if needed%4 != 0 {
		needed += 4 - (needed % 4)
	}
	usage = usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

	current := *buf
	if current != nil && current.GetSize() >= needed {
		if len(data) > 0 {
			g.Device.GetQueue().WriteBuffer(current, 0, data)
		}
		return
	}

	newSize := needed
	if current != nil {
		grown := uint64(float64(current.GetSize()) * 1.5)
		if grown > newSize {
			newSize = grown
		}
		current.Release()
	}

	newBuf, err := g.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  newSize,
		Usage: usage,
	})
	if err != nil {
		panic(fmt.Sprintf("sim: allocating %s: %v", name, err))
	}
	*buf = newBuf
	g.bindGroupsDirty = true
	if len(data) > 0 {
		g.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
}

// Resize ensures the device-side voxel/charge buffers can hold
// capacity chunk slots, zero-filling growth the same way Pool.grow
// zero-fills new CPU slots.
func (g *GpuPipeline) Resize(capacity int) {
	g.ensureBuffer("voxel_pool", &g.voxelBuf, make([]byte, capacity*voxel.ChunkVoxelBytes), wgpu.BufferUsageStorage, headroomVoxels)
	g.ensureBuffer("charge_pool", &g.chargeBuf, make([]byte, capacity*voxel.ChunkChargeBytes), wgpu.BufferUsageStorage, headroomVoxels)
}

// UploadRuleSet packs a compiled RuleSet's three flat tables into
// device buffers, mirroring the byte-layout conventions
// UpdateCamera/writeU32 use in gpu/manager.go: little-endian, struct
// fields in declared order, padding explicit rather than left to
// compiler layout.
func (g *GpuPipeline) UploadRuleSet(rs *rules.RuleSet) {
	g.materialCount = len(rs.Materials)

	matBytes := make([]byte, len(rs.Materials)*80) // 5 vec4 records per material
	for i, m := range rs.Materials {
		off := i * 80
		putF32(matBytes[off:], m.Density)
		putF32(matBytes[off+4:], m.Emission)
		putF32(matBytes[off+8:], m.Flammability)
		putF32(matBytes[off+12:], m.IgnitionTemp)

		binary.LittleEndian.PutUint32(matBytes[off+16:], uint32(m.DecayRate))
		binary.LittleEndian.PutUint32(matBytes[off+20:], uint32(m.DecayThreshold))
		binary.LittleEndian.PutUint32(matBytes[off+24:], m.DecayProduct)
		binary.LittleEndian.PutUint32(matBytes[off+28:], uint32(m.Phase))

		putF32(matBytes[off+32:], m.Viscosity)
		putF32(matBytes[off+36:], m.ThermalConductivity)
		binary.LittleEndian.PutUint32(matBytes[off+40:], uint32(m.PhaseChangeTemp))
		binary.LittleEndian.PutUint32(matBytes[off+44:], m.PhaseChangeProduct)

		binary.LittleEndian.PutUint32(matBytes[off+48:], uint32(m.StructuralIntegrity))
		putF32(matBytes[off+52:], m.Opacity)
		putF32(matBytes[off+56:], m.Absorption)
		// off+60: padding

		putF32(matBytes[off+64:], m.Electrical.Conductivity)
		putF32(matBytes[off+68:], m.Electrical.Resistance)
		binary.LittleEndian.PutUint32(matBytes[off+72:], uint32(m.Electrical.ActivationThreshold))
		putF32(matBytes[off+76:], m.Electrical.ChargeEmission)
	}
	g.ensureBuffer("material_props", &g.materialBuf, matBytes, wgpu.BufferUsageStorage, headroomTables)

	lookupBytes := make([]byte, len(rs.Lookup)*4)
	for i, v := range rs.Lookup {
		binary.LittleEndian.PutUint32(lookupBytes[i*4:], v)
	}
	g.ensureBuffer("rule_lookup", &g.lookupBuf, lookupBytes, wgpu.BufferUsageStorage, headroomTables)

	ruleBytes := make([]byte, len(rs.Rules)*48) // 12 u32/f32 fields each
	for i, r := range rs.Rules {
		off := i * 48
		binary.LittleEndian.PutUint32(ruleBytes[off:], r.OutputA)
		binary.LittleEndian.PutUint32(ruleBytes[off+4:], r.OutputB)
		putF32(ruleBytes[off+8:], r.Probability)
		binary.LittleEndian.PutUint32(ruleBytes[off+12:], uint32(r.TempDelta))
		binary.LittleEndian.PutUint32(ruleBytes[off+16:], uint32(r.PressureDelta))
		binary.LittleEndian.PutUint32(ruleBytes[off+20:], uint32(r.MinTemp))
		binary.LittleEndian.PutUint32(ruleBytes[off+24:], uint32(r.MaxTemp))
		binary.LittleEndian.PutUint32(ruleBytes[off+28:], uint32(r.MinCharge))
		binary.LittleEndian.PutUint32(ruleBytes[off+32:], uint32(r.MaxCharge))
		// off+36..48: padding, matches CompiledRule's WGSL mirror
	}
	g.ensureBuffer("rules", &g.rulesBuf, ruleBytes, wgpu.BufferUsageStorage, headroomTables)
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// SetDispatchList uploads this tick's dispatch list (one Dispatch
// record per active chunk, byte-identical to voxel.ChunkDescriptor)
// plus the parallel read-pool slots the activity scan compares
// against, and grows the dirty-flags buffer to match.
func (g *GpuPipeline) SetDispatchList(descs []voxel.ChunkDescriptor, readSlots []uint32) {
	g.chunkCount = len(descs)
	g.readSlots = readSlots

	buf := make([]byte, len(descs)*(27*4))
	for i, d := range descs {
		off := i * 27 * 4
		binary.LittleEndian.PutUint32(buf[off:], d.OwnSlot)
		for j, slot := range d.NeighborSlots {
			binary.LittleEndian.PutUint32(buf[off+4+j*4:], slot)
		}
	}
	g.ensureBuffer("dispatch_list", &g.dispatchBuf, buf, wgpu.BufferUsageStorage, headroomTables)
	g.ensureBuffer("dirty_flags", &g.dirtyFlagsBuf, make([]byte, len(descs)*4), wgpu.BufferUsageStorage, 1024)

	slotBytes := make([]byte, len(readSlots)*4)
	for i, s := range readSlots {
		binary.LittleEndian.PutUint32(slotBytes[i*4:], s)
	}
	g.ensureBuffer("read_slots", &g.readSlotsBuf, slotBytes, wgpu.BufferUsageStorage, headroomTables)
}

// ensureBindGroups (re)builds every bind group once a referenced
// buffer has been recreated by growth, mirroring CreateShadowBindGroups
// being re-invoked after manager.go's ensureBuffer grows a buffer. Each
// pipeline gets its own bind group objects even where the entries are
// identical across pipelines, since CreateBindGroup binds against one
// pipeline's own auto-derived BindGroupLayout.
func (g *GpuPipeline) ensureBindGroups() {
	if !g.bindGroupsDirty {
		return
	}

	entry := func(binding uint32, buf *wgpu.Buffer) wgpu.BindGroupEntry {
		return wgpu.BindGroupEntry{Binding: binding, Buffer: buf, Size: wgpu.WholeSize}
	}
	build := func(pipeline *wgpu.ComputePipeline, group uint32, entries []wgpu.BindGroupEntry) *wgpu.BindGroup {
		bg, err := g.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout:  pipeline.GetBindGroupLayout(group),
			Entries: entries,
		})
		if err != nil {
			panic(fmt.Sprintf("sim: building bind group: %v", err))
		}
		return bg
	}

	poolVoxelDispatch := []wgpu.BindGroupEntry{entry(0, g.voxelBuf), entry(2, g.dispatchBuf)}
	poolWithCharge := []wgpu.BindGroupEntry{entry(0, g.voxelBuf), entry(1, g.chargeBuf), entry(2, g.dispatchBuf)}
	poolPressure := []wgpu.BindGroupEntry{
		entry(0, g.voxelBuf), entry(2, g.dispatchBuf),
		entry(3, g.destructionBuf), entry(4, g.destructionIndexBuf),
	}
	rulesMaterialOnly := []wgpu.BindGroupEntry{entry(0, g.materialBuf)}
	rulesFull := []wgpu.BindGroupEntry{entry(0, g.materialBuf), entry(1, g.lookupBuf), entry(2, g.rulesBuf)}

	g.commandsPoolBG = build(g.commandsPipeline, 0, poolVoxelDispatch)
	g.commandsRulesBG = build(g.commandsPipeline, 1, rulesMaterialOnly)

	g.movementPoolBG = build(g.movementPipeline, 0, poolVoxelDispatch)
	g.movementRulesBG = build(g.movementPipeline, 1, rulesMaterialOnly)
	g.movementParamsBG = build(g.movementPipeline, 2, []wgpu.BindGroupEntry{entry(0, g.paramsBuf)})

	g.reactionsPoolBG = build(g.reactionsPipeline, 0, poolWithCharge)
	g.reactionsRulesBG = build(g.reactionsPipeline, 1, rulesFull)
	g.reactionsParamsBG = build(g.reactionsPipeline, 2, []wgpu.BindGroupEntry{entry(0, g.paramsBuf)})

	g.thermalPoolBG = build(g.thermalPipeline, 0, poolVoxelDispatch)
	g.thermalRulesBG = build(g.thermalPipeline, 1, rulesMaterialOnly)

	g.electricalPoolBG = build(g.electricalPipeline, 0, poolWithCharge)
	g.electricalRulesBG = build(g.electricalPipeline, 1, rulesMaterialOnly)

	g.pressurePoolBG = build(g.pressurePipeline, 0, poolPressure)
	g.pressureRulesBG = build(g.pressurePipeline, 1, rulesMaterialOnly)
	g.pressureParamsBG = build(g.pressurePipeline, 2, []wgpu.BindGroupEntry{entry(0, g.paramsBuf)})

	g.activityPoolBG = build(g.activityPipeline, 0, poolWithCharge)
	g.activityScanBG = build(g.activityPipeline, 2, []wgpu.BindGroupEntry{
		entry(0, g.readSlotsBuf), entry(1, g.dirtyFlagsBuf),
	})

	g.bindGroupsDirty = false
}

// dispatch1 writes paramBytes into paramsBuf (when non-empty), records
// a single compute pass, and submits it immediately. One submit per
// dispatch trades dispatch-batching throughput for a simple, clearly
// correct ordering guarantee: WriteBuffer calls on a queue execute in
// the order issued relative to Submit calls on that same queue, so the
// next WriteBuffer can never race ahead of a dispatch still reading
// the buffer it's about to overwrite.
func (g *GpuPipeline) dispatch1(pipeline *wgpu.ComputePipeline, paramBytes []byte, groups map[uint32]*wgpu.BindGroup, wgX, wgY, wgZ uint32) error {
	if len(paramBytes) > 0 {
		g.Device.GetQueue().WriteBuffer(g.paramsBuf, 0, paramBytes)
	}
	encoder, err := g.Device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	for group, bg := range groups {
		pass.SetBindGroup(group, bg, nil)
	}
	pass.DispatchWorkgroups(wgX, wgY, wgZ)
	pass.End()

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	g.Device.GetQueue().Submit(cmdBuf)
	return nil
}

func putI32(b []byte, v int32) { binary.LittleEndian.PutUint32(b, uint32(v)) }
func putU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

// Tick records and submits one tick's worth of compute passes in the
// fixed order (§4.1.1): commands, then the 10-direction/2-parity
// movement schedule, reactions, thermal, electrical, pressure,
// activity scan. Returns a Readback that wraps the device's async
// buffer mapping behind the same polling contract the CPU mirror's
// eager Readback satisfies (§5 "Suspension points: only at GPU
// readback boundaries").
func (g *GpuPipeline) Tick(cmds []Command, tick int32) (*Readback, error) {
	g.ensureBindGroups()

	if len(cmds) > 0 {
		g.uploadCommands(cmds)
		if err := g.dispatch1(g.commandsPipeline, nil, map[uint32]*wgpu.BindGroup{
			0: g.commandsPoolBG, 1: g.commandsRulesBG, 2: g.commandsQueueBG,
		}, uint32((len(cmds)+63)/64), 1, 1); err != nil {
			return nil, err
		}
	}

	zWorkgroups := uint32(workgroupsPerChunk * g.chunkCount)

	for _, dir := range movementSchedule {
		for parity := 0; parity < 2; parity++ {
			params := make([]byte, 32)
			putI32(params[0:], tick)
			putI32(params[4:], int32(dir.offset[0]))
			putI32(params[8:], int32(dir.offset[1]))
			putI32(params[12:], int32(dir.offset[2]))
			putU32(params[16:], uint32(parity))
			putU32(params[20:], boolU32(dir.class == classDown))
			putU32(params[24:], boolU32(dir.class == classLateral))
			putU32(params[28:], boolU32(dir.class == classUp))

			if err := g.dispatch1(g.movementPipeline, params, map[uint32]*wgpu.BindGroup{
				0: g.movementPoolBG, 1: g.movementRulesBG, 2: g.movementParamsBG,
			}, workgroupsPerChunk, workgroupsPerChunk, zWorkgroups); err != nil {
				return nil, err
			}
		}
	}

	reactionParams := make([]byte, 8)
	putI32(reactionParams[0:], tick)
	putU32(reactionParams[4:], uint32(g.materialCount))
	if err := g.dispatch1(g.reactionsPipeline, reactionParams, map[uint32]*wgpu.BindGroup{
		0: g.reactionsPoolBG, 1: g.reactionsRulesBG, 2: g.reactionsParamsBG,
	}, workgroupsPerChunk, workgroupsPerChunk, zWorkgroups); err != nil {
		return nil, err
	}

	if err := g.dispatch1(g.thermalPipeline, nil, map[uint32]*wgpu.BindGroup{
		0: g.thermalPoolBG, 1: g.thermalRulesBG,
	}, workgroupsPerChunk, workgroupsPerChunk, zWorkgroups); err != nil {
		return nil, err
	}

	if err := g.dispatch1(g.electricalPipeline, nil, map[uint32]*wgpu.BindGroup{
		0: g.electricalPoolBG, 1: g.electricalRulesBG,
	}, workgroupsPerChunk, workgroupsPerChunk, zWorkgroups); err != nil {
		return nil, err
	}

	g.Device.GetQueue().WriteBuffer(g.destructionIndexBuf, 0, make([]byte, 4))
	pressureParams := make([]byte, 4)
	putI32(pressureParams[0:], tick)
	if err := g.dispatch1(g.pressurePipeline, pressureParams, map[uint32]*wgpu.BindGroup{
		0: g.pressurePoolBG, 1: g.pressureRulesBG, 2: g.pressureParamsBG,
	}, workgroupsPerChunk, workgroupsPerChunk, zWorkgroups); err != nil {
		return nil, err
	}

	wordsPerChunk := uint32((voxel.ChunkVoxelBytes + voxel.ChunkChargeBytes) / 4)
	if err := g.dispatch1(g.activityPipeline, nil, map[uint32]*wgpu.BindGroup{
		0: g.activityPoolBG, 2: g.activityScanBG,
	}, (wordsPerChunk+63)/64, 1, uint32(g.chunkCount)); err != nil {
		return nil, err
	}

	return g.beginReadback(), nil
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (g *GpuPipeline) uploadCommands(cmds []Command) {
	buf := make([]byte, len(cmds)*48)
	for i, c := range cmds {
		off := i * 48
		binary.LittleEndian.PutUint32(buf[off:], uint32(c.Tool))
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(c.DispatchIndex))
		binary.LittleEndian.PutUint32(buf[off+8:], uint32(c.LocalPos[0]))
		binary.LittleEndian.PutUint32(buf[off+12:], uint32(c.LocalPos[1]))
		binary.LittleEndian.PutUint32(buf[off+16:], uint32(c.LocalPos[2]))
		binary.LittleEndian.PutUint32(buf[off+20:], uint32(c.Material))
		binary.LittleEndian.PutUint32(buf[off+24:], uint32(c.TempDelta))
		binary.LittleEndian.PutUint32(buf[off+28:], uint32(c.Direction[0]))
		binary.LittleEndian.PutUint32(buf[off+32:], uint32(c.Direction[1]))
		binary.LittleEndian.PutUint32(buf[off+36:], uint32(c.Direction[2]))
		binary.LittleEndian.PutUint32(buf[off+40:], uint32(c.BrushRadius))
		binary.LittleEndian.PutUint32(buf[off+44:], uint32(c.BrushShape))
	}
	g.ensureBuffer("commands", &g.commandsBuf, buf, wgpu.BufferUsageStorage, 4096)
	bg, err := g.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: g.commandsPipeline.GetBindGroupLayout(2),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: g.commandsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("sim: building commands bind group: %v", err))
	}
	g.commandsQueueBG = bg
}

func (g *GpuPipeline) ensureReadbackBuffer() {
	needed := g.dirtyFlagsBuf.GetSize()
	if g.readbackBuf != nil && g.readbackBuf.GetSize() >= needed {
		return
	}
	if g.readbackBuf != nil {
		g.readbackBuf.Release()
	}
	buf, err := g.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "dirty_flags readback",
		Size:  needed,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(fmt.Sprintf("sim: allocating dirty-flags readback buffer: %v", err))
	}
	g.readbackBuf = buf
}

// beginReadback starts the async map and returns a Readback whose
// Ready() reports false until Poll has observed the mapping complete,
// matching app.go's per-frame Device.Poll(false, nil) pump. It also
// maps back the destruction-event ring the pressure pass wrote this
// tick, the device-side equivalent of Pipeline.DestructionEvents.
func (g *GpuPipeline) beginReadback() *Readback {
	g.ensureReadbackBuffer()

	encoder, err := g.Device.CreateCommandEncoder(nil)
	if err != nil {
		panic(fmt.Sprintf("sim: recording readback copy: %v", err))
	}
	encoder.CopyBufferToBuffer(g.dirtyFlagsBuf, 0, g.readbackBuf, 0, g.dirtyFlagsBuf.GetSize())
	encoder.CopyBufferToBuffer(g.destructionIndexBuf, 0, g.destructionReadbackBuf, 0, 4)
	encoder.CopyBufferToBuffer(g.destructionBuf, 0, g.destructionReadbackBuf, 4, g.destructionBuf.GetSize())
	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		panic(fmt.Sprintf("sim: finishing readback copy: %v", err))
	}
	g.Device.GetQueue().Submit(cmdBuf)

	r := &Readback{}
	chunkCount := g.chunkCount
	dirtyBuf := g.readbackBuf
	destBuf := g.destructionReadbackBuf

	dirtyMapped, destMapped := false, false
	dirtyBuf.MapAsync(wgpu.MapModeRead, 0, dirtyBuf.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		dirtyMapped = status == wgpu.BufferMapAsyncStatusSuccess
	})
	destBuf.MapAsync(wgpu.MapModeRead, 0, destBuf.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		destMapped = status == wgpu.BufferMapAsyncStatusSuccess
	})
	g.Device.Poll(false, nil)

	if dirtyMapped && destMapped {
		dirtyData := dirtyBuf.GetMappedRange(0, uint(dirtyBuf.GetSize()))
		dirty := make([]bool, chunkCount)
		for i := range dirty {
			dirty[i] = binary.LittleEndian.Uint32(dirtyData[i*4:]) != 0
		}
		dirtyBuf.Unmap()

		destData := destBuf.GetMappedRange(0, uint(destBuf.GetSize()))
		count := int(binary.LittleEndian.Uint32(destData[0:4]))
		if count > maxDestructionEvents {
			count = maxDestructionEvents
		}
		events := make([]DestructionEvent, count)
		for i := 0; i < count; i++ {
			off := 4 + i*destructionEventBytes
			events[i] = DestructionEvent{
				OwnSlot: binary.LittleEndian.Uint32(destData[off:]),
				X:       int(binary.LittleEndian.Uint32(destData[off+4:])),
				Y:       int(binary.LittleEndian.Uint32(destData[off+8:])),
				Z:       int(binary.LittleEndian.Uint32(destData[off+12:])),
			}
		}
		destBuf.Unmap()

		r.dirty = dirty
		r.ready = true
		r.destructions = events
	}
	return r
}
