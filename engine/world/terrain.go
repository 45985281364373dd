package world

import (
	"github.com/alkahest-engine/alkahest/engine/voxel"
)

// TerrainSeeder deterministically fills a newly loaded chunk's write
// slot with stone/sand/water layers from a noise-based heightmap
// (§4.3 "Terrain seed"). No noise or terrain-generation library appears
// in Gekko3D's own go.mod (the closest Gekko3D code,
// asset_procedural.go, hand-rolls voxel primitive shapes rather than
// natural terrain), so the heightmap reuses the engine's own
// voxel.Hash PRNG as a value-noise lattice instead of introducing an
// unjustified dependency (see DESIGN.md).
type TerrainSeeder struct {
	StoneID, SandID, WaterID uint32
	SeaLevel                 int // local y, in voxels, within the chunk grid's vertical extent
	BaseHeight               float32
	Amplitude                float32
	WriteVoxel               func(slot uint32, localIdx int, w0, w1 uint32)
}

// Seed fills chunk c's write slot with a deterministic terrain column
// per (x,z). Height is derived from two octaves of hash-based value
// noise so chunk seams agree without requiring neighbor information:
// the lattice is evaluated in world voxel coordinates, not per-chunk
// local coordinates.
func (ts *TerrainSeeder) Seed(c Coord, writeSlot uint32) {
	if ts == nil || ts.WriteVoxel == nil {
		return
	}
	baseX := int32(c.X) * voxel.ChunkSize
	baseY := int32(c.Y) * voxel.ChunkSize
	baseZ := int32(c.Z) * voxel.ChunkSize

	for lx := 0; lx < voxel.ChunkSize; lx++ {
		for lz := 0; lz < voxel.ChunkSize; lz++ {
			wx := baseX + int32(lx)
			wz := baseZ + int32(lz)
			height := ts.heightAt(wx, wz)

			for ly := 0; ly < voxel.ChunkSize; ly++ {
				wy := baseY + int32(ly)
				mat := ts.materialAt(wy, height)
				idx := voxel.Index3(lx, ly, lz)
				w0, w1 := voxel.Pack(voxel.Voxel{Material: uint16(mat)})
				ts.WriteVoxel(writeSlot, idx, w0, w1)
			}
		}
	}
}

func (ts *TerrainSeeder) heightAt(wx, wz int32) float32 {
	const lattice0 = 16
	const lattice1 = 4
	n0 := valueNoise2D(wx, wz, lattice0)
	n1 := valueNoise2D(wx, wz, lattice1)
	return ts.BaseHeight + ts.Amplitude*(0.7*n0+0.3*n1)
}

func (ts *TerrainSeeder) materialAt(wy int32, height float32) uint32 {
	switch {
	case float32(wy) < height-2:
		return ts.StoneID
	case float32(wy) < height:
		return ts.SandID
	case wy <= int32(ts.SeaLevel):
		return ts.WaterID
	default:
		return 0 // air
	}
}

// valueNoise2D bilinearly interpolates hash-derived lattice values at
// the given cell scale, producing a smooth deterministic field in
// [0,1) that agrees across chunk boundaries since it is evaluated
// directly in world coordinates.
func valueNoise2D(x, z int32, cell int32) float32 {
	x0 := floorDiv(x, cell)
	z0 := floorDiv(z, cell)
	x1, z1 := x0+1, z0+1

	fx := frac(x, cell)
	fz := frac(z, cell)

	v00 := lattice(x0, z0)
	v10 := lattice(x1, z0)
	v01 := lattice(x0, z1)
	v11 := lattice(x1, z1)

	sx := smoothstep(fx)
	sz := smoothstep(fz)

	a := lerp(v00, v10, sx)
	b := lerp(v01, v11, sx)
	return lerp(a, b, sz)
}

func lattice(x, z int32) float32 {
	return voxel.PRNG(x, 0, z, 0)
}

func floorDiv(v, d int32) int32 {
	q := v / d
	if v%d != 0 && (v < 0) != (d < 0) {
		q--
	}
	return q
}

func frac(v, d int32) float32 {
	fd := floorDiv(v, d)
	return float32(v-fd*d) / float32(d)
}

func smoothstep(t float32) float32 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
