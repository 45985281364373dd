package voxel

import "testing"

func TestHashIsDeterministic(t *testing.T) {
	inputs := [][4]int32{
		{0, 0, 0, 0},
		{16, 31, 16, 1},
		{-5, 2, 100, 9999},
		{255, 255, 255, 255},
		{-1, -1, -1, -1},
	}
	for _, in := range inputs {
		first := Hash(in[0], in[1], in[2], in[3])
		for i := 0; i < 10; i++ {
			got := Hash(in[0], in[1], in[2], in[3])
			if got != first {
				t.Fatalf("Hash(%v) not stable across calls: %d vs %d", in, first, got)
			}
		}
	}
}

func TestHashDistinguishesInputs(t *testing.T) {
	a := Hash(1, 2, 3, 4)
	b := Hash(1, 2, 3, 5)
	c := Hash(4, 3, 2, 1)
	if a == b || a == c || b == c {
		t.Fatalf("expected distinct hashes, got a=%d b=%d c=%d", a, b, c)
	}
}

func TestUnitIsWithinUnitInterval(t *testing.T) {
	for tick := int32(0); tick < 2000; tick++ {
		u := PRNG(16, 31, 16, tick)
		if u < 0 || u >= 1 {
			t.Fatalf("PRNG out of [0,1) range: %f", u)
		}
	}
}

func TestNeighborDirIndexCoversAll26(t *testing.T) {
	seen := map[int]bool{}
	for dx := int8(-1); dx <= 1; dx++ {
		for dy := int8(-1); dy <= 1; dy++ {
			for dz := int8(-1); dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				idx := NeighborDirIndex(dx, dy, dz)
				if idx < 0 || idx > 25 {
					t.Fatalf("offset (%d,%d,%d) did not resolve to a valid index: %d", dx, dy, dz, idx)
				}
				if seen[idx] {
					t.Fatalf("duplicate neighbor index %d", idx)
				}
				seen[idx] = true
			}
		}
	}
	if len(seen) != 26 {
		t.Fatalf("expected 26 distinct neighbor directions, got %d", len(seen))
	}
}

func TestResolveLocalInBounds(t *testing.T) {
	dir, x, y, z := ResolveLocal(5, 5, 5)
	if dir != -1 || x != 5 || y != 5 || z != 5 {
		t.Fatalf("expected in-bounds passthrough, got dir=%d pos=(%d,%d,%d)", dir, x, y, z)
	}
}

func TestResolveLocalCrossesBoundary(t *testing.T) {
	dir, x, y, z := ResolveLocal(-1, 10, 10)
	wantDir := NeighborDirIndex(-1, 0, 0)
	if dir != wantDir {
		t.Fatalf("expected dir %d, got %d", wantDir, dir)
	}
	if x != ChunkSize-1 || y != 10 || z != 10 {
		t.Fatalf("expected wrapped position (%d,10,10), got (%d,%d,%d)", ChunkSize-1, x, y, z)
	}
}
