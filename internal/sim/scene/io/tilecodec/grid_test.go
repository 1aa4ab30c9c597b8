package tilecodec

import (
	"errors"
	"testing"

	"fabula.engine/internal/sim/catalogs"
	"fabula.engine/internal/sim/scene"
	"fabula.engine/internal/sim/sceneerr"
)

func fillGrid(t *testing.T, tr *scene.Terrain) {
	t.Helper()
	grass := mustAutoTile(t, tr, "grass", catalogs.AutoInner)
	rock := mustAutoTile(t, tr, "rock", catalogs.AutoEdgeTop)
	bush, _ := tr.FoliageSet().Descriptor("bush_1")
	for z := 0; z < tr.Rows(); z++ {
		for x := 0; x < tr.Columns(); x++ {
			tile := scene.NewTile(x, z)
			tile.Gid = int32(x*100 + z)
			tile.SetHeights(float32(x)*0.5, float32(z), float32(x+z), -1, 0.125)
			tile.AutoTile = grass
			tile.Passable = (x+z)%2 == 0
			if x == z {
				tile.AutoTile = rock
				tile.Liquid = true
				tile.LiquidHeight = 0.4
			}
			if x%3 == 1 {
				tile.Foliage = bush
			}
			if err := tr.SetTile(x, z, tile); err != nil {
				t.Fatalf("SetTile: %v", err)
			}
		}
	}
}

func TestGrid_RoundTrip(t *testing.T) {
	src := testTerrain(t, 7, 5)
	fillGrid(t, src)

	data, err := EncodeGrid(src)
	if err != nil {
		t.Fatalf("EncodeGrid: %v", err)
	}

	dst := scene.NewTerrain(7, 5)
	dst.SetTileset(src.Tileset())
	dst.SetFoliageSet(src.FoliageSet())
	if err := DecodeGrid(NewReader(data), 7, 5, dst); err != nil {
		t.Fatalf("DecodeGrid: %v", err)
	}
	for z := 0; z < 5; z++ {
		for x := 0; x < 7; x++ {
			if !sameTile(src.Tile(x, z), dst.Tile(x, z)) {
				t.Fatalf("tile %d,%d mismatch:\n in %+v\nout %+v", x, z, src.Tile(x, z), dst.Tile(x, z))
			}
		}
	}
}

func TestGrid_TwoByTwoScenario(t *testing.T) {
	src := testTerrain(t, 2, 2)
	grass := mustAutoTile(t, src, "grass", catalogs.AutoInner)
	gid := int32(1)
	for z := 0; z < 2; z++ {
		for x := 0; x < 2; x++ {
			tile := scene.NewTile(x, z)
			tile.Gid = gid
			tile.AutoTile = grass
			tile.Passable = true
			_ = src.SetTile(x, z, tile)
			gid++
		}
	}
	data, err := EncodeGrid(src)
	if err != nil {
		t.Fatalf("EncodeGrid: %v", err)
	}
	if want := 4 * (MinRecordSize + len("grass")); len(data) != want {
		t.Fatalf("stream length=%d want %d", len(data), want)
	}

	dst := scene.NewTerrain(2, 2)
	dst.SetTileset(src.Tileset())
	if err := DecodeGrid(NewReader(data), 2, 2, dst); err != nil {
		t.Fatalf("DecodeGrid: %v", err)
	}
	want := [][3]int32{{0, 0, 1}, {1, 0, 2}, {0, 1, 3}, {1, 1, 4}}
	for _, w := range want {
		got := dst.Tile(int(w[0]), int(w[1]))
		if got == nil || got.Gid != w[2] || !got.Passable || got.Liquid || got.HasFoliage() || got.AutoTile != grass {
			t.Fatalf("tile %d,%d: %+v", w[0], w[1], got)
		}
	}
}

func TestEncodeGrid_EmptyCellIsPrecondition(t *testing.T) {
	tr := testTerrain(t, 2, 1)
	tile := scene.NewTile(0, 0)
	tile.AutoTile = mustAutoTile(t, tr, "grass", catalogs.AutoInner)
	_ = tr.SetTile(0, 0, tile)
	if _, err := EncodeGrid(tr); !errors.Is(err, sceneerr.ErrPrecondition) {
		t.Fatalf("expected precondition, got %v", err)
	}
}

func TestDecodeGrid_TruncatedLeavesTerrainEmpty(t *testing.T) {
	src := testTerrain(t, 3, 3)
	fillGrid(t, src)
	data, err := EncodeGrid(src)
	if err != nil {
		t.Fatalf("EncodeGrid: %v", err)
	}

	dst := scene.NewTerrain(3, 3)
	dst.SetTileset(src.Tileset())
	dst.SetFoliageSet(src.FoliageSet())
	if err := DecodeGrid(NewReader(data[:len(data)-3]), 3, 3, dst); !errors.Is(err, sceneerr.ErrDecodeCorruption) {
		t.Fatalf("expected corruption, got %v", err)
	}
	if dst.EmptyCells() != 9 {
		t.Fatalf("partial grid written: %d empty of 9", dst.EmptyCells())
	}
}

func TestDecodeGrid_TrailingBytes(t *testing.T) {
	src := testTerrain(t, 1, 1)
	fillGrid(t, src)
	data, _ := EncodeGrid(src)
	data = append(data, 0)

	dst := scene.NewTerrain(1, 1)
	dst.SetTileset(src.Tileset())
	dst.SetFoliageSet(src.FoliageSet())
	if err := DecodeGrid(NewReader(data), 1, 1, dst); !errors.Is(err, sceneerr.ErrDecodeCorruption) {
		t.Fatalf("expected corruption, got %v", err)
	}
}

func TestGrid_Empty(t *testing.T) {
	src := testTerrain(t, 0, 0)
	data, err := EncodeGrid(src)
	if err != nil || len(data) != 0 {
		t.Fatalf("empty grid: %d bytes, %v", len(data), err)
	}
	if err := DecodeGrid(NewReader(nil), 0, 0, src); err != nil {
		t.Fatalf("DecodeGrid: %v", err)
	}
}

func TestDecodeGrid_DimensionMismatch(t *testing.T) {
	tr := testTerrain(t, 2, 2)
	if err := DecodeGrid(NewReader(nil), 3, 2, tr); !errors.Is(err, sceneerr.ErrPrecondition) {
		t.Fatalf("expected precondition, got %v", err)
	}
}

func TestCheckDimensions(t *testing.T) {
	cases := []struct {
		columns, rows, n int
		ok               bool
	}{
		{0, 0, 0, true},
		{0, 1 << 40, 0, true},
		{2, 2, 4 * MinRecordSize, true},
		{2, 2, 4*MinRecordSize - 1, false},
		{1 << 62, 2, 4 * MinRecordSize, false},
		{100000, 100000, 1 << 20, false},
		{-1, 2, 1 << 20, false},
	}
	for _, tc := range cases {
		err := CheckDimensions(tc.columns, tc.rows, tc.n)
		if tc.ok && err != nil {
			t.Fatalf("%dx%d in %d bytes: %v", tc.columns, tc.rows, tc.n, err)
		}
		if !tc.ok && !errors.Is(err, sceneerr.ErrDecodeCorruption) {
			t.Fatalf("%dx%d in %d bytes: expected corruption, got %v", tc.columns, tc.rows, tc.n, err)
		}
	}
}

func TestDecodeGrid_EmptyWithTrailingBytes(t *testing.T) {
	tr := testTerrain(t, 0, 3)
	if err := DecodeGrid(NewReader([]byte{1, 2}), 0, 3, tr); !errors.Is(err, sceneerr.ErrDecodeCorruption) {
		t.Fatalf("expected corruption, got %v", err)
	}
}
