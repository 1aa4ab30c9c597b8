package scene

import (
	"fmt"

	"fabula.engine/internal/sim/catalogs"
)

// Terrain is the columns x rows tile grid of a scene. Cells are stored
// row-major: index = x + z*columns.
type Terrain struct {
	columns int
	rows    int
	tiles   []*Tile

	tileset    *catalogs.Tileset
	foliageSet *catalogs.FoliageSet
}

func NewTerrain(columns, rows int) *Terrain {
	if columns < 0 {
		columns = 0
	}
	if rows < 0 {
		rows = 0
	}
	return &Terrain{
		columns: columns,
		rows:    rows,
		tiles:   make([]*Tile, columns*rows),
	}
}

func (t *Terrain) Columns() int { return t.columns }
func (t *Terrain) Rows() int    { return t.rows }

func (t *Terrain) Tileset() *catalogs.Tileset            { return t.tileset }
func (t *Terrain) FoliageSet() *catalogs.FoliageSet      { return t.foliageSet }
func (t *Terrain) SetTileset(ts *catalogs.Tileset)       { t.tileset = ts }
func (t *Terrain) SetFoliageSet(fs *catalogs.FoliageSet) { t.foliageSet = fs }

func (t *Terrain) InBounds(x, z int) bool {
	return x >= 0 && x < t.columns && z >= 0 && z < t.rows
}

// Tile returns the tile at (x, z), or nil when the cell is empty or out of
// bounds.
func (t *Terrain) Tile(x, z int) *Tile {
	if !t.InBounds(x, z) {
		return nil
	}
	return t.tiles[x+z*t.columns]
}

// SetTile stores tile at (x, z) and rewrites its coordinates to match.
func (t *Terrain) SetTile(x, z int, tile *Tile) error {
	if !t.InBounds(x, z) {
		return fmt.Errorf("tile %d,%d outside %dx%d terrain", x, z, t.columns, t.rows)
	}
	if tile != nil {
		tile.X, tile.Z = x, z
	}
	t.tiles[x+z*t.columns] = tile
	return nil
}

// EmptyCells counts cells that hold no tile.
func (t *Terrain) EmptyCells() int {
	n := 0
	for _, tile := range t.tiles {
		if tile == nil {
			n++
		}
	}
	return n
}

// FillEmptyTilesWithDebugTile puts an impassable debug tile into every empty
// cell and returns how many were filled.
func (t *Terrain) FillEmptyTilesWithDebugTile(gid int32) int {
	var debug *catalogs.AutoTile
	if t.tileset != nil {
		debug = t.tileset.DebugAutoTile()
	}
	filled := 0
	for i, tile := range t.tiles {
		if tile != nil {
			continue
		}
		nt := NewTile(i%t.columns, i/t.columns)
		nt.Gid = gid
		nt.AutoTile = debug
		t.tiles[i] = nt
		filled++
	}
	return filled
}

// Each visits every cell in persistence order: z outer, x inner.
func (t *Terrain) Each(fn func(x, z int, tile *Tile) error) error {
	if len(t.tiles) == 0 {
		return nil
	}
	for z := 0; z < t.rows; z++ {
		for x := 0; x < t.columns; x++ {
			if err := fn(x, z, t.tiles[x+z*t.columns]); err != nil {
				return err
			}
		}
	}
	return nil
}
