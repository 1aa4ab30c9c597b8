package scene

import "fabula.engine/internal/sim/catalogs"

// Tile is one terrain cell. Its world y is the base height Y; Y1..Y4 are the
// corner heights.
type Tile struct {
	X, Z int
	Gid  int32

	Y, Y1, Y2, Y3, Y4 float32

	AutoTile *catalogs.AutoTile

	Passable     bool
	Liquid       bool
	LiquidHeight float32

	Foliage *catalogs.FoliageDescriptor
}

func NewTile(x, z int) *Tile {
	return &Tile{X: x, Z: z}
}

func (t *Tile) HasFoliage() bool { return t.Foliage != nil }

// AutoType is the variant of the tile's auto tile. Tiles without one report
// AutoInner.
func (t *Tile) AutoType() catalogs.AutoTileType {
	if t.AutoTile == nil {
		return catalogs.AutoInner
	}
	return t.AutoTile.Type
}

// Position returns the tile origin in world units.
func (t *Tile) Position() (x, y, z float32) {
	return float32(t.X), t.Y, float32(t.Z)
}

// SetHeights sets the base and the four corner heights at once.
func (t *Tile) SetHeights(y, y1, y2, y3, y4 float32) {
	t.Y, t.Y1, t.Y2, t.Y3, t.Y4 = y, y1, y2, y3, y4
}

// SetUniformHeight flattens the tile at y.
func (t *Tile) SetUniformHeight(y float32) {
	t.SetHeights(y, y, y, y, y)
}
