// Package tilecodec is the binary tile record format of scene files and the
// row-major grid stream built from it.
//
// Record layout, big-endian:
//
//	i32  gid
//	f32  y, y1, y2, y3, y4
//	str  auto tile family name
//	i32  auto tile variant ordinal
//	u8   passable
//	u8   liquid
//	f32  liquid height
//	str  foliage region name ("" for none)
//
// str is a u16 byte length followed by standard UTF-8 bytes. This matches
// Java's DataOutput.writeUTF for names without NUL or characters outside the
// Basic Multilingual Plane; writeUTF's modified UTF-8 encodes NUL as C0 80 and
// supplementary characters as surrogate pairs, and such names are not
// byte-compatible.
package tilecodec

import (
	"fmt"

	"fabula.engine/internal/sim/catalogs"
	"fabula.engine/internal/sim/scene"
	"fabula.engine/internal/sim/sceneerr"
)

// MinRecordSize is the size of a record whose two strings are empty.
const MinRecordSize = 4 + 5*4 + 2 + 4 + 1 + 1 + 4 + 2

// EncodeTile appends tile's record to w. The tile must carry a resolved auto
// tile.
func EncodeTile(w *Writer, tile *scene.Tile) error {
	if tile == nil {
		return sceneerr.Precondition("nil tile")
	}
	if tile.AutoTile == nil || tile.AutoTile.Family == nil {
		return sceneerr.Precondition("tile %d,%d has no auto tile", tile.X, tile.Z)
	}

	w.WriteInt32(tile.Gid)
	w.WriteFloat32(tile.Y)
	w.WriteFloat32(tile.Y1)
	w.WriteFloat32(tile.Y2)
	w.WriteFloat32(tile.Y3)
	w.WriteFloat32(tile.Y4)
	if err := w.WriteString(tile.AutoTile.FamilyName()); err != nil {
		return fmt.Errorf("tile %d,%d auto tile: %w", tile.X, tile.Z, err)
	}
	w.WriteInt32(int32(tile.AutoTile.Type))
	w.WriteBool(tile.Passable)
	w.WriteBool(tile.Liquid)
	w.WriteFloat32(tile.LiquidHeight)

	region := ""
	if tile.HasFoliage() {
		region = tile.Foliage.RegionName
	}
	if err := w.WriteString(region); err != nil {
		return fmt.Errorf("tile %d,%d foliage: %w", tile.X, tile.Z, err)
	}
	return nil
}

// DecodeTile reads one record for cell (x, z) and resolves its auto tile and
// foliage against the terrain's tileset and foliage set.
func DecodeTile(r *Reader, x, z int, terrain *scene.Terrain) (*scene.Tile, error) {
	ts := terrain.Tileset()
	if ts == nil {
		return nil, sceneerr.Precondition("terrain has no tileset bound")
	}

	tile := scene.NewTile(x, z)
	var err error
	if tile.Gid, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	for _, h := range []*float32{&tile.Y, &tile.Y1, &tile.Y2, &tile.Y3, &tile.Y4} {
		if *h, err = r.ReadFloat32(); err != nil {
			return nil, err
		}
	}
	family, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	ord, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	if tile.Passable, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if tile.Liquid, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if tile.LiquidHeight, err = r.ReadFloat32(); err != nil {
		return nil, err
	}
	region, err := r.ReadString()
	if err != nil {
		return nil, err
	}

	typ, ok := catalogs.AutoTileTypeFromOrdinal(ord)
	if !ok {
		return nil, sceneerr.Corrupt(fmt.Sprintf("tile %d,%d", x, z), fmt.Errorf("auto tile ordinal %d out of range", ord))
	}
	if tile.AutoTile, err = ts.AutoTile(family, typ); err != nil {
		return nil, fmt.Errorf("tile %d,%d: %w", x, z, err)
	}
	if region != "" {
		fs := terrain.FoliageSet()
		if fs == nil {
			return nil, fmt.Errorf("tile %d,%d: %w", x, z, sceneerr.Unresolved("foliage region", region))
		}
		if tile.Foliage, err = fs.Descriptor(region); err != nil {
			return nil, fmt.Errorf("tile %d,%d: %w", x, z, err)
		}
	}
	return tile, nil
}
