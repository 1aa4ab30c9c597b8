package tilecodec

import (
	"fmt"

	"fabula.engine/internal/sim/scene"
	"fabula.engine/internal/sim/sceneerr"
)

// EncodeGrid serialises every tile of terrain, z outer and x inner. The order
// is not recorded in the stream; DecodeGrid must walk it identically.
func EncodeGrid(terrain *scene.Terrain) ([]byte, error) {
	w := NewWriter(terrain.Columns() * terrain.Rows() * (MinRecordSize + 16))
	err := terrain.Each(func(x, z int, tile *scene.Tile) error {
		if tile == nil {
			return sceneerr.Precondition("tile %d,%d is empty", x, z)
		}
		return EncodeTile(w, tile)
	})
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// CheckDimensions rejects a columns x rows grid that a stream of n bytes
// cannot hold, without multiplying the dimensions.
func CheckDimensions(columns, rows, n int) error {
	if columns < 0 || rows < 0 {
		return sceneerr.Corrupt("grid dimensions", fmt.Errorf("%dx%d", columns, rows))
	}
	if columns == 0 || rows == 0 {
		return nil
	}
	if columns > n/MinRecordSize/rows {
		return sceneerr.Corrupt("grid dimensions", fmt.Errorf("%dx%d tiles cannot fit in %d bytes", columns, rows, n))
	}
	return nil
}

// DecodeGrid reads columns x rows records from r into terrain. Tiles are only
// stored once the whole stream decoded, so a failed decode leaves terrain
// untouched. Bytes left over after the last record are corruption.
func DecodeGrid(r *Reader, columns, rows int, terrain *scene.Terrain) error {
	if columns != terrain.Columns() || rows != terrain.Rows() {
		return sceneerr.Precondition("grid %dx%d does not match terrain %dx%d", columns, rows, terrain.Columns(), terrain.Rows())
	}

	if err := CheckDimensions(columns, rows, r.Remaining()); err != nil {
		return err
	}
	if columns == 0 || rows == 0 {
		if n := r.Remaining(); n != 0 {
			return sceneerr.Corrupt("tile stream", fmt.Errorf("%d trailing bytes after empty grid", n))
		}
		return nil
	}

	tiles := make([]*scene.Tile, 0, columns*rows)
	for z := 0; z < rows; z++ {
		for x := 0; x < columns; x++ {
			tile, err := DecodeTile(r, x, z, terrain)
			if err != nil {
				return err
			}
			tiles = append(tiles, tile)
		}
	}
	if n := r.Remaining(); n != 0 {
		return sceneerr.Corrupt("tile stream", fmt.Errorf("%d trailing bytes after %d tiles", n, len(tiles)))
	}

	for _, tile := range tiles {
		if err := terrain.SetTile(tile.X, tile.Z, tile); err != nil {
			return err
		}
	}
	return nil
}
