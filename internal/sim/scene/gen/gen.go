// Package gen builds deterministic demo scenes: auto-tile families laid out
// in square regions, hashed corner heights with water below a fixed level,
// and scattered foliage.
package gen

import (
	"fmt"

	"fabula.engine/internal/sim/catalogs"
	"fabula.engine/internal/sim/scene"
	"fabula.engine/internal/sim/tuning"
)

// Salts keep the per-feature hashes independent.
const (
	saltHeight  = 0x48454947
	saltFoliage = 0x464f4c49
)

// Generate returns a columns x rows scene over ts and fs. Every cell gets a
// tile. Scalar scene fields come from tune.
func Generate(name string, columns, rows int, ts *catalogs.Tileset, fs *catalogs.FoliageSet, tune tuning.Tuning) (*scene.Scene, error) {
	if columns < 0 || rows < 0 {
		return nil, fmt.Errorf("negative size %dx%d", columns, rows)
	}
	if ts == nil || fs == nil {
		return nil, fmt.Errorf("generate %q: tileset and foliage set required", name)
	}
	families := ts.FamilyNames()
	if len(families) == 0 {
		return nil, fmt.Errorf("tileset %q has no auto-tile families", ts.Name)
	}
	p := tune.Gen
	if p.RegionSize <= 0 {
		p.RegionSize = 1
	}

	sc := scene.New(name, "", columns, rows)
	Apply(sc, tune)
	tr := sc.Terrain()
	tr.SetTileset(ts)
	tr.SetFoliageSet(fs)

	familyAt := func(x, z int) string {
		h := Hash2(p.Seed, floorDiv(x, p.RegionSize), floorDiv(z, p.RegionSize))
		return families[h%uint64(len(families))]
	}
	regions := fs.RegionNames()

	for z := 0; z < rows; z++ {
		for x := 0; x < columns; x++ {
			fam := familyAt(x, z)
			at, err := autoTileFor(ts, fam, func(dx, dz int) bool {
				nx, nz := x+dx, z+dz
				if !tr.InBounds(nx, nz) {
					return true
				}
				return familyAt(nx, nz) == fam
			})
			if err != nil {
				return nil, err
			}

			tile := scene.NewTile(x, z)
			tile.AutoTile = at
			tile.Gid = int32(at.Region + 1)
			y1 := vertexHeight(p, x, z)
			y2 := vertexHeight(p, x+1, z)
			y3 := vertexHeight(p, x, z+1)
			y4 := vertexHeight(p, x+1, z+1)
			tile.SetHeights((y1+y2+y3+y4)/4, y1, y2, y3, y4)
			tile.Passable = true
			if tile.Y < p.WaterLevel {
				tile.Liquid = true
				tile.LiquidHeight = p.WaterLevel
				tile.Passable = false
			}
			if !tile.Liquid && len(regions) > 0 {
				h := Hash2(p.Seed^saltFoliage, x, z)
				if int(h%1000) < p.FoliagePermille {
					d, err := fs.Descriptor(regions[(h>>10)%uint64(len(regions))])
					if err != nil {
						return nil, err
					}
					tile.Foliage = d
				}
			}
			if err := tr.SetTile(x, z, tile); err != nil {
				return nil, err
			}
		}
	}
	return sc, nil
}

// Apply copies shader, sky, light, water and foliage settings onto sc.
func Apply(sc *scene.Scene, tune tuning.Tuning) {
	sc.FinalShader = tune.FinalShader
	sc.SkyboxName = tune.Skybox
	sc.AmbientLight = colorOf(tune.AmbientColor)
	sc.SunLight = colorOf(tune.SunColor)
	sc.Water = &scene.Water{
		Alpha:          tune.Water.Alpha,
		Mix:            tune.Water.Mix,
		AmplitudeWave:  tune.Water.Amplitude,
		AnimationSpeed: tune.Water.AnimationSpeed,
		AngleWaveSpeed: tune.Water.Speed,
		Material:       tune.Water.Material,
	}
	sc.Foliage = &scene.Foliage{Amplitude: tune.Foliage.Amplitude, Speed: tune.Foliage.Speed}
}

func colorOf(c [4]float32) scene.Color {
	return scene.Color{R: c[0], G: c[1], B: c[2], A: c[3]}
}

func vertexHeight(p tuning.Gen, vx, vz int) float32 {
	h := Hash2(p.Seed^saltHeight, vx, vz) % 1001
	return float32(h) / 1000 * p.MaxHeight
}

// autoTileFor picks the edge variant facing the first neighbour of another
// family, falling back to the family's inner or first variant when the
// family has no such edge.
func autoTileFor(ts *catalogs.Tileset, family string, same func(dx, dz int) bool) (*catalogs.AutoTile, error) {
	f, err := ts.AutoTiles(family)
	if err != nil {
		return nil, err
	}
	want := catalogs.AutoInner
	switch {
	case !same(0, -1):
		want = catalogs.AutoEdgeTop
	case !same(0, 1):
		want = catalogs.AutoEdgeBottom
	case !same(-1, 0):
		want = catalogs.AutoEdgeLeft
	case !same(1, 0):
		want = catalogs.AutoEdgeRight
	}
	if a, err := f.AutoTile(want); err == nil {
		return a, nil
	}
	if a, err := f.AutoTile(catalogs.AutoInner); err == nil {
		return a, nil
	}
	if a := f.First(); a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("auto-tile family %q has no variants", family)
}
