// Package catalogs holds the tileset and foliage-set catalogs that scene
// files reference by name. Catalogs are read-only once loaded.
package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fabula.engine/internal/sim/sceneerr"
)

var errUnresolved = sceneerr.ErrUnresolvedReference

type Catalogs struct {
	Tilesets TilesetCatalog
	Foliage  FoliageCatalog
}

type TilesetCatalog struct {
	ByName map[string]*Tileset
	Digest string
}

type FoliageCatalog struct {
	ByName map[string]*FoliageSet
	Digest string
}

// Tileset groups the auto-tile families of one terrain atlas.
type Tileset struct {
	Name  string
	Atlas string

	families map[string]*AutoTiles
}

// FoliageSet groups the foliage regions of one foliage atlas.
type FoliageSet struct {
	Name  string
	Atlas string

	regions map[string]*FoliageDescriptor
}

type FoliageDescriptor struct {
	RegionName string
	Width      float32
	Height     float32
	Set        *FoliageSet
}

type tilesetDef struct {
	Name      string         `json:"name"`
	Atlas     string         `json:"atlas"`
	AutoTiles []autoTilesDef `json:"auto_tiles"`
}

type autoTilesDef struct {
	Name       string   `json:"name"`
	BaseRegion int      `json:"base_region"`
	Variants   []string `json:"variants,omitempty"`
}

type foliageSetDef struct {
	Name    string             `json:"name"`
	Atlas   string             `json:"atlas"`
	Regions []foliageRegionDef `json:"regions"`
}

type foliageRegionDef struct {
	Name   string  `json:"name"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// New assembles catalogs from already-built sets. Digests are left empty.
func New(tilesets []*Tileset, foliage []*FoliageSet) (*Catalogs, error) {
	c := &Catalogs{
		Tilesets: TilesetCatalog{ByName: map[string]*Tileset{}},
		Foliage:  FoliageCatalog{ByName: map[string]*FoliageSet{}},
	}
	for _, ts := range tilesets {
		if _, dup := c.Tilesets.ByName[ts.Name]; dup {
			return nil, fmt.Errorf("duplicate tileset %q", ts.Name)
		}
		c.Tilesets.ByName[ts.Name] = ts
	}
	for _, fs := range foliage {
		if _, dup := c.Foliage.ByName[fs.Name]; dup {
			return nil, fmt.Errorf("duplicate foliage set %q", fs.Name)
		}
		c.Foliage.ByName[fs.Name] = fs
	}
	return c, nil
}

// Load reads configDir/tilesets/*.json and configDir/foliage/*.json.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadTilesets(filepath.Join(configDir, "tilesets"), &c.Tilesets); err != nil {
		return nil, err
	}
	if err := loadFoliage(filepath.Join(configDir, "foliage"), &c.Foliage); err != nil {
		return nil, err
	}
	return &c, nil
}

// Tileset resolves a tileset by name.
func (c *Catalogs) Tileset(name string) (*Tileset, error) {
	if ts, ok := c.Tilesets.ByName[name]; ok {
		return ts, nil
	}
	return nil, sceneerr.Unresolved("tileset", name)
}

// FoliageSet resolves a foliage set by name.
func (c *Catalogs) FoliageSet(name string) (*FoliageSet, error) {
	if fs, ok := c.Foliage.ByName[name]; ok {
		return fs, nil
	}
	return nil, sceneerr.Unresolved("foliage set", name)
}

func NewTileset(name, atlas string, families ...*AutoTiles) (*Tileset, error) {
	ts := &Tileset{Name: name, Atlas: atlas, families: make(map[string]*AutoTiles, len(families))}
	for _, f := range families {
		if f.Name == "" {
			return nil, fmt.Errorf("tileset %q: auto tile family without name", name)
		}
		if _, dup := ts.families[f.Name]; dup {
			return nil, fmt.Errorf("tileset %q: duplicate auto tile family %q", name, f.Name)
		}
		ts.families[f.Name] = f
	}
	return ts, nil
}

// AutoTiles resolves a family by name.
func (ts *Tileset) AutoTiles(name string) (*AutoTiles, error) {
	if f, ok := ts.families[name]; ok {
		return f, nil
	}
	return nil, sceneerr.Unresolved("auto tile family", ts.Name+"/"+name)
}

// AutoTile resolves family + variant in one step.
func (ts *Tileset) AutoTile(family string, t AutoTileType) (*AutoTile, error) {
	f, err := ts.AutoTiles(family)
	if err != nil {
		return nil, err
	}
	return f.AutoTile(t)
}

// FamilyNames lists families in name order.
func (ts *Tileset) FamilyNames() []string {
	names := make([]string, 0, len(ts.families))
	for n := range ts.families {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DebugAutoTile is the variant used to backfill cells a scene file left empty:
// the first variant of the first family by name.
func (ts *Tileset) DebugAutoTile() *AutoTile {
	for _, n := range ts.FamilyNames() {
		if a := ts.families[n].First(); a != nil {
			return a
		}
	}
	return nil
}

func NewFoliageSet(name, atlas string, regions ...string) *FoliageSet {
	fs := &FoliageSet{Name: name, Atlas: atlas, regions: make(map[string]*FoliageDescriptor, len(regions))}
	for _, r := range regions {
		fs.regions[r] = &FoliageDescriptor{RegionName: r, Width: 1, Height: 1, Set: fs}
	}
	return fs
}

// Descriptor resolves a foliage region by name.
func (fs *FoliageSet) Descriptor(region string) (*FoliageDescriptor, error) {
	if d, ok := fs.regions[region]; ok {
		return d, nil
	}
	return nil, sceneerr.Unresolved("foliage region", fs.Name+"/"+region)
}

// RegionNames lists regions in name order.
func (fs *FoliageSet) RegionNames() []string {
	names := make([]string, 0, len(fs.regions))
	for n := range fs.regions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// readDefs reads every *.json file in dir in name order. A missing dir is empty.
func readDefs(dir string, each func(name string, raw []byte) error) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return sha256Hex(nil), nil
		}
		return "", err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		concat.Write(b)
		concat.WriteByte('\n')
		if err := each(filepath.Base(p), b); err != nil {
			return "", err
		}
	}
	return sha256Hex(concat.Bytes()), nil
}

func loadTilesets(dir string, out *TilesetCatalog) error {
	out.ByName = map[string]*Tileset{}
	digest, err := readDefs(dir, func(file string, raw []byte) error {
		var def tilesetDef
		if err := json.Unmarshal(raw, &def); err != nil {
			return fmt.Errorf("tileset %s: %w", file, err)
		}
		if def.Name == "" {
			return fmt.Errorf("tileset %s: missing name", file)
		}
		if _, dup := out.ByName[def.Name]; dup {
			return fmt.Errorf("tileset %s: duplicate name %q", file, def.Name)
		}
		families := make([]*AutoTiles, 0, len(def.AutoTiles))
		for _, fd := range def.AutoTiles {
			variants := make([]AutoTileType, 0, len(fd.Variants))
			for _, v := range fd.Variants {
				t, err := ParseAutoTileType(v)
				if err != nil {
					return fmt.Errorf("tileset %s: family %q: %w", file, fd.Name, err)
				}
				variants = append(variants, t)
			}
			families = append(families, NewAutoTiles(fd.Name, fd.BaseRegion, variants...))
		}
		ts, err := NewTileset(def.Name, def.Atlas, families...)
		if err != nil {
			return fmt.Errorf("tileset %s: %w", file, err)
		}
		out.ByName[ts.Name] = ts
		return nil
	})
	if err != nil {
		return err
	}
	out.Digest = digest
	return nil
}

func loadFoliage(dir string, out *FoliageCatalog) error {
	out.ByName = map[string]*FoliageSet{}
	digest, err := readDefs(dir, func(file string, raw []byte) error {
		var def foliageSetDef
		if err := json.Unmarshal(raw, &def); err != nil {
			return fmt.Errorf("foliage %s: %w", file, err)
		}
		if def.Name == "" {
			return fmt.Errorf("foliage %s: missing name", file)
		}
		if _, dup := out.ByName[def.Name]; dup {
			return fmt.Errorf("foliage %s: duplicate name %q", file, def.Name)
		}
		fs := &FoliageSet{Name: def.Name, Atlas: def.Atlas, regions: make(map[string]*FoliageDescriptor, len(def.Regions))}
		for _, r := range def.Regions {
			if r.Name == "" {
				return fmt.Errorf("foliage %s: region without name", file)
			}
			fs.regions[r.Name] = &FoliageDescriptor{RegionName: r.Name, Width: r.Width, Height: r.Height, Set: fs}
		}
		out.ByName[fs.Name] = fs
		return nil
	})
	if err != nil {
		return err
	}
	out.Digest = digest
	return nil
}
