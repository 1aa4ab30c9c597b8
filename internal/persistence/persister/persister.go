// Package persister moves a scene between its live model and its on-disk
// document. A Persister walks four transitions around the document
// read/write step:
//
//	save: ForSave -> PrepareSave -> (write Document) -> FinalizeSave
//	load: (read document) -> ForLoad -> [SetSkipTerrain] -> CommitLoad -> Release
//
// Field validity by phase: the terrain blob in Document is only set after
// PrepareSave and before FinalizeSave, and between ForLoad and CommitLoad.
// Scene is the input on the save side and only set after a successful
// CommitLoad on the load side.
package persister

import (
	"fmt"
	"io"
	"log"

	"github.com/dustin/go-humanize"

	"fabula.engine/internal/persistence/snapshot"
	"fabula.engine/internal/sim/catalogs"
	"fabula.engine/internal/sim/encoding"
	"fabula.engine/internal/sim/scene"
	"fabula.engine/internal/sim/scene/io/tilecodec"
	"fabula.engine/internal/sim/sceneerr"
)

// AssetCatalog resolves the named sets a scene document references.
type AssetCatalog interface {
	Tileset(name string) (*catalogs.Tileset, error)
	FoliageSet(name string) (*catalogs.FoliageSet, error)
}

type Phase int

const (
	PhaseNew Phase = iota
	PhasePrepared
	PhaseFinalized
	PhaseCommitted
	PhaseReleased
)

func (p Phase) String() string {
	switch p {
	case PhaseNew:
		return "new"
	case PhasePrepared:
		return "prepared"
	case PhaseFinalized:
		return "finalized"
	case PhaseCommitted:
		return "committed"
	case PhaseReleased:
		return "released"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

type side int

const (
	sideSave side = iota + 1
	sideLoad
)

type Options struct {
	// Logger receives size diagnostics. Nil discards.
	Logger *log.Logger
	// DebugTileGid is the gid of tiles backfilled into empty cells on load.
	DebugTileGid int32
	// Journal, when set, receives one entry per Save/Load/LoadMeta call.
	Journal Journal
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return o.Logger
}

type Persister struct {
	side  side
	phase Phase
	opts  Options
	log   *log.Logger

	doc   snapshot.SceneV3
	scene *scene.Scene
	cats  AssetCatalog

	skipTerrain  bool
	terrainBytes int
	sizes        encoding.Sizes
	backfilled   int
}

// ForSave snapshots the scalar fields of sc. The terrain must have its
// tileset and foliage set bound.
func ForSave(sc *scene.Scene, opts Options) (*Persister, error) {
	if sc == nil || sc.Terrain() == nil {
		return nil, sceneerr.Precondition("nil scene")
	}
	tr := sc.Terrain()
	if tr.Tileset() == nil {
		return nil, sceneerr.Precondition("scene %q has no tileset", sc.Name)
	}
	if tr.FoliageSet() == nil {
		return nil, sceneerr.Precondition("scene %q has no foliage set", sc.Name)
	}
	return &Persister{
		side:  sideSave,
		opts:  opts,
		log:   opts.logger(),
		scene: sc,
		doc: snapshot.SceneV3{
			Version:       snapshot.Version,
			Name:          sc.Name,
			Skybox:        sc.SkyboxName,
			UID:           sc.UID,
			FinalShader:   sc.FinalShader,
			AmbientColor:  sc.AmbientLight.IntBits(),
			SunLightColor: sc.SunLight.IntBits(),
			Columns:       tr.Columns(),
			Rows:          tr.Rows(),
			TilesetName:   tr.Tileset().Name,
			FoliageName:   tr.FoliageSet().Name,
		},
	}, nil
}

// ForLoad wraps a freshly read document. cats may be nil when only
// metadata is needed and SetSkipTerrain(true) is called.
func ForLoad(doc snapshot.SceneV3, cats AssetCatalog, opts Options) *Persister {
	return &Persister{
		side:         sideLoad,
		opts:         opts,
		log:          opts.logger(),
		doc:          doc,
		cats:         cats,
		terrainBytes: len(doc.TerrainData),
	}
}

func (p *Persister) Phase() Phase               { return p.phase }
func (p *Persister) Scene() *scene.Scene        { return p.scene }
func (p *Persister) Sizes() encoding.Sizes      { return p.sizes }
func (p *Persister) Document() snapshot.SceneV3 { return p.doc }
func (p *Persister) SkipTerrain() bool          { return p.skipTerrain }

// Backfilled is how many empty cells CommitLoad filled with debug tiles.
func (p *Persister) Backfilled() int { return p.backfilled }

// SetSkipTerrain makes CommitLoad drop the terrain blob without building a
// scene. It must be called before CommitLoad and is ignored on save.
func (p *Persister) SetSkipTerrain(skip bool) error {
	if p.side == sideLoad && p.phase != PhaseNew {
		return sceneerr.Precondition("skip terrain set in phase %s", p.phase)
	}
	p.skipTerrain = skip
	return nil
}

// PrepareSave copies water and foliage tuning into the document and packs
// the terrain grid into its blob.
func (p *Persister) PrepareSave() error {
	if p.side != sideSave || p.phase != PhaseNew {
		return sceneerr.Precondition("prepare save in phase %s", p.phase)
	}
	sc := p.scene

	p.doc.WaterData = nil
	if w := sc.Water; w != nil {
		p.doc.WaterData = &snapshot.WaterV3{
			Alpha:          w.Alpha,
			Mix:            w.Mix,
			Amplitude:      w.AmplitudeWave,
			AnimationSpeed: w.AnimationSpeed,
			Speed:          w.AngleWaveSpeed,
			Material:       w.Material,
		}
	}
	p.doc.FoliageData = nil
	if f := sc.Foliage; f != nil {
		p.doc.FoliageData = &snapshot.FoliageV3{Amplitude: f.Amplitude, Speed: f.Speed}
	}

	raw, err := tilecodec.EncodeGrid(sc.Terrain())
	if err != nil {
		return fmt.Errorf("encode terrain: %w", err)
	}
	text, sizes, err := encoding.Pack(raw)
	if err != nil {
		return fmt.Errorf("pack terrain: %w", err)
	}
	p.doc.TerrainData = text
	p.sizes = sizes
	p.phase = PhasePrepared

	p.log.Printf("scene %q: terrain %dx%d packed %s -> %s",
		sc.Name, p.doc.Columns, p.doc.Rows,
		humanize.Bytes(uint64(sizes.Uncompressed)), humanize.Bytes(uint64(sizes.Compressed)))
	return nil
}

// FinalizeSave drops the terrain blob once the document has been written.
// The blob is cleared even when the call is out of order.
func (p *Persister) FinalizeSave() error {
	p.doc.TerrainData = ""
	if p.side != sideSave || p.phase != PhasePrepared {
		return sceneerr.Precondition("finalize save in phase %s", p.phase)
	}
	p.phase = PhaseFinalized
	return nil
}

// CommitLoad builds a new scene from the document: version gate, scalar
// fields, tuning, catalog resolution, then the terrain grid. On any failure
// no scene is exposed. The blob is cleared whatever the outcome.
func (p *Persister) CommitLoad() error {
	if p.side != sideLoad || p.phase != PhaseNew {
		return sceneerr.Precondition("commit load in phase %s", p.phase)
	}
	defer func() { p.doc.TerrainData = "" }()

	if p.skipTerrain {
		p.phase = PhaseCommitted
		return nil
	}

	sc, err := p.build()
	if err != nil {
		return err
	}
	p.scene = sc
	p.phase = PhaseCommitted
	return nil
}

func (p *Persister) build() (*scene.Scene, error) {
	d := p.doc
	if d.Version != snapshot.Version {
		return nil, &sceneerr.VersionMismatchError{Got: d.Version, Want: snapshot.Version}
	}
	if p.cats == nil {
		return nil, sceneerr.Precondition("no asset catalog to load %q", d.Name)
	}

	// The stream bounds the grid; the terrain is only allocated once the
	// declared size is known to fit.
	raw, sizes, err := encoding.Unpack(d.TerrainData)
	if err != nil {
		return nil, fmt.Errorf("unpack terrain: %w", err)
	}
	p.sizes = sizes
	if err := tilecodec.CheckDimensions(d.Columns, d.Rows, len(raw)); err != nil {
		return nil, fmt.Errorf("scene dimensions: %w", err)
	}

	sc := scene.New(d.Name, d.UID, d.Columns, d.Rows)
	sc.FinalShader = d.FinalShader
	sc.SkyboxName = d.Skybox
	sc.AmbientLight = scene.ColorFromIntBits(d.AmbientColor)
	sc.SunLight = scene.ColorFromIntBits(d.SunLightColor)
	if w := d.WaterData; w != nil {
		sc.Water.Alpha = w.Alpha
		sc.Water.Mix = w.Mix
		sc.Water.AmplitudeWave = w.Amplitude
		sc.Water.AnimationSpeed = w.AnimationSpeed
		sc.Water.AngleWaveSpeed = w.Speed
		sc.Water.Material = w.Material
	}
	if f := d.FoliageData; f != nil {
		sc.Foliage.Amplitude = f.Amplitude
		sc.Foliage.Speed = f.Speed
	}

	tr := sc.Terrain()
	ts, err := p.cats.Tileset(d.TilesetName)
	if err != nil {
		return nil, err
	}
	tr.SetTileset(ts)
	fs, err := p.cats.FoliageSet(d.FoliageName)
	if err != nil {
		return nil, err
	}
	tr.SetFoliageSet(fs)

	if err := tilecodec.DecodeGrid(tilecodec.NewReader(raw), d.Columns, d.Rows, tr); err != nil {
		return nil, fmt.Errorf("decode terrain: %w", err)
	}
	p.backfilled = tr.FillEmptyTilesWithDebugTile(p.opts.DebugTileGid)
	if p.backfilled > 0 {
		p.log.Printf("scene %q: filled %d empty tiles with debug tile", d.Name, p.backfilled)
	}

	p.log.Printf("scene %q: terrain %dx%d unpacked %s -> %s",
		d.Name, d.Columns, d.Rows,
		humanize.Bytes(uint64(sizes.Compressed)), humanize.Bytes(uint64(sizes.Uncompressed)))
	return sc, nil
}

// Release drops transient state once the caller has taken the scene.
func (p *Persister) Release() {
	p.doc.TerrainData = ""
	p.phase = PhaseReleased
}

// Meta describes a scene document without its terrain.
type Meta struct {
	Version      int    `json:"version"`
	Name         string `json:"name"`
	UID          string `json:"uid"`
	Skybox       string `json:"skybox,omitempty"`
	FinalShader  string `json:"final_shader"`
	Columns      int    `json:"columns"`
	Rows         int    `json:"rows"`
	TilesetName  string `json:"tileset"`
	FoliageName  string `json:"foliage"`
	TerrainBytes int    `json:"terrain_bytes"`
}

// Meta reports the document's scalar fields. TerrainBytes is the length of
// the blob as read or as packed.
func (p *Persister) Meta() Meta {
	tb := p.terrainBytes
	if p.side == sideSave && p.doc.TerrainData != "" {
		tb = len(p.doc.TerrainData)
	}
	return Meta{
		Version:      p.doc.Version,
		Name:         p.doc.Name,
		UID:          p.doc.UID,
		Skybox:       p.doc.Skybox,
		FinalShader:  p.doc.FinalShader,
		Columns:      p.doc.Columns,
		Rows:         p.doc.Rows,
		TilesetName:  p.doc.TilesetName,
		FoliageName:  p.doc.FoliageName,
		TerrainBytes: tb,
	}
}
