package persister

import (
	"fmt"
	"io"
	"time"

	"fabula.engine/internal/persistence/snapshot"
	"fabula.engine/internal/sim/encoding"
	"fabula.engine/internal/sim/scene"
	"fabula.engine/internal/sim/sceneerr"
)

// OpEntry is one journal line per save or load.
type OpEntry struct {
	Time       string         `json:"time"`
	Op         string         `json:"op"`
	Path       string         `json:"path,omitempty"`
	Name       string         `json:"name,omitempty"`
	UID        string         `json:"uid,omitempty"`
	Columns    int            `json:"columns,omitempty"`
	Rows       int            `json:"rows,omitempty"`
	Sizes      encoding.Sizes `json:"sizes"`
	Backfilled int            `json:"backfilled,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Code       string         `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type Journal interface {
	WriteOp(OpEntry) error
}

type SaveResult struct {
	Meta  Meta
	Sizes encoding.Sizes
}

type LoadResult struct {
	Scene      *scene.Scene
	Meta       Meta
	Sizes      encoding.Sizes
	Backfilled int
}

// Save writes sc to path. Paths ending in ".zst" are zstd-compressed.
func Save(path string, sc *scene.Scene, opts Options) (SaveResult, error) {
	start := time.Now()
	res, err := save(sc, opts, func(doc snapshot.SceneV3) error {
		return snapshot.WriteScene(path, doc)
	})
	journal(opts, "save", path, start, res.Meta, res.Sizes, 0, err)
	return res, err
}

// SaveTo writes sc as an uncompressed document to w.
func SaveTo(w io.Writer, sc *scene.Scene, opts Options) (SaveResult, error) {
	start := time.Now()
	res, err := save(sc, opts, func(doc snapshot.SceneV3) error {
		return snapshot.Encode(w, doc)
	})
	journal(opts, "save", "", start, res.Meta, res.Sizes, 0, err)
	return res, err
}

func save(sc *scene.Scene, opts Options, write func(snapshot.SceneV3) error) (SaveResult, error) {
	p, err := ForSave(sc, opts)
	if err != nil {
		return SaveResult{}, err
	}
	if err := p.PrepareSave(); err != nil {
		return SaveResult{Meta: p.Meta()}, err
	}
	res := SaveResult{Meta: p.Meta(), Sizes: p.Sizes()}
	werr := write(p.Document())
	if err := p.FinalizeSave(); err != nil && werr == nil {
		werr = err
	}
	if werr != nil {
		return res, fmt.Errorf("write scene %q: %w", sc.Name, werr)
	}
	return res, nil
}

// Load reads the scene document at path and builds its scene against cats.
func Load(path string, cats AssetCatalog, opts Options) (LoadResult, error) {
	start := time.Now()
	doc, err := snapshot.ReadScene(path)
	if err != nil {
		journal(opts, "load", path, start, Meta{}, encoding.Sizes{}, 0, err)
		return LoadResult{}, err
	}
	res, err := load(doc, cats, opts)
	journal(opts, "load", path, start, res.Meta, res.Sizes, res.Backfilled, err)
	return res, err
}

// LoadFrom reads an uncompressed document from r.
func LoadFrom(r io.Reader, cats AssetCatalog, opts Options) (LoadResult, error) {
	start := time.Now()
	doc, err := snapshot.Decode(r)
	if err != nil {
		journal(opts, "load", "", start, Meta{}, encoding.Sizes{}, 0, err)
		return LoadResult{}, err
	}
	res, err := load(doc, cats, opts)
	journal(opts, "load", "", start, res.Meta, res.Sizes, res.Backfilled, err)
	return res, err
}

func load(doc snapshot.SceneV3, cats AssetCatalog, opts Options) (LoadResult, error) {
	p := ForLoad(doc, cats, opts)
	meta := p.Meta()
	if err := p.CommitLoad(); err != nil {
		return LoadResult{Meta: meta}, fmt.Errorf("load scene %q: %w", doc.Name, err)
	}
	res := LoadResult{Scene: p.Scene(), Meta: meta, Sizes: p.Sizes(), Backfilled: p.Backfilled()}
	p.Release()
	return res, nil
}

// LoadMeta reads only the scalar fields of the document at path. The terrain
// blob is dropped unparsed and no catalog is needed. The version is reported,
// not checked.
func LoadMeta(path string, opts Options) (Meta, error) {
	start := time.Now()
	meta, err := loadMeta(path, opts)
	journal(opts, "meta", path, start, meta, encoding.Sizes{}, 0, err)
	return meta, err
}

func loadMeta(path string, opts Options) (Meta, error) {
	doc, err := snapshot.ReadScene(path)
	if err != nil {
		return Meta{}, err
	}
	p := ForLoad(doc, nil, opts)
	if err := p.SetSkipTerrain(true); err != nil {
		return Meta{}, err
	}
	meta := p.Meta()
	if err := p.CommitLoad(); err != nil {
		return meta, err
	}
	p.Release()
	return meta, nil
}

func journal(opts Options, op, path string, start time.Time, meta Meta, sizes encoding.Sizes, backfilled int, err error) {
	if opts.Journal == nil {
		return
	}
	e := OpEntry{
		Time:       start.UTC().Format(time.RFC3339Nano),
		Op:         op,
		Path:       path,
		Name:       meta.Name,
		UID:        meta.UID,
		Columns:    meta.Columns,
		Rows:       meta.Rows,
		Sizes:      sizes,
		Backfilled: backfilled,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		e.Code = sceneerr.Code(err)
		e.Error = err.Error()
	}
	if jerr := opts.Journal.WriteOp(e); jerr != nil {
		opts.logger().Printf("journal %s %s: %v", op, path, jerr)
	}
}
