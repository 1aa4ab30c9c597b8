package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"fabula.engine/internal/config"
	"fabula.engine/internal/persistence/indexdb"
	"fabula.engine/internal/persistence/persister"
	"fabula.engine/internal/sim/encoding"
	"fabula.engine/internal/sim/scene/gen"
	"fabula.engine/internal/sim/sceneerr"
)

func scenesDir(env config.Env) string { return filepath.Join(env.DataDir, "scenes") }

func newCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	name := fs.String("name", "", "scene name (required)")
	cols := fs.Int("cols", 32, "terrain columns")
	rows := fs.Int("rows", 32, "terrain rows")
	tilesetName := fs.String("tileset", "outdoor", "tileset name")
	foliageName := fs.String("foliage", "forest", "foliage set name")
	seed := fs.Int64("seed", 0, "generator seed (0 = tuning.yaml)")
	out := fs.String("out", "", "output path (default <data>/scenes/<name>.scene.yaml)")
	zst := fs.Bool("zst", false, "zstd-compress the default output path")
	noIndex := fs.Bool("no_index", false, "do not record the scene in the index")
	_ = fs.Parse(args)

	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "missing -name")
		os.Exit(2)
	}
	logger := newLogger()
	cats, tune := loadAssets(env)
	if *seed != 0 {
		tune.Gen.Seed = *seed
	}
	ts, err := cats.Tileset(*tilesetName)
	if err != nil {
		fail("tileset", err)
	}
	fset, err := cats.FoliageSet(*foliageName)
	if err != nil {
		fail("foliage set", err)
	}

	sc, err := gen.Generate(*name, *cols, *rows, ts, fset, tune)
	if err != nil {
		fail("generate", err)
	}
	path := *out
	if path == "" {
		path = filepath.Join(scenesDir(env), *name+".scene.yaml")
		if *zst {
			path += ".zst"
		}
	}

	opts, closeJournal := persistOptions(env, logger, tune.DebugTileGid)
	defer closeJournal()
	res, err := persister.Save(path, sc, opts)
	if err != nil {
		closeJournal()
		fail("save", err)
	}
	if !*noIndex {
		recordScene(env, path, res.Meta, res.Sizes)
	}
	fmt.Printf("saved %s uid=%s %dx%d terrain=%s (%s raw, ratio %.2f)\n",
		path, sc.UID, *cols, *rows,
		humanize.Bytes(uint64(res.Sizes.Compressed)), humanize.Bytes(uint64(res.Sizes.Uncompressed)), res.Sizes.Ratio())
}

func infoCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: scenectl info <scene file>...")
		os.Exit(2)
	}

	logger := newLogger()
	opts, closeJournal := persistOptions(env, logger, 0)
	defer closeJournal()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failed := false
	for _, path := range fs.Args() {
		meta, err := persister.LoadMeta(path, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s %v\n", path, sceneerr.Code(err), err)
			failed = true
			continue
		}
		_ = enc.Encode(meta)
	}
	if failed {
		closeJournal()
		os.Exit(1)
	}
}

func verifyCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	_ = fs.Parse(args)
	paths := fs.Args()
	if len(paths) == 0 {
		var err error
		paths, err = findScenes(scenesDir(env))
		if err != nil {
			fail("scan scenes", err)
		}
	}

	logger := newLogger()
	cats, tune := loadAssets(env)
	opts, closeJournal := persistOptions(env, logger, tune.DebugTileGid)
	defer closeJournal()

	bad := 0
	for _, path := range paths {
		res, err := persister.Load(path, cats, opts)
		if err != nil {
			bad++
			fmt.Printf("FAIL %s %s %v\n", path, sceneerr.Code(err), err)
			continue
		}
		tr := res.Scene.Terrain()
		fmt.Printf("ok   %s name=%q %dx%d terrain=%s backfilled=%d\n",
			path, res.Scene.Name, tr.Columns(), tr.Rows(),
			humanize.Bytes(uint64(res.Sizes.Uncompressed)), res.Backfilled)
	}
	fmt.Printf("%s scenes checked, %d failed\n", humanize.Comma(int64(len(paths))), bad)
	if bad > 0 {
		closeJournal()
		os.Exit(1)
	}
}

func resaveCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("resave", flag.ExitOnError)
	in := fs.String("in", "", "source scene file (required)")
	out := fs.String("out", "", "destination (default: toggle .zst on -in)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*in) == "" {
		fmt.Fprintln(os.Stderr, "missing -in")
		os.Exit(2)
	}
	dst := *out
	if dst == "" {
		dst = resaveTarget(*in)
	}

	logger := newLogger()
	cats, tune := loadAssets(env)
	opts, closeJournal := persistOptions(env, logger, tune.DebugTileGid)
	defer closeJournal()

	loaded, err := persister.Load(*in, cats, opts)
	if err != nil {
		closeJournal()
		fail("load", err)
	}
	res, err := persister.Save(dst, loaded.Scene, opts)
	if err != nil {
		closeJournal()
		fail("save", err)
	}
	recordScene(env, dst, res.Meta, res.Sizes)
	fmt.Printf("resaved %s -> %s\n", *in, dst)
}

// resaveTarget toggles zstd compression on path.
func resaveTarget(path string) string {
	if strings.HasSuffix(path, ".zst") {
		return strings.TrimSuffix(path, ".zst")
	}
	return path + ".zst"
}

// findScenes lists *.scene.yaml and *.scene.yaml.zst under dir, sorted.
func findScenes(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if n := d.Name(); strings.HasSuffix(n, ".scene.yaml") || strings.HasSuffix(n, ".scene.yaml.zst") {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// recordScene indexes a freshly written scene. Index failures are reported
// but do not fail the command; `scenectl index` rebuilds the index.
func recordScene(env config.Env, path string, meta persister.Meta, sizes encoding.Sizes) {
	idx, err := indexdb.OpenSQLite(env.IndexPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "open index:", err)
		return
	}
	defer idx.Close()
	if err := idx.RecordScene(context.Background(), indexdb.SceneRowFromMeta(path, meta, sizes)); err != nil {
		fmt.Fprintln(os.Stderr, "index scene:", err)
	}
}
