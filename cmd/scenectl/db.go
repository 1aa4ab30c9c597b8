package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"fabula.engine/internal/config"
	"fabula.engine/internal/persistence/archive"
	"fabula.engine/internal/persistence/indexdb"
	persistlog "fabula.engine/internal/persistence/log"
	"fabula.engine/internal/persistence/persister"
	"fabula.engine/internal/sim/encoding"
	"fabula.engine/internal/sim/sceneerr"
)

func openIndex(env config.Env) *indexdb.SQLiteIndex {
	idx, err := indexdb.OpenSQLite(env.IndexPath())
	if err != nil {
		fail("open index", err)
	}
	return idx
}

func indexCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	prune := fs.Bool("prune", false, "drop rows whose file no longer exists")
	_ = fs.Parse(args)

	ctx := context.Background()
	logger := newLogger()
	cats, tune := loadAssets(env)
	idx := openIndex(env)
	defer idx.Close()

	if err := idx.UpsertCatalogs(ctx, cats, tune); err != nil {
		fail("index catalogs", err)
	}
	paths, err := findScenes(scenesDir(env))
	if err != nil {
		fail("scan scenes", err)
	}

	opts, closeJournal := persistOptions(env, logger, tune.DebugTileGid)
	defer closeJournal()

	indexed, skipped := 0, 0
	for _, path := range paths {
		meta, err := persister.LoadMeta(path, opts)
		if err != nil {
			logger.Printf("skip %s: %s %v", path, sceneerr.Code(err), err)
			skipped++
			continue
		}
		if err := idx.RecordScene(ctx, indexdb.SceneRowFromMeta(path, meta, encoding.Sizes{})); err != nil {
			logger.Printf("skip %s: %v", path, err)
			skipped++
			continue
		}
		indexed++
	}

	pruned := 0
	if *prune {
		rows, err := idx.ListScenes(ctx)
		if err != nil {
			fail("list scenes", err)
		}
		for _, r := range rows {
			if _, err := os.Stat(r.Path); os.IsNotExist(err) {
				if err := idx.ForgetScene(ctx, r.UID); err != nil {
					fail("prune", err)
				}
				pruned++
			}
		}
	}
	fmt.Printf("indexed=%d skipped=%d pruned=%d db=%s\n", indexed, skipped, pruned, env.IndexPath())
}

func listCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	uid := fs.String("uid", "", "show one scene and its archives")
	_ = fs.Parse(args)

	ctx := context.Background()
	idx := openIndex(env)
	defer idx.Close()

	enc := json.NewEncoder(os.Stdout)
	if strings.TrimSpace(*uid) != "" {
		row, ok, err := idx.SceneByUID(ctx, *uid)
		if err != nil {
			fail("query", err)
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "no scene with uid %q\n", *uid)
			os.Exit(1)
		}
		arch, err := idx.Archives(ctx, *uid)
		if err != nil {
			fail("query archives", err)
		}
		_ = enc.Encode(struct {
			indexdb.SceneRow
			Archives []indexdb.ArchiveRow `json:"archives"`
		}{row, arch})
		return
	}

	rows, err := idx.ListScenes(ctx)
	if err != nil {
		fail("query", err)
	}
	for _, r := range rows {
		_ = enc.Encode(r)
	}
}

func archiveCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: scenectl archive <scene file>")
		os.Exit(2)
	}
	src := fs.Arg(0)

	dst, meta, err := archive.ArchiveScene(env.DataDir, src, time.Now())
	if err != nil {
		fail("archive", err)
	}

	idx := openIndex(env)
	defer idx.Close()
	if err := idx.RecordArchive(context.Background(), meta.UID, dst); err != nil {
		fail("index archive", err)
	}
	fmt.Printf("archived %s -> %s\n", src, dst)
}

func journalCmd(env config.Env, args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	failedOnly := fs.Bool("failed", false, "only entries with an error")
	_ = fs.Parse(args)

	ops, err := persistlog.ReadOps(persistlog.JournalDir(env.DataDir))
	if err != nil {
		fail("read journal", err)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, op := range ops {
		if *failedOnly && op.Code == "" {
			continue
		}
		_ = enc.Encode(op)
	}
}
