package indexdb

import (
	"context"
	"path/filepath"
	"testing"

	"fabula.engine/internal/persistence/persister"
	"fabula.engine/internal/sim/catalogs"
	"fabula.engine/internal/sim/encoding"
	"fabula.engine/internal/sim/tuning"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "scenes.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestRecordAndListScenes(t *testing.T) {
	ctx := context.Background()
	idx := openTest(t)

	meta := persister.Meta{Version: 3, Name: "meadow", UID: "u-1", Columns: 8, Rows: 4, TilesetName: "outdoor", FoliageName: "forest", TerrainBytes: 120}
	if err := idx.RecordScene(ctx, SceneRowFromMeta("scenes/meadow.scene.yaml", meta, encoding.Sizes{Uncompressed: 900, Compressed: 90})); err != nil {
		t.Fatalf("RecordScene: %v", err)
	}
	if err := idx.RecordScene(ctx, SceneRow{UID: "u-2", Name: "cave", Path: "scenes/cave.scene.yaml", Version: 3}); err != nil {
		t.Fatalf("RecordScene: %v", err)
	}
	// Re-recording a uid replaces its row.
	meta.Columns = 16
	if err := idx.RecordScene(ctx, SceneRowFromMeta("scenes/meadow2.scene.yaml", meta, encoding.Sizes{})); err != nil {
		t.Fatalf("RecordScene: %v", err)
	}

	rows, err := idx.ListScenes(ctx)
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "cave" || rows[1].Name != "meadow" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[1].Columns != 16 || rows[1].Path != "scenes/meadow2.scene.yaml" || rows[1].RecordedAt == "" {
		t.Fatalf("meadow row not replaced: %+v", rows[1])
	}

	got, ok, err := idx.SceneByUID(ctx, "u-1")
	if err != nil || !ok {
		t.Fatalf("SceneByUID: ok=%v err=%v", ok, err)
	}
	if got.Tileset != "outdoor" || got.TerrainBytes != 120 {
		t.Fatalf("unexpected row: %+v", got)
	}
	if _, ok, err := idx.SceneByUID(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing uid: ok=%v err=%v", ok, err)
	}
}

func TestRecordScene_RequiresUID(t *testing.T) {
	idx := openTest(t)
	if err := idx.RecordScene(context.Background(), SceneRow{Name: "anon"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestArchivesAndForget(t *testing.T) {
	ctx := context.Background()
	idx := openTest(t)
	if err := idx.RecordScene(ctx, SceneRow{UID: "u-1", Name: "meadow", Path: "m.yaml", Version: 3}); err != nil {
		t.Fatalf("RecordScene: %v", err)
	}
	for _, p := range []string{"archives/u-1/a.scene.yaml.zst", "archives/u-1/b.scene.yaml.zst"} {
		if err := idx.RecordArchive(ctx, "u-1", p); err != nil {
			t.Fatalf("RecordArchive: %v", err)
		}
	}
	arch, err := idx.Archives(ctx, "u-1")
	if err != nil || len(arch) != 2 {
		t.Fatalf("Archives: %v %+v", err, arch)
	}

	if err := idx.ForgetScene(ctx, "u-1"); err != nil {
		t.Fatalf("ForgetScene: %v", err)
	}
	if _, ok, _ := idx.SceneByUID(ctx, "u-1"); ok {
		t.Fatalf("scene survived forget")
	}
	if arch, _ := idx.Archives(ctx, "u-1"); len(arch) != 0 {
		t.Fatalf("archives survived forget: %+v", arch)
	}
}

func TestUpsertCatalogs(t *testing.T) {
	ctx := context.Background()
	idx := openTest(t)

	ts, err := catalogs.NewTileset("outdoor", "outdoor.png", catalogs.NewAutoTiles("grass", 0))
	if err != nil {
		t.Fatalf("NewTileset: %v", err)
	}
	cats, err := catalogs.New([]*catalogs.Tileset{ts}, []*catalogs.FoliageSet{catalogs.NewFoliageSet("forest", "", "fern")})
	if err != nil {
		t.Fatalf("catalogs.New: %v", err)
	}
	if err := idx.UpsertCatalogs(ctx, cats, tuning.Default()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	for _, name := range []string{"tilesets", "foliage", "tuning"} {
		d, err := idx.CatalogDigest(ctx, name)
		if err != nil || len(d) != 64 {
			t.Fatalf("digest %s: %q %v", name, d, err)
		}
	}

	cats.Tilesets.Digest = "abc"
	if err := idx.UpsertCatalogs(ctx, cats, tuning.Default()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	if d, _ := idx.CatalogDigest(ctx, "tilesets"); d != "abc" {
		t.Fatalf("file digest not preferred: %q", d)
	}
	if d, _ := idx.CatalogDigest(ctx, "nope"); d != "" {
		t.Fatalf("unknown catalog digest: %q", d)
	}
}
