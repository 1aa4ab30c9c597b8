package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fabula.engine/internal/persistence/snapshot"
	"fabula.engine/internal/sim/encoding"
	"fabula.engine/internal/sim/sceneerr"
)

// emptyScene is a valid 0x0 scene document carrying a real terrain blob.
func emptyScene(t *testing.T, uid string) snapshot.SceneV3 {
	t.Helper()
	blob, _, err := encoding.Pack(nil)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	return snapshot.SceneV3{
		Version: snapshot.Version, Name: "meadow", UID: uid, FinalShader: "default",
		TilesetName: "outdoor", FoliageName: "forest", TerrainData: blob,
	}
}

func writeScene(t *testing.T, path string, doc snapshot.SceneV3) {
	t.Helper()
	if err := snapshot.WriteScene(path, doc); err != nil {
		t.Fatalf("WriteScene: %v", err)
	}
}

func TestArchiveScene_WritesCompressedCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scenes", "meadow.scene.yaml")
	writeScene(t, src, emptyScene(t, "u-1"))

	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	dst, am, err := ArchiveScene(dir, src, at)
	if err != nil {
		t.Fatalf("ArchiveScene: %v", err)
	}
	if want := filepath.Join(dir, "archives", "u-1", "20240506T070809.000Z.scene.yaml.zst"); dst != want {
		t.Fatalf("dst=%s want %s", dst, want)
	}

	if am.UID != "u-1" || am.Latest != filepath.Base(dst) {
		t.Fatalf("returned meta: %+v", am)
	}

	got, err := snapshot.ReadScene(dst)
	if err != nil {
		t.Fatalf("ReadScene archived: %v", err)
	}
	if got.Name != "meadow" || got.UID != "u-1" || got.Version != snapshot.Version {
		t.Fatalf("archived doc: %+v", got)
	}

	meta, err := ReadMeta(dir, "u-1")
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if meta.Latest != filepath.Base(dst) || meta.Source != src || len(meta.SourceSHA) != 64 {
		t.Fatalf("meta: %+v", meta)
	}

	// A second archive keeps the first copy and moves Latest.
	dst2, _, err := ArchiveScene(dir, src, at.Add(time.Second))
	if err != nil {
		t.Fatalf("ArchiveScene: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("first copy gone: %v", err)
	}
	if meta, _ := ReadMeta(dir, "u-1"); meta.Latest != filepath.Base(dst2) {
		t.Fatalf("latest=%s", meta.Latest)
	}
}

func TestArchiveScene_RejectsCorruptSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.scene.yaml")
	if err := os.WriteFile(src, []byte("scene: [not, a, map]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := ArchiveScene(dir, src, time.Now()); !errors.Is(err, sceneerr.ErrDecodeCorruption) {
		t.Fatalf("expected corruption, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "archives")); !os.IsNotExist(err) {
		t.Fatalf("archives dir created for corrupt source")
	}
}

func TestArchiveScene_RejectsCorruptTerrain(t *testing.T) {
	dir := t.TempDir()
	good := emptyScene(t, "u-1")

	cases := []struct {
		name string
		edit func(*snapshot.SceneV3)
	}{
		{"truncated blob", func(d *snapshot.SceneV3) { d.TerrainData = d.TerrainData[:len(d.TerrainData)-1] }},
		{"not base64", func(d *snapshot.SceneV3) { d.TerrainData = "%%%%" }},
		{"missing blob", func(d *snapshot.SceneV3) { d.TerrainData = "" }},
		{"grid larger than blob", func(d *snapshot.SceneV3) { d.Columns, d.Rows = 1000, 1000 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := good
			tc.edit(&doc)
			src := filepath.Join(dir, "bad.scene.yaml")
			writeScene(t, src, doc)
			if _, _, err := ArchiveScene(dir, src, time.Now()); !errors.Is(err, sceneerr.ErrDecodeCorruption) {
				t.Fatalf("expected corruption, got %v", err)
			}
			if _, err := os.Stat(filepath.Join(dir, "archives")); !os.IsNotExist(err) {
				t.Fatalf("archives dir created for corrupt source")
			}
		})
	}
}

func TestArchiveScene_RejectsUnsafeUID(t *testing.T) {
	dir := t.TempDir()
	for _, uid := range []string{"../../escape", "a/b", `a\b`, "..", "/abs"} {
		src := filepath.Join(dir, "scenes", "x.scene.yaml")
		writeScene(t, src, emptyScene(t, uid))
		if _, _, err := ArchiveScene(dir, src, time.Now()); !errors.Is(err, sceneerr.ErrDecodeCorruption) {
			t.Fatalf("uid %q: expected corruption, got %v", uid, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "archives")); !os.IsNotExist(err) {
		t.Fatalf("archives dir created for unsafe uid")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape")); !os.IsNotExist(err) {
		t.Fatalf("file written outside data dir")
	}
}
