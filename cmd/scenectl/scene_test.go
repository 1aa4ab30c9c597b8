package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFindScenes(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{
		"a.scene.yaml",
		"nested/b.scene.yaml.zst",
		"notes.txt",
		"c.yaml",
	} {
		full := filepath.Join(dir, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got, err := findScenes(dir)
	if err != nil {
		t.Fatalf("findScenes: %v", err)
	}
	want := []string{filepath.Join(dir, "a.scene.yaml"), filepath.Join(dir, "nested", "b.scene.yaml.zst")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestFindScenes_MissingDir(t *testing.T) {
	got, err := findScenes(filepath.Join(t.TempDir(), "missing"))
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v err=%v", got, err)
	}
}

func TestResaveTarget(t *testing.T) {
	if got := resaveTarget("s/a.scene.yaml"); got != "s/a.scene.yaml.zst" {
		t.Fatalf("got %s", got)
	}
	if got := resaveTarget("s/a.scene.yaml.zst"); got != "s/a.scene.yaml" {
		t.Fatalf("got %s", got)
	}
}
