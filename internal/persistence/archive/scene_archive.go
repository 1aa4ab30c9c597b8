// Package archive keeps timestamped, compressed copies of scene files.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fabula.engine/internal/persistence/snapshot"
	"fabula.engine/internal/sim/encoding"
	"fabula.engine/internal/sim/scene/io/tilecodec"
	"fabula.engine/internal/sim/sceneerr"
)

type SceneArchiveMeta struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	Source    string `json:"source"`
	SourceSHA string `json:"source_sha256"`
	Latest    string `json:"latest"`
	CreatedAt string `json:"created_at"`
}

const stampLayout = "20060102T150405.000Z"

// ArchiveScene re-writes the scene file at scenePath as
// dataDir/archives/<uid>/<stamp>.scene.yaml.zst and refreshes meta.json next
// to it. The source document and its terrain blob are decoded first, so a
// corrupt file is never archived.
func ArchiveScene(dataDir, scenePath string, at time.Time) (archivedPath string, meta SceneArchiveMeta, err error) {
	doc, err := snapshot.ReadScene(scenePath)
	if err != nil {
		return "", meta, err
	}
	if doc.UID == "" {
		return "", meta, fmt.Errorf("scene %q has no uid", doc.Name)
	}
	if !filepath.IsLocal(doc.UID) || strings.ContainsAny(doc.UID, `/\`) {
		return "", meta, sceneerr.Corrupt("scene uid", fmt.Errorf("%q is not a plain name", doc.UID))
	}
	raw, _, err := encoding.Unpack(doc.TerrainData)
	if err != nil {
		return "", meta, err
	}
	if err := tilecodec.CheckDimensions(doc.Columns, doc.Rows, len(raw)); err != nil {
		return "", meta, err
	}
	sum, err := fileSHA256(scenePath)
	if err != nil {
		return "", meta, err
	}

	dir := filepath.Join(dataDir, "archives", doc.UID)
	dst := filepath.Join(dir, at.UTC().Format(stampLayout)+".scene.yaml.zst")
	if err := snapshot.WriteScene(dst, doc); err != nil {
		return "", meta, err
	}

	meta = SceneArchiveMeta{
		UID:       doc.UID,
		Name:      doc.Name,
		Version:   doc.Version,
		Source:    scenePath,
		SourceSHA: sum,
		Latest:    filepath.Base(dst),
		CreatedAt: at.UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, meta, err
	}
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644); err != nil {
		return dst, meta, err
	}
	return dst, meta, nil
}

// ReadMeta reads the meta.json of uid's archive directory.
func ReadMeta(dataDir, uid string) (SceneArchiveMeta, error) {
	var m SceneArchiveMeta
	b, err := os.ReadFile(filepath.Join(dataDir, "archives", uid, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
