// Package snapshot is the on-disk scene document: scalar scene metadata,
// water and foliage tuning, and the packed terrain blob, stored as YAML under
// a root "scene" key. Paths ending in ".zst" are zstd-compressed.
package snapshot

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"fabula.engine/internal/sim/sceneerr"
)

// Version is the only scene document version this build reads and writes.
const Version = 3

//go:embed scene.schema.json
var sceneSchemaJSON string

var sceneSchema = jsonschema.MustCompileString("scene.schema.json", sceneSchemaJSON)

type Document struct {
	Scene SceneV3 `yaml:"scene"`
}

type SceneV3 struct {
	Version       int    `yaml:"version"`
	Name          string `yaml:"name"`
	Skybox        string `yaml:"skybox,omitempty"`
	UID           string `yaml:"uid"`
	FinalShader   string `yaml:"finalShader"`
	AmbientColor  int32  `yaml:"ambientColor"`
	SunLightColor int32  `yaml:"sunLightColor"`

	Columns     int    `yaml:"columns"`
	Rows        int    `yaml:"rows"`
	TilesetName string `yaml:"tilesetName"`
	FoliageName string `yaml:"foliageName"`

	// Base64 of the deflated tile stream. Only populated between the save
	// prepare step and the write, or between the read and the load commit.
	TerrainData string `yaml:"terrainData,omitempty"`

	WaterData   *WaterV3   `yaml:"waterData,omitempty"`
	FoliageData *FoliageV3 `yaml:"foliageData,omitempty"`
}

type WaterV3 struct {
	Alpha          float32 `yaml:"alpha"`
	Mix            float32 `yaml:"mix"`
	Amplitude      float32 `yaml:"amplitude"`
	AnimationSpeed float32 `yaml:"animationSpeed"`
	Speed          float32 `yaml:"speed"`
	Material       string  `yaml:"material"`
}

type FoliageV3 struct {
	Amplitude float32 `yaml:"amplitude"`
	Speed     float32 `yaml:"speed"`
}

// Encode writes s as a YAML scene document.
func Encode(w io.Writer, s SceneV3) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{Scene: s}); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}

// Decode reads a YAML scene document, validating it against the scene schema
// before populating fields. Malformed documents are decode corruption.
func Decode(r io.Reader) (SceneV3, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return SceneV3{}, sceneerr.Corrupt("read scene document", err)
	}
	if err := validate(raw); err != nil {
		return SceneV3{}, err
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return SceneV3{}, sceneerr.Corrupt("yaml decode", err)
	}
	return doc.Scene, nil
}

func validate(raw []byte) error {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return sceneerr.Corrupt("yaml decode", err)
	}
	// The validator wants JSON-shaped values.
	js, err := json.Marshal(generic)
	if err != nil {
		return sceneerr.Corrupt("scene document shape", err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return sceneerr.Corrupt("scene document shape", err)
	}
	if err := sceneSchema.Validate(v); err != nil {
		return sceneerr.Corrupt("scene schema", err)
	}
	return nil
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

func WriteScene(path string, s SceneV3) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var sink io.Writer = f
	var enc *zstd.Encoder
	if compressed(path) {
		enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		sink = enc
	}

	bw := bufio.NewWriterSize(sink, 256*1024)
	if err := Encode(bw, s); err != nil {
		if enc != nil {
			_ = enc.Close()
		}
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return err
		}
	}
	return f.Close()
}

func ReadScene(path string) (SceneV3, error) {
	f, err := os.Open(path)
	if err != nil {
		return SceneV3{}, err
	}
	defer f.Close()

	if !compressed(path) {
		return Decode(bufio.NewReaderSize(f, 256*1024))
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return SceneV3{}, sceneerr.Corrupt("zstd", err)
	}
	defer dec.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, dec); err != nil {
		return SceneV3{}, sceneerr.Corrupt("zstd", err)
	}
	return Decode(&buf)
}
