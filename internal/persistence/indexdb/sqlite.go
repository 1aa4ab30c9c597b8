// Package indexdb keeps a queryable SQLite index of the scene files under a
// data directory. The scene files stay the source of truth; the index can be
// rebuilt from them at any time.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"fabula.engine/internal/persistence/persister"
	"fabula.engine/internal/sim/catalogs"
	"fabula.engine/internal/sim/encoding"
	"fabula.engine/internal/sim/tuning"
)

const schemaVersion = "1"

type SQLiteIndex struct {
	db *sql.DB
}

// SceneRow is one indexed scene file.
type SceneRow struct {
	UID          string `json:"uid"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	Version      int    `json:"version"`
	Columns      int    `json:"columns"`
	Rows         int    `json:"rows"`
	Tileset      string `json:"tileset"`
	Foliage      string `json:"foliage"`
	TerrainBytes int    `json:"terrain_bytes"`
	Uncompressed int    `json:"uncompressed"`
	Compressed   int    `json:"compressed"`
	RecordedAt   string `json:"recorded_at"`
}

// SceneRowFromMeta builds a row for the file at path. sizes may be zero when
// only the metadata was read.
func SceneRowFromMeta(path string, m persister.Meta, sizes encoding.Sizes) SceneRow {
	return SceneRow{
		UID:          m.UID,
		Name:         m.Name,
		Path:         path,
		Version:      m.Version,
		Columns:      m.Columns,
		Rows:         m.Rows,
		Tileset:      m.TilesetName,
		Foliage:      m.FoliageName,
		TerrainBytes: m.TerrainBytes,
		Uncompressed: sizes.Uncompressed,
		Compressed:   sizes.Compressed,
	}
}

type ArchiveRow struct {
	UID        string `json:"uid"`
	Path       string `json:"path"`
	RecordedAt string `json:"recorded_at"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scenes (
			uid TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			version INTEGER NOT NULL,
			columns INTEGER NOT NULL,
			rows INTEGER NOT NULL,
			tileset TEXT NOT NULL,
			foliage TEXT NOT NULL,
			terrain_bytes INTEGER NOT NULL,
			uncompressed INTEGER NOT NULL,
			compressed INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scenes_name ON scenes(name);`,
		`CREATE TABLE IF NOT EXISTS archives (
			uid TEXT NOT NULL,
			path TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (uid, path)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version',?)`, schemaVersion)
	return err
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// RecordScene inserts or replaces the row keyed by r.UID.
func (s *SQLiteIndex) RecordScene(ctx context.Context, r SceneRow) error {
	if r.UID == "" {
		return fmt.Errorf("scene %q has no uid", r.Name)
	}
	if r.RecordedAt == "" {
		r.RecordedAt = now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scenes(uid,name,path,version,columns,rows,tileset,foliage,terrain_bytes,uncompressed,compressed,recorded_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.UID, r.Name, r.Path, r.Version, r.Columns, r.Rows, r.Tileset, r.Foliage,
		r.TerrainBytes, r.Uncompressed, r.Compressed, r.RecordedAt,
	)
	return err
}

const sceneCols = `uid,name,path,version,columns,rows,tileset,foliage,terrain_bytes,uncompressed,compressed,recorded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(sc rowScanner) (SceneRow, error) {
	var r SceneRow
	err := sc.Scan(&r.UID, &r.Name, &r.Path, &r.Version, &r.Columns, &r.Rows, &r.Tileset, &r.Foliage,
		&r.TerrainBytes, &r.Uncompressed, &r.Compressed, &r.RecordedAt)
	return r, err
}

// ListScenes returns every indexed scene ordered by name then uid.
func (s *SQLiteIndex) ListScenes(ctx context.Context) ([]SceneRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sceneCols+` FROM scenes ORDER BY name, uid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SceneRow
	for rows.Next() {
		r, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SceneByUID returns the row for uid; ok is false when none is indexed.
func (s *SQLiteIndex) SceneByUID(ctx context.Context, uid string) (SceneRow, bool, error) {
	r, err := scanScene(s.db.QueryRowContext(ctx, `SELECT `+sceneCols+` FROM scenes WHERE uid=?`, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return SceneRow{}, false, nil
	}
	if err != nil {
		return SceneRow{}, false, err
	}
	return r, true, nil
}

// ForgetScene drops the row for uid and its archive rows.
func (s *SQLiteIndex) ForgetScene(ctx context.Context, uid string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE uid=?`, uid); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM archives WHERE uid=?`, uid); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) RecordArchive(ctx context.Context, uid, path string) error {
	if uid == "" || path == "" {
		return fmt.Errorf("archive row needs uid and path")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO archives(uid,path,recorded_at) VALUES(?,?,?)`, uid, path, now())
	return err
}

// Archives lists the archived copies of uid, oldest first.
func (s *SQLiteIndex) Archives(ctx context.Context, uid string) ([]ArchiveRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uid,path,recorded_at FROM archives WHERE uid=? ORDER BY recorded_at, path`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchiveRow
	for rows.Next() {
		var r ArchiveRow
		if err := rows.Scan(&r.UID, &r.Path, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type tilesetSummary struct {
	Name     string   `json:"name"`
	Atlas    string   `json:"atlas"`
	Families []string `json:"families"`
}

type foliageSummary struct {
	Name    string   `json:"name"`
	Atlas   string   `json:"atlas"`
	Regions []string `json:"regions"`
}

// UpsertCatalogs stores the catalogs and tuning a scene set was indexed
// against, so later queries can tell when the assets drifted.
func (s *SQLiteIndex) UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv

	{
		sets := make([]tilesetSummary, 0, len(cats.Tilesets.ByName))
		for _, n := range sortedKeys(cats.Tilesets.ByName) {
			ts := cats.Tilesets.ByName[n]
			sets = append(sets, tilesetSummary{Name: ts.Name, Atlas: ts.Atlas, Families: ts.FamilyNames()})
		}
		b, err := json.Marshal(sets)
		if err != nil {
			return err
		}
		rows = append(rows, kv{name: "tilesets", digest: digestOr(cats.Tilesets.Digest, b), json: b})
	}
	{
		sets := make([]foliageSummary, 0, len(cats.Foliage.ByName))
		for _, n := range sortedKeys(cats.Foliage.ByName) {
			fs := cats.Foliage.ByName[n]
			sets = append(sets, foliageSummary{Name: fs.Name, Atlas: fs.Atlas, Regions: fs.RegionNames()})
		}
		b, err := json.Marshal(sets)
		if err != nil {
			return err
		}
		rows = append(rows, kv{name: "foliage", digest: digestOr(cats.Foliage.Digest, b), json: b})
	}
	{
		b, err := json.Marshal(tune)
		if err != nil {
			return err
		}
		rows = append(rows, kv{name: "tuning", digest: digestOr("", b), json: b})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	ts := now()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.name, r.digest, string(r.json), ts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the stored digest for name, or "" if none.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return d, err
}

// digestOr prefers the digest of the source files; in-memory catalogs have
// none, so the canonical JSON is hashed instead.
func digestOr(digest string, b []byte) string {
	if digest != "" {
		return digest
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
