package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/marwamagdy-create/DEPI/ml"
	_ "github.com/mattn/go-sqlite3"
)

// Version describes one registered model version.
type Version struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	Stage     string    `json:"stage"`
	Artifacts []string  `json:"artifacts"`
	CreatedAt time.Time `json:"created_at"`
}

// SQLiteStore keeps registered model versions and their artifact payloads in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("registry database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open registry database failed: %w", err)
	}
	db.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS model_versions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        version INTEGER NOT NULL,
        stage TEXT NOT NULL DEFAULT 'None',
        created_at DATETIME NOT NULL,
        UNIQUE(name, version)
    );
    CREATE TABLE IF NOT EXISTS model_artifacts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        version INTEGER NOT NULL,
        artifact TEXT NOT NULL,
        payload BLOB NOT NULL,
        UNIQUE(name, version, artifact)
    );
    CREATE INDEX IF NOT EXISTS idx_model_versions_stage ON model_versions(name, stage);
    `
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("create registry tables failed: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Publish registers a new version of name holding the given artifacts. A non-empty
// stage other than None moves the previous holder of that stage to Archived.
func (s *SQLiteStore) Publish(ctx context.Context, name, stage string, artifacts map[string][]byte) (int, error) {
	if name == "" || strings.Contains(name, "/") {
		return 0, fmt.Errorf("invalid model name %q", name)
	}
	if _, ok := artifacts[ArtifactModel]; !ok {
		return 0, errors.New("publish needs a model artifact")
	}
	if stage == "" {
		stage = StageNone
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM model_versions WHERE name = ?`, name).Scan(&version); err != nil {
		return 0, err
	}
	if err := archiveStage(ctx, tx, name, stage); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO model_versions (name, version, stage, created_at) VALUES (?, ?, ?, ?)`,
		name, version, stage, time.Now().UTC()); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO model_artifacts (name, version, artifact, payload) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for artifact, payload := range artifacts {
		if _, err := stmt.ExecContext(ctx, name, version, artifact, payload); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return version, nil
}

// Promote moves an existing version into stage.
func (s *SQLiteStore) Promote(ctx context.Context, name string, version int, stage string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := archiveStage(ctx, tx, name, stage); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE model_versions SET stage = ? WHERE name = ? AND version = ?`, stage, name, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: model %s version %d", ml.ErrArtifactMissing, name, version)
	}
	return tx.Commit()
}

func archiveStage(ctx context.Context, tx *sql.Tx, name, stage string) error {
	if stage == StageNone || stage == StageArchived {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE model_versions SET stage = ? WHERE name = ? AND stage = ?`, StageArchived, name, stage)
	return err
}

// Resolve pins a ref's stage or "latest" to a concrete version number.
func (s *SQLiteStore) Resolve(ctx context.Context, ref Ref) (int, error) {
	if v, ok := ref.Pinned(); ok {
		return v, nil
	}
	var (
		version sql.NullInt64
		err     error
	)
	if strings.EqualFold(ref.Version, VersionLatest) {
		err = s.db.QueryRowContext(ctx,
			`SELECT MAX(version) FROM model_versions WHERE name = ?`, ref.Name).Scan(&version)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT MAX(version) FROM model_versions WHERE name = ? AND stage = ?`, ref.Name, ref.Version).Scan(&version)
	}
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, fmt.Errorf("%w: %s", ml.ErrArtifactMissing, ref)
	}
	return int(version.Int64), nil
}

func (s *SQLiteStore) FetchRef(ctx context.Context, ref Ref) ([]byte, error) {
	version, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	var payload []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT payload FROM model_artifacts WHERE name = ? AND version = ? AND artifact = ?`,
		ref.Name, version, ref.Artifact).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ml.ErrArtifactMissing, ref)
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *SQLiteStore) Fetch(ctx context.Context, raw string) ([]byte, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return nil, err
	}
	return s.FetchRef(ctx, ref)
}

func (s *SQLiteStore) List(ctx context.Context, name string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT v.name, v.version, v.stage, v.created_at, a.artifact
        FROM model_versions v
        LEFT JOIN model_artifacts a ON a.name = v.name AND a.version = v.version
        WHERE v.name = ?
        ORDER BY v.version DESC`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byVersion := make(map[int]*Version)
	var order []int
	for rows.Next() {
		var (
			v        Version
			artifact sql.NullString
		)
		if err := rows.Scan(&v.Name, &v.Version, &v.Stage, &v.CreatedAt, &artifact); err != nil {
			return nil, err
		}
		current, ok := byVersion[v.Version]
		if !ok {
			current = &v
			byVersion[v.Version] = current
			order = append(order, v.Version)
		}
		if artifact.Valid {
			current.Artifacts = append(current.Artifacts, artifact.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	versions := make([]Version, 0, len(order))
	for _, n := range order {
		v := byVersion[n]
		sort.Strings(v.Artifacts)
		versions = append(versions, *v)
	}
	return versions, nil
}
