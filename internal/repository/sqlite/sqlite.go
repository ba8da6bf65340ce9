package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"nodeflow/internal/codec"
	"nodeflow/internal/repository"
)

const pragmasSQL = `
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;
PRAGMA synchronous=NORMAL;
`

const schemaSQL = `
CREATE TABLE IF NOT EXISTS scenes (
	name TEXT PRIMARY KEY,
	hash TEXT NOT NULL,
	nodes INTEGER NOT NULL,
	connections INTEGER NOT NULL,
	size INTEGER NOT NULL,
	blob BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scenes_hash ON scenes(hash);
`

// Repository implements repository.SceneStore using SQLite
type Repository struct {
	db    *sql.DB
	codec *codec.JSONCodec
}

var _ repository.SceneStore = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: sqlite has a single writer and :memory: databases are
	// per connection
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, codec: codec.NewJSONCodec()}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	for _, pragma := range strings.Split(pragmasSQL, "\n") {
		pragma = strings.TrimSpace(pragma)
		if pragma == "" {
			continue
		}
		if _, err := r.db.Exec(pragma); err != nil {
			return fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	_, err := r.db.Exec(schemaSQL)
	return err
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveScene stores doc under name, replacing any previous version
func (r *Repository) SaveScene(ctx context.Context, name string, doc *codec.Document) (repository.SceneInfo, error) {
	if name == "" {
		return repository.SceneInfo{}, errors.New("scene name is required")
	}

	data, err := codec.Encode(r.codec, doc)
	if err != nil {
		return repository.SceneInfo{}, fmt.Errorf("failed to encode scene %s: %w", name, err)
	}
	blob, err := compress(data)
	if err != nil {
		return repository.SceneInfo{}, fmt.Errorf("failed to compress scene %s: %w", name, err)
	}

	now := nowMs()
	info := repository.SceneInfo{
		Name:        name,
		Hash:        contentHash(data),
		Nodes:       len(doc.Nodes),
		Connections: len(doc.Connections),
		Size:        len(data),
		UpdatedAt:   msToTime(now),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scenes (name, hash, nodes, connections, size, blob, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			hash = excluded.hash,
			nodes = excluded.nodes,
			connections = excluded.connections,
			size = excluded.size,
			blob = excluded.blob,
			updated_at = excluded.updated_at
	`, info.Name, info.Hash, info.Nodes, info.Connections, info.Size, blob, now, now)
	if err != nil {
		return repository.SceneInfo{}, fmt.Errorf("failed to save scene %s: %w", name, err)
	}

	return info, nil
}

// LoadScene returns the document stored under name
func (r *Repository) LoadScene(ctx context.Context, name string) (*codec.Document, repository.SceneInfo, error) {
	var (
		info    repository.SceneInfo
		blob    []byte
		updated int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT name, hash, nodes, connections, size, blob, updated_at
		FROM scenes WHERE name = ?
	`, name).Scan(&info.Name, &info.Hash, &info.Nodes, &info.Connections, &info.Size, &blob, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.SceneInfo{}, fmt.Errorf("%w: %s", repository.ErrSceneNotFound, name)
	}
	if err != nil {
		return nil, repository.SceneInfo{}, fmt.Errorf("failed to query scene %s: %w", name, err)
	}
	info.UpdatedAt = msToTime(updated)

	data, err := decompress(blob)
	if err != nil {
		return nil, info, fmt.Errorf("%w: %s: %v", repository.ErrCorrupt, name, err)
	}
	if got := contentHash(data); got != info.Hash {
		return nil, info, fmt.Errorf("%w: %s: hash %s, want %s", repository.ErrCorrupt, name, got, info.Hash)
	}

	doc, err := codec.Decode(r.codec, data)
	if err != nil {
		return nil, info, fmt.Errorf("%w: %s: %v", repository.ErrCorrupt, name, err)
	}
	return doc, info, nil
}

// ListScenes returns all stored scenes ordered by name
func (r *Repository) ListScenes(ctx context.Context) ([]repository.SceneInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, hash, nodes, connections, size, updated_at
		FROM scenes ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes: %w", err)
	}
	defer rows.Close()

	var scenes []repository.SceneInfo
	for rows.Next() {
		var (
			info    repository.SceneInfo
			updated int64
		)
		if err := rows.Scan(&info.Name, &info.Hash, &info.Nodes, &info.Connections, &info.Size, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		info.UpdatedAt = msToTime(updated)
		scenes = append(scenes, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scenes: %w", err)
	}
	return scenes, nil
}

// DeleteScene removes a stored scene
func (r *Repository) DeleteScene(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scenes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete scene %s: %w", name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete scene %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", repository.ErrSceneNotFound, name)
	}
	return nil
}
