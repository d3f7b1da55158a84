// Package registry persists namespace-root claims and transform
// artifacts in a SQLite database. Claims enforce root uniqueness
// across runs, not just within one process; artifacts are stored as
// verified CBOR blobs keyed by root.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chazu/hoist/artifact"
	"github.com/chazu/hoist/lift"
)

// ErrArtifactNotFound indicates no artifact is recorded for the root.
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrRootNotClaimed indicates a release of a root nobody claimed.
var ErrRootNotClaimed = errors.New("root not claimed")

// Registry is the SQLite-backed claim and artifact store.
type Registry struct {
	db    *sql.DB
	runID string
	mu    sync.Mutex
}

// Open opens (creating if needed) the registry database at path. Each
// Open gets a fresh run id; rows record which run wrote them.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS roots (
			root TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			claimed_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			root TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			run_id TEXT NOT NULL,
			data BLOB NOT NULL,
			recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating registry schema: %w", err)
		}
	}

	return &Registry{db: db, runID: uuid.NewString()}, nil
}

// Close closes the database connection.
func (r *Registry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// RunID identifies this registry session.
func (r *Registry) RunID() string {
	return r.runID
}

// ClaimRoot registers a namespace root. A root already claimed, in
// this run or any earlier one, fails with DuplicateRootError.
func (r *Registry) ClaimRoot(root string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(
		"INSERT OR IGNORE INTO roots (root, run_id) VALUES (?, ?)",
		root, r.runID,
	)
	if err != nil {
		return fmt.Errorf("claiming root: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claiming root: %w", err)
	}
	if n == 0 {
		return &lift.DuplicateRootError{Root: root}
	}
	return nil
}

// ReleaseRoot drops a claim, making the root available again.
func (r *Registry) ReleaseRoot(root string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec("DELETE FROM roots WHERE root = ?", root)
	if err != nil {
		return fmt.Errorf("releasing root: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("releasing root: %w", err)
	}
	if n == 0 {
		return ErrRootNotClaimed
	}
	return nil
}

// Roots returns all claimed roots in lexical order.
func (r *Registry) Roots() ([]string, error) {
	rows, err := r.db.Query("SELECT root FROM roots ORDER BY root")
	if err != nil {
		return nil, fmt.Errorf("querying roots: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("scanning root: %w", err)
		}
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

// RecordArtifact stores (or replaces) the artifact for its root.
func (r *Registry) RecordArtifact(a *artifact.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := artifact.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO artifacts (root, hash, run_id, data) VALUES (?, ?, ?, ?)",
		a.Root, fmt.Sprintf("%x", a.Hash), r.runID, data,
	)
	if err != nil {
		return fmt.Errorf("recording artifact: %w", err)
	}
	return nil
}

// LookupArtifact loads and verifies the artifact recorded for root.
func (r *Registry) LookupArtifact(root string) (*artifact.Artifact, error) {
	var data []byte
	err := r.db.QueryRow("SELECT data FROM artifacts WHERE root = ?", root).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("querying artifact: %w", err)
	}
	return artifact.Unmarshal(data)
}
