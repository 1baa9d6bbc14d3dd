// Package store is the relational persistence layer for imported manuals.
// It is SQLite-backed; every commit runs as a single transaction so a
// half-written manual is never visible to other readers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entity status values. Imported entities always start as drafts; later
// lifecycle transitions belong to the editing subsystem.
const StatusDraft = "DRAFT"

// ErrNotFound marks a lookup for a row that does not exist.
var ErrNotFound = errors.New("not found")

// Manual is the top-level compliance document container.
type Manual struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedByID string    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Section is a first-level subdivision of a manual.
type Section struct {
	ID          string `json:"id"`
	ManualID    string `json:"manual_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OrderIndex  int    `json:"order_index"`
	CreatedByID string `json:"created_by_id"`
}

// Policy is the versioned unit under a section. CurrentVersionID is
// non-null for every committed policy.
type Policy struct {
	ID               string `json:"id"`
	SectionID        string `json:"section_id"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	OrderIndex       int    `json:"order_index"`
	CurrentVersionID string `json:"current_version_id"`
	CreatedByID      string `json:"created_by_id"`
}

// PolicyVersion is one immutable snapshot of a policy's body content.
type PolicyVersion struct {
	ID            string    `json:"id"`
	PolicyID      string    `json:"policy_id"`
	VersionNumber int       `json:"version_number"`
	BodyContent   string    `json:"body_content"`
	EffectiveDate time.Time `json:"effective_date"`
	AuthorID      string    `json:"author_id"`
}

// User is a minimal author record so created-by references are real
// foreign keys, which the snapshot replay mode depends on.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at dbPath and initializes the schema.
// Use ":memory:" for tests. SQLite allows a single writer, so the pool is
// capped at one connection; this also keeps in-memory databases coherent.
func Open(dbPath string) (*Store, error) {
	dsn := dbPath
	if dsn == ":memory:" {
		dsn = "file::memory:"
	}
	if !strings.Contains(dsn, "?") {
		// Referential integrity is enforced per connection.
		dsn += "?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	PRAGMA foreign_keys = ON;
	CREATE TABLE IF NOT EXISTS users (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS manuals (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL,
		created_by_id TEXT NOT NULL REFERENCES users(id),
		created_at    INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sections (
		id            TEXT PRIMARY KEY,
		manual_id     TEXT NOT NULL REFERENCES manuals(id),
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		order_index   INTEGER NOT NULL,
		created_by_id TEXT NOT NULL REFERENCES users(id),
		UNIQUE (manual_id, order_index)
	);
	CREATE TABLE IF NOT EXISTS policies (
		id                 TEXT PRIMARY KEY,
		section_id         TEXT NOT NULL REFERENCES sections(id),
		title              TEXT NOT NULL,
		status             TEXT NOT NULL,
		order_index        INTEGER NOT NULL,
		current_version_id TEXT REFERENCES policy_versions(id),
		created_by_id      TEXT NOT NULL REFERENCES users(id),
		UNIQUE (section_id, order_index)
	);
	CREATE TABLE IF NOT EXISTS policy_versions (
		id             TEXT PRIMARY KEY,
		policy_id      TEXT NOT NULL REFERENCES policies(id),
		version_number INTEGER NOT NULL,
		body_content   TEXT NOT NULL,
		effective_date INTEGER NOT NULL,
		author_id      TEXT NOT NULL REFERENCES users(id),
		UNIQUE (policy_id, version_number)
	);
	CREATE INDEX IF NOT EXISTS idx_sections_manual ON sections(manual_id);
	CREATE INDEX IF NOT EXISTS idx_policies_section ON policies(section_id);
	CREATE INDEX IF NOT EXISTS idx_versions_policy ON policy_versions(policy_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx runs fn inside one transaction. Any error (or panic) rolls the
// whole unit of work back; the transaction boundary is the sole
// cancellation boundary for an in-flight commit.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// EnsureUser inserts a user row if it does not already exist.
func (s *Store) EnsureUser(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING",
		id, name)
	if err != nil {
		return fmt.Errorf("ensure user %s: %w", id, err)
	}
	return nil
}

// GetManual returns one manual by id.
func (s *Store) GetManual(ctx context.Context, id string) (*Manual, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, description, status, created_by_id, created_at FROM manuals WHERE id = ?", id)

	var m Manual
	var createdAt int64
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Status, &m.CreatedByID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("manual %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query manual: %w", err)
	}
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &m, nil
}

// ListManuals returns all manuals, newest first.
func (s *Store) ListManuals(ctx context.Context) ([]Manual, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, description, status, created_by_id, created_at FROM manuals ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("query manuals: %w", err)
	}
	defer rows.Close()

	var manuals []Manual
	for rows.Next() {
		var m Manual
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Status, &m.CreatedByID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan manual: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		manuals = append(manuals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manuals: %w", err)
	}
	return manuals, nil
}

// ListSections returns a manual's sections in persisted order.
func (s *Store) ListSections(ctx context.Context, manualID string) ([]Section, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, manual_id, title, description, order_index, created_by_id FROM sections WHERE manual_id = ? ORDER BY order_index", manualID)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.ManualID, &sec.Title, &sec.Description, &sec.OrderIndex, &sec.CreatedByID); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return sections, nil
}

// ListPolicies returns a section's policies in persisted order.
func (s *Store) ListPolicies(ctx context.Context, sectionID string) ([]Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, section_id, title, status, order_index, COALESCE(current_version_id, ''), created_by_id FROM policies WHERE section_id = ? ORDER BY order_index", sectionID)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		var p Policy
		if err := rows.Scan(&p.ID, &p.SectionID, &p.Title, &p.Status, &p.OrderIndex, &p.CurrentVersionID, &p.CreatedByID); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return policies, nil
}

// GetPolicyVersion returns one version by id.
func (s *Store) GetPolicyVersion(ctx context.Context, id string) (*PolicyVersion, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, policy_id, version_number, body_content, effective_date, author_id FROM policy_versions WHERE id = ?", id)

	var v PolicyVersion
	var effective int64
	err := row.Scan(&v.ID, &v.PolicyID, &v.VersionNumber, &v.BodyContent, &effective, &v.AuthorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("policy version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query policy version: %w", err)
	}
	v.EffectiveDate = time.Unix(effective, 0).UTC()
	return &v, nil
}

// Counts returns total row counts per entity, used by status endpoints and
// atomicity checks in tests.
func (s *Store) Counts(ctx context.Context) (manuals, sections, policies, versions int, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM manuals),
		       (SELECT COUNT(*) FROM sections),
		       (SELECT COUNT(*) FROM policies),
		       (SELECT COUNT(*) FROM policy_versions)`)
	if scanErr := row.Scan(&manuals, &sections, &policies, &versions); scanErr != nil {
		return 0, 0, 0, 0, fmt.Errorf("count rows: %w", scanErr)
	}
	return manuals, sections, policies, versions, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
