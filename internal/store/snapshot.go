package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Snapshot is a portable record set of all persisted entities, suitable
// for replay against another store instance.
type Snapshot struct {
	ExportedAt time.Time       `json:"exported_at"`
	Users      []User          `json:"users"`
	Manuals    []Manual        `json:"manuals"`
	Sections   []Section       `json:"sections"`
	Policies   []Policy        `json:"policies"`
	Versions   []PolicyVersion `json:"versions"`
}

// ExportSnapshot serializes every row in the store.
func (s *Store) ExportSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{ExportedAt: time.Now().UTC()}

	userRows, err := s.db.QueryContext(ctx, "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer userRows.Close()
	for userRows.Next() {
		var u User
		if err := userRows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		snap.Users = append(snap.Users, u)
	}
	if err := userRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	manuals, err := s.ListManuals(ctx)
	if err != nil {
		return nil, err
	}
	snap.Manuals = manuals

	for _, m := range snap.Manuals {
		sections, err := s.ListSections(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		snap.Sections = append(snap.Sections, sections...)
		for _, sec := range sections {
			policies, err := s.ListPolicies(ctx, sec.ID)
			if err != nil {
				return nil, err
			}
			snap.Policies = append(snap.Policies, policies...)
			for _, p := range policies {
				v, err := s.GetPolicyVersion(ctx, p.CurrentVersionID)
				if err != nil {
					return nil, err
				}
				snap.Versions = append(snap.Versions, *v)
			}
		}
	}

	return snap, nil
}

// ImportSnapshot replays a snapshot's inserts into this store inside one
// transaction. Author references are re-resolved: a created-by or author
// id that exists neither in the target store nor in the snapshot's user
// set is substituted with fallbackActorID, so exports survive author
// churn between instances.
func (s *Store) ImportSnapshot(ctx context.Context, snap *Snapshot, fallbackActorID string) error {
	if snap == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if fallbackActorID == "" {
		return fmt.Errorf("fallback actor id is required")
	}

	known := make(map[string]bool, len(snap.Users)+1)

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING",
			fallbackActorID, fallbackActorID); err != nil {
			return fmt.Errorf("ensure fallback actor: %w", err)
		}
		known[fallbackActorID] = true

		for _, u := range snap.Users {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO users (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING",
				u.ID, u.Name); err != nil {
				return fmt.Errorf("insert user %s: %w", u.ID, err)
			}
			known[u.ID] = true
		}

		resolve := func(id string) string {
			if known[id] {
				return id
			}
			slog.Debug("Re-resolving unknown author to fallback", "author_id", id, "fallback", fallbackActorID)
			return fallbackActorID
		}

		for _, m := range snap.Manuals {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO manuals (id, title, description, status, created_by_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
				m.ID, m.Title, m.Description, m.Status, resolve(m.CreatedByID), m.CreatedAt.Unix()); err != nil {
				return fmt.Errorf("replay manual %s: %w", m.ID, err)
			}
		}
		for _, sec := range snap.Sections {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO sections (id, manual_id, title, description, order_index, created_by_id) VALUES (?, ?, ?, ?, ?, ?)",
				sec.ID, sec.ManualID, sec.Title, sec.Description, sec.OrderIndex, resolve(sec.CreatedByID)); err != nil {
				return fmt.Errorf("replay section %s: %w", sec.ID, err)
			}
		}
		// Policies first with a NULL current version, versions next, then
		// the backfill, mirroring the commit insert order.
		for _, p := range snap.Policies {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO policies (id, section_id, title, status, order_index, current_version_id, created_by_id) VALUES (?, ?, ?, ?, ?, NULL, ?)",
				p.ID, p.SectionID, p.Title, p.Status, p.OrderIndex, resolve(p.CreatedByID)); err != nil {
				return fmt.Errorf("replay policy %s: %w", p.ID, err)
			}
		}
		for _, v := range snap.Versions {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO policy_versions (id, policy_id, version_number, body_content, effective_date, author_id) VALUES (?, ?, ?, ?, ?, ?)",
				v.ID, v.PolicyID, v.VersionNumber, v.BodyContent, v.EffectiveDate.Unix(), resolve(v.AuthorID)); err != nil {
				return fmt.Errorf("replay version %s: %w", v.ID, err)
			}
		}
		for _, p := range snap.Policies {
			if p.CurrentVersionID == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				"UPDATE policies SET current_version_id = ? WHERE id = ?",
				p.CurrentVersionID, p.ID); err != nil {
				return fmt.Errorf("restore current version for policy %s: %w", p.ID, err)
			}
		}
		return nil
	})
}
