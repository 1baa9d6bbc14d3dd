package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caseward/manualforge/internal/htmlformat"
	"github.com/caseward/manualforge/internal/structure"
)

// PersistStructure maps a validated Structure onto ordered inserts inside
// one transaction and returns the new manual id. Insert order per entity:
// manual, then each section with its running zero-based index, then each
// policy, its first version, and the current-version backfill on the
// policy row. Any failure rolls the whole import back; no partial manual
// is ever visible.
func (s *Store) PersistStructure(ctx context.Context, st *structure.Structure, actorID string) (string, error) {
	if st == nil || len(st.Sections) == 0 {
		return "", fmt.Errorf("structure has no sections")
	}
	if strings.TrimSpace(actorID) == "" {
		return "", fmt.Errorf("actor id is required")
	}

	manualID := uuid.NewString()
	now := time.Now().UTC()

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, name) VALUES (?, ?) ON CONFLICT (id) DO NOTHING",
			actorID, actorID); err != nil {
			return fmt.Errorf("ensure actor: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO manuals (id, title, description, status, created_by_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			manualID, st.Title, "", StatusDraft, actorID, now.Unix()); err != nil {
			return fmt.Errorf("insert manual: %w", err)
		}

		for secIdx, sec := range st.Sections {
			if strings.TrimSpace(sec.Title) == "" {
				return fmt.Errorf("section %d has an empty title", secIdx)
			}
			sectionID := uuid.NewString()
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO sections (id, manual_id, title, description, order_index, created_by_id) VALUES (?, ?, ?, ?, ?, ?)",
				sectionID, manualID, strings.TrimSpace(sec.Title), sec.Description, secIdx, actorID); err != nil {
				return fmt.Errorf("insert section %q: %w", sec.Title, err)
			}

			for polIdx, pol := range sec.Policies {
				if err := insertPolicy(ctx, tx, sectionID, pol, polIdx, actorID, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Info("Manual persisted",
		"manual_id", manualID,
		"title", st.Title,
		"sections", st.SectionCount(),
		"policies", st.PolicyCount())
	return manualID, nil
}

func insertPolicy(ctx context.Context, tx *sql.Tx, sectionID string, pol *structure.Policy, orderIndex int, actorID string, now time.Time) error {
	content := pol.ContentHTML
	if strings.TrimSpace(content) == "" {
		// A blank body is ambiguous with "still loading" downstream.
		content = htmlformat.Placeholder
	}
	if err := htmlformat.Validate(content); err != nil {
		return fmt.Errorf("policy %q content: %w", pol.Title, err)
	}

	policyID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO policies (id, section_id, title, status, order_index, current_version_id, created_by_id) VALUES (?, ?, ?, ?, ?, NULL, ?)",
		policyID, sectionID, pol.Title, StatusDraft, orderIndex, actorID); err != nil {
		return fmt.Errorf("insert policy %q: %w", pol.Title, err)
	}

	versionID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO policy_versions (id, policy_id, version_number, body_content, effective_date, author_id) VALUES (?, ?, 1, ?, ?, ?)",
		versionID, policyID, content, now.Unix(), actorID); err != nil {
		return fmt.Errorf("insert version for policy %q: %w", pol.Title, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE policies SET current_version_id = ? WHERE id = ?",
		versionID, policyID); err != nil {
		return fmt.Errorf("set current version for policy %q: %w", pol.Title, err)
	}
	return nil
}
