// Package gitsource fetches markdown manuals out of a git repository so
// they can be imported like any locally supplied document.
package gitsource

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/caseward/manualforge/internal/importer"
)

// Fetch clones url into a temporary workspace and returns every markdown
// file found, ordered by path, as import parts. The returned cleanup
// removes the workspace and must always be called.
func Fetch(url, branch string) ([]importer.Part, func(), error) {
	workDir, err := os.MkdirTemp("", "manualforge-git-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create git workspace: %w", err)
	}
	cleanup := func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			slog.Warn("Failed to remove git workspace", "path", workDir, "error", rmErr)
		}
	}

	opts := &git.CloneOptions{URL: url, Depth: 1}
	if branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + branch)
		opts.SingleBranch = true
	}

	slog.Debug("Cloning manual repository", "url", url, "branch", branch, "path", workDir)
	repo, err := git.PlainClone(workDir, false, opts)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("clone %s: %w", url, err)
	}
	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Manual repository cloned", "url", url, "commit", ref.Hash().String()[:8])
	}

	parts, err := collectMarkdown(workDir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if len(parts) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no markdown documents in %s", url)
	}
	return parts, cleanup, nil
}

// collectMarkdown walks root and loads every .md/.markdown file, skipping
// dotted directories such as .git.
func collectMarkdown(root string) ([]importer.Part, error) {
	var parts []importer.Part
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".markdown" {
			return nil
		}
		payload, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = filepath.Base(path)
		}
		parts = append(parts, importer.Part{Filename: rel, Payload: payload})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan cloned repository: %w", err)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Filename < parts[j].Filename })
	return parts, nil
}
