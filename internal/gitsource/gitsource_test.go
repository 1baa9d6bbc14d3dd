package gitsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectMarkdownOrdersAndFilters(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))

	files := map[string]string{
		"docs/b.md":       "## Beta",
		"docs/a.markdown": "## Alpha",
		"readme.txt":      "not markdown",
		".git/config":     "[core]",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0o644))
	}

	parts, err := collectMarkdown(root)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "docs/a.markdown", parts[0].Filename)
	assert.Equal(t, "docs/b.md", parts[1].Filename)
	assert.Equal(t, "## Alpha", string(parts[0].Payload))
}

func TestCollectMarkdownEmptyTree(t *testing.T) {
	parts, err := collectMarkdown(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestFetchRejectsBadURL(t *testing.T) {
	parts, cleanup, err := Fetch(filepath.Join(t.TempDir(), "missing"), "")
	require.Error(t, err)
	assert.Nil(t, parts)
	assert.Nil(t, cleanup)
}
