package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseward/manualforge/internal/importer"
)

type fakeImporter struct {
	mu        sync.Mutex
	committed []string
	fail      bool
	delay     time.Duration
}

func (f *fakeImporter) Commit(_ context.Context, doc importer.Document, _ importer.Options, _ string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail {
		return "", errors.New("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, doc.Filename)
	return "manual-1", nil
}

func (f *fakeImporter) commits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.committed...)
}

func newTestWatcher(t *testing.T, imp Importer) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := New(dir, imp, importer.Options{}, "inbox-bot", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.stop() })
	for _, sub := range []string{processedDir, failedDir} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}
	return w, dir
}

func TestSweepImportsAndArchives(t *testing.T) {
	imp := &fakeImporter{}
	w, dir := newTestWatcher(t, imp)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ops.md"), []byte("## General\n\nText."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	w.Sweep(context.Background())

	assert.Equal(t, []string{"ops.md"}, imp.committed)
	assert.FileExists(t, filepath.Join(dir, processedDir, "ops.md"))
	assert.NoFileExists(t, filepath.Join(dir, "ops.md"))
	// Unknown extensions stay put.
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestSweepMovesFailuresAside(t *testing.T) {
	imp := &fakeImporter{fail: true}
	w, dir := newTestWatcher(t, imp)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.md"), []byte("## Broken"), 0o644))

	w.Sweep(context.Background())

	assert.Empty(t, imp.committed)
	assert.FileExists(t, filepath.Join(dir, failedDir, "bad.md"))
	assert.NoFileExists(t, filepath.Join(dir, "bad.md"))
}

func TestConcurrentSweepsImportOnce(t *testing.T) {
	imp := &fakeImporter{delay: 150 * time.Millisecond}
	w, dir := newTestWatcher(t, imp)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ops.md"), []byte("## General\n\nText."), 0o644))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Sweep(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"ops.md"}, imp.commits())
	assert.FileExists(t, filepath.Join(dir, processedDir, "ops.md"))
}

func TestCancelledContextLeavesFileInPlace(t *testing.T) {
	imp := &fakeImporter{}
	w, dir := newTestWatcher(t, imp)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ops.md"), []byte("## General"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Sweep(ctx)

	assert.Empty(t, imp.commits())
	assert.FileExists(t, filepath.Join(dir, "ops.md"))
	assert.NoFileExists(t, filepath.Join(dir, failedDir, "ops.md"))
}

func TestSweepSkipsSubdirectories(t *testing.T) {
	imp := &fakeImporter{}
	w, dir := newTestWatcher(t, imp)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "deep.md"), []byte("x"), 0o644))

	w.Sweep(context.Background())

	assert.Empty(t, imp.committed)
}
