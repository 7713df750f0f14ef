package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
}

func TestWalk(t *testing.T) {
	t.Run("finds epub files recursively", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.epub"))
		writeFile(t, filepath.Join(root, "nested", "deeper", "b.epub"))
		writeFile(t, filepath.Join(root, "notes.txt"))
		writeFile(t, filepath.Join(root, "cover.jpg"))

		paths := Walk(root)
		require.Len(t, paths, 2)
		assert.Contains(t, paths, filepath.Join(root, "a.epub"))
		assert.Contains(t, paths, filepath.Join(root, "nested", "deeper", "b.epub"))
	})

	t.Run("matches extension case-insensitively", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "SHOUTING.EPUB"))

		assert.Len(t, Walk(root), 1)
	})

	t.Run("missing root yields no paths", func(t *testing.T) {
		assert.Empty(t, Walk(filepath.Join(t.TempDir(), "does-not-exist")))
	})

	t.Run("each walk is fresh", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.epub"))

		first := Walk(root)
		writeFile(t, filepath.Join(root, "b.epub"))
		second := Walk(root)

		assert.Len(t, first, 1)
		assert.Len(t, second, 2)
	})

	t.Run("does not follow symlinked directories", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "books", "a.epub"))
		// A cycle: root/loop -> root
		if err := os.Symlink(root, filepath.Join(root, "loop")); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}

		paths := Walk(root)
		assert.Len(t, paths, 1)
	})
}
