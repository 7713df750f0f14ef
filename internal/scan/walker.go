package scan

import (
	"io/fs"
	"log"
	"path/filepath"
	"strings"
)

// Walk enumerates regular .epub files under root, recursively. Each
// call starts a fresh walk with no residual state. Entries that cannot
// be read are logged and skipped; symlinks are not followed, so cycles
// cannot occur.
func Walk(root string) []string {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("scan: skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".epub") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		// The callback swallows per-entry errors, but WalkDir can still
		// fail on a broken root.
		log.Printf("scan: walking %s: %v", root, err)
	}

	return paths
}
