// pkg/portal/files.go
package portal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListRetrievedFiles returns the previously downloaded files in dir,
// most recently modified first. Hidden (dot-prefixed) entries are
// excluded, which keeps the session store and other internal files out
// of the listing.
func ListRetrievedFiles(dir string) ([]RetrievedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading storage directory %s: %w", dir, err)
	}

	var files []RetrievedFile
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Raced with a concurrent delete; skip it.
			continue
		}
		files = append(files, RetrievedFile{
			Name:    entry.Name(),
			Path:    filepath.Join(dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}
