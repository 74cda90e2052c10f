package tags

import (
	"os"
	"path/filepath"
)

// DiscoverFiles walks the given root folders and returns every supported
// audio file, deduplicated by path, in walk (lexical) order. Walk errors on
// individual entries are skipped so one unreadable directory cannot hide the
// rest of the library.
func DiscoverFiles(roots []string) []string {
	seen := make(map[string]struct{})
	var files []string

	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}
			if d.IsDir() || !IsAudioFile(path) {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			files = append(files, path)
			return nil
		})
	}

	return files
}
