package source

import (
	"path/filepath"
	"strings"

	"github.com/mfreed/repodex/internal/vcs"
)

// resolver locates local checkouts under an ordered list of base
// directories. The first candidate that detects as a working copy
// wins.
type resolver struct {
	basePaths []string
}

// find tries each candidate directory name under each base path in
// order.
func (r resolver) find(names ...string) (string, bool) {
	for _, base := range r.basePaths {
		if base == "" {
			continue
		}
		for _, name := range names {
			if name == "" {
				continue
			}
			candidate := filepath.Join(base, name)
			if _, ok := vcs.Detect(candidate); ok {
				return candidate, true
			}
		}
	}
	return "", false
}

// flatten maps an owner/name identity to its on-disk owner_name form.
func flatten(id string) string {
	return strings.ReplaceAll(id, "/", "_")
}

// inferPrivate treats any checkout under a "private" directory as
// private.
func inferPrivate(path string) bool {
	return strings.Contains(strings.ToLower(path), "private")
}
