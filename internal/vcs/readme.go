package vcs

import (
	"os"
	"path/filepath"
	"strings"
)

// readmeNames are tried in order when looking for repository readmes.
var readmeNames = []string{
	"README.md",
	"README.MD",
	"readme.md",
	"README.rst",
	"README.txt",
	"README",
}

const descriptionLimit = 200

// ReadReadme returns the contents of the first readme file found in
// dir.
func ReadReadme(dir string) (string, bool) {
	for _, name := range readmeNames {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		return string(content), true
	}
	return "", false
}

// Description extracts a best-effort one-line description for a
// repository: .git/description if it was edited, otherwise the first
// non-heading line of the readme, truncated to 200 characters.
func Description(dir string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(dir, ".git", "description"))
	if err == nil {
		desc := strings.TrimSpace(string(content))
		if desc != "" && !strings.HasPrefix(desc, "Unnamed repository") {
			return desc, true
		}
	}

	readme, ok := ReadReadme(dir)
	if !ok {
		return "", false
	}

	for _, line := range strings.Split(readme, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) > descriptionLimit {
			line = line[:descriptionLimit]
		}
		return line, true
	}
	return "", false
}
