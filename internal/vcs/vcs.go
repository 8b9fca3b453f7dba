// Package vcs classifies directories as version-controlled repositories
// and extracts best-effort metadata from their on-disk control files.
// It never invokes a VCS binary: remotes are parsed straight from the
// config files, and anything missing or malformed degrades to an empty
// remote rather than an error.
package vcs

import (
	"os"
	"path/filepath"
	"strings"
)

// Kind identifies the detected version control system.
type Kind string

const (
	KindGit        Kind = "git"
	KindSubversion Kind = "svn"
	KindMercurial  Kind = "hg"
)

// Info describes a detected repository.
type Info struct {
	Kind      Kind
	Root      string
	Name      string
	RemoteURL string
}

// Detect classifies path as a repository. Marker directories are
// checked in a fixed priority order: Git, then Subversion, then
// Mercurial.
func Detect(path string) (*Info, bool) {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return nil, false
	}

	name := filepath.Base(path)

	if dirExists(filepath.Join(path, ".git")) {
		return &Info{Kind: KindGit, Root: path, Name: name, RemoteURL: gitRemote(path)}, true
	}
	if dirExists(filepath.Join(path, ".svn")) {
		return &Info{Kind: KindSubversion, Root: path, Name: name, RemoteURL: svnRemote(path)}, true
	}
	if dirExists(filepath.Join(path, ".hg")) {
		return &Info{Kind: KindMercurial, Root: path, Name: name, RemoteURL: hgRemote(path)}, true
	}

	return nil, false
}

// Scan walks subdirectories of root up to maxDepth looking for
// repositories. If root itself is a repository it is returned alone; a
// working tree is never descended into. Hidden directories are skipped
// and per-directory errors (permissions) are swallowed.
func Scan(root string, maxDepth int) []*Info {
	fi, err := os.Stat(root)
	if err != nil || !fi.IsDir() {
		return nil
	}

	if info, ok := Detect(root); ok {
		return []*Info{info}
	}

	if maxDepth <= 0 {
		return nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var repos []*Info
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		repos = append(repos, Scan(filepath.Join(root, entry.Name()), maxDepth-1)...)
	}
	return repos
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// gitRemote parses the origin URL out of .git/config.
func gitRemote(root string) string {
	content, err := os.ReadFile(filepath.Join(root, ".git", "config"))
	if err != nil {
		return ""
	}

	inOrigin := false
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == `[remote "origin"]`:
			inOrigin = true
		case strings.HasPrefix(line, "["):
			inOrigin = false
		case inOrigin && strings.HasPrefix(line, "url = "):
			return strings.TrimSpace(strings.TrimPrefix(line, "url = "))
		}
	}
	return ""
}

// svnRemote reads the working-copy URL from the legacy .svn/entries
// format, where the URL sits on the fifth line.
func svnRemote(root string) string {
	content, err := os.ReadFile(filepath.Join(root, ".svn", "entries"))
	if err != nil {
		return ""
	}

	lines := strings.Split(string(content), "\n")
	if len(lines) < 5 {
		return ""
	}
	url := strings.TrimSpace(lines[4])
	if strings.HasPrefix(url, "http") {
		return url
	}
	return ""
}

// hgRemote parses the default path out of .hg/hgrc.
func hgRemote(root string) string {
	content, err := os.ReadFile(filepath.Join(root, ".hg", "hgrc"))
	if err != nil {
		return ""
	}

	inPaths := false
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "[paths]":
			inPaths = true
		case strings.HasPrefix(line, "["):
			inPaths = false
		case inPaths && strings.HasPrefix(line, "default = "):
			return strings.TrimSpace(strings.TrimPrefix(line, "default = "))
		}
	}
	return ""
}
