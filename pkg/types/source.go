package types

// Source tags a repository record with the system it was observed from.
// Forge and hub are fixed tags; local filesystem scans use the scan's
// configured name (e.g. "work", "forks", "docs") as the tag itself.
type Source string

const (
	// SourceForge marks records synced from the hosted Git forge.
	SourceForge Source = "github"
	// SourceHub marks records synced from the model-hub service.
	SourceHub Source = "huggingface"
)

// LocalSource builds the tag for a named local-scan source.
func LocalSource(name string) Source {
	return Source(name)
}

// IsLocal reports whether the source is a local filesystem scan.
func (s Source) IsLocal() bool {
	return s != SourceForge && s != SourceHub
}

// Hub repository kinds, used as the SourceSubtype of hub records.
const (
	HubKindDataset = "dataset"
	HubKindModel   = "model"
	HubKindSpace   = "space"
)

// VCS kinds, used as the SourceSubtype of local-scan records.
const (
	VCSGit        = "git"
	VCSSubversion = "svn"
	VCSMercurial  = "hg"
)
