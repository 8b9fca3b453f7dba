package types

import (
	"strconv"
	"strings"
	"time"
)

// ReadmeEmbedLimit bounds how much readme text goes into the embedding
// input. The cut respects provider token limits, not transport size.
const ReadmeEmbedLimit = 4000

// Repository is the catalog's record of one repository across sources.
// FullName is the immutable identity key; all other fields may be
// refreshed by sync cycles.
type Repository struct {
	FullName      string
	Name          string
	Description   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PushedAt      time.Time
	Private       bool
	HTMLURL       string
	CloneURL      string
	DefaultBranch string
	Topics        []string
	LocalPath     string
	Readme        string
	Source        Source
	SourceSubtype string
	LastSynced    time.Time
	EmbeddedAt    *time.Time // nil until the first successful embed
	NeedsEmbedding bool
}

// IsLocal reports whether the repository has a resolved working copy on
// disk.
func (r *Repository) IsLocal() bool {
	return r.LocalPath != ""
}

// EmbeddingText builds the text handed to the embedding provider: name,
// description, topic list, and a bounded slice of the readme, separated
// by blank lines.
func (r *Repository) EmbeddingText() string {
	parts := []string{r.Name}

	if r.Description != "" {
		parts = append(parts, r.Description)
	}
	if len(r.Topics) > 0 {
		parts = append(parts, "Topics: "+strings.Join(r.Topics, ", "))
	}
	if r.Readme != "" {
		readme := r.Readme
		if len(readme) > ReadmeEmbedLimit {
			readme = readme[:ReadmeEmbedLimit]
		}
		parts = append(parts, readme)
	}

	return strings.Join(parts, "\n\n")
}

// SearchText is the haystack for case-insensitive keyword matching:
// name, description, and topics, lowercased.
func (r *Repository) SearchText() string {
	return strings.ToLower(r.Name + " " + r.Description + " " + strings.Join(r.Topics, " "))
}

// Metadata returns the flat snapshot stored alongside the vector in the
// index. It is sufficient to rebuild a display record without
// consulting the catalog store.
func (r *Repository) Metadata() map[string]string {
	return map[string]string{
		"name":           r.Name,
		"full_name":      r.FullName,
		"description":    r.Description,
		"created_at":     r.CreatedAt.Format(time.RFC3339),
		"topics":         strings.Join(r.Topics, ","),
		"html_url":       r.HTMLURL,
		"local_path":     r.LocalPath,
		"is_private":     strconv.FormatBool(r.Private),
		"source":         string(r.Source),
		"source_subtype": r.SourceSubtype,
	}
}

// FromMetadata rebuilds a Repository from a vector-index metadata
// snapshot. The record is marked as already embedded.
func FromMetadata(meta map[string]string) *Repository {
	var topics []string
	if meta["topics"] != "" {
		topics = strings.Split(meta["topics"], ",")
	}

	created, _ := time.Parse(time.RFC3339, meta["created_at"])
	private, _ := strconv.ParseBool(meta["is_private"])

	embedded := time.Now()
	return &Repository{
		FullName:      meta["full_name"],
		Name:          meta["name"],
		Description:   meta["description"],
		CreatedAt:     created,
		Topics:        topics,
		HTMLURL:       meta["html_url"],
		LocalPath:     meta["local_path"],
		Private:       private,
		Source:        Source(meta["source"]),
		SourceSubtype: meta["source_subtype"],
		DefaultBranch: "main",
		EmbeddedAt:    &embedded,
	}
}
