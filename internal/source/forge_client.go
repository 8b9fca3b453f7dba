package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ForgeRepo is one repository as listed by the forge API.
type ForgeRepo struct {
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
}

// ForgeClient is the forge API surface the adapter needs.
type ForgeClient interface {
	// ListRepos returns one page of the authenticated user's
	// repositories. A short page ends the listing.
	ListRepos(ctx context.Context, page, perPage int) ([]ForgeRepo, error)

	// GetTopics returns the topic list for a repository.
	GetTopics(ctx context.Context, fullName string) ([]string, error)

	// GetReadme returns the decoded readme content.
	GetReadme(ctx context.Context, fullName string) (string, error)
}

const defaultForgeBaseURL = "https://api.github.com"

// GitHubClient implements ForgeClient against the GitHub REST API.
type GitHubClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewGitHubClient creates a forge client. An empty baseURL selects
// the public API.
func NewGitHubClient(token, baseURL string) *GitHubClient {
	if baseURL == "" {
		baseURL = defaultForgeBaseURL
	}
	return &GitHubClient{
		token:      token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *GitHubClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type forgeRepoJSON struct {
	FullName      string    `json:"full_name"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PushedAt      time.Time `json:"pushed_at"`
	Private       bool      `json:"private"`
	HTMLURL       string    `json:"html_url"`
	CloneURL      string    `json:"clone_url"`
	DefaultBranch string    `json:"default_branch"`
}

func (c *GitHubClient) ListRepos(ctx context.Context, page, perPage int) ([]ForgeRepo, error) {
	var raw []forgeRepoJSON
	path := fmt.Sprintf("/user/repos?per_page=%d&page=%d&sort=updated&direction=desc", perPage, page)
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}

	repos := make([]ForgeRepo, len(raw))
	for i, r := range raw {
		repos[i] = ForgeRepo(r)
	}
	return repos, nil
}

func (c *GitHubClient) GetTopics(ctx context.Context, fullName string) ([]string, error) {
	var raw struct {
		Names []string `json:"names"`
	}
	if err := c.get(ctx, "/repos/"+fullName+"/topics", &raw); err != nil {
		return nil, err
	}
	return raw.Names, nil
}

func (c *GitHubClient) GetReadme(ctx context.Context, fullName string) (string, error) {
	var raw struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.get(ctx, "/repos/"+fullName+"/readme", &raw); err != nil {
		return "", err
	}

	if raw.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw.Content, "\n", ""))
		if err != nil {
			return "", fmt.Errorf("decode readme: %w", err)
		}
		return string(decoded), nil
	}
	return raw.Content, nil
}
