package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HubRepo is one repository as listed by the hub API.
type HubRepo struct {
	ID           string
	Private      bool
	CreatedAt    time.Time
	LastModified time.Time
	Tags         []string
	Description  string
}

// HubClient is the model-hub API surface the adapter needs.
type HubClient interface {
	// List returns every repository of one kind owned by author.
	List(ctx context.Context, kind, author string) ([]HubRepo, error)

	// GetReadme returns the repository card content.
	GetReadme(ctx context.Context, kind, id string) (string, error)
}

const defaultHubBaseURL = "https://huggingface.co"

// HuggingFaceClient implements HubClient against the Hugging Face
// hub API.
type HuggingFaceClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewHuggingFaceClient creates a hub client. An empty baseURL selects
// the public hub.
func NewHuggingFaceClient(token, baseURL string) *HuggingFaceClient {
	if baseURL == "" {
		baseURL = defaultHubBaseURL
	}
	return &HuggingFaceClient{
		token:      token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// kindPlural maps a hub kind to its API path segment.
func kindPlural(kind string) string {
	return kind + "s"
}

func (c *HuggingFaceClient) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

type hubRepoJSON struct {
	ID           string    `json:"id"`
	Private      bool      `json:"private"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
	Tags         []string  `json:"tags"`
	Description  string    `json:"description"`
}

func (c *HuggingFaceClient) List(ctx context.Context, kind, author string) ([]HubRepo, error) {
	path := fmt.Sprintf("/api/%s?author=%s&limit=1000", kindPlural(kind), url.QueryEscape(author))
	body, err := c.do(ctx, path)
	if err != nil {
		return nil, err
	}

	var raw []hubRepoJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	repos := make([]HubRepo, len(raw))
	for i, r := range raw {
		repos[i] = HubRepo(r)
	}
	return repos, nil
}

func (c *HuggingFaceClient) GetReadme(ctx context.Context, kind, id string) (string, error) {
	// Model cards live at the repo root; datasets and spaces carry a
	// kind prefix in their web paths.
	prefix := ""
	switch kind {
	case "dataset", "space":
		prefix = "/" + kindPlural(kind)
	}

	body, err := c.do(ctx, prefix+"/"+id+"/raw/main/README.md")
	if err != nil {
		return "", err
	}
	return string(body), nil
}
