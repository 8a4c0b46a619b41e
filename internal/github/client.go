// Package github provides a thin client for the GitHub REST API with
// rate-limit aware retries and benign empty results for missing
// single-repo resources.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"devtracker/internal/ratelimit"
	"devtracker/internal/utils"
)

const (
	// DefaultBaseURL is the GitHub REST API base URL
	DefaultBaseURL = "https://api.github.com"

	// acceptHeader is the GitHub JSON media type sent on every request
	acceptHeader = "application/vnd.github+json"

	// defaultUserAgent identifies the client to the API
	defaultUserAgent = "devtracker-cli"
)

// Config holds GitHub client settings
type Config struct {
	Token       string        // Optional access token, attached to every request when set
	BaseURL     string        // Override for testing
	UserAgent   string        // Override for the client identifier
	MaxRetries  int           // Retry bound for rate limiting and transport errors
	BaseDelay   time.Duration // Initial backoff delay
	PacingDelay time.Duration // Delay inserted between dependent per-repo calls
}

// Client issues authenticated, retrying calls against the GitHub REST API.
//
// The token is mutable: SetToken and ClearToken update it for subsequent
// requests, but requests already in flight keep the header value they
// captured at send time.
type Client struct {
	mu          sync.RWMutex
	token       string
	baseURL     string
	userAgent   string
	rl          *ratelimit.Client
	pacingDelay time.Duration
}

// New creates a new GitHub client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	pacingDelay := cfg.PacingDelay
	if pacingDelay == 0 {
		pacingDelay = 200 * time.Millisecond
	}

	return &Client{
		token:     cfg.Token,
		baseURL:   baseURL,
		userAgent: userAgent,
		rl: ratelimit.NewClient(ratelimit.Config{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.BaseDelay,
			Service:    "GitHub",
		}),
		pacingDelay: pacingDelay,
	}
}

// SetToken replaces the access token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken removes the access token.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// Token returns the currently configured access token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// headers builds the request headers, capturing the current token value.
func (c *Client) headers(tokenOverride string) http.Header {
	h := http.Header{}
	h.Set("Accept", acceptHeader)
	h.Set("User-Agent", c.userAgent)

	token := tokenOverride
	if token == "" {
		token = c.Token()
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// get performs a GET against the API with retry handling.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	resp, err := c.rl.Do(ctx, http.MethodGet, c.baseURL+path, nil, c.headers(""))
	if err != nil {
		return nil, mapTransportErr(err)
	}
	return resp, nil
}

// mapTransportErr translates exhausted rate-limit retries into the
// user-facing error; other transport errors pass through.
func mapTransportErr(err error) error {
	var rle *ratelimit.RateLimitError
	if errors.As(err, &rle) {
		return utils.ErrRateLimited()
	}
	return err
}

// FetchUserProfile returns the profile for a username.
// A non-2xx response is an error; the user screen renders it as retryable.
func (c *Client) FetchUserProfile(ctx context.Context, username string) (*UserProfile, error) {
	resp, err := c.get(ctx, "/users/"+url.PathEscape(username))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, utils.ErrUserNotFound(username)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch profile for %s: status %d", username, resp.StatusCode)
	}

	var profile UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FetchUserRepos returns up to 100 repositories for a username, most
// recently updated first. Any non-2xx response is an error.
func (c *Client) FetchUserRepos(ctx context.Context, username string) ([]Repo, error) {
	path := "/users/" + url.PathEscape(username) + "/repos?per_page=100&sort=updated"
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch repos for %s: status %d", username, resp.StatusCode)
	}

	var repos []Repo
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, err
	}
	if repos == nil {
		repos = []Repo{}
	}
	return repos, nil
}

// FetchRepoCommits returns up to 10 most recent commits for a repository.
// A 404 (no commits or missing repo) or 401 (private/unauthorized)
// degrades to an empty list rather than an error.
func (c *Client) FetchRepoCommits(ctx context.Context, username, repo string) ([]Commit, error) {
	path := "/repos/" + url.PathEscape(username) + "/" + url.PathEscape(repo) + "/commits?per_page=10"
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized {
		return []Commit{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch commits for %s/%s: status %d", username, repo, resp.StatusCode)
	}

	var raw []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string `json:"name"`
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	commits := make([]Commit, len(raw))
	for i, r := range raw {
		date, _ := time.Parse(time.RFC3339, r.Commit.Author.Date)
		commits[i] = Commit{
			SHA:     r.SHA,
			Message: r.Commit.Message,
			Author:  r.Commit.Author.Name,
			Date:    date,
		}
	}
	return commits, nil
}

// FetchRepoLanguages returns the language byte counts for a repository,
// degrading to an empty map on 404/401.
func (c *Client) FetchRepoLanguages(ctx context.Context, username, repo string) (map[string]int64, error) {
	path := "/repos/" + url.PathEscape(username) + "/" + url.PathEscape(repo) + "/languages"
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized {
		return map[string]int64{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch languages for %s/%s: status %d", username, repo, resp.StatusCode)
	}

	var languages map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, err
	}
	if languages == nil {
		languages = map[string]int64{}
	}
	return languages, nil
}

// FetchRepoReadme returns the decoded README text for a repository.
// The second return value reports whether a README was found; absent or
// unauthorized READMEs are not errors.
func (c *Client) FetchRepoReadme(ctx context.Context, username, repo string) (string, bool, error) {
	path := "/repos/" + url.PathEscape(username) + "/" + url.PathEscape(repo) + "/readme"
	resp, err := c.get(ctx, path)
	if err != nil {
		return "", false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("failed to fetch readme for %s/%s: status %d", username, repo, resp.StatusCode)
	}

	var payload struct {
		Encoding string `json:"encoding"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false, err
	}

	if payload.Encoding == "base64" {
		// The API wraps base64 content with newlines
		cleaned := strings.ReplaceAll(payload.Content, "\n", "")
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			return "", false, fmt.Errorf("failed to decode readme for %s/%s: %w", username, repo, err)
		}
		return string(decoded), true, nil
	}

	return payload.Content, true, nil
}

// FetchRepoTree returns the recursive file tree for a branch, degrading
// to an empty list on 404/401.
func (c *Client) FetchRepoTree(ctx context.Context, username, repo, branch string) ([]TreeEntry, error) {
	if branch == "" {
		branch = "main"
	}
	path := "/repos/" + url.PathEscape(username) + "/" + url.PathEscape(repo) +
		"/git/trees/" + url.PathEscape(branch) + "?recursive=1"
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized {
		return []TreeEntry{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch tree for %s/%s: status %d", username, repo, resp.StatusCode)
	}

	var payload struct {
		Tree []TreeEntry `json:"tree"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Tree == nil {
		payload.Tree = []TreeEntry{}
	}
	return payload.Tree, nil
}

// FetchAuthenticatedUser resolves the canonical login name for a token.
// Used after the OAuth connect flow hands back an access token.
func (c *Client) FetchAuthenticatedUser(ctx context.Context, token string) (string, error) {
	resp, err := c.rl.Do(ctx, http.MethodGet, c.baseURL+"/user", nil, c.headers(token))
	if err != nil {
		return "", mapTransportErr(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("authentication failed: invalid access token")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to resolve authenticated user: status %d", resp.StatusCode)
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", err
	}
	return user.Login, nil
}

// FetchRepoDetails assembles the per-repo bundle: commits, languages,
// readme and the file tree are fetched sequentially with a pacing delay
// between calls to avoid tripping the API's secondary rate limits.
func (c *Client) FetchRepoDetails(ctx context.Context, username, repo string) (*RepoDetails, error) {
	commits, err := c.FetchRepoCommits(ctx, username, repo)
	if err != nil {
		return nil, err
	}

	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	languages, err := c.FetchRepoLanguages(ctx, username, repo)
	if err != nil {
		return nil, err
	}

	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	readme, hasReadme, err := c.FetchRepoReadme(ctx, username, repo)
	if err != nil {
		return nil, err
	}

	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	tree, err := c.FetchRepoTree(ctx, username, repo, "")
	if err != nil {
		return nil, err
	}
	fileCount := 0
	for _, entry := range tree {
		if entry.Type == "blob" {
			fileCount++
		}
	}

	return &RepoDetails{
		RepoName:    repo,
		Username:    username,
		Commits:     commits,
		Languages:   languages,
		Readme:      readme,
		HasReadme:   hasReadme,
		FileCount:   fileCount,
		ProjectType: AnalyzeProjectType(readme),
	}, nil
}

// pace sleeps for the configured pacing delay, honoring cancellation.
func (c *Client) pace(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.pacingDelay):
		return nil
	}
}
