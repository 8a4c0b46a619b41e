package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"devtracker/internal/github"
	"devtracker/internal/goals"
	"devtracker/internal/utils"
)

// Facet is one independent analysis dimension requested from the AI
// backend.
type Facet string

const (
	FacetSkills       Facet = "skills"
	FacetPatterns     Facet = "coding_patterns"
	FacetComplexity   Facet = "project_complexity"
	FacetCareers      Facet = "career_recommendations"
	FacetLearningPath Facet = "learning_path"
)

// Facets lists every analysis facet, in presentation order.
var Facets = []Facet{FacetSkills, FacetPatterns, FacetComplexity, FacetCareers, FacetLearningPath}

const defaultTimeout = 30 * time.Second

// AIClient talks to the external AI analysis backend.
type AIClient struct {
	httpClient *http.Client
	baseURL    string
}

// AIConfig configures the AI client. BaseURL is required; HTTPClient is
// replaceable for testing.
type AIConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAIClient creates a client for the AI analysis backend.
func NewAIClient(cfg AIConfig) *AIClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &AIClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// ContextInput is the GitHub data an analysis request is built from.
type ContextInput struct {
	Username    string
	Repos       []github.Repo
	RepoDetails []github.RepoDetails
}

// BuildContext renders the GitHub data into the natural-language context
// string sent alongside every facet request: language histogram, top
// repos, recent commit messages and repo quality counts.
func BuildContext(in ContextInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GitHub profile: %s\n", in.Username)
	fmt.Fprintf(&b, "Public repositories: %d\n", len(in.Repos))

	var langMaps []map[string]int64
	for _, d := range in.RepoDetails {
		langMaps = append(langMaps, d.Languages)
	}
	usage := LanguageUsage(langMaps)
	if len(usage) > 0 {
		b.WriteString("Languages by volume:\n")
		for _, stat := range usage {
			fmt.Fprintf(&b, "  %s: %.1f%%\n", stat.Language, stat.Percentage)
		}
	}

	topRepos := make([]github.Repo, len(in.Repos))
	copy(topRepos, in.Repos)
	sort.Slice(topRepos, func(i, j int) bool { return topRepos[i].StargazersCount > topRepos[j].StargazersCount })
	if len(topRepos) > 5 {
		topRepos = topRepos[:5]
	}
	if len(topRepos) > 0 {
		b.WriteString("Top repositories:\n")
		for _, r := range topRepos {
			fmt.Fprintf(&b, "  %s (%d stars): %s\n", r.Name, r.StargazersCount, r.Description)
		}
	}

	var messages []string
	withReadme := 0
	for _, d := range in.RepoDetails {
		if d.HasReadme {
			withReadme++
		}
		for _, c := range d.Commits {
			messages = append(messages, c.Message)
		}
	}
	if len(messages) > 10 {
		messages = messages[:10]
	}
	if len(messages) > 0 {
		b.WriteString("Recent commit messages:\n")
		for _, m := range messages {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
	}

	fmt.Fprintf(&b, "Repos with a README: %d of %d\n", withReadme, len(in.RepoDetails))

	return b.String()
}

// FacetOutcome is one facet's result: either analysis text or the error
// that prevented it. A failed facet reports Content == "" and Err set.
type FacetOutcome struct {
	Facet   Facet  `json:"facet"`
	Content string `json:"content"`
	Err     error  `json:"-"`
}

// Failed reports whether this facet produced no usable analysis.
func (o FacetOutcome) Failed() bool {
	return o.Err != nil
}

// InsightReport aggregates every facet's outcome. Facets that failed
// are present with an empty Content so callers can render an explicit
// "unavailable" state per facet.
type InsightReport struct {
	Username  string         `json:"username"`
	Generated time.Time      `json:"generated"`
	Facets    []FacetOutcome `json:"facets"`
}

// Outcome returns the report entry for a facet.
func (r *InsightReport) Outcome(f Facet) (FacetOutcome, bool) {
	for _, o := range r.Facets {
		if o.Facet == f {
			return o, true
		}
	}
	return FacetOutcome{}, false
}

// FetchInsights requests all five analysis facets concurrently and
// waits for every one to settle. A facet's failure never fails the
// aggregate: the report carries each facet's own outcome.
func (c *AIClient) FetchInsights(ctx context.Context, in ContextInput) *InsightReport {
	githubContext := BuildContext(in)

	tasks := make([]func(context.Context) (string, error), len(Facets))
	for i, facet := range Facets {
		facet := facet
		tasks[i] = func(ctx context.Context) (string, error) {
			return c.requestFacet(ctx, facet, githubContext)
		}
	}

	outcomes := settleAll(ctx, tasks)

	report := &InsightReport{
		Username:  in.Username,
		Generated: time.Now().UTC(),
		Facets:    make([]FacetOutcome, len(Facets)),
	}
	for i, facet := range Facets {
		report.Facets[i] = FacetOutcome{Facet: facet}
		if outcomes[i].err != nil {
			utils.Warnf("insight facet %s failed: %v", facet, outcomes[i].err)
			report.Facets[i].Err = outcomes[i].err
			continue
		}
		report.Facets[i].Content = outcomes[i].value
	}

	return report
}

// requestFacet asks the backend for one analysis facet.
func (c *AIClient) requestFacet(ctx context.Context, facet Facet, githubContext string) (string, error) {
	payload := struct {
		Facet   Facet  `json:"facet"`
		Context string `json:"context"`
	}{Facet: facet, Context: githubContext}

	var response struct {
		Analysis string `json:"analysis"`
	}
	if err := c.post(ctx, "/analyze", payload, &response); err != nil {
		return "", err
	}
	if response.Analysis == "" {
		return "", fmt.Errorf("empty analysis for facet %s", facet)
	}
	return response.Analysis, nil
}

// RepoAnalysis is the backend's verdict on one repository.
type RepoAnalysis struct {
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// AnalyzeRepo asks the backend to review a single repository.
func (c *AIClient) AnalyzeRepo(ctx context.Context, details github.RepoDetails) (*RepoAnalysis, error) {
	payload := struct {
		RepoName    string           `json:"repoName"`
		Username    string           `json:"username"`
		Languages   map[string]int64 `json:"languages"`
		ProjectType string           `json:"projectType"`
		Readme      string           `json:"readme"`
		CommitCount int              `json:"commitCount"`
	}{
		RepoName:    details.RepoName,
		Username:    details.Username,
		Languages:   details.Languages,
		ProjectType: details.ProjectType,
		Readme:      details.Readme,
		CommitCount: len(details.Commits),
	}

	var analysis RepoAnalysis
	if err := c.post(ctx, "/analyze-repo", payload, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// GoalAnalysis is the backend's advice on a learning goal.
type GoalAnalysis struct {
	Assessment string   `json:"assessment"`
	NextSteps  []string `json:"nextSteps"`
}

// AnalyzeGoal asks the backend to review a goal against the user's
// GitHub activity.
func (c *AIClient) AnalyzeGoal(ctx context.Context, goal goals.Goal, githubContext string) (*GoalAnalysis, error) {
	payload := struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Completed   bool   `json:"completed"`
		Context     string `json:"context"`
	}{
		Title:       goal.Title,
		Description: goal.Description,
		Category:    goal.Category,
		Completed:   goal.Completed,
		Context:     githubContext,
	}

	var analysis GoalAnalysis
	if err := c.post(ctx, "/analyze-goal", payload, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// post sends a JSON payload and decodes a JSON response. Non-2xx status
// and malformed response bodies are analysis failures, never panics.
func (c *AIClient) post(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return utils.ErrInsightsUnavailable(err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("AI backend returned %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("AI backend returned malformed JSON for %s: %w", path, err)
	}
	return nil
}

// outcome captures one settled task's result.
type outcome[T any] struct {
	value T
	err   error
}

// settleAll runs every task concurrently and waits for all of them to
// finish, collecting each task's own result or error. It never short
// circuits on failure.
func settleAll[T any](ctx context.Context, tasks []func(context.Context) (T, error)) []outcome[T] {
	outcomes := make([]outcome[T], len(tasks))

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task func(context.Context) (T, error)) {
			defer wg.Done()
			outcomes[i].value, outcomes[i].err = task(ctx)
		}(i, task)
	}
	wg.Wait()

	return outcomes
}
