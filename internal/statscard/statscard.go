// Package statscard builds URLs for third-party GitHub stats-card
// images and probes whether the card services can render for a user.
package statscard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"devtracker/internal/github"
)

const (
	defaultStatsBaseURL  = "https://github-readme-stats.vercel.app/api"
	defaultStreakBaseURL = "https://streak-stats.demolab.com"
	defaultLangsPath     = "/top-langs"

	probeTimeout = 10 * time.Second
)

// ProfileChecker resolves whether a GitHub username exists.
type ProfileChecker interface {
	FetchUserProfile(ctx context.Context, username string) (*github.UserProfile, error)
}

// Options controls card rendering.
type Options struct {
	Theme     string
	ShowIcons bool
	Compact   bool
}

// Service builds card URLs and probes card availability.
type Service struct {
	httpClient    *http.Client
	profiles      ProfileChecker
	statsBaseURL  string
	streakBaseURL string
}

// Config configures the stats-card service. Profiles is required; the
// base URLs and HTTP client are replaceable for testing.
type Config struct {
	Profiles      ProfileChecker
	HTTPClient    *http.Client
	StatsBaseURL  string
	StreakBaseURL string
}

// New creates a stats-card service.
func New(cfg Config) *Service {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: probeTimeout}
	}
	statsBaseURL := cfg.StatsBaseURL
	if statsBaseURL == "" {
		statsBaseURL = defaultStatsBaseURL
	}
	streakBaseURL := cfg.StreakBaseURL
	if streakBaseURL == "" {
		streakBaseURL = defaultStreakBaseURL
	}
	return &Service{
		httpClient:    httpClient,
		profiles:      cfg.Profiles,
		statsBaseURL:  statsBaseURL,
		streakBaseURL: streakBaseURL,
	}
}

// StatsURL returns the main stats card image URL for a user.
func (s *Service) StatsURL(username string, opts Options) string {
	q := url.Values{}
	q.Set("username", username)
	if opts.Theme != "" {
		q.Set("theme", opts.Theme)
	}
	if opts.ShowIcons {
		q.Set("show_icons", "true")
	}
	return s.statsBaseURL + "?" + q.Encode()
}

// LanguagesURL returns the top-languages card image URL for a user.
func (s *Service) LanguagesURL(username string, opts Options) string {
	q := url.Values{}
	q.Set("username", username)
	if opts.Theme != "" {
		q.Set("theme", opts.Theme)
	}
	if opts.Compact {
		q.Set("layout", "compact")
	}
	return s.statsBaseURL + defaultLangsPath + "?" + q.Encode()
}

// StreakURL returns the streak card image URL for a user.
func (s *Service) StreakURL(username string, opts Options) string {
	q := url.Values{}
	q.Set("user", username)
	if opts.Theme != "" {
		q.Set("theme", opts.Theme)
	}
	return s.streakBaseURL + "?" + q.Encode()
}

// Availability reports whether cards can be rendered for a user.
type Availability struct {
	UserExists bool `json:"userExists"`
	StatsCard  bool `json:"statsCard"`
	StreakCard bool `json:"streakCard"`
}

// Available reports whether everything needed for the cards works.
func (a Availability) Available() bool {
	return a.UserExists && a.StatsCard && a.StreakCard
}

// CheckAvailability probes card availability: the username must resolve
// to a real profile and both card endpoints must answer with success.
func (s *Service) CheckAvailability(ctx context.Context, username string) (Availability, error) {
	var avail Availability

	if _, err := s.profiles.FetchUserProfile(ctx, username); err != nil {
		return avail, fmt.Errorf("user lookup failed: %w", err)
	}
	avail.UserExists = true

	avail.StatsCard = s.probe(ctx, s.StatsURL(username, Options{}))
	avail.StreakCard = s.probe(ctx, s.StreakURL(username, Options{}))

	return avail, nil
}

// probe reports whether a GET to the URL succeeds with a 2xx status.
func (s *Service) probe(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
