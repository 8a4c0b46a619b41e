package cache

import (
	"context"
	"encoding/json"
	"time"

	"devtracker/internal/github"
	"devtracker/internal/store"
	"devtracker/internal/utils"
)

// TTL policy constants. These are fixed policy values, not computed.
const (
	SnapshotTTL = 30 * time.Minute // primary per-user snapshot
	RepoTTL     = 30 * time.Minute // per user+repo details
	ProfileTTL  = 60 * time.Minute // user profile
	InsightsTTL = 30 * time.Minute // AI insight results
)

// Store key namespaces.
const (
	usernameKey    = "github_username"
	snapshotPrefix = "github_snapshot:"
	repoPrefix     = "repo_data:"
	profilePrefix  = "user_profile:"
	insightsPrefix = "ml_insights:"
)

// Snapshot is the primary per-user cache bundle: profile plus repo
// summaries, stamped once.
type Snapshot struct {
	Username string              `json:"username"`
	Repos    []github.Repo       `json:"repos"`
	Profile  *github.UserProfile `json:"userProfile"`
}

// Manager bundles the connected-account record and the four TTL caches
// in front of the GitHub client. It is a read-through cache: callers
// refill it with live fetches on a miss.
type Manager struct {
	store    *store.Store
	snapshot *Cache[Snapshot]
	repos    *Cache[github.RepoDetails]
	profiles *Cache[github.UserProfile]
	insights *Cache[json.RawMessage]
}

// TTLs carries per-cache lifetime overrides. Zero fields keep the
// policy constants.
type TTLs struct {
	Snapshot time.Duration
	Repo     time.Duration
	Profile  time.Duration
	Insights time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*TTLs)

// WithTTLs overrides the default cache lifetimes, typically from the
// cache section of the config file.
func WithTTLs(ttls TTLs) ManagerOption {
	return func(t *TTLs) { *t = ttls }
}

// NewManager creates a cache manager over the given store.
func NewManager(s *store.Store, opts ...ManagerOption) *Manager {
	var ttls TTLs
	for _, opt := range opts {
		opt(&ttls)
	}
	if ttls.Snapshot <= 0 {
		ttls.Snapshot = SnapshotTTL
	}
	if ttls.Repo <= 0 {
		ttls.Repo = RepoTTL
	}
	if ttls.Profile <= 0 {
		ttls.Profile = ProfileTTL
	}
	if ttls.Insights <= 0 {
		ttls.Insights = InsightsTTL
	}

	return &Manager{
		store:    s,
		snapshot: New[Snapshot](s, snapshotPrefix, ttls.Snapshot, false),
		repos:    New[github.RepoDetails](s, repoPrefix, ttls.Repo, true),
		profiles: New[github.UserProfile](s, profilePrefix, ttls.Profile, false),
		insights: New[json.RawMessage](s, insightsPrefix, ttls.Insights, false),
	}
}

// SetUsername records the currently connected GitHub account.
func (m *Manager) SetUsername(ctx context.Context, username string) error {
	raw, err := json.Marshal(username)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, usernameKey, raw)
}

// Username returns the currently connected account, or "" when none.
func (m *Manager) Username(ctx context.Context) string {
	raw, found, err := m.store.Get(ctx, usernameKey)
	if err != nil || !found {
		return ""
	}
	var username string
	if err := json.Unmarshal(raw, &username); err != nil {
		utils.Warnf("stored username is corrupt, ignoring: %v", err)
		return ""
	}
	return username
}

// Snapshot returns the cached per-user snapshot if fresh and the stored
// identity matches the requested username.
func (m *Manager) Snapshot(ctx context.Context, username string) (*Snapshot, bool) {
	snap, ok := m.snapshot.Get(ctx, username)
	if !ok {
		return nil, false
	}
	if snap.Username != username {
		return nil, false
	}
	return &snap, true
}

// SetSnapshot stores the per-user snapshot.
func (m *Manager) SetSnapshot(ctx context.Context, snap Snapshot) {
	m.snapshot.Set(ctx, snap.Username, snap)
}

// RepoDetails returns the cached per-repo bundle if fresh. An expired
// entry is deleted on read.
func (m *Manager) RepoDetails(ctx context.Context, username, repo string) (*github.RepoDetails, bool) {
	details, ok := m.repos.Get(ctx, username+":"+repo)
	if !ok {
		return nil, false
	}
	if details.Username != username || details.RepoName != repo {
		return nil, false
	}
	return &details, true
}

// SetRepoDetails stores the per-repo bundle.
func (m *Manager) SetRepoDetails(ctx context.Context, details github.RepoDetails) {
	m.repos.Set(ctx, details.Username+":"+details.RepoName, details)
}

// Profile returns the cached user profile if fresh.
func (m *Manager) Profile(ctx context.Context, username string) (*github.UserProfile, bool) {
	profile, ok := m.profiles.Get(ctx, username)
	if !ok {
		return nil, false
	}
	return &profile, true
}

// SetProfile stores the user profile.
func (m *Manager) SetProfile(ctx context.Context, username string, profile github.UserProfile) {
	m.profiles.Set(ctx, username, profile)
}

// Insights returns the cached AI insight payload if fresh.
func (m *Manager) Insights(ctx context.Context, username string) (json.RawMessage, bool) {
	return m.insights.Get(ctx, username)
}

// SetInsights stores an AI insight payload.
func (m *Manager) SetInsights(ctx context.Context, username string, payload json.RawMessage) {
	m.insights.Set(ctx, username, payload)
}

// Logout clears the connected account and its primary snapshot.
// Per-repo, profile and insight entries are deliberately left behind;
// they expire on their own TTLs. This mirrors the historical behavior
// and is a known inconsistency.
func (m *Manager) Logout(ctx context.Context) {
	username := m.Username(ctx)

	if err := m.store.Delete(ctx, usernameKey); err != nil {
		utils.Warnf("failed to clear stored username: %v", err)
	}
	if username != "" {
		m.snapshot.Clear(ctx, username)
	}
}
