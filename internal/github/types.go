package github

import "time"

// UserProfile is the subset of a GitHub user profile the app consumes.
type UserProfile struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Blog        string `json:"blog"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	CreatedAt   string `json:"created_at"`
}

// Repo is a repository summary as returned by the repos listing.
type Repo struct {
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	Fork            bool   `json:"fork"`
	HTMLURL         string `json:"html_url"`
	UpdatedAt       string `json:"updated_at"`
	DefaultBranch   string `json:"default_branch"`
}

// Commit is a single commit record from the commits listing.
type Commit struct {
	SHA     string `json:"sha"`
	Message string
	Author  string
	Date    time.Time
}

// TreeEntry is one entry of a recursive git tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// RepoDetails bundles the per-repo data fetched for a repository screen:
// recent commits, language byte counts, the decoded README (empty when
// absent), the file count from the tree listing, and the derived
// project type.
type RepoDetails struct {
	RepoName    string           `json:"repoName"`
	Username    string           `json:"username"`
	Commits     []Commit         `json:"commits"`
	Languages   map[string]int64 `json:"languages"`
	Readme      string           `json:"readme"`
	HasReadme   bool             `json:"hasReadme"`
	FileCount   int              `json:"fileCount"`
	ProjectType string           `json:"projectType"`
}
