package utils

import (
	"regexp"
	"strings"
)

// usernamePattern matches valid GitHub usernames: alphanumeric segments
// separated by single hyphens, at most 39 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+(-[a-zA-Z0-9]+)*$`)

// ValidateUsername validates a GitHub username.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 39 || !usernamePattern.MatchString(username) {
		return ErrInvalidUsername(username)
	}
	return nil
}

// ValidateGoalTitle validates that a goal title is non-empty after trimming.
// An empty title is rejected client-side and nothing is persisted.
func ValidateGoalTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyGoalTitle()
	}
	return nil
}

// GoalCategories are the categories a goal may be filed under.
var GoalCategories = []string{"language", "framework", "tooling", "project", "other"}

// ValidateGoalCategory validates a goal category. An empty category is
// allowed and defaults to "other" at creation time.
func ValidateGoalCategory(category string) error {
	if category == "" {
		return nil
	}
	for _, c := range GoalCategories {
		if strings.EqualFold(category, c) {
			return nil
		}
	}
	return ErrInvalidCategory(category, GoalCategories)
}
