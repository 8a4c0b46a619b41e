package utils

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrGoalNotFound returns an error for when a goal is not found.
func ErrGoalNotFound(searchTerm string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("goal not found: %s", searchTerm),
		Suggestion: "Check the goal title or run 'devtracker goal list' to see all goals",
	}
}

// ErrEmptyGoalTitle returns an error for a goal submitted without a title.
func ErrEmptyGoalTitle() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("goal title cannot be empty"),
		Suggestion: "Provide a title, e.g. 'devtracker goal add \"Learn Rust\"'",
	}
}

// ErrUserNotFound returns an error for when a GitHub user does not exist.
func ErrUserNotFound(username string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("GitHub user not found: %s", username),
		Suggestion: "Check the username spelling or connect a different account",
	}
}

// ErrNotConnected returns an error when no GitHub account is connected.
func ErrNotConnected() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("no GitHub account connected"),
		Suggestion: "Run 'devtracker connect' to link your GitHub account",
	}
}

// ErrRateLimited returns an error when GitHub rate limit retries are exhausted.
func ErrRateLimited() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("GitHub API rate limit exceeded"),
		Suggestion: "Wait a few minutes and try again, or connect with a personal access token to raise the limit",
	}
}

// ErrTokenNotFound returns an error when no access token is stored.
func ErrTokenNotFound() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("no GitHub access token found"),
		Suggestion: "Run 'devtracker connect' to store a token in the system keyring",
	}
}

// ErrInsightsUnavailable returns an error when the AI backend cannot be reached.
func ErrInsightsUnavailable(reason string) error {
	suggestion := getSmartSuggestion(reason)
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("AI insights unavailable: %s", reason),
		Suggestion: suggestion,
	}
}

// getSmartSuggestion returns a context-aware suggestion based on the error reason.
func getSmartSuggestion(reason string) string {
	lowerReason := strings.ToLower(reason)

	if strings.Contains(lowerReason, "no such host") || strings.Contains(lowerReason, "dns") {
		return "Check your DNS settings and internet connection"
	}

	if strings.Contains(lowerReason, "connection refused") {
		return "Check if the server is running and accessible"
	}

	if strings.Contains(lowerReason, "timeout") || strings.Contains(lowerReason, "i/o timeout") {
		return "The server may be slow or unreachable. Try again later"
	}

	return "Check your internet connection and try again"
}

// ErrInvalidUsername returns an error for an invalid GitHub username.
func ErrInvalidUsername(username string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid GitHub username: %s", username),
		Suggestion: "Usernames may only contain alphanumeric characters and single hyphens",
	}
}

// ErrInvalidCategory returns an error for an invalid goal category with valid options.
func ErrInvalidCategory(category string, valid []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid category: %s", category),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}

// ErrAuthenticationFailed returns an error when GitHub authentication fails.
func ErrAuthenticationFailed() error {
	return &ErrorWithSuggestion{
		Err:        errors.New("GitHub authentication failed"),
		Suggestion: "Verify your token is correct and has not expired",
	}
}
