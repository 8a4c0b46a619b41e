// Package credentials stores the GitHub access token in the OS-native
// keyring, with fallback to an environment variable.
package credentials

import (
	"context"
	"os"
	"strings"

	"devtracker/internal/utils"
)

// Source indicates where a token was retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

const (
	service = "devtracker-github"

	// EnvToken overrides the keyring when set, for CI and headless use.
	EnvToken = "DEVTRACKER_GITHUB_TOKEN"
)

// TokenInfo is the result of a token lookup.
type TokenInfo struct {
	Source   Source
	Username string
	Token    string
	Found    bool
}

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, password string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles token storage and retrieval.
type Manager struct {
	keyring Keyring
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// NewManager creates a new token manager backed by the system keyring.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		keyring: &systemKeyring{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set stores a token for the given GitHub username.
func (m *Manager) Set(ctx context.Context, username, token string) error {
	username = strings.TrimSpace(username)
	token = strings.TrimSpace(token)
	if token == "" {
		return utils.ErrTokenNotFound()
	}
	return m.keyring.Set(service, username, token)
}

// Get retrieves the token for a username: environment first so CI can
// override a stale keyring entry, then the keyring.
func (m *Manager) Get(ctx context.Context, username string) (*TokenInfo, error) {
	username = strings.TrimSpace(username)

	if token := os.Getenv(EnvToken); token != "" {
		return &TokenInfo{
			Source:   SourceEnvironment,
			Username: username,
			Token:    token,
			Found:    true,
		}, nil
	}

	token, err := m.keyring.Get(service, username)
	if err == nil && token != "" {
		return &TokenInfo{
			Source:   SourceKeyring,
			Username: username,
			Token:    token,
			Found:    true,
		}, nil
	}

	return &TokenInfo{
		Source:   SourceNone,
		Username: username,
		Found:    false,
	}, nil
}

// Delete removes the stored token. Deleting an absent token is a no-op.
func (m *Manager) Delete(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)

	err := m.keyring.Delete(service, username)
	if err != nil && strings.Contains(err.Error(), "not found") {
		return nil
	}
	return err
}
