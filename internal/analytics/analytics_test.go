package analytics

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestTracker(t *testing.T, enabled bool) *Tracker {
	t.Helper()
	tracker, err := NewTracker(filepath.Join(t.TempDir(), "analytics.db"), enabled)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	t.Cleanup(func() { _ = tracker.Close() })
	return tracker
}

func TestTrackCommandRecordsEvent(t *testing.T) {
	tracker := newTestTracker(t, true)

	if err := tracker.TrackCommand("goal", "add", []string{"--category"}, func() error { return nil }); err != nil {
		t.Fatalf("TrackCommand() error = %v", err)
	}
	if err := tracker.TrackCommand("goal", "list", nil, func() error { return nil }); err != nil {
		t.Fatalf("TrackCommand() error = %v", err)
	}
	if err := tracker.TrackCommand("stats", "", nil, func() error { return errors.New("rate limit exceeded") }); err == nil {
		t.Fatal("TrackCommand() must propagate the wrapped error")
	}

	summaries, err := tracker.Summary()
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 command summaries, got %d", len(summaries))
	}

	// Most used first
	if summaries[0].Command != "goal" || summaries[0].Count != 2 {
		t.Errorf("unexpected top summary: %+v", summaries[0])
	}
	if summaries[0].SuccessCount != 2 {
		t.Errorf("goal success count = %d, want 2", summaries[0].SuccessCount)
	}
	if summaries[1].Command != "stats" || summaries[1].SuccessCount != 0 {
		t.Errorf("unexpected stats summary: %+v", summaries[1])
	}
}

func TestTrackCommandDisabled(t *testing.T) {
	tracker := newTestTracker(t, false)

	called := false
	if err := tracker.TrackCommand("goal", "add", nil, func() error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("TrackCommand() error = %v", err)
	}
	if !called {
		t.Error("wrapped function must run even when tracking is disabled")
	}

	summaries, err := tracker.Summary()
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("expected no events when disabled, got %d", len(summaries))
	}
}

func TestCleanup(t *testing.T) {
	tracker := newTestTracker(t, true)

	if err := tracker.TrackCommand("goal", "add", nil, func() error { return nil }); err != nil {
		t.Fatalf("TrackCommand() error = %v", err)
	}

	// Recent events survive a 90-day retention sweep
	deleted, err := tracker.Cleanup(90)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected no deletions, got %d", deleted)
	}

	// A negative retention puts the cutoff in the future and removes everything
	deleted, err = tracker.Cleanup(-1)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deletion, got %d", deleted)
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{"GitHub API rate limit exceeded", "rate_limit"},
		{"request timeout", "timeout"},
		{"connection refused", "network"},
		{"unauthorized: bad credentials", "auth"},
		{"goal not found: x", "not_found"},
		{"goal title cannot be empty", "validation"},
		{"something odd", "unknown"},
	}
	for _, tt := range tests {
		if got := categorizeError(errors.New(tt.err)); got != tt.want {
			t.Errorf("categorizeError(%q) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestIsEnabledFromEnv(t *testing.T) {
	t.Setenv("DEVTRACKER_ANALYTICS_ENABLED", "")
	if !IsEnabledFromEnv(true) {
		t.Error("empty env should fall through to config")
	}
	t.Setenv("DEVTRACKER_ANALYTICS_ENABLED", "false")
	if IsEnabledFromEnv(true) {
		t.Error("env false must override config true")
	}
	t.Setenv("DEVTRACKER_ANALYTICS_ENABLED", "1")
	if !IsEnabledFromEnv(false) {
		t.Error("env 1 must override config false")
	}
}
