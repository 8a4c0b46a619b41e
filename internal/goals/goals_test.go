package goals

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "goals.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	goal, err := s.Create(ctx, "Learn Go generics", "type parameters and constraints", "language")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if goal.ID == "" {
		t.Error("expected generated ID")
	}
	if goal.Completed {
		t.Error("new goal should not be completed")
	}
	if len(goal.Progress) != 0 {
		t.Errorf("new goal should have empty progress, got %d entries", len(goal.Progress))
	}

	got, err := s.Get(ctx, goal.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected goal, got nil")
	}
	if got.Title != "Learn Go generics" || got.Category != "language" {
		t.Errorf("unexpected goal: %+v", got)
	}
}

func TestCreateEmptyTitleRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, title := range []string{"", "   ", "\t\n"} {
		if _, err := s.Create(ctx, title, "", ""); err == nil {
			t.Errorf("Create(%q) expected error, got nil", title)
		}
	}

	// Nothing may be persisted on rejection
	goals, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(goals) != 0 {
		t.Errorf("expected no goals persisted, got %d", len(goals))
	}
}

func TestCreateInvalidCategoryRejected(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Create(context.Background(), "Learn Zig", "", "hobby"); err == nil {
		t.Error("expected invalid category to be rejected")
	}
}

func TestCreateDefaultsCategory(t *testing.T) {
	s := newTestStore(t)

	goal, err := s.Create(context.Background(), "Ship a side project", "", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if goal.Category != "other" {
		t.Errorf("expected default category other, got %q", goal.Category)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing goal, got %+v", got)
	}
}

func TestGetByTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "Learn Rust", "", "language")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := s.GetByTitle(ctx, "learn rust")
	if err != nil {
		t.Fatalf("GetByTitle() error = %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Errorf("expected case-insensitive title match, got %+v", got)
	}

	got, err = s.GetByTitle(ctx, "learn haskell")
	if err != nil {
		t.Fatalf("GetByTitle() error = %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown title, got %+v", got)
	}
}

func TestListFiltersByCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "Learn Go", "", "language"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Create(ctx, "Learn React", "", "framework"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 goals, got %d", len(all))
	}

	langs, err := s.List(ctx, "language")
	if err != nil {
		t.Fatalf("List(language) error = %v", err)
	}
	if len(langs) != 1 || langs[0].Title != "Learn Go" {
		t.Errorf("unexpected filter result: %+v", langs)
	}

	if _, err := s.List(ctx, "hobby"); err == nil {
		t.Error("expected invalid filter category to error")
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	goal, err := s.Create(ctx, "Learn Go", "", "language")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := s.Update(ctx, goal.ID, "Master Go", "including the runtime", "language")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "Master Go" || updated.Description != "including the runtime" {
		t.Errorf("unexpected updated goal: %+v", updated)
	}

	if _, err := s.Update(ctx, goal.ID, "  ", "", ""); err == nil {
		t.Error("expected empty title update to be rejected")
	}
	if _, err := s.Update(ctx, "no-such-id", "Valid", "", ""); err == nil {
		t.Error("expected update of missing goal to error")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	goal, err := s.Create(ctx, "Learn Go", "", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := s.Delete(ctx, goal.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err := s.Get(ctx, goal.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Error("expected goal to be gone after delete")
	}

	if err := s.Delete(ctx, goal.ID); err == nil {
		t.Error("expected second delete to report not found")
	}
}

func TestAddProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	goal, err := s.Create(ctx, "Learn Go", "", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	before := time.Now().UTC().Add(-time.Second)
	updated, err := s.AddProgress(ctx, goal.ID, "finished the tour")
	if err != nil {
		t.Fatalf("AddProgress() error = %v", err)
	}
	if len(updated.Progress) != 1 {
		t.Fatalf("expected 1 progress note, got %d", len(updated.Progress))
	}
	note := updated.Progress[0]
	if note.Text != "finished the tour" {
		t.Errorf("unexpected note text %q", note.Text)
	}
	if note.Timestamp.Before(before) {
		t.Errorf("note timestamp %v predates the call", note.Timestamp)
	}

	// Notes accumulate and survive a reload
	if _, err := s.AddProgress(ctx, goal.ID, "wrote a CLI"); err != nil {
		t.Fatalf("AddProgress() error = %v", err)
	}
	got, err := s.Get(ctx, goal.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Progress) != 2 {
		t.Errorf("expected 2 progress notes, got %d", len(got.Progress))
	}

	if _, err := s.AddProgress(ctx, "no-such-id", "note"); err == nil {
		t.Error("expected progress on missing goal to error")
	}
}

func TestToggleComplete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	goal, err := s.Create(ctx, "Learn Go", "", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	toggled, err := s.ToggleComplete(ctx, goal.ID)
	if err != nil {
		t.Fatalf("ToggleComplete() error = %v", err)
	}
	if !toggled.Completed {
		t.Error("expected goal to be completed after first toggle")
	}

	toggled, err = s.ToggleComplete(ctx, goal.ID)
	if err != nil {
		t.Fatalf("ToggleComplete() error = %v", err)
	}
	if toggled.Completed {
		t.Error("expected goal to be open again after second toggle")
	}

	if _, err := s.ToggleComplete(ctx, "no-such-id"); err == nil {
		t.Error("expected toggle on missing goal to error")
	}
}
