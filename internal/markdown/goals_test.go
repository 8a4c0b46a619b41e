package markdown

import (
	"strings"
	"testing"
	"time"

	"devtracker/internal/goals"
)

func TestFormatStatusChar(t *testing.T) {
	if got := FormatStatusChar(true); got != "x" {
		t.Errorf("FormatStatusChar(true) = %q, want %q", got, "x")
	}
	if got := FormatStatusChar(false); got != " " {
		t.Errorf("FormatStatusChar(false) = %q, want %q", got, " ")
	}
}

func TestGroupByCategory(t *testing.T) {
	list := []goals.Goal{
		{Title: "A", Category: "project"},
		{Title: "B", Category: "language"},
		{Title: "C", Category: "zebra"},
		{Title: "D", Category: "language"},
	}

	order, buckets := GroupByCategory(list)

	want := []string{"language", "project", "zebra"}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
	if len(buckets["language"]) != 2 {
		t.Errorf("expected 2 language goals, got %d", len(buckets["language"]))
	}
}

func TestWriteGoalWithNotes(t *testing.T) {
	goal := goals.Goal{
		Title:       "Learn Go",
		Description: "stdlib first",
		Completed:   true,
		Progress: []goals.ProgressNote{
			{Text: "finished the tour", Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
		},
	}

	var sb strings.Builder
	WriteGoal(&sb, &goal)

	got := sb.String()
	if !strings.Contains(got, "- [x] Learn Go - stdlib first") {
		t.Errorf("unexpected goal line:\n%s", got)
	}
	if !strings.Contains(got, "  - 2026-08-01: finished the tour") {
		t.Errorf("expected dated note line:\n%s", got)
	}
}

func TestFormatGoalsDocument(t *testing.T) {
	list := []goals.Goal{
		{Title: "Learn Go", Category: "language"},
		{Title: "Ship a CLI", Category: "project", Completed: true},
	}

	got := FormatGoals("Learning Goals", list)

	for _, want := range []string{
		"# Learning Goals",
		"## language",
		"- [ ] Learn Go",
		"## project",
		"- [x] Ship a CLI",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("document missing %q:\n%s", want, got)
		}
	}

	if idx := strings.Index(got, "## language"); idx > strings.Index(got, "## project") {
		t.Error("expected language section before project section")
	}
}

func TestFormatGoalsEmpty(t *testing.T) {
	got := FormatGoals("Learning Goals", nil)
	if !strings.Contains(got, "No goals yet.") {
		t.Errorf("unexpected empty document:\n%s", got)
	}
}
