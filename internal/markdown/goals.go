// Package markdown formats goals as markdown checklists for export.
package markdown

import (
	"fmt"
	"sort"
	"strings"

	"devtracker/internal/goals"
	"devtracker/internal/utils"
)

// FormatStatusChar converts a goal's completion state to a markdown
// checkbox character.
func FormatStatusChar(completed bool) string {
	if completed {
		return "x"
	}
	return " "
}

// GroupByCategory separates goals into per-category buckets. Categories
// are returned in the canonical order, with unknown categories appended
// alphabetically.
func GroupByCategory(list []goals.Goal) ([]string, map[string][]goals.Goal) {
	buckets := make(map[string][]goals.Goal)
	for _, g := range list {
		buckets[g.Category] = append(buckets[g.Category], g)
	}

	var order []string
	for _, c := range utils.GoalCategories {
		if _, ok := buckets[c]; ok {
			order = append(order, c)
		}
	}

	var extra []string
	for c := range buckets {
		known := false
		for _, k := range utils.GoalCategories {
			if c == k {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	return order, buckets
}

// WriteGoal writes a single goal line plus its progress notes to a
// strings.Builder with proper indentation.
func WriteGoal(sb *strings.Builder, goal *goals.Goal) {
	sb.WriteString("- [")
	sb.WriteString(FormatStatusChar(goal.Completed))
	sb.WriteString("] ")
	sb.WriteString(goal.Title)
	if goal.Description != "" {
		sb.WriteString(" - ")
		sb.WriteString(goal.Description)
	}
	sb.WriteString("\n")

	for _, note := range goal.Progress {
		sb.WriteString("  - ")
		sb.WriteString(note.Timestamp.Format("2006-01-02"))
		sb.WriteString(": ")
		sb.WriteString(note.Text)
		sb.WriteString("\n")
	}
}

// FormatGoals renders a full markdown document with one section per
// category. An empty goal list still produces a valid document.
func FormatGoals(title string, list []goals.Goal) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n", title))

	if len(list) == 0 {
		sb.WriteString("\nNo goals yet.\n")
		return sb.String()
	}

	order, buckets := GroupByCategory(list)
	for _, category := range order {
		sb.WriteString(fmt.Sprintf("\n## %s\n\n", category))
		for i := range buckets[category] {
			WriteGoal(&sb, &buckets[category][i])
		}
	}
	return sb.String()
}
