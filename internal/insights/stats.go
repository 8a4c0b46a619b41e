// Package insights derives summary statistics from fetched GitHub data
// and talks to the AI backend for deeper analysis.
package insights

import (
	"math"
	"sort"
	"strings"
	"time"

	"devtracker/internal/github"
)

// LanguageStat is one language's share of the aggregated byte volume.
type LanguageStat struct {
	Language   string  `json:"language"`
	Bytes      int64   `json:"bytes"`
	Percentage float64 `json:"percentage"`
}

// LanguageUsage merges per-repo language byte maps into a single ranked
// distribution. Percentages sum to 100 when total bytes > 0; when the
// total is zero every entry reports 0.
func LanguageUsage(repoLanguages []map[string]int64) []LanguageStat {
	totals := make(map[string]int64)
	var total int64
	for _, langs := range repoLanguages {
		for lang, bytes := range langs {
			totals[lang] += bytes
			total += bytes
		}
	}

	stats := make([]LanguageStat, 0, len(totals))
	for lang, bytes := range totals {
		stat := LanguageStat{Language: lang, Bytes: bytes}
		if total > 0 {
			stat.Percentage = float64(bytes) / float64(total) * 100
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Bytes != stats[j].Bytes {
			return stats[i].Bytes > stats[j].Bytes
		}
		return stats[i].Language < stats[j].Language
	})

	return stats
}

// CommitStats summarizes commit activity over recent time windows.
// The streak figures are deliberately rough estimates derived from the
// total commit count rather than a calendar-gap walk.
type CommitStats struct {
	Total         int `json:"total"`
	Daily         int `json:"daily"`
	Weekly        int `json:"weekly"`
	Monthly       int `json:"monthly"`
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
}

// AnalyzeCommits partitions a flattened commit list into daily, weekly
// and monthly windows relative to now.
func AnalyzeCommits(commits []github.Commit, now time.Time) CommitStats {
	stats := CommitStats{Total: len(commits)}

	for _, c := range commits {
		age := now.Sub(c.Date)
		if age < 0 {
			continue
		}
		if age <= 24*time.Hour {
			stats.Daily++
		}
		if age <= 7*24*time.Hour {
			stats.Weekly++
		}
		if age <= 30*24*time.Hour {
			stats.Monthly++
		}
	}

	// Count-derived streak heuristic, kept intentionally simple.
	stats.CurrentStreak = min(stats.Total/3, 30)
	stats.LongestStreak = min(stats.Total/2, 60)

	return stats
}

// SkillEstimate is a per-language skill level on a 1-10 scale.
type SkillEstimate struct {
	Language  string  `json:"language"`
	Level     float64 `json:"level"`
	RepoCount int     `json:"repoCount"`
	Bytes     int64   `json:"bytes"`
}

// SkillLevels estimates a per-language skill level from how many repos
// use the language and the log-scaled byte volume written in it. The
// composite is monotonic in both inputs and clamped to [1, 10].
func SkillLevels(repoLanguages []map[string]int64) []SkillEstimate {
	type acc struct {
		repos int
		bytes int64
	}
	byLang := make(map[string]*acc)
	for _, langs := range repoLanguages {
		for lang, bytes := range langs {
			a := byLang[lang]
			if a == nil {
				a = &acc{}
				byLang[lang] = a
			}
			a.repos++
			a.bytes += bytes
		}
	}

	estimates := make([]SkillEstimate, 0, len(byLang))
	for lang, a := range byLang {
		raw := float64(a.repos)*1.5 + math.Log10(float64(a.bytes)+1)
		level := math.Min(10, math.Max(1, raw))
		estimates = append(estimates, SkillEstimate{
			Language:  lang,
			Level:     math.Round(level*10) / 10,
			RepoCount: a.repos,
			Bytes:     a.bytes,
		})
	}

	sort.Slice(estimates, func(i, j int) bool {
		if estimates[i].Level != estimates[j].Level {
			return estimates[i].Level > estimates[j].Level
		}
		return estimates[i].Language < estimates[j].Language
	})

	return estimates
}

// Recommendations suggests what to learn and build next.
type Recommendations struct {
	NextSkills   []string `json:"nextSkills"`
	Projects     []string `json:"projects"`
	LearningPath []string `json:"learningPath"`
}

// recommendationTable maps a primary language to suggested next steps.
var recommendationTable = map[string]Recommendations{
	"go": {
		NextSkills:   []string{"gRPC", "Kubernetes operators", "profiling with pprof"},
		Projects:     []string{"A CLI tool with cobra", "An HTTP API with graceful shutdown", "A worker pool library"},
		LearningPath: []string{"Effective Go", "Concurrency patterns", "Generics in depth", "Module tooling", "Performance tuning"},
	},
	"javascript": {
		NextSkills:   []string{"TypeScript", "Testing with Vitest", "Bundler internals"},
		Projects:     []string{"A browser extension", "A Node CLI", "A realtime chat app"},
		LearningPath: []string{"Modern ES features", "Async patterns", "TypeScript migration", "Framework internals", "Tooling"},
	},
	"typescript": {
		NextSkills:   []string{"Advanced generics", "Compiler API", "Monorepo tooling"},
		Projects:     []string{"A typed API client", "A VS Code extension", "A design-system library"},
		LearningPath: []string{"Strictness flags", "Type-level programming", "Declaration files", "Build pipelines", "Runtime validation"},
	},
	"python": {
		NextSkills:   []string{"Type hints with mypy", "Async with asyncio", "Packaging"},
		Projects:     []string{"A data pipeline", "A FastAPI service", "A scraping toolkit"},
		LearningPath: []string{"Idiomatic Python", "Testing with pytest", "Typing", "Async IO", "Distribution"},
	},
	"rust": {
		NextSkills:   []string{"Async with tokio", "Unsafe and FFI", "Procedural macros"},
		Projects:     []string{"A systems CLI", "A WASM module", "A network service"},
		LearningPath: []string{"Ownership and borrowing", "Traits", "Error handling", "Async", "Performance"},
	},
	"java": {
		NextSkills:   []string{"Spring Boot", "JVM tuning", "Reactive streams"},
		Projects:     []string{"A REST microservice", "A batch processor", "A gradle plugin"},
		LearningPath: []string{"Modern Java features", "Collections in depth", "Concurrency", "Build tooling", "Observability"},
	},
}

// genericRecommendations is the fallback for languages not in the table.
var genericRecommendations = Recommendations{
	NextSkills:   []string{"Testing discipline", "CI/CD pipelines", "Code review practice"},
	Projects:     []string{"A portfolio site", "A CLI utility", "An open-source contribution"},
	LearningPath: []string{"Language fundamentals", "Idiomatic style", "Testing", "Tooling", "Shipping a project"},
}

// RecommendFor returns suggestions for the given primary language,
// deduplicated and truncated to at most 3 skills, 3 projects and 5
// learning-path entries.
func RecommendFor(language string) Recommendations {
	rec, ok := recommendationTable[strings.ToLower(language)]
	if !ok {
		rec = genericRecommendations
	}
	return Recommendations{
		NextSkills:   dedupTruncate(rec.NextSkills, 3),
		Projects:     dedupTruncate(rec.Projects, 3),
		LearningPath: dedupTruncate(rec.LearningPath, 5),
	}
}

// dedupTruncate removes duplicates preserving order and caps the length.
func dedupTruncate(items []string, limit int) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, limit)
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
