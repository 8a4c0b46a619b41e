package github

import "strings"

// DefaultProjectType is returned when no classification rule matches.
const DefaultProjectType = "General Project"

// classifyRule pairs a match predicate with its project type label.
// Rules are evaluated in order; the first match wins.
type classifyRule struct {
	keywords []string
	label    string
}

// classifyRules is the ordered rule list for README keyword matching.
var classifyRules = []classifyRule{
	{[]string{"react native", "expo", "flutter", "android", "ios app"}, "Mobile App"},
	{[]string{"machine learning", "neural network", "tensorflow", "pytorch", "scikit"}, "Machine Learning"},
	{[]string{"react", "vue", "angular", "svelte", "next.js", "frontend"}, "Web Frontend"},
	{[]string{"rest api", "graphql", "express", "fastapi", "microservice", "backend"}, "Web Backend"},
	{[]string{"cli", "command line", "command-line", "terminal"}, "CLI Tool"},
	{[]string{"game", "unity", "godot", "pygame"}, "Game"},
	{[]string{"library", "package", "sdk", "framework"}, "Library"},
	{[]string{"bot", "discord", "telegram", "slack"}, "Bot"},
	{[]string{"data analysis", "jupyter", "pandas", "visualization"}, "Data Science"},
	{[]string{"docker", "kubernetes", "terraform", "ansible", "devops"}, "DevOps"},
}

// AnalyzeProjectType derives a coarse project category from README text
// by matching an ordered keyword rule list. The first matching rule wins;
// unmatched or empty READMEs classify as DefaultProjectType.
func AnalyzeProjectType(readme string) string {
	if readme == "" {
		return DefaultProjectType
	}

	lower := strings.ToLower(readme)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return DefaultProjectType
}
