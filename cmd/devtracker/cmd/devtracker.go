// Package cmd implements the devtracker command line interface.
package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"devtracker/internal/analytics"
	"devtracker/internal/cache"
	"devtracker/internal/config"
	"devtracker/internal/credentials"
	"devtracker/internal/github"
	"devtracker/internal/goals"
	"devtracker/internal/insights"
	"devtracker/internal/markdown"
	"devtracker/internal/statscard"
	"devtracker/internal/store"
	"devtracker/internal/tui"
	"devtracker/internal/utils"
)

// Version is set at build time
var Version = "dev"

// Config holds CLI configuration and test overrides.
type Config struct {
	Verbose      bool
	OutputFormat string
	ConfigPath   string
	DataDir      string // Overrides config paths (for testing)

	// Service overrides (for testing)
	GitHubBaseURL string
	AIBaseURL     string
	TokenReader   io.Reader           // replaces the hidden terminal prompt
	Keyring       credentials.Keyring // replaces the system keyring
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewDevTracker(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// app bundles the wired-up services behind the commands.
type app struct {
	cfg     *config.Config
	store   *store.Store
	caches  *cache.Manager
	goals   *goals.Store
	github  *github.Client
	ai      *insights.AIClient
	creds   *credentials.Manager
	tracker *analytics.Tracker
}

func (a *app) Close() {
	if a.tracker != nil {
		_ = a.tracker.Close()
	}
	if a.goals != nil {
		_ = a.goals.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// openApp loads configuration and wires up every service.
func openApp(cliCfg *Config) (*app, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cliCfg.DataDir != "" {
		cfg.StorePath = filepath.Join(cliCfg.DataDir, "devtracker.db")
		cfg.Goals.Path = filepath.Join(cliCfg.DataDir, "goals.db")
	}
	if cliCfg.GitHubBaseURL != "" {
		cfg.GitHub.BaseURL = cliCfg.GitHubBaseURL
	}
	if cliCfg.AIBaseURL != "" {
		cfg.AI.BaseURL = cliCfg.AIBaseURL
	}
	if cliCfg.OutputFormat != "" {
		cfg.OutputFormat = cliCfg.OutputFormat
	}

	kv, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	goalStore, err := goals.Open(cfg.Goals.Path)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	analyticsPath := filepath.Join(filepath.Dir(cfg.StorePath), "analytics.db")
	tracker, err := analytics.NewTracker(analyticsPath, analytics.IsEnabledFromEnv(cfg.Analytics.Enabled))
	if err != nil {
		_ = goalStore.Close()
		_ = kv.Close()
		return nil, err
	}

	var credOpts []credentials.ManagerOption
	if cliCfg.Keyring != nil {
		credOpts = append(credOpts, credentials.WithKeyring(cliCfg.Keyring))
	}

	a := &app{
		cfg:   cfg,
		store: kv,
		caches: cache.NewManager(kv, cache.WithTTLs(cache.TTLs{
			Snapshot: config.CacheTTL(cfg.Cache.SnapshotTTL, 0),
			Repo:     config.CacheTTL(cfg.Cache.RepoTTL, 0),
			Profile:  config.CacheTTL(cfg.Cache.ProfileTTL, 0),
			Insights: config.CacheTTL(cfg.Cache.InsightsTTL, 0),
		})),
		goals:   goalStore,
		creds:   credentials.NewManager(credOpts...),
		tracker: tracker,
		ai:      insights.NewAIClient(insights.AIConfig{BaseURL: cfg.AI.BaseURL}),
	}

	a.github = github.New(github.Config{
		BaseURL:     cfg.GitHub.BaseURL,
		MaxRetries:  cfg.GitHub.MaxRetries,
		BaseDelay:   cfg.BaseDelay(time.Second),
		PacingDelay: time.Duration(cfg.GitHub.PacingMs) * time.Millisecond,
	})

	// Restore the stored token for the connected account, if any
	if username := a.caches.Username(context.Background()); username != "" {
		if info, err := a.creds.Get(context.Background(), username); err == nil && info.Found {
			a.github.SetToken(info.Token)
		}
	}

	return a, nil
}

// connectedUsername resolves the username argument or the connected
// account, erroring when neither is available.
func (a *app) connectedUsername(ctx context.Context, args []string) (string, error) {
	if len(args) > 0 {
		if err := utils.ValidateUsername(args[0]); err != nil {
			return "", err
		}
		return strings.TrimSpace(args[0]), nil
	}
	if username := a.caches.Username(ctx); username != "" {
		return username, nil
	}
	return "", utils.ErrNotConnected()
}

// snapshot returns the cached per-user snapshot or fetches it live.
// A failed profile lookup errors without writing anything to the cache.
func (a *app) snapshot(ctx context.Context, username string) (*cache.Snapshot, error) {
	if snap, ok := a.caches.Snapshot(ctx, username); ok {
		utils.Debugf("snapshot cache hit for %s", username)
		return snap, nil
	}

	profile, err := a.github.FetchUserProfile(ctx, username)
	if err != nil {
		return nil, err
	}
	repos, err := a.github.FetchUserRepos(ctx, username)
	if err != nil {
		return nil, err
	}

	snap := cache.Snapshot{
		Username: username,
		Repos:    repos,
		Profile:  profile,
	}
	a.caches.SetSnapshot(ctx, snap)
	a.caches.SetProfile(ctx, username, *profile)
	return &snap, nil
}

// repoDetails returns the cached per-repo bundle or fetches it live.
func (a *app) repoDetails(ctx context.Context, username, repo string) (*github.RepoDetails, error) {
	if details, ok := a.caches.RepoDetails(ctx, username, repo); ok {
		utils.Debugf("repo cache hit for %s/%s", username, repo)
		return details, nil
	}

	details, err := a.github.FetchRepoDetails(ctx, username, repo)
	if err != nil {
		return nil, err
	}
	a.caches.SetRepoDetails(ctx, *details)
	return details, nil
}

// NewDevTracker creates the root command with injectable IO
func NewDevTracker(stdout, stderr io.Writer, cliCfg *Config) *cobra.Command {
	if cliCfg == nil {
		cliCfg = &Config{}
	}

	rootCmd := &cobra.Command{
		Use:     "devtracker",
		Short:   "Track learning goals against your GitHub activity",
		Long:    "devtracker keeps your learning goals locally and measures them against your GitHub repositories, with optional AI insights.",
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			utils.SetVerboseMode(verbose || cliCfg.Verbose)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().Bool("json", false, "JSON output")
	rootCmd.PersistentFlags().String("config", "", "config file path")

	rootCmd.AddCommand(
		newGoalCmd(stdout, cliCfg),
		newConnectCmd(stdout, cliCfg),
		newLogoutCmd(stdout, cliCfg),
		newStatsCmd(stdout, cliCfg),
		newInsightsCmd(stdout, cliCfg),
		newRepoCmd(stdout, cliCfg),
		newCardCmd(stdout, cliCfg),
		newUsageCmd(stdout, cliCfg),
		newTUICmd(cliCfg),
	)

	return rootCmd
}

// withApp opens the app, runs fn under analytics tracking, and closes.
func withApp(cmd *cobra.Command, cliCfg *Config, name, sub string, fn func(ctx context.Context, a *app) error) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cliCfg.ConfigPath = path
	}

	a, err := openApp(cliCfg)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := collectFlags(cmd)
	return a.tracker.TrackCommand(name, sub, flags, func() error {
		return fn(cmd.Context(), a)
	})
}

func collectFlags(cmd *cobra.Command) []string {
	var flags []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		flags = append(flags, "--"+f.Name)
	})
	return flags
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- goal commands ---

func newGoalCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	goalCmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage learning goals",
	}

	var description, category string
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a learning goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "goal", "add", func(ctx context.Context, a *app) error {
				goal, err := a.goals.Create(ctx, args[0], description, category)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(stdout, goal)
				}
				_, _ = fmt.Fprintf(stdout, "Added goal %q (%s)\n", goal.Title, goal.Category)
				return nil
			})
		},
	}
	addCmd.Flags().StringVarP(&description, "description", "d", "", "goal description")
	addCmd.Flags().StringVarP(&category, "category", "c", "", "category: "+strings.Join(utils.GoalCategories, ", "))

	var listCategory string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "goal", "list", func(ctx context.Context, a *app) error {
				all, err := a.goals.List(ctx, listCategory)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(stdout, all)
				}
				if len(all) == 0 {
					_, _ = fmt.Fprintln(stdout, "No goals yet. Add one with 'devtracker goal add'.")
					return nil
				}
				for _, g := range all {
					check := "[ ]"
					if g.Completed {
						check = "[x]"
					}
					_, _ = fmt.Fprintf(stdout, "%s %s (%s)", check, g.Title, g.Category)
					if len(g.Progress) > 0 {
						_, _ = fmt.Fprintf(stdout, " - %d notes", len(g.Progress))
					}
					_, _ = fmt.Fprintln(stdout)
				}
				return nil
			})
		},
	}
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "filter by category")

	doneCmd := &cobra.Command{
		Use:   "done <title-or-id>",
		Short: "Toggle a goal's completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "goal", "done", func(ctx context.Context, a *app) error {
				goal, err := resolveGoal(ctx, a, args[0])
				if err != nil {
					return err
				}
				updated, err := a.goals.ToggleComplete(ctx, goal.ID)
				if err != nil {
					return err
				}
				state := "open"
				if updated.Completed {
					state = "completed"
				}
				_, _ = fmt.Fprintf(stdout, "Goal %q is now %s\n", updated.Title, state)
				return nil
			})
		},
	}

	noteCmd := &cobra.Command{
		Use:   "note <title-or-id> <text>",
		Short: "Append a progress note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "goal", "note", func(ctx context.Context, a *app) error {
				goal, err := resolveGoal(ctx, a, args[0])
				if err != nil {
					return err
				}
				updated, err := a.goals.AddProgress(ctx, goal.ID, args[1])
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Noted. %q has %d progress notes\n", updated.Title, len(updated.Progress))
				return nil
			})
		},
	}

	var newTitle, newDescription, newCategory string
	updateCmd := &cobra.Command{
		Use:   "update <title-or-id>",
		Short: "Edit a goal's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "goal", "update", func(ctx context.Context, a *app) error {
				goal, err := resolveGoal(ctx, a, args[0])
				if err != nil {
					return err
				}
				title := goal.Title
				if newTitle != "" {
					title = newTitle
				}
				desc := goal.Description
				if cmd.Flags().Changed("description") {
					desc = newDescription
				}
				cat := goal.Category
				if newCategory != "" {
					cat = newCategory
				}
				updated, err := a.goals.Update(ctx, goal.ID, title, desc, cat)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Updated goal %q\n", updated.Title)
				return nil
			})
		},
	}
	updateCmd.Flags().StringVarP(&newTitle, "title", "t", "", "new title")
	updateCmd.Flags().StringVarP(&newDescription, "description", "d", "", "new description")
	updateCmd.Flags().StringVarP(&newCategory, "category", "c", "", "new category")

	deleteCmd := &cobra.Command{
		Use:   "delete <title-or-id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "goal", "delete", func(ctx context.Context, a *app) error {
				goal, err := resolveGoal(ctx, a, args[0])
				if err != nil {
					return err
				}
				if err := a.goals.Delete(ctx, goal.ID); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Deleted goal %q\n", goal.Title)
				return nil
			})
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <title-or-id>",
		Short: "Ask the AI backend to review a goal against your GitHub activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "goal", "analyze", func(ctx context.Context, a *app) error {
				goal, err := resolveGoal(ctx, a, args[0])
				if err != nil {
					return err
				}
				username, err := a.connectedUsername(ctx, nil)
				if err != nil {
					return err
				}
				snap, err := a.snapshot(ctx, username)
				if err != nil {
					return err
				}
				githubContext := insights.BuildContext(insights.ContextInput{
					Username: username,
					Repos:    snap.Repos,
				})
				analysis, err := a.ai.AnalyzeGoal(ctx, *goal, githubContext)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(stdout, analysis)
				}
				_, _ = fmt.Fprintln(stdout, analysis.Assessment)
				for _, step := range analysis.NextSteps {
					_, _ = fmt.Fprintf(stdout, "  - %s\n", step)
				}
				return nil
			})
		},
	}

	var exportPath string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export goals as a markdown checklist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "goal", "export", func(ctx context.Context, a *app) error {
				all, err := a.goals.List(ctx, "")
				if err != nil {
					return err
				}
				doc := markdown.FormatGoals("Learning Goals", all)
				if exportPath == "" {
					_, _ = fmt.Fprint(stdout, doc)
					return nil
				}
				if err := os.WriteFile(exportPath, []byte(doc), 0o644); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(stdout, "Exported %d goals to %s\n", len(all), exportPath)
				return nil
			})
		},
	}
	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "write to a file instead of stdout")

	goalCmd.AddCommand(addCmd, listCmd, doneCmd, noteCmd, updateCmd, deleteCmd, analyzeCmd, exportCmd)
	return goalCmd
}

// resolveGoal finds a goal by exact ID first, then by title.
func resolveGoal(ctx context.Context, a *app, ref string) (*goals.Goal, error) {
	goal, err := a.goals.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if goal != nil {
		return goal, nil
	}
	goal, err = a.goals.GetByTitle(ctx, ref)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, utils.ErrGoalNotFound(ref)
	}
	return goal, nil
}

// --- account commands ---

func newConnectCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	var tokenFlag string
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect a GitHub account",
		Long:  "Stores a GitHub access token in the system keyring and resolves the canonical login name.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "connect", "", func(ctx context.Context, a *app) error {
				token := strings.TrimSpace(tokenFlag)
				if token == "" {
					var err error
					token, err = promptToken(stdout, cliCfg.TokenReader)
					if err != nil {
						return err
					}
				}
				if token == "" {
					return utils.ErrTokenNotFound()
				}

				// Resolve the canonical login for this token
				login, err := a.github.FetchAuthenticatedUser(ctx, token)
				if err != nil {
					return utils.ErrAuthenticationFailed()
				}

				if err := a.creds.Set(ctx, login, token); err != nil {
					return err
				}
				if err := a.caches.SetUsername(ctx, login); err != nil {
					return err
				}
				a.github.SetToken(token)

				_, _ = fmt.Fprintf(stdout, "Connected as %s\n", login)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tokenFlag, "token", "", "GitHub access token (prompted when omitted)")
	return cmd
}

// promptToken reads a token without echoing when on a terminal.
func promptToken(stdout io.Writer, override io.Reader) (string, error) {
	_, _ = fmt.Fprint(stdout, "GitHub access token: ")

	if override != nil {
		scanner := bufio.NewScanner(override)
		if scanner.Scan() {
			return strings.TrimSpace(scanner.Text()), nil
		}
		return "", scanner.Err()
	}

	raw, err := term.ReadPassword(int(syscall.Stdin))
	_, _ = fmt.Fprintln(stdout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func newLogoutCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Disconnect the GitHub account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "logout", "", func(ctx context.Context, a *app) error {
				username := a.caches.Username(ctx)
				if username == "" {
					_, _ = fmt.Fprintln(stdout, "No account connected.")
					return nil
				}
				if err := a.creds.Delete(ctx, username); err != nil {
					utils.Warnf("failed to remove stored token: %v", err)
				}
				a.caches.Logout(ctx)
				a.github.ClearToken()
				_, _ = fmt.Fprintf(stdout, "Disconnected %s\n", username)
				return nil
			})
		},
	}
}

// --- insight commands ---

func newStatsCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	var repoLimit int
	cmd := &cobra.Command{
		Use:   "stats [username]",
		Short: "Show language, commit and skill statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "stats", "", func(ctx context.Context, a *app) error {
				username, err := a.connectedUsername(ctx, args)
				if err != nil {
					return err
				}
				snap, err := a.snapshot(ctx, username)
				if err != nil {
					return err
				}

				repos := snap.Repos
				if len(repos) > repoLimit {
					repos = repos[:repoLimit]
				}

				var langMaps []map[string]int64
				var commits []github.Commit
				for _, r := range repos {
					details, err := a.repoDetails(ctx, username, r.Name)
					if err != nil {
						utils.Warnf("skipping %s: %v", r.Name, err)
						continue
					}
					langMaps = append(langMaps, details.Languages)
					commits = append(commits, details.Commits...)
				}

				usage := insights.LanguageUsage(langMaps)
				commitStats := insights.AnalyzeCommits(commits, time.Now())
				skills := insights.SkillLevels(langMaps)

				if jsonOutput(cmd) {
					return printJSON(stdout, map[string]any{
						"username":  username,
						"languages": usage,
						"commits":   commitStats,
						"skills":    skills,
					})
				}

				_, _ = fmt.Fprintf(stdout, "Stats for %s (%d repos)\n\n", username, len(snap.Repos))
				_, _ = fmt.Fprintln(stdout, "Languages:")
				for _, s := range usage {
					_, _ = fmt.Fprintf(stdout, "  %-14s %5.1f%%\n", s.Language, s.Percentage)
				}
				_, _ = fmt.Fprintf(stdout, "\nCommits: %d total, %d today, %d this week, %d this month\n",
					commitStats.Total, commitStats.Daily, commitStats.Weekly, commitStats.Monthly)
				_, _ = fmt.Fprintf(stdout, "Streak: %d current, %d longest (estimated)\n",
					commitStats.CurrentStreak, commitStats.LongestStreak)
				if len(skills) > 0 {
					_, _ = fmt.Fprintln(stdout, "\nSkill levels:")
					for _, s := range skills {
						_, _ = fmt.Fprintf(stdout, "  %-14s %4.1f/10\n", s.Language, s.Level)
					}
					rec := insights.RecommendFor(skills[0].Language)
					_, _ = fmt.Fprintf(stdout, "\nNext for %s:\n", skills[0].Language)
					for _, skill := range rec.NextSkills {
						_, _ = fmt.Fprintf(stdout, "  - %s\n", skill)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&repoLimit, "repos", 10, "how many recent repos to analyze")
	return cmd
}

func newInsightsCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	var refresh bool
	var repoLimit int
	cmd := &cobra.Command{
		Use:   "insights [username]",
		Short: "Fetch AI insights for a GitHub profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "insights", "", func(ctx context.Context, a *app) error {
				username, err := a.connectedUsername(ctx, args)
				if err != nil {
					return err
				}

				if !refresh {
					if raw, ok := a.caches.Insights(ctx, username); ok {
						utils.Debugf("insights cache hit for %s", username)
						return renderInsights(stdout, cmd, raw)
					}
				}

				snap, err := a.snapshot(ctx, username)
				if err != nil {
					return err
				}

				repos := snap.Repos
				if len(repos) > repoLimit {
					repos = repos[:repoLimit]
				}
				var details []github.RepoDetails
				for _, r := range repos {
					d, err := a.repoDetails(ctx, username, r.Name)
					if err != nil {
						utils.Warnf("skipping %s: %v", r.Name, err)
						continue
					}
					details = append(details, *d)
				}

				report := a.ai.FetchInsights(ctx, insights.ContextInput{
					Username:    username,
					Repos:       snap.Repos,
					RepoDetails: details,
				})

				raw, err := json.Marshal(report)
				if err != nil {
					return err
				}
				a.caches.SetInsights(ctx, username, raw)
				return renderInsights(stdout, cmd, raw)
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the insights cache")
	cmd.Flags().IntVar(&repoLimit, "repos", 5, "how many recent repos to send for analysis")
	return cmd
}

func renderInsights(stdout io.Writer, cmd *cobra.Command, raw json.RawMessage) error {
	if jsonOutput(cmd) {
		_, err := stdout.Write(append(raw, '\n'))
		return err
	}

	var report insights.InsightReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return fmt.Errorf("stored insights are unreadable: %w", err)
	}

	_, _ = fmt.Fprintf(stdout, "AI insights for %s\n", report.Username)
	for _, outcome := range report.Facets {
		title := strings.ReplaceAll(string(outcome.Facet), "_", " ")
		_, _ = fmt.Fprintf(stdout, "\n%s:\n", title)
		if outcome.Content == "" {
			_, _ = fmt.Fprintln(stdout, "  (unavailable)")
			continue
		}
		_, _ = fmt.Fprintf(stdout, "  %s\n", outcome.Content)
	}
	return nil
}

func newRepoCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	var analyze bool
	cmd := &cobra.Command{
		Use:   "repo <name> [username]",
		Short: "Show commits, languages and README summary for one repo",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "repo", "", func(ctx context.Context, a *app) error {
				username, err := a.connectedUsername(ctx, args[1:])
				if err != nil {
					return err
				}
				details, err := a.repoDetails(ctx, username, args[0])
				if err != nil {
					return err
				}

				if jsonOutput(cmd) && !analyze {
					return printJSON(stdout, details)
				}

				_, _ = fmt.Fprintf(stdout, "%s/%s - %s\n", details.Username, details.RepoName, details.ProjectType)
				if len(details.Languages) > 0 {
					usage := insights.LanguageUsage([]map[string]int64{details.Languages})
					_, _ = fmt.Fprintln(stdout, "Languages:")
					for _, s := range usage {
						_, _ = fmt.Fprintf(stdout, "  %-14s %5.1f%%\n", s.Language, s.Percentage)
					}
				}
				if len(details.Commits) > 0 {
					_, _ = fmt.Fprintln(stdout, "Recent commits:")
					for _, c := range details.Commits {
						_, _ = fmt.Fprintf(stdout, "  %.7s %s\n", c.SHA, firstLine(c.Message))
					}
				}
				if details.FileCount > 0 {
					_, _ = fmt.Fprintf(stdout, "Files: %d\n", details.FileCount)
				}
				if !details.HasReadme {
					_, _ = fmt.Fprintln(stdout, "No README.")
				}

				if analyze {
					analysis, err := a.ai.AnalyzeRepo(ctx, *details)
					if err != nil {
						return err
					}
					if jsonOutput(cmd) {
						return printJSON(stdout, analysis)
					}
					_, _ = fmt.Fprintf(stdout, "\nAI review: %s\n", analysis.Summary)
					for _, s := range analysis.Strengths {
						_, _ = fmt.Fprintf(stdout, "  + %s\n", s)
					}
					for _, s := range analysis.Improvements {
						_, _ = fmt.Fprintf(stdout, "  - %s\n", s)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&analyze, "analyze", false, "ask the AI backend to review the repo")
	return cmd
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func newCardCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	var theme string
	var check bool
	cmd := &cobra.Command{
		Use:   "card [username]",
		Short: "Print stats-card image URLs for a profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "card", "", func(ctx context.Context, a *app) error {
				username, err := a.connectedUsername(ctx, args)
				if err != nil {
					return err
				}

				cards := statscard.New(statscard.Config{Profiles: a.github})
				opts := statscard.Options{Theme: theme, ShowIcons: true}

				_, _ = fmt.Fprintln(stdout, "Stats:     "+cards.StatsURL(username, opts))
				_, _ = fmt.Fprintln(stdout, "Languages: "+cards.LanguagesURL(username, statscard.Options{Theme: theme, Compact: true}))
				_, _ = fmt.Fprintln(stdout, "Streak:    "+cards.StreakURL(username, opts))

				if check {
					avail, err := cards.CheckAvailability(ctx, username)
					if err != nil {
						return err
					}
					if avail.Available() {
						_, _ = fmt.Fprintln(stdout, "All card services reachable.")
					} else {
						_, _ = fmt.Fprintf(stdout, "Availability: stats=%v streak=%v\n", avail.StatsCard, avail.StreakCard)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "card theme")
	cmd.Flags().BoolVar(&check, "check", false, "probe card service availability")
	return cmd
}

func newUsageCmd(stdout io.Writer, cliCfg *Config) *cobra.Command {
	var cleanup bool
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show local command usage analytics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "usage", "", func(ctx context.Context, a *app) error {
				if cleanup {
					deleted, err := a.tracker.Cleanup(a.cfg.Analytics.RetentionDays)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(stdout, "Removed %d old events\n", deleted)
				}

				summaries, err := a.tracker.Summary()
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return printJSON(stdout, summaries)
				}
				if len(summaries) == 0 {
					_, _ = fmt.Fprintln(stdout, "No usage recorded yet.")
					return nil
				}
				for _, s := range summaries {
					_, _ = fmt.Fprintf(stdout, "%-10s %4d runs, %d ok, avg %dms\n",
						s.Command, s.Count, s.SuccessCount, s.AvgDurationMs)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "remove events past the retention window first")
	return cmd
}

func newTUICmd(cliCfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive goals dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cliCfg, "tui", "", func(ctx context.Context, a *app) error {
				program := tea.NewProgram(tui.New(a.goals), tea.WithAltScreen())
				_, err := program.Run()
				return err
			})
		},
	}
}
