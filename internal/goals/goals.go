// Package goals stores learning goals in a local SQLite database.
package goals

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"devtracker/internal/utils"
)

// ProgressNote is a single dated progress entry on a goal.
type ProgressNote struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Goal is a tracked learning goal.
type Goal struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Completed   bool           `json:"completed"`
	Progress    []ProgressNote `json:"progress"`
	Created     time.Time      `json:"created"`
	Modified    time.Time      `json:"modified"`
}

// Store persists goals in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates a goal store at path and initializes the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// initSchema creates the goals table if it doesn't exist
func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS goals (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			category TEXT DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0,
			progress TEXT NOT NULL DEFAULT '[]',
			created TEXT NOT NULL,
			modified TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_goals_category ON goals(category);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create stores a new goal. The title must be non-empty and the category,
// when given, must be one of the known categories. Nothing is persisted
// when validation fails.
func (s *Store) Create(ctx context.Context, title, description, category string) (*Goal, error) {
	if err := utils.ValidateGoalTitle(title); err != nil {
		return nil, err
	}
	if err := utils.ValidateGoalCategory(category); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "other"
	}

	now := time.Now().UTC()
	goal := &Goal{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Category:    category,
		Progress:    []ProgressNote{},
		Created:     now,
		Modified:    now,
	}

	nowStr := now.Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO goals (id, title, description, category, completed, progress, created, modified) VALUES (?, ?, ?, ?, 0, '[]', ?, ?)",
		goal.ID, goal.Title, goal.Description, goal.Category, nowStr, nowStr,
	)
	if err != nil {
		return nil, err
	}

	return goal, nil
}

// Get returns a goal by ID, or nil when it doesn't exist.
func (s *Store) Get(ctx context.Context, id string) (*Goal, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, description, category, completed, progress, created, modified FROM goals WHERE id = ?",
		id,
	)
	goal, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// GetByTitle returns the first goal whose title matches case-insensitively,
// or nil when none matches.
func (s *Store) GetByTitle(ctx context.Context, title string) (*Goal, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, title, description, category, completed, progress, created, modified FROM goals WHERE LOWER(title) = LOWER(?) ORDER BY created LIMIT 1",
		strings.TrimSpace(title),
	)
	goal, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// List returns all goals, newest first. Category filters when non-empty.
func (s *Store) List(ctx context.Context, category string) ([]Goal, error) {
	query := "SELECT id, title, description, category, completed, progress, created, modified FROM goals"
	var args []any
	if category != "" {
		if err := utils.ValidateGoalCategory(category); err != nil {
			return nil, err
		}
		query += " WHERE category = ?"
		args = append(args, strings.ToLower(strings.TrimSpace(category)))
	}
	query += " ORDER BY created DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var goals []Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *goal)
	}

	if goals == nil {
		goals = []Goal{}
	}
	return goals, rows.Err()
}

// Update modifies a goal's title, description and category. Empty title
// is rejected before anything is written.
func (s *Store) Update(ctx context.Context, id, title, description, category string) (*Goal, error) {
	if err := utils.ValidateGoalTitle(title); err != nil {
		return nil, err
	}
	if err := utils.ValidateGoalCategory(category); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "other"
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE goals SET title = ?, description = ?, category = ?, modified = ? WHERE id = ?",
		title, description, category, now, id,
	)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, utils.ErrGoalNotFound(id)
	}

	return s.Get(ctx, id)
}

// Delete removes a goal permanently.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM goals WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.ErrGoalNotFound(id)
	}
	return nil
}

// AddProgress appends a timestamped note to a goal's progress log.
func (s *Store) AddProgress(ctx context.Context, id, text string) (*Goal, error) {
	goal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, utils.ErrGoalNotFound(id)
	}

	now := time.Now().UTC()
	goal.Progress = append(goal.Progress, ProgressNote{
		Text:      text,
		Timestamp: now,
	})
	goal.Modified = now

	raw, err := json.Marshal(goal.Progress)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE goals SET progress = ?, modified = ? WHERE id = ?",
		string(raw), now.Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return nil, err
	}

	return goal, nil
}

// ToggleComplete flips a goal's completed flag and returns the new state.
func (s *Store) ToggleComplete(ctx context.Context, id string) (*Goal, error) {
	goal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, utils.ErrGoalNotFound(id)
	}

	goal.Completed = !goal.Completed
	goal.Modified = time.Now().UTC()

	completed := 0
	if goal.Completed {
		completed = 1
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE goals SET completed = ?, modified = ? WHERE id = ?",
		completed, goal.Modified.Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return nil, err
	}

	return goal, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(row scanner) (*Goal, error) {
	var g Goal
	var completed int
	var progressStr, createdStr, modifiedStr string

	if err := row.Scan(&g.ID, &g.Title, &g.Description, &g.Category, &completed, &progressStr, &createdStr, &modifiedStr); err != nil {
		return nil, err
	}

	g.Completed = completed != 0
	if err := json.Unmarshal([]byte(progressStr), &g.Progress); err != nil {
		// A corrupt progress log should not hide the goal itself
		utils.Warnf("goal %s has corrupt progress log, resetting: %v", g.ID, err)
		g.Progress = []ProgressNote{}
	}
	if g.Progress == nil {
		g.Progress = []ProgressNote{}
	}
	g.Created, _ = time.Parse(time.RFC3339Nano, createdStr)
	g.Modified, _ = time.Parse(time.RFC3339Nano, modifiedStr)

	return &g, nil
}
