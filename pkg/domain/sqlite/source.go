// Package sqlite provides a SQLite-backed domain.Source.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lifemate/lifemate-go/pkg/domain"
)

// Source implements domain.Source using SQLite as the backend.
type Source struct {
	// db is the SQLite database connection.
	db *sql.DB

	now func() time.Time
}

// Config contains configuration for creating a SQLite domain Source.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// Now overrides the clock used to resolve "today" (default time.Now).
	Now func() time.Time
}

// NewSource opens (and if needed creates) the domain database.
//
// Parameters:
//   - cfg: Configuration containing the database path
//
// Returns:
//   - *Source: The source instance
//   - error: Error if database connection or table creation fails
func NewSource(cfg *Config) (*Source, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	source := &Source{
		db:  db,
		now: now,
	}

	if err := source.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return source, nil
}

// initTables initializes the database table structure.
func (s *Source) initTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			priority TEXT NOT NULL DEFAULT 'medium',
			status TEXT NOT NULL DEFAULT 'todo',
			due_on TEXT NOT NULL,
			completed_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_due ON tasks(user_id, due_on)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			amount REAL NOT NULL,
			category TEXT NOT NULL,
			description TEXT,
			spent_on TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_spent ON expenses(user_id, spent_on)`,
		`CREATE TABLE IF NOT EXISTS study_goals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			subject TEXT NOT NULL,
			progress REAL NOT NULL DEFAULT 0,
			target_date TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_study_goals_user ON study_goals(user_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// AddTask inserts a task and returns its id.
func (s *Source) AddTask(ctx context.Context, userID string, task domain.Task) (int64, error) {
	var completedAt interface{}
	if task.CompletedAt != nil {
		completedAt = task.CompletedAt.UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, priority, status, due_on, completed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, task.Title, task.Priority, task.Status, task.DueOn, completedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert task: %w", err)
	}
	return result.LastInsertId()
}

// AddExpense inserts an expense and returns its id.
func (s *Source) AddExpense(ctx context.Context, userID string, expense domain.Expense) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount, category, description, spent_on) VALUES (?, ?, ?, ?, ?)`,
		userID, expense.Amount, expense.Category, expense.Description, expense.SpentOn)
	if err != nil {
		return 0, fmt.Errorf("failed to insert expense: %w", err)
	}
	return result.LastInsertId()
}

// AddStudyGoal inserts a study goal and returns its id.
func (s *Source) AddStudyGoal(ctx context.Context, userID string, goal domain.StudyGoal) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO study_goals (user_id, title, subject, progress, target_date) VALUES (?, ?, ?, ?, ?)`,
		userID, goal.Title, goal.Subject, goal.Progress, goal.TargetDate)
	if err != nil {
		return 0, fmt.Errorf("failed to insert study goal: %w", err)
	}
	return result.LastInsertId()
}

// TodayTasks implements domain.Source.
func (s *Source) TodayTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, priority, status, due_on, completed_at
		FROM tasks
		WHERE user_id = ? AND due_on = ?
		ORDER BY id
	`, userID, domain.Today(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []domain.Task
	for rows.Next() {
		var task domain.Task
		var completedAt sql.NullTime
		if err := rows.Scan(&task.ID, &task.Title, &task.Priority, &task.Status, &task.DueOn, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if completedAt.Valid {
			t := completedAt.Time.UTC()
			task.CompletedAt = &t
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tasks, nil
}

// RecentExpenses implements domain.Source.
func (s *Source) RecentExpenses(ctx context.Context, userID string, days int) ([]domain.Expense, error) {
	now := s.now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, category, description, spent_on
		FROM expenses
		WHERE user_id = ? AND spent_on >= ? AND spent_on <= ?
		ORDER BY spent_on DESC, id
	`, userID, domain.SinceDate(now, days), domain.Today(now))
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var expenses []domain.Expense
	for rows.Next() {
		var expense domain.Expense
		var description sql.NullString
		if err := rows.Scan(&expense.ID, &expense.Amount, &expense.Category, &description, &expense.SpentOn); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expense.Description = description.String
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return expenses, nil
}

// StudyGoals implements domain.Source.
func (s *Source) StudyGoals(ctx context.Context, userID string) ([]domain.StudyGoal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, subject, progress, target_date
		FROM study_goals
		WHERE user_id = ?
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query study goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var goals []domain.StudyGoal
	for rows.Next() {
		var goal domain.StudyGoal
		var targetDate sql.NullString
		if err := rows.Scan(&goal.ID, &goal.Title, &goal.Subject, &goal.Progress, &targetDate); err != nil {
			return nil, fmt.Errorf("failed to scan study goal: %w", err)
		}
		goal.TargetDate = targetDate.String
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return goals, nil
}

// Close closes the database connection.
func (s *Source) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
