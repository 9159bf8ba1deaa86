// Package domain defines the read-only task, expense and study-goal data the
// assistant reasons over, and the Source interface that supplies it.
package domain

import (
	"context"
	"time"
)

// DateLayout is the layout of calendar dates (due dates, spend dates).
const DateLayout = "2006-01-02"

// Task priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Task is a to-do item.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueOn       string     `json:"due_on"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Done reports whether the task is completed.
func (t Task) Done() bool {
	return t.Status == StatusDone
}

// Expense is a single spending entry.
type Expense struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	SpentOn     string  `json:"spent_on"`
}

// StudyGoal tracks progress on a subject.
type StudyGoal struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Subject    string  `json:"subject"`
	Progress   float64 `json:"progress"`
	TargetDate string  `json:"target_date,omitempty"`
}

// Source supplies domain data for one user. Implementations return plain,
// already-validated records.
type Source interface {
	// TodayTasks returns tasks due today.
	TodayTasks(ctx context.Context, userID string) ([]Task, error)

	// RecentExpenses returns expenses spent within the last days days,
	// today included; days=1 returns only today's expenses.
	RecentExpenses(ctx context.Context, userID string, days int) ([]Expense, error)

	// StudyGoals returns the user's study goals.
	StudyGoals(ctx context.Context, userID string) ([]StudyGoal, error)
}

// Today returns the calendar date of now in DateLayout.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}

// SinceDate returns the first date included in a window of days ending today.
func SinceDate(now time.Time, days int) string {
	if days < 1 {
		days = 1
	}
	return now.UTC().AddDate(0, 0, -(days - 1)).Format(DateLayout)
}
