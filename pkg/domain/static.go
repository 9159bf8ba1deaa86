package domain

import (
	"context"
	"sync"
	"time"
)

// StaticSource is an in-memory Source, used by examples and tests.
type StaticSource struct {
	mu       sync.RWMutex
	tasks    map[string][]Task
	expenses map[string][]Expense
	goals    map[string][]StudyGoal
	now      func() time.Time
}

// NewStaticSource creates an empty StaticSource. A nil now uses time.Now.
func NewStaticSource(now func() time.Time) *StaticSource {
	if now == nil {
		now = time.Now
	}
	return &StaticSource{
		tasks:    make(map[string][]Task),
		expenses: make(map[string][]Expense),
		goals:    make(map[string][]StudyGoal),
		now:      now,
	}
}

// AddTask adds a task for userID.
func (s *StaticSource) AddTask(userID string, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[userID] = append(s.tasks[userID], task)
}

// AddExpense adds an expense for userID.
func (s *StaticSource) AddExpense(userID string, expense Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[userID] = append(s.expenses[userID], expense)
}

// AddStudyGoal adds a study goal for userID.
func (s *StaticSource) AddStudyGoal(userID string, goal StudyGoal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[userID] = append(s.goals[userID], goal)
}

// TodayTasks implements Source.
func (s *StaticSource) TodayTasks(ctx context.Context, userID string) ([]Task, error) {
	today := Today(s.now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Task
	for _, task := range s.tasks[userID] {
		if task.DueOn == today {
			out = append(out, task)
		}
	}
	return out, nil
}

// RecentExpenses implements Source.
func (s *StaticSource) RecentExpenses(ctx context.Context, userID string, days int) ([]Expense, error) {
	since := SinceDate(s.now(), days)
	today := Today(s.now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Expense
	for _, expense := range s.expenses[userID] {
		if expense.SpentOn >= since && expense.SpentOn <= today {
			out = append(out, expense)
		}
	}
	return out, nil
}

// StudyGoals implements Source.
func (s *StaticSource) StudyGoals(ctx context.Context, userID string) ([]StudyGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StudyGoal, len(s.goals[userID]))
	copy(out, s.goals[userID])
	return out, nil
}
