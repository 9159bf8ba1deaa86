package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemate/lifemate-go/pkg/domain"
	domainSQLite "github.com/lifemate/lifemate-go/pkg/domain/sqlite"
)

func setupSourceTest(t *testing.T) (*domainSQLite.Source, func()) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	src, err := domainSQLite.NewSource(&domainSQLite.Config{
		DBPath: filepath.Join(t.TempDir(), "domain.db"),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = src.Close()
	}
	return src, cleanup
}

func TestSource_TodayTasks(t *testing.T) {
	src, cleanup := setupSourceTest(t)
	defer cleanup()

	ctx := context.Background()
	done := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	_, err := src.AddTask(ctx, "u1", domain.Task{Title: "Pay rent", Priority: domain.PriorityHigh, Status: domain.StatusDone, DueOn: "2026-03-10", CompletedAt: &done})
	require.NoError(t, err)
	_, err = src.AddTask(ctx, "u1", domain.Task{Title: "Read chapter 3", Priority: domain.PriorityLow, Status: domain.StatusTodo, DueOn: "2026-03-10"})
	require.NoError(t, err)
	_, err = src.AddTask(ctx, "u1", domain.Task{Title: "Tomorrow", Priority: domain.PriorityLow, Status: domain.StatusTodo, DueOn: "2026-03-11"})
	require.NoError(t, err)

	tasks, err := src.TodayTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.True(t, tasks[0].Done())
	require.NotNil(t, tasks[0].CompletedAt)
	assert.True(t, tasks[0].CompletedAt.Equal(done))
	assert.Nil(t, tasks[1].CompletedAt)
}

func TestSource_RecentExpenses(t *testing.T) {
	src, cleanup := setupSourceTest(t)
	defer cleanup()

	ctx := context.Background()

	for _, e := range []domain.Expense{
		{Amount: 12.5, Category: "food", SpentOn: "2026-03-10"},
		{Amount: 30, Category: "transport", SpentOn: "2026-03-05"},
		{Amount: 99, Category: "rent", SpentOn: "2026-03-01"},
	} {
		_, err := src.AddExpense(ctx, "u1", e)
		require.NoError(t, err)
	}

	week, err := src.RecentExpenses(ctx, "u1", 7)
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.Equal(t, "food", week[0].Category)

	other, err := src.RecentExpenses(ctx, "u2", 7)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSource_StudyGoals(t *testing.T) {
	src, cleanup := setupSourceTest(t)
	defer cleanup()

	ctx := context.Background()

	_, err := src.AddStudyGoal(ctx, "u1", domain.StudyGoal{Title: "IELTS 7.5", Subject: "English", Progress: 55, TargetDate: "2026-06-01"})
	require.NoError(t, err)

	goals, err := src.StudyGoals(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "English", goals[0].Subject)
	assert.Equal(t, 55.0, goals[0].Progress)
	assert.Equal(t, "2026-06-01", goals[0].TargetDate)
}
