// Package assembler gathers domain snapshots, memories and preferences into a
// single size-bounded ContextBundle for the answer pipeline.
package assembler

import (
	"encoding/json"
	"time"

	"github.com/lifemate/lifemate-go/pkg/domain"
)

// MemoryItem is a memory as it appears in a ContextBundle.
type MemoryItem struct {
	Key       string  `json:"key"`
	Category  string  `json:"category"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
	Score     float64 `json:"score,omitempty"`
}

// ContextBundle is the per-request context payload. It is never persisted.
type ContextBundle struct {
	Tasks       []domain.Task          `json:"tasks"`
	Expenses    []domain.Expense       `json:"expenses"`
	StudyGoals  []domain.StudyGoal     `json:"study_goals"`
	Memories    []MemoryItem           `json:"memories"`
	Preferences map[string]interface{} `json:"preferences"`
	GeneratedAt time.Time              `json:"generated_at"`
}

// Serialize returns the JSON form of b.
func (b *ContextBundle) Serialize() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Size returns the serialized length of b in characters, or -1 if b cannot be serialized.
func (b *ContextBundle) Size() int {
	s, err := b.Serialize()
	if err != nil {
		return -1
	}
	return len([]rune(s))
}

// DailySummary is the end-of-day bundle.
type DailySummary struct {
	Date           string        `json:"date"`
	CompletedTasks []domain.Task `json:"completed_tasks"`
	ExpenseTotal   float64       `json:"expense_total"`
	ExpenseCount   int           `json:"expense_count"`
}
