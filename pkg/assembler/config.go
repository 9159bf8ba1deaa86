package assembler

import "time"

// Config holds the assembler limits.
type Config struct {
	// MaxChars is the serialized-size ceiling of a ContextBundle.
	MaxChars int `yaml:"max_chars" json:"max_chars"`

	// Truncation targets, applied in order memories, tasks, expenses.
	MemoryTruncate  int `yaml:"memory_truncate" json:"memory_truncate"`
	TaskTruncate    int `yaml:"task_truncate" json:"task_truncate"`
	ExpenseTruncate int `yaml:"expense_truncate" json:"expense_truncate"`

	// ExpenseDays is the expense window of a bundle.
	ExpenseDays int `yaml:"expense_days" json:"expense_days"`

	// SearchLimit memories are fetched for a query and KeepMemories kept after re-ranking.
	SearchLimit  int `yaml:"search_limit" json:"search_limit"`
	KeepMemories int `yaml:"keep_memories" json:"keep_memories"`

	// RecentWindow marks memories accessed or updated within it as recent.
	RecentWindow time.Duration `yaml:"recent_window" json:"recent_window"`

	// FlatDumpLimit memories of FlatDumpCategory are included when there is no query.
	FlatDumpLimit    int    `yaml:"flat_dump_limit" json:"flat_dump_limit"`
	FlatDumpCategory string `yaml:"flat_dump_category" json:"flat_dump_category"`

	// PreferenceTTL is how long a cached preference summary is reused.
	PreferenceTTL time.Duration `yaml:"preference_ttl" json:"preference_ttl"`

	// PreferenceExpenseDays is the expense window of the preference summary.
	PreferenceExpenseDays int `yaml:"preference_expense_days" json:"preference_expense_days"`
}

// DefaultConfig returns the default assembler configuration.
func DefaultConfig() Config {
	return Config{
		MaxChars:              8000,
		MemoryTruncate:        3,
		TaskTruncate:          10,
		ExpenseTruncate:       20,
		ExpenseDays:           7,
		SearchLimit:           10,
		KeepMemories:          5,
		RecentWindow:          30 * 24 * time.Hour,
		FlatDumpLimit:         20,
		FlatDumpCategory:      "general",
		PreferenceTTL:         6 * time.Hour,
		PreferenceExpenseDays: 30,
	}
}
