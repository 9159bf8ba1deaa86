package assembler

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifemate/lifemate-go/pkg/domain"
	"github.com/lifemate/lifemate-go/pkg/memory"
	"github.com/lifemate/lifemate-go/pkg/storage"
)

// MemoryStore is the subset of memory.Store the assembler uses.
type MemoryStore interface {
	Search(ctx context.Context, query string, limit int, categories []string) ([]*storage.Record, error)
	List(ctx context.Context, category string, limit int) ([]*storage.Record, error)
	Get(ctx context.Context, key string) (*storage.Record, error)
	Store(ctx context.Context, in memory.StoreInput) (*storage.Record, error)
}

// Assembler builds ContextBundles.
type Assembler struct {
	source domain.Source
	store  MemoryStore
	config Config
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

// New creates an Assembler.
func New(source domain.Source, store MemoryStore, cfg Config, logger zerolog.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		source: source,
		store:  store,
		config: cfg,
		logger: logger.With().Str("component", "assembler").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build assembles the context for userID. A non-empty query selects memories
// by search; an empty one includes a flat dump of general memories. Build
// never fails: unavailable sections are left empty.
func (a *Assembler) Build(ctx context.Context, userID, query string) *ContextBundle {
	bundle := &ContextBundle{
		Tasks:       []domain.Task{},
		Expenses:    []domain.Expense{},
		StudyGoals:  []domain.StudyGoal{},
		Memories:    []MemoryItem{},
		GeneratedAt: a.now().UTC(),
	}

	if tasks, err := a.source.TodayTasks(ctx, userID); err != nil {
		a.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load tasks")
	} else if tasks != nil {
		bundle.Tasks = tasks
	}

	if expenses, err := a.source.RecentExpenses(ctx, userID, a.config.ExpenseDays); err != nil {
		a.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load expenses")
	} else if expenses != nil {
		bundle.Expenses = expenses
	}

	if goals, err := a.source.StudyGoals(ctx, userID); err != nil {
		a.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load study goals")
	} else if goals != nil {
		bundle.StudyGoals = goals
	}

	if query != "" {
		bundle.Memories = a.relevantMemories(ctx, query)
	} else {
		bundle.Memories = a.flatMemories(ctx)
	}

	bundle.Preferences = a.PreferenceSummary(ctx, userID)

	a.enforceLimit(bundle)
	return bundle
}

// relevantMemories searches, then puts recently used memories first and keeps
// the top KeepMemories.
func (a *Assembler) relevantMemories(ctx context.Context, query string) []MemoryItem {
	records, err := a.store.Search(ctx, query, a.config.SearchLimit, nil)
	if err != nil {
		a.logger.Warn().Err(err).Msg("memory search failed")
		return []MemoryItem{}
	}

	now := a.now().UTC()
	recent := func(rec *storage.Record) bool {
		return now.Sub(rec.LastAccessedAt) <= a.config.RecentWindow ||
			now.Sub(rec.UpdatedAt) <= a.config.RecentWindow
	}

	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := recent(records[i]), recent(records[j])
		if ri != rj {
			return ri
		}
		return records[i].Score > records[j].Score
	})
	if len(records) > a.config.KeepMemories {
		records = records[:a.config.KeepMemories]
	}

	return toItems(records)
}

func (a *Assembler) flatMemories(ctx context.Context) []MemoryItem {
	records, err := a.store.List(ctx, a.config.FlatDumpCategory, a.config.FlatDumpLimit)
	if err != nil {
		a.logger.Warn().Err(err).Msg("memory listing failed")
		return []MemoryItem{}
	}
	return toItems(records)
}

func toItems(records []*storage.Record) []MemoryItem {
	items := make([]MemoryItem, 0, len(records))
	for _, rec := range records {
		items = append(items, MemoryItem{
			Key:       rec.Key,
			Category:  rec.Category,
			Content:   rec.Content,
			Relevance: rec.RelevanceScore,
			Score:     rec.Score,
		})
	}
	return items
}

// enforceLimit truncates memories, tasks and expenses in that order until the
// bundle fits MaxChars. If it still does not fit, the lists are emptied in the
// same order, then study goals and preferences.
func (a *Assembler) enforceLimit(b *ContextBundle) {
	fits := func() bool { return b.Size() <= a.config.MaxChars }
	if fits() {
		return
	}

	size := b.Size()

	if len(b.Memories) > a.config.MemoryTruncate {
		b.Memories = b.Memories[:a.config.MemoryTruncate]
		if fits() {
			a.logTruncation(size, b)
			return
		}
	}
	if len(b.Tasks) > a.config.TaskTruncate {
		b.Tasks = b.Tasks[:a.config.TaskTruncate]
		if fits() {
			a.logTruncation(size, b)
			return
		}
	}
	if len(b.Expenses) > a.config.ExpenseTruncate {
		b.Expenses = b.Expenses[:a.config.ExpenseTruncate]
		if fits() {
			a.logTruncation(size, b)
			return
		}
	}

	steps := []func(){
		func() { b.Memories = []MemoryItem{} },
		func() { b.Tasks = []domain.Task{} },
		func() { b.Expenses = []domain.Expense{} },
		func() { b.StudyGoals = []domain.StudyGoal{} },
		func() { b.Preferences = map[string]interface{}{} },
	}
	for _, step := range steps {
		step()
		if fits() {
			break
		}
	}
	a.logTruncation(size, b)
}

func (a *Assembler) logTruncation(before int, b *ContextBundle) {
	a.logger.Debug().
		Int("before", before).
		Int("after", b.Size()).
		Int("max", a.config.MaxChars).
		Msg("context truncated")
}

// BuildDailySummary returns today's completed tasks and expense total.
func (a *Assembler) BuildDailySummary(ctx context.Context, userID string) *DailySummary {
	summary := &DailySummary{
		Date:           domain.Today(a.now()),
		CompletedTasks: []domain.Task{},
	}

	if tasks, err := a.source.TodayTasks(ctx, userID); err != nil {
		a.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load tasks")
	} else {
		for _, task := range tasks {
			if task.Done() {
				summary.CompletedTasks = append(summary.CompletedTasks, task)
			}
		}
	}

	if expenses, err := a.source.RecentExpenses(ctx, userID, 1); err != nil {
		a.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load expenses")
	} else {
		for _, expense := range expenses {
			summary.ExpenseTotal += expense.Amount
		}
		summary.ExpenseCount = len(expenses)
	}

	return summary
}
