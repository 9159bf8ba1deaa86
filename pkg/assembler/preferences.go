package assembler

import (
	"context"
	"sort"
	"time"

	"github.com/lifemate/lifemate-go/pkg/memory"
)

// PreferenceCategory is the memory category of cached preference summaries.
const PreferenceCategory = "preferences"

// PreferenceKey returns the memory key of userID's cached preference summary.
func PreferenceKey(userID string) string {
	return "preference_summary:" + userID
}

// PreferenceSummary returns the user's preference summary, reusing a cached
// copy younger than PreferenceTTL. It never fails; an empty map is returned
// when nothing can be computed.
func (a *Assembler) PreferenceSummary(ctx context.Context, userID string) (summary map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Interface("panic", r).Msg("preference summary failed")
			summary = map[string]interface{}{}
		}
	}()

	key := PreferenceKey(userID)
	now := a.now().UTC()

	if rec, err := a.store.Get(ctx, key); err == nil {
		if cached, ok := rec.Value.(map[string]interface{}); ok && now.Sub(rec.UpdatedAt) <= a.config.PreferenceTTL {
			return cached
		}
	}

	summary = a.computePreferences(ctx, userID)
	if len(summary) == 0 {
		return map[string]interface{}{}
	}

	if _, err := a.store.Store(ctx, memory.StoreInput{
		Key:      key,
		Value:    summary,
		Category: PreferenceCategory,
		Metadata: map[string]interface{}{"source": "assembler", "generated_at": now.Format(time.RFC3339)},
	}); err != nil {
		a.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to cache preference summary")
	}
	return summary
}

func (a *Assembler) computePreferences(ctx context.Context, userID string) map[string]interface{} {
	summary := map[string]interface{}{}

	if expenses, err := a.source.RecentExpenses(ctx, userID, a.config.PreferenceExpenseDays); err == nil && len(expenses) > 0 {
		totals := map[string]float64{}
		for _, e := range expenses {
			totals[e.Category] += e.Amount
		}
		summary["top_expense_categories"] = topKeys(totals, 3)
	}

	if tasks, err := a.source.TodayTasks(ctx, userID); err == nil && len(tasks) > 0 {
		mix := map[string]interface{}{}
		for _, t := range tasks {
			n, _ := mix[t.Priority].(int)
			mix[t.Priority] = n + 1
		}
		summary["task_priority_mix"] = mix
	}

	if goals, err := a.source.StudyGoals(ctx, userID); err == nil && len(goals) > 0 {
		var subjects []interface{}
		seen := map[string]bool{}
		for _, g := range goals {
			if g.Progress >= 100 || seen[g.Subject] {
				continue
			}
			seen[g.Subject] = true
			subjects = append(subjects, g.Subject)
		}
		if len(subjects) > 0 {
			summary["active_study_subjects"] = subjects
		}
	}

	return summary
}

// topKeys returns up to n keys of totals, largest value first.
func topKeys(totals map[string]float64, n int) []interface{} {
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if totals[keys[i]] != totals[keys[j]] {
			return totals[keys[i]] > totals[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}

	out := make([]interface{}, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}
