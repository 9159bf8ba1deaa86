package compress

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lifemate/lifemate-go/pkg/assembler"
	"github.com/lifemate/lifemate-go/pkg/domain"
)

var priorityOrder = []string{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow}

// Compact renders bundle as a short bulleted digest without any remote call.
func Compact(bundle *assembler.ContextBundle) string {
	if bundle == nil {
		return ""
	}

	var sections []string

	if len(bundle.Tasks) > 0 {
		sections = append(sections, compactTasks(bundle.Tasks))
	}
	if len(bundle.Expenses) > 0 {
		sections = append(sections, compactExpenses(bundle.Expenses))
	}
	if len(bundle.StudyGoals) > 0 {
		sections = append(sections, compactGoals(bundle.StudyGoals))
	}
	if len(bundle.Memories) > 0 {
		var b strings.Builder
		b.WriteString("Memories:")
		for _, m := range bundle.Memories {
			fmt.Fprintf(&b, "\n- %s", m.Content)
		}
		sections = append(sections, b.String())
	}
	if len(bundle.Preferences) > 0 {
		sections = append(sections, compactPreferences(bundle.Preferences))
	}

	if len(sections) == 0 {
		return "No personal data available."
	}
	return strings.Join(sections, "\n\n")
}

func compactTasks(tasks []domain.Task) string {
	byPriority := map[string][]domain.Task{}
	for _, t := range tasks {
		p := t.Priority
		if p == "" {
			p = domain.PriorityMedium
		}
		byPriority[p] = append(byPriority[p], t)
	}

	order := append([]string(nil), priorityOrder...)
	var extra []string
	for p := range byPriority {
		if p != domain.PriorityHigh && p != domain.PriorityMedium && p != domain.PriorityLow {
			extra = append(extra, p)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	var counts []string
	for _, p := range order {
		if n := len(byPriority[p]); n > 0 {
			counts = append(counts, fmt.Sprintf("%s %d", p, n))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tasks today (%d): %s", len(tasks), strings.Join(counts, ", "))
	for _, p := range order {
		for _, t := range byPriority[p] {
			fmt.Fprintf(&b, "\n- [%s] %s (%s)", p, t.Title, t.Status)
		}
	}
	return b.String()
}

func compactExpenses(expenses []domain.Expense) string {
	totals := map[string]float64{}
	var total float64
	for _, e := range expenses {
		totals[e.Category] += e.Amount
		total += e.Amount
	}

	categories := make([]string, 0, len(totals))
	for c := range totals {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if totals[categories[i]] != totals[categories[j]] {
			return totals[categories[i]] > totals[categories[j]]
		}
		return categories[i] < categories[j]
	})
	if len(categories) > 3 {
		categories = categories[:3]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Expenses (%d entries, total %.2f). Top categories:", len(expenses), total)
	for _, c := range categories {
		fmt.Fprintf(&b, "\n- %s: %.2f", c, totals[c])
	}
	return b.String()
}

func compactGoals(goals []domain.StudyGoal) string {
	if len(goals) > 3 {
		goals = goals[:3]
	}

	var b strings.Builder
	b.WriteString("Study goals:")
	for _, g := range goals {
		fmt.Fprintf(&b, "\n- %s (%s): %.0f%%", g.Title, g.Subject, g.Progress)
	}
	return b.String()
}

func compactPreferences(prefs map[string]interface{}) string {
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Preferences:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s: %v", strings.ReplaceAll(k, "_", " "), prefs[k])
	}
	return b.String()
}
