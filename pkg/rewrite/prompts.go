package rewrite

import (
	"fmt"

	"github.com/lifemate/lifemate-go/pkg/intent"
)

// DefaultTemplates are the per-intent instructions used when a message cannot
// be rewritten remotely.
var DefaultTemplates = map[intent.Intent]string{
	intent.Task:     "Show tasks for today with priority and status",
	intent.Study:    "Show study goals with progress and suggest next steps",
	intent.Expense:  "Summarize expenses of the last 7 days by category",
	intent.Planning: "Plan my day using today's tasks and study goals",
	intent.Memory:   "Recall what I told you before that is relevant",
	intent.General:  "Answer my question using my personal data where relevant",
}

// DefaultMarkers are words that make a long message clear enough to skip rewriting.
var DefaultMarkers = []string{
	"show", "list", "find", "display", "give me",
	"hiển thị", "liệt kê", "tìm", "cho xem", "xem",
}

var guides = map[intent.Intent]string{
	intent.Task:     "Turn it into a concrete request about the user's tasks (which tasks, time frame, priority or status).",
	intent.Study:    "Turn it into a concrete request about study goals, progress or what to study next.",
	intent.Expense:  "Turn it into a concrete request about spending (time frame, categories, totals).",
	intent.Planning: "Turn it into a concrete planning request (time frame and what to plan around).",
	intent.Memory:   "Turn it into a concrete request to recall specific remembered facts or preferences.",
	intent.General:  "Turn it into a clear, specific question.",
}

// rewriteTemplate is the system prompt of the remote rewrite call.
const rewriteTemplate = `# Task
Rewrite the user's message for a personal life assistant so it becomes a clear, actionable instruction.

# Guide
%s

# Requirements
- At most 2 sentences.
- Use the same language as the message.
- Keep every concrete detail (dates, names, amounts).

# Output
Output only the rewritten message, do not add any explanations.`

// buildRewritePrompt builds the system prompt for in.
func buildRewritePrompt(in intent.Intent) string {
	guide, ok := guides[in]
	if !ok {
		guide = guides[intent.General]
	}
	return fmt.Sprintf(rewriteTemplate, guide)
}
