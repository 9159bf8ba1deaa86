// Package pipeline sequences the answer-generation stages and records
// per-request metrics.
//
// A request flows through intent, rewrite, context, memory_route, reasoning and
// format. Every stage has a Run and a Fallback; when Run fails the orchestrator
// calls Fallback and records the same metric shape. Only the reasoning stage has
// no local fallback, and its failure switches the request to the whole-pipeline
// fallback path.
package pipeline

import (
	"context"

	"github.com/lifemate/lifemate-go/pkg/assembler"
	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm"
)

// Stage names, in pipeline order.
const (
	StageIntent      = "intent"
	StageRewrite     = "rewrite"
	StageContext     = "context"
	StageMemoryRoute = "memory_route"
	StageReasoning   = "reasoning"
	StageFormat      = "format"
)

// State is the per-request data passed from stage to stage.
type State struct {
	UserID  string
	Message string
	History []llm.Message

	// Intent is set by the intent stage.
	Intent intent.Intent

	// Prompt is the rewritten instruction sent to reasoning.
	Prompt string

	// Bundle is the uncompressed context built by the context stage.
	Bundle *assembler.ContextBundle

	// Context is the compressed context, with routed memories appended.
	Context string

	// Answer is the raw reasoning answer.
	Answer string

	// Response is the formatted answer returned to the caller.
	Response string
}

// Result is what a stage reports for metrics.
type Result struct {
	// Summary is a short description of the outcome.
	Summary string

	// Tokens is the estimated token cost of the stage's remote call, 0 when
	// it ran locally.
	Tokens int
}

// Stage is one step of the pipeline.
type Stage interface {
	// Name returns the stage name used in metrics.
	Name() string

	// Run performs the stage, usually with a remote call.
	Run(ctx context.Context, s *State) (Result, error)

	// Fallback computes the stage output locally after Run failed with cause.
	// It returns an error only when the stage has no local fallback.
	Fallback(ctx context.Context, s *State, cause error) (Result, error)
}
