package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/lifemate/lifemate-go/pkg/assembler"
	"github.com/lifemate/lifemate-go/pkg/compress"
	"github.com/lifemate/lifemate-go/pkg/intent"
	"github.com/lifemate/lifemate-go/pkg/llm"
	"github.com/lifemate/lifemate-go/pkg/output"
	"github.com/lifemate/lifemate-go/pkg/reasoning"
	"github.com/lifemate/lifemate-go/pkg/rewrite"
	"github.com/lifemate/lifemate-go/pkg/router"
)

// Components are the stage implementations wired into the default pipeline.
type Components struct {
	Classifier *intent.Classifier
	Rewriter   *rewrite.Rewriter
	Assembler  *assembler.Assembler
	Compressor *compress.Compressor
	Router     *router.Router
	Reasoner   *reasoning.Reasoner
	Formatter  *output.Formatter
}

// DefaultStages returns the six stages in pipeline order.
func DefaultStages(c Components) []Stage {
	return []Stage{
		&intentStage{classifier: c.Classifier},
		&rewriteStage{rewriter: c.Rewriter},
		&contextStage{assembler: c.Assembler, compressor: c.Compressor},
		&memoryRouteStage{router: c.Router},
		&reasoningStage{reasoner: c.Reasoner},
		&formatStage{formatter: c.Formatter},
	}
}

// exchangeTokens estimates a remote call: every message sent plus the reply.
func exchangeTokens(sent []llm.Message, reply string) int {
	return llm.EstimateMessagesTokens(sent) + llm.EstimateTokens(reply)
}

type intentStage struct {
	classifier *intent.Classifier
}

func (st *intentStage) Name() string { return StageIntent }

func (st *intentStage) Run(ctx context.Context, s *State) (Result, error) {
	in, err := st.classifier.ClassifyRemote(ctx, s.Message)
	if err != nil {
		return Result{}, err
	}
	s.Intent = in
	return Result{Summary: in.String(), Tokens: exchangeTokens(st.classifier.BuildMessages(s.Message), in.String())}, nil
}

func (st *intentStage) Fallback(ctx context.Context, s *State, cause error) (Result, error) {
	s.Intent = st.classifier.FallbackClassify(s.Message)
	return Result{Summary: s.Intent.String()}, nil
}

type rewriteStage struct {
	rewriter *rewrite.Rewriter
}

func (st *rewriteStage) Name() string { return StageRewrite }

func (st *rewriteStage) Run(ctx context.Context, s *State) (Result, error) {
	rewritten, err := st.rewriter.RewriteRemote(ctx, s.Message, s.Intent)
	if errors.Is(err, rewrite.ErrSkipped) {
		res := st.rewriter.Rewrite(ctx, s.Message, s.Intent)
		s.Prompt = res.Rewritten
		return Result{Summary: res.Source}, nil
	}
	if err != nil {
		return Result{}, err
	}
	s.Prompt = rewritten
	return Result{Summary: rewrite.SourceRemote, Tokens: exchangeTokens(st.rewriter.BuildMessages(s.Message, s.Intent), rewritten)}, nil
}

func (st *rewriteStage) Fallback(ctx context.Context, s *State, cause error) (Result, error) {
	s.Prompt = st.rewriter.Template(s.Message, s.Intent)
	return Result{Summary: rewrite.SourceTemplate}, nil
}

type contextStage struct {
	assembler  *assembler.Assembler
	compressor *compress.Compressor
}

func (st *contextStage) Name() string { return StageContext }

func (st *contextStage) Run(ctx context.Context, s *State) (Result, error) {
	s.Bundle = st.assembler.Build(ctx, s.UserID, s.Message)

	digest, err := st.compressor.CompressRemote(ctx, s.Bundle, s.Intent)
	if errors.Is(err, compress.ErrSkipped) {
		s.Context = compress.Compact(s.Bundle)
		return Result{Summary: fmt.Sprintf("compact (%d chars)", len(s.Context))}, nil
	}
	if err != nil {
		return Result{}, err
	}

	s.Context = digest
	serialized, _ := s.Bundle.Serialize()
	return Result{
		Summary: fmt.Sprintf("compressed %d -> %d chars", s.Bundle.Size(), len(digest)),
		Tokens:  exchangeTokens(st.compressor.BuildMessages(serialized, s.Intent), digest),
	}, nil
}

func (st *contextStage) Fallback(ctx context.Context, s *State, cause error) (Result, error) {
	if s.Bundle == nil {
		s.Bundle = st.assembler.Build(ctx, s.UserID, s.Message)
	}
	s.Context = compress.Compact(s.Bundle)
	return Result{Summary: fmt.Sprintf("compact (%d chars)", len(s.Context))}, nil
}

type memoryRouteStage struct {
	router *router.Router
}

func (st *memoryRouteStage) Name() string { return StageMemoryRoute }

func (st *memoryRouteStage) Run(ctx context.Context, s *State) (Result, error) {
	memories, err := st.router.Route(ctx, s.Message, s.Intent, s.UserID)
	if err != nil {
		return Result{}, err
	}
	if block := router.FormatMemories(memories); block != "" {
		s.Context += "\n\n" + block
	}
	return Result{Summary: fmt.Sprintf("%d memories", len(memories))}, nil
}

func (st *memoryRouteStage) Fallback(ctx context.Context, s *State, cause error) (Result, error) {
	return Result{Summary: "0 memories"}, nil
}

type reasoningStage struct {
	reasoner *reasoning.Reasoner
}

func (st *reasoningStage) Name() string { return StageReasoning }

func (st *reasoningStage) Run(ctx context.Context, s *State) (Result, error) {
	answer, err := st.reasoner.Ask(ctx, s.Prompt, s.Context, s.History)
	if err != nil {
		return Result{}, err
	}
	s.Answer = answer

	return Result{
		Summary: fmt.Sprintf("%d chars", len(answer)),
		Tokens:  exchangeTokens(st.reasoner.BuildMessages(s.Prompt, s.Context, s.History), answer),
	}, nil
}

// Fallback has nothing local to offer; the orchestrator switches to the
// whole-pipeline fallback.
func (st *reasoningStage) Fallback(ctx context.Context, s *State, cause error) (Result, error) {
	return Result{}, cause
}

type formatStage struct {
	formatter *output.Formatter
}

func (st *formatStage) Name() string { return StageFormat }

func (st *formatStage) Run(ctx context.Context, s *State) (Result, error) {
	formatted, err := st.formatter.FormatRemote(ctx, s.Answer, s.Intent)
	if errors.Is(err, output.ErrSkipped) {
		s.Response = output.QuickFormat(s.Answer)
		return Result{Summary: "quick"}, nil
	}
	if err != nil {
		return Result{}, err
	}
	s.Response = formatted
	return Result{Summary: "remote", Tokens: exchangeTokens(st.formatter.BuildMessages(s.Answer, s.Intent), formatted)}, nil
}

func (st *formatStage) Fallback(ctx context.Context, s *State, cause error) (Result, error) {
	s.Response = output.QuickFormat(s.Answer)
	return Result{Summary: "quick"}, nil
}
