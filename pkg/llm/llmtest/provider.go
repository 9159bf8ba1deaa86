// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"
	"time"

	"github.com/lifemate/lifemate-go/pkg/llm"
)

// Call records one request made to a Provider.
type Call struct {
	Messages []llm.Message
	Options  llm.GenerateOptions
}

// Provider replays scripted responses in order.
//
// When Respond is set it answers every call. Otherwise Err, when set, fails every
// call, and without either the next queued response is returned; an exhausted
// queue yields llm.ErrEmptyResponse. A positive Delay blocks each call until the
// delay passes or the context is done.
type Provider struct {
	mu        sync.Mutex
	responses []string
	calls     []Call

	Err     error
	Delay   time.Duration
	Respond func(messages []llm.Message, opts *llm.GenerateOptions) (string, error)
}

// New returns a Provider that answers with responses in order.
func New(responses ...string) *Provider {
	return &Provider{responses: responses}
}

// Failing returns a Provider whose every call fails with err.
func Failing(err error) *Provider {
	return &Provider{Err: err}
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return p.GenerateWithMessages(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// GenerateWithMessages implements llm.Provider.
func (p *Provider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	p.mu.Lock()
	p.calls = append(p.calls, Call{
		Messages: append([]llm.Message(nil), messages...),
		Options:  *options,
	})
	p.mu.Unlock()

	if p.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if p.Respond != nil {
		return p.Respond(messages, options)
	}
	if p.Err != nil {
		return "", p.Err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.responses) == 0 {
		return "", llm.ErrEmptyResponse
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	return next, nil
}

// Close implements llm.Provider.
func (p *Provider) Close() error {
	return nil
}

// Calls returns a copy of the recorded calls.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallCount returns the number of calls made so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
