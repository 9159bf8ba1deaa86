package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimits are the published ceilings of one model tier. Zero disables a limit.
type RateLimits struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	TokensPerMinute   int `yaml:"tokens_per_minute" json:"tokens_per_minute"`
	RequestsPerDay    int `yaml:"requests_per_day" json:"requests_per_day"`
	TokensPerDay      int `yaml:"tokens_per_day" json:"tokens_per_day"`
}

// RateLimiter enforces RateLimits over fixed minute and day windows.
//
// Calls that would exceed a ceiling are rejected immediately with ErrRateLimited
// instead of waiting, so the calling stage can take its fallback.
type RateLimiter struct {
	mu      sync.Mutex
	limits  RateLimits
	counter TokenCounter
	now     func() time.Time

	minuteStart    time.Time
	minuteRequests int
	minuteTokens   int

	dayStart    time.Time
	dayRequests int
	dayTokens   int
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithClock overrides the limiter clock.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.now = now
	}
}

// WithTokenCounter overrides the token counter used for accounting.
func WithTokenCounter(counter TokenCounter) RateLimiterOption {
	return func(r *RateLimiter) {
		r.counter = counter
	}
}

// NewRateLimiter creates a limiter for one tier.
func NewRateLimiter(limits RateLimits, opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		limits:  limits,
		counter: HeuristicCounter{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reserve accounts one request of the given token cost, or returns ErrRateLimited.
func (r *RateLimiter) Reserve(tokens int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.minuteStart) >= time.Minute {
		r.minuteStart = now
		r.minuteRequests = 0
		r.minuteTokens = 0
	}
	if now.Sub(r.dayStart) >= 24*time.Hour {
		r.dayStart = now
		r.dayRequests = 0
		r.dayTokens = 0
	}

	switch {
	case r.limits.RequestsPerMinute > 0 && r.minuteRequests+1 > r.limits.RequestsPerMinute:
		return fmt.Errorf("%w: %d requests/minute", ErrRateLimited, r.limits.RequestsPerMinute)
	case r.limits.TokensPerMinute > 0 && r.minuteTokens+tokens > r.limits.TokensPerMinute:
		return fmt.Errorf("%w: %d tokens/minute", ErrRateLimited, r.limits.TokensPerMinute)
	case r.limits.RequestsPerDay > 0 && r.dayRequests+1 > r.limits.RequestsPerDay:
		return fmt.Errorf("%w: %d requests/day", ErrRateLimited, r.limits.RequestsPerDay)
	case r.limits.TokensPerDay > 0 && r.dayTokens+tokens > r.limits.TokensPerDay:
		return fmt.Errorf("%w: %d tokens/day", ErrRateLimited, r.limits.TokensPerDay)
	}

	r.minuteRequests++
	r.minuteTokens += tokens
	r.dayRequests++
	r.dayTokens += tokens
	return nil
}

// Usage returns the current window counters.
func (r *RateLimiter) Usage() (minuteRequests, minuteTokens, dayRequests, dayTokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minuteRequests, r.minuteTokens, r.dayRequests, r.dayTokens
}

// limitedProvider wraps a Provider with a RateLimiter.
type limitedProvider struct {
	Provider
	limiter *RateLimiter
}

// WithRateLimit wraps p so every call is accounted against limiter first.
//
// The reserved cost is the prompt token count plus the requested MaxTokens,
// which is how the hosted tiers charge tokens-per-minute.
func WithRateLimit(p Provider, limiter *RateLimiter) Provider {
	if limiter == nil {
		return p
	}
	return &limitedProvider{Provider: p, limiter: limiter}
}

func (l *limitedProvider) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	return l.GenerateWithMessages(ctx, []Message{{Role: RoleUser, Content: prompt}}, opts...)
}

func (l *limitedProvider) GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error) {
	options := ApplyGenerateOptions(opts)

	cost := options.MaxTokens
	for _, m := range messages {
		cost += l.limiter.counter.Count(m.Content)
	}
	if err := l.limiter.Reserve(cost); err != nil {
		return "", err
	}
	return l.Provider.GenerateWithMessages(ctx, messages, opts...)
}
