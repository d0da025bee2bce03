package workflow

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// defaultClassifierRPM is the per-session budget for Intent Classifier
// Node LLM fallback calls (the single-shot classification request issued
// when the complexity gate does not route straight to react_think).
const defaultClassifierRPM = 20

// classifierLimiter hands out a token-bucket limiter per session, lazily
// created on first use, so a single session issuing classifier calls in a
// tight loop cannot starve the LLM provider's own rate budget for every
// other session.
type classifierLimiter struct {
	rpm float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newClassifierLimiter(rpm float64) *classifierLimiter {
	if rpm <= 0 {
		rpm = defaultClassifierRPM
	}
	return &classifierLimiter{rpm: rpm, limiters: make(map[string]*rate.Limiter)}
}

// wait blocks until sessionID's bucket has a token to spend on one
// classifier LLM fallback call, or ctx is done.
func (l *classifierLimiter) wait(ctx context.Context, sessionID string) error {
	return l.limiterFor(sessionID).Wait(ctx)
}

func (l *classifierLimiter) limiterFor(sessionID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[sessionID]
	if !ok {
		burst := int(l.rpm)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(l.rpm/60.0), burst)
		l.limiters[sessionID] = lim
	}
	return lim
}
