package main

import (
	"context"
	"sync"
	"time"
)

const (
	rateLimit             = 30
	cooldown              = time.Minute
	maxConcurrentRequests = 2
)

// Limiter allows at most limit requests per window and caps the number of
// requests in flight.
type Limiter struct {
	limit  int
	window time.Duration
	ticker *time.Ticker

	attempts     []time.Time
	attemptsLock sync.Mutex

	concurrentReqs chan struct{}
}

func NewLimiter(limit int, window time.Duration, concurrent int) *Limiter {
	l := &Limiter{
		limit:          limit,
		window:         window,
		ticker:         time.NewTicker(window / time.Duration(limit)),
		concurrentReqs: make(chan struct{}, concurrent),
	}
	for range concurrent {
		l.concurrentReqs <- struct{}{}
	}
	return l
}

// GetToken blocks until a request slot is free and returns its release func.
func (l *Limiter) GetToken(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-l.concurrentReqs:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func() {
		l.concurrentReqs <- struct{}{}
	}, nil
}

// Throttle blocks until one more request fits in the rate window.
func (l *Limiter) Throttle(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.ticker.C:
		}
		l.attemptsLock.Lock()
		att := l.attempts
		if len(att) < l.limit || time.Since(att[0]) > l.window {
			att = append(att, time.Now())
			if len(att) > l.limit {
				att = att[1:]
			}
			l.attempts = att
			l.attemptsLock.Unlock()
			return nil
		}
		l.attemptsLock.Unlock()
	}
}

// Acquire combines GetToken and Throttle.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	done, err := l.GetToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.Throttle(ctx); err != nil {
		done()
		return nil, err
	}
	return done, nil
}
