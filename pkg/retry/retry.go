// Package retry re-runs an operation with capped exponential backoff. The
// server uses it to reach the database at startup and the event bus uses it
// for subscribers that fail transiently.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth another attempt. Do stops and returns
// err itself.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Policy describes how often and how slowly an operation is retried. Every
// error except a Permanent one is retried.
type Policy struct {
	// Attempts counts the first call. Values below 1 mean 1.
	Attempts int

	// Delay is the pause before the first retry. It doubles after each
	// retry up to MaxDelay; a zero MaxDelay means no cap.
	Delay    time.Duration
	MaxDelay time.Duration

	// Jitter spreads each pause by up to this fraction either way.
	Jitter float64

	notify func(attempt int, err error, delay time.Duration)
}

// Connect is the policy for reaching a backing service at startup: eight
// attempts over roughly half a minute. notify, if set, runs before each
// pause.
func Connect(notify func(attempt int, err error, delay time.Duration)) Policy {
	return Policy{
		Attempts: 8,
		Delay:    250 * time.Millisecond,
		MaxDelay: 8 * time.Second,
		Jitter:   0.2,
		notify:   notify,
	}
}

// Do calls op until it succeeds, returns a Permanent error, the attempts run
// out or ctx ends. It returns the last error op returned, or ctx.Err() when
// op never ran.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}

		last = op(ctx)
		if last == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(last, &perm) {
			return perm.err
		}
		if attempt == attempts {
			break
		}

		delay := p.backoff(attempt)
		if p.notify != nil {
			p.notify(attempt, last, delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return last
		case <-t.C:
		}
	}
	return last
}

// backoff returns the pause after the given attempt.
func (p Policy) backoff(attempt int) time.Duration {
	d := p.Delay
	for i := 1; i < attempt; i++ {
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			break
		}
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	if p.Jitter > 0 {
		d += time.Duration(float64(d) * p.Jitter * (rand.Float64()*2 - 1))
	}
	return max(d, 0)
}
