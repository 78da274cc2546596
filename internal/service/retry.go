package service

import (
	"context"
	"errors"
	"time"

	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/internal/store"
)

// ErrPersistenceUnavailable is returned after bounded retries of a transient
// persistence failure. Callers surface it as a recoverable condition.
var ErrPersistenceUnavailable = errors.New("persistence unavailable")

// withRetry runs fn with bounded exponential backoff. Business-rule errors
// pass through untouched on the first occurrence; only transient failures
// (and lost seq-assignment races) are retried.
func withRetry(ctx context.Context, cfg config.RetryConfig, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	if errors.Is(err, store.ErrDuplicate) {
		// Still losing uniqueness races after all attempts; report it as
		// contention rather than an outage.
		return err
	}
	return errors.Join(ErrPersistenceUnavailable, err)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrStaleState):
		return false
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrConflictingOpenProposal),
		errors.Is(err, ErrNotAuthorized),
		errors.Is(err, ErrAlreadyResolved),
		errors.Is(err, ErrNotParticipant):
		return false
	}
	return true
}
