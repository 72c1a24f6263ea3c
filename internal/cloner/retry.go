package cloner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sumire/guildcloner/internal/discord"
)

// errStopped unwinds a stage when the job was asked to stop or its context ended.
var errStopped = errors.New("clone job stopped")

// FatalError aborts the whole job. It wraps credential failures.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

func isFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// retryPolicy says what to do after a rate limit wait.
type retryPolicy int

const (
	// retrySameItem tries the same item again until it stops being rate limited.
	retrySameItem retryPolicy = iota
	// retryOnce allows one more attempt.
	retryOnce
	// skipAfterWait gives up on the item once the wait is over.
	skipAfterWait
)

// retry runs op, honoring rate limit hints according to policy. It returns
// errStopped when the job is halted before an attempt or while op failed.
func (j *Job) retry(ctx context.Context, policy retryPolicy, what string, op func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if j.halted(ctx) {
			return errStopped
		}
		err := op(ctx)
		if err != nil && j.halted(ctx) {
			return errStopped
		}
		if err == nil || !discord.IsRateLimited(err) {
			return err
		}
		if policy == retryOnce && attempt > 0 {
			return err
		}
		wait, _ := discord.RetryAfter(err)
		j.logf("Rate limited on %s, waiting %s", what, wait.Round(time.Millisecond))
		j.wait(ctx, wait)
		if policy == skipAfterWait {
			return err
		}
	}
}

// attempt wraps retry for one item of a stage. A failed item is logged and
// counted and reported as ok=false with a nil error, so the stage moves on.
// A non-nil error means the stage must unwind.
func (j *Job) attempt(ctx context.Context, policy retryPolicy, what string, op func(context.Context) error) (bool, error) {
	err := j.retry(ctx, policy, what, op)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStopped):
		return false, err
	case discord.KindOf(err) == discord.KindUnauthorized:
		return false, &FatalError{Err: fmt.Errorf("%s: %w", what, err)}
	default:
		j.errorf("Failed to %s: %v", what, err)
		return false, nil
	}
}

// fetch retries a read once on rate limit. Failures are returned wrapped
// with what, uncounted; credential failures become a FatalError.
func (j *Job) fetch(ctx context.Context, what string, op func(context.Context) error) error {
	err := j.retry(ctx, retryOnce, what, op)
	switch {
	case err == nil || errors.Is(err, errStopped):
		return err
	case discord.KindOf(err) == discord.KindUnauthorized:
		return &FatalError{Err: fmt.Errorf("%s: %w", what, err)}
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// wait sleeps for d, returning early when the job is stopped or ctx ends.
func (j *Job) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if j.sleep != nil {
		j.sleep(d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-j.stopCh:
	case <-ctx.Done():
	}
}
