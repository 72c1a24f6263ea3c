package cloner

import (
	"context"
	"fmt"
	"time"

	"github.com/sumire/guildcloner/internal/domain"
)

// deleteAll deletes items one at a time, pausing delay after every attempt.
// It returns the number deleted.
func deleteAll[T any](ctx context.Context, j *Job, items []T, delay time.Duration,
	describe func(T) string, del func(context.Context, T) error) (int, error) {
	deleted := 0
	for i, item := range items {
		what := describe(item)
		ok, err := j.attempt(ctx, retryOnce, "delete "+what, func(ctx context.Context) error {
			return del(ctx, item)
		})
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
			j.logf("Deleted %s (%d/%d)", what, i+1, len(items))
		}
		j.wait(ctx, delay)
	}
	return deleted, nil
}

// createAll creates items one at a time in order and hands each result to
// created. It pauses delay after every attempt and returns the number created.
func createAll[T, R any](ctx context.Context, j *Job, items []T, policy retryPolicy, delay time.Duration,
	describe func(T) string, create func(context.Context, T) (R, error), created func(T, R)) (int, error) {
	n := 0
	for i, item := range items {
		what := describe(item)
		var out R
		ok, err := j.attempt(ctx, policy, "create "+what, func(ctx context.Context) error {
			var err error
			out, err = create(ctx, item)
			return err
		})
		if err != nil {
			return n, err
		}
		if ok {
			n++
			created(item, out)
			j.logf("Created %s (%d/%d)", what, i+1, len(items))
		}
		j.wait(ctx, delay)
	}
	return n, nil
}

// createPolicy is the rate limit policy for categories and channels.
func (j *Job) createPolicy() retryPolicy {
	if j.opts.RateLimitPolicy == domain.RateLimitSkip {
		return skipAfterWait
	}
	return retrySameItem
}

func quoted(kind, name string) string {
	return fmt.Sprintf("%s %q", kind, name)
}
