// Package cloner copies the structure and selected content of one Discord
// guild into another. A Job runs the enabled stages in a fixed order and
// reports progress, log lines and errors to a Sink.
package cloner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/sumire/guildcloner/internal/domain"
)

const (
	// validationShare is the progress reached once both guilds are accessible.
	validationShare = 15.0
	stageShare      = 100.0 - validationShare
)

var snowflakePattern = regexp.MustCompile(`^\d{17,20}$`)

// ValidSnowflake reports whether id looks like a Discord ID.
func ValidSnowflake(id string) bool {
	return snowflakePattern.MatchString(id)
}

// Config describes one clone job.
type Config struct {
	ID            string
	SourceGuildID string
	TargetGuildID string
	Options       domain.CloneOptions
	Delays        Delays
}

// Option customizes a Job.
type Option func(*Job)

// WithSleep replaces the real timer used for pacing and rate limit waits.
func WithSleep(fn func(time.Duration)) Option {
	return func(j *Job) { j.sleep = fn }
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

// Job is one clone run. It is created per request and runs at most once.
type Job struct {
	id       string
	sourceID string
	targetID string
	opts     domain.CloneOptions
	delays   Delays

	api   API
	sink  Sink
	maps  *Mapper
	stats stats
	now   func() time.Time
	sleep func(time.Duration)

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}

	mu      sync.RWMutex
	status  domain.JobStatus
	stage   domain.Stage
	failure string
}

// New creates an idle Job.
func New(cfg Config, api API, sink Sink, opts ...Option) *Job {
	if sink == nil {
		sink = NopSink{}
	}
	j := &Job{
		id:       cfg.ID,
		sourceID: cfg.SourceGuildID,
		targetID: cfg.TargetGuildID,
		opts:     cfg.Options,
		delays:   cfg.Delays,
		api:      api,
		sink:     sink,
		maps:     NewMapper(),
		now:      time.Now,
		stopCh:   make(chan struct{}),
		status:   domain.JobStatusIdle,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.opts.MessageLimit <= 0 {
		j.opts.MessageLimit = domain.DefaultMessageLimit
	}
	if j.opts.MessageLimit > domain.MaxMessageLimit {
		j.opts.MessageLimit = domain.MaxMessageLimit
	}
	return j
}

func (j *Job) ID() string { return j.id }

// Mapper exposes the entity mapping. Read it only after Run returns.
func (j *Job) Mapper() *Mapper { return j.maps }

// Stop requests cooperative cancellation. The job halts at its next
// checkpoint, before the next remote mutation. Calling Stop again is a no-op.
func (j *Job) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

// Stopped reports whether Stop was called.
func (j *Job) Stopped() bool {
	select {
	case <-j.stopCh:
		return true
	default:
		return false
	}
}

func (j *Job) halted(ctx context.Context) bool {
	return j.Stopped() || ctx.Err() != nil
}

// Status returns the current state.
func (j *Job) Status() domain.JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// Stats returns a snapshot of the counters.
func (j *Job) Stats() domain.Stats {
	return j.stats.snapshot()
}

// Failure returns the reason a failed job failed.
func (j *Job) Failure() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.failure
}

// Summary describes the job for status listings.
func (j *Job) Summary() domain.JobSummary {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return domain.JobSummary{
		ID:            j.id,
		SourceGuildID: j.sourceID,
		TargetGuildID: j.targetID,
		Status:        j.status,
		Stage:         j.stage,
		Stopped:       j.Stopped(),
		Stats:         j.stats.snapshot(),
	}
}

func (j *Job) setStatus(s domain.JobStatus) {
	j.mu.Lock()
	j.status = s
	j.mu.Unlock()
}

func (j *Job) setStage(s domain.Stage) {
	j.mu.Lock()
	j.stage = s
	j.mu.Unlock()
}

func (j *Job) fail(reason string) {
	j.mu.Lock()
	j.failure = reason
	j.mu.Unlock()
}

// Run executes the job and reports whether it completed. Only the first call
// runs; later calls return false immediately. A stopped job is not successful.
func (j *Job) Run(ctx context.Context) bool {
	if !j.started.CompareAndSwap(false, true) {
		return false
	}
	start := j.now()
	j.stats.update(func(s *domain.Stats) { s.StartTime = start })

	status := j.run(ctx)
	j.setStatus(status)

	success := status == domain.JobStatusCompleted
	if status == domain.JobStatusStopped {
		j.logf("Cloning stopped by request")
	}
	j.sink.OnComplete(j.id, success, j.stats.snapshot())
	return success
}

func (j *Job) run(ctx context.Context) domain.JobStatus {
	j.setStatus(domain.JobStatusValidating)

	source, target, err := j.validate(ctx)
	if err != nil {
		if errors.Is(err, errStopped) {
			return domain.JobStatusStopped
		}
		j.fail(err.Error())
		j.errorf("Validation failed: %v", err)
		return domain.JobStatusFailed
	}
	j.progress(fmt.Sprintf("Found servers: %s -> %s", source.Name, target.Name), validationShare)

	if j.halted(ctx) {
		return domain.JobStatusStopped
	}
	j.setStatus(domain.JobStatusRunning)

	stages := j.opts.EnabledStages()
	for i, stage := range stages {
		if j.halted(ctx) {
			return domain.JobStatusStopped
		}
		j.setStage(stage)
		j.logf("Starting %s cloning...", stage.Title())

		err := j.runStage(ctx, stage, source, target)
		switch {
		case errors.Is(err, errStopped):
			return domain.JobStatusStopped
		case isFatal(err):
			j.fail(err.Error())
			j.errorf("%s cloning aborted: %v", stage.Title(), err)
			return domain.JobStatusFailed
		case err != nil:
			j.errorf("%s cloning failed: %v", stage.Title(), err)
		default:
			j.logf("%s cloning completed", stage.Title())
		}

		j.progress(fmt.Sprintf("%s processed (%d/%d)", stage.Title(), i+1, len(stages)), stageProgress(i+1, len(stages)))
	}

	j.progress("Cloning completed successfully!", 100)
	return domain.JobStatusCompleted
}

// stageProgress maps completed stages onto the share left after validation.
func stageProgress(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return validationShare + float64(done)*stageShare/float64(total)
}

// runStage dispatches one stage. A panic inside a stage is turned into a
// stage error so the remaining stages still run.
func (j *Job) runStage(ctx context.Context, stage domain.Stage, source, target *discordgo.Guild) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()

	switch stage {
	case domain.StageServerInfo:
		return j.cloneServerInfo(ctx, source, target)
	case domain.StageRoles:
		return j.cloneRoles(ctx)
	case domain.StageCategories:
		return j.cloneCategories(ctx)
	case domain.StageChannels:
		return j.cloneChannels(ctx)
	case domain.StageEmojis:
		return j.cloneEmojis(ctx)
	case domain.StageWebhooks:
		return j.cloneWebhooks(ctx)
	case domain.StageMessages:
		return j.cloneMessages(ctx)
	}
	return fmt.Errorf("unknown stage %q", stage)
}

// validate checks the IDs and the credential and loads both guilds.
func (j *Job) validate(ctx context.Context) (source, target *discordgo.Guild, err error) {
	if !ValidSnowflake(j.sourceID) {
		return nil, nil, &domain.ValidationError{Field: "source_guild_id", Message: "must be a Discord ID"}
	}
	if !ValidSnowflake(j.targetID) {
		return nil, nil, &domain.ValidationError{Field: "target_guild_id", Message: "must be a Discord ID"}
	}
	if j.sourceID == j.targetID {
		return nil, nil, domain.ErrSameGuild
	}

	j.progress("Validating Discord credential...", 0)
	var user *discordgo.User
	err = j.fetch(ctx, "validate credential", func(ctx context.Context) error {
		var err error
		user, err = j.api.CurrentUser(ctx)
		return err
	})
	if err != nil {
		if isFatal(err) {
			return nil, nil, fmt.Errorf("invalid Discord credential: %w", err)
		}
		return nil, nil, err
	}
	j.progress("Connected as: "+user.Username, 5)

	j.progress("Accessing servers...", 10)
	source, target, err = fetchPair(ctx, j, "server", j.api.Guild)
	if err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

// fetchPair reads the same resource from the source and target guild
// concurrently.
func fetchPair[T any](ctx context.Context, j *Job, what string, get func(context.Context, string) (T, error)) (source, target T, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return j.fetch(gctx, "fetch source "+what, func(ctx context.Context) error {
			var err error
			source, err = get(ctx, j.sourceID)
			return err
		})
	})
	g.Go(func() error {
		return j.fetch(gctx, "fetch target "+what, func(ctx context.Context) error {
			var err error
			target, err = get(ctx, j.targetID)
			return err
		})
	})
	err = g.Wait()
	return source, target, err
}

func (j *Job) progress(message string, percent float64) {
	j.stats.update(func(s *domain.Stats) {
		s.Progress = percent
		s.LastMessage = message
	})
	j.sink.OnProgress(j.id, message, percent)
}

func (j *Job) logf(format string, args ...any) {
	j.sink.OnLog(j.id, fmt.Sprintf(format, args...), j.now())
}

// errorf reports an error and counts it.
func (j *Job) errorf(format string, args ...any) {
	j.stats.update(func(s *domain.Stats) { s.Errors++ })
	j.sink.OnError(j.id, fmt.Sprintf(format, args...), j.now())
}
