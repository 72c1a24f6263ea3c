package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/sumire/guildcloner/internal/cloner"
	"github.com/sumire/guildcloner/internal/discord"
	"github.com/sumire/guildcloner/internal/domain"
)

// CloneRunStore persists finished clone jobs.
type CloneRunStore interface {
	Insert(ctx context.Context, run domain.CloneRun) error
	FindByID(ctx context.Context, id string) (*domain.CloneRun, error)
	ListRecent(ctx context.Context, limit int) ([]domain.CloneRun, error)
}

// APIFactory builds a Discord API client for one credential.
type APIFactory func(token string) cloner.API

// CloneConfig holds clone job defaults.
type CloneConfig struct {
	DefaultToken string
	BaseDelay    time.Duration
	MessageLimit int
	Policy       domain.RateLimitPolicy

	// AllowSharedTarget lets several running jobs write into the same
	// target guild.
	AllowSharedTarget bool
}

// StartCloneInput describes a clone request.
type StartCloneInput struct {
	SourceGuildID string
	TargetGuildID string
	Token         string
	Options       domain.CloneOptions
	CreatedBy     *int64
}

type activeJob struct {
	job       *cloner.Job
	createdBy *int64
	createdAt time.Time
}

// CloneService owns the running clone jobs. Each job runs on its own
// goroutine with its own API client and entity mapping.
type CloneService struct {
	runs    CloneRunStore
	newAPI  APIFactory
	sinks   cloner.MultiSink
	cfg     CloneConfig
	jobOpts []cloner.Option

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	active map[string]*activeJob
}

// NewCloneService creates a new CloneService. Every job reports to sinks.
func NewCloneService(runs CloneRunStore, newAPI APIFactory, cfg CloneConfig, sinks ...cloner.Sink) *CloneService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CloneService{
		runs:   runs,
		newAPI: newAPI,
		sinks:  cloner.MultiSink(sinks),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		active: make(map[string]*activeJob),
	}
}

// WithJobOptions applies opts to every job started afterwards.
func (s *CloneService) WithJobOptions(opts ...cloner.Option) *CloneService {
	s.jobOpts = append(s.jobOpts, opts...)
	return s
}

// Start validates the request and launches a clone job in the background.
func (s *CloneService) Start(ctx context.Context, in StartCloneInput) (domain.JobSummary, error) {
	token := in.Token
	if token == "" {
		token = s.cfg.DefaultToken
	}
	if token == "" {
		return domain.JobSummary{}, &domain.ValidationError{Field: "token", Message: "a Discord credential is required"}
	}
	if !cloner.ValidSnowflake(in.SourceGuildID) {
		return domain.JobSummary{}, &domain.ValidationError{Field: "source_guild_id", Message: "must be a Discord ID"}
	}
	if !cloner.ValidSnowflake(in.TargetGuildID) {
		return domain.JobSummary{}, &domain.ValidationError{Field: "target_guild_id", Message: "must be a Discord ID"}
	}
	if in.SourceGuildID == in.TargetGuildID {
		return domain.JobSummary{}, &domain.ValidationError{Field: "target_guild_id", Message: domain.ErrSameGuild.Error()}
	}

	opts := in.Options.WithDefaults(s.cfg.MessageLimit, s.cfg.Policy)
	id := uuid.NewString()
	job := cloner.New(cloner.Config{
		ID:            id,
		SourceGuildID: in.SourceGuildID,
		TargetGuildID: in.TargetGuildID,
		Options:       opts,
		Delays:        cloner.DelaysFromBase(opts.BaseDelay(s.cfg.BaseDelay)),
	}, s.newAPI(token), s.sinks, s.jobOpts...)

	s.mu.Lock()
	if !s.cfg.AllowSharedTarget {
		for _, a := range s.active {
			if a.job.Summary().TargetGuildID == in.TargetGuildID {
				s.mu.Unlock()
				return domain.JobSummary{}, fmt.Errorf("%w: guild %s is already being cloned into", domain.ErrConflict, in.TargetGuildID)
			}
		}
	}
	entry := &activeJob{job: job, createdBy: in.CreatedBy, createdAt: time.Now()}
	s.active[id] = entry
	s.mu.Unlock()

	for _, sink := range s.sinks {
		if st, ok := sink.(interface{ JobStarted() }); ok {
			st.JobStarted()
		}
	}

	slog.Info("clone job started", "job_id", id, "source", in.SourceGuildID, "target", in.TargetGuildID,
		"stages", opts.EnabledStages())

	s.wg.Add(1)
	go s.run(entry)

	return job.Summary(), nil
}

func (s *CloneService) run(entry *activeJob) {
	defer s.wg.Done()
	job := entry.job

	job.Run(s.ctx)

	summary := job.Summary()
	run := domain.CloneRun{
		ID:            summary.ID,
		SourceGuildID: summary.SourceGuildID,
		TargetGuildID: summary.TargetGuildID,
		Stats:         summary.Stats,
		CreatedBy:     entry.createdBy,
		CreatedAt:     entry.createdAt,
	}.WithStatus(summary.Status, job.Failure())

	if s.runs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.runs.Insert(ctx, run); err != nil {
			slog.Error("failed to persist clone run", "job_id", run.ID, "error", err)
		}
		cancel()
	}

	s.mu.Lock()
	delete(s.active, job.ID())
	s.mu.Unlock()

	for _, sink := range s.sinks {
		if f, ok := sink.(interface{ JobFinished(domain.JobSummary) }); ok {
			f.JobFinished(summary)
		}
	}

	slog.Info("clone job finished", "job_id", run.ID, "status", run.Status, "errors", run.Errors)
}

// Stop requests cancellation of a running job.
func (s *CloneService) Stop(ctx context.Context, id string) (domain.JobSummary, error) {
	s.mu.RLock()
	entry, ok := s.active[id]
	s.mu.RUnlock()
	if ok {
		entry.job.Stop()
		return entry.job.Summary(), nil
	}

	if s.runs != nil {
		if _, err := s.runs.FindByID(ctx, id); err == nil {
			return domain.JobSummary{}, fmt.Errorf("%w: clone job %s already finished", domain.ErrConflict, id)
		}
	}
	return domain.JobSummary{}, domain.ErrNotFound
}

// Get returns a running job's live state, or a finished job's history.
func (s *CloneService) Get(ctx context.Context, id string) (domain.JobSummary, error) {
	s.mu.RLock()
	entry, ok := s.active[id]
	s.mu.RUnlock()
	if ok {
		return entry.job.Summary(), nil
	}

	if s.runs == nil {
		return domain.JobSummary{}, domain.ErrNotFound
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		return domain.JobSummary{}, err
	}
	return run.Summary(), nil
}

// List returns the running jobs, newest first, followed by up to limit
// finished ones.
func (s *CloneService) List(ctx context.Context, limit int) ([]domain.JobSummary, error) {
	s.mu.RLock()
	entries := make([]*activeJob, 0, len(s.active))
	for _, e := range s.active {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].createdAt.After(entries[b].createdAt)
	})

	out := make([]domain.JobSummary, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		sum := e.job.Summary()
		seen[sum.ID] = true
		out = append(out, sum)
	}

	if s.runs == nil || limit <= 0 {
		return out, nil
	}
	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list clone runs: %w", err)
	}
	for _, r := range runs {
		if !seen[r.ID] {
			out = append(out, r.Summary())
		}
	}
	return out, nil
}

// ValidateCredential checks a Discord credential and returns its user.
func (s *CloneService) ValidateCredential(ctx context.Context, token string) (*discordgo.User, error) {
	if token == "" {
		token = s.cfg.DefaultToken
	}
	if token == "" {
		return nil, &domain.ValidationError{Field: "token", Message: "a Discord credential is required"}
	}
	user, err := s.newAPI(token).CurrentUser(ctx)
	if err != nil {
		if discord.KindOf(err) == discord.KindUnauthorized {
			return nil, &domain.ValidationError{Field: "token", Message: "Discord rejected the credential"}
		}
		return nil, fmt.Errorf("validate credential: %w", err)
	}
	return user, nil
}

// Wait blocks until every job has finished.
func (s *CloneService) Wait() {
	s.wg.Wait()
}

// Shutdown stops all running jobs and waits for them until ctx ends.
func (s *CloneService) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, e := range s.active {
		e.job.Stop()
	}
	s.mu.RUnlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for clone jobs: %w", ctx.Err())
	}
}
