package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/guildcloner/internal/domain"
)

const cloneRunColumns = `id, source_guild_id, target_guild_id, status,
	roles_cloned, categories_cloned, text_channels_cloned, voice_channels_cloned,
	messages_cloned, emojis_cloned, webhooks_cloned, errors, started_at, progress, last_message,
	error_msg, created_by, finished_at, created_at`

// CloneRunRepository stores the history of finished clone jobs.
type CloneRunRepository struct {
	db *sqlx.DB
}

// NewCloneRunRepository creates a new CloneRunRepository.
func NewCloneRunRepository(db *sqlx.DB) *CloneRunRepository {
	return &CloneRunRepository{db: db}
}

// Insert records a finished clone job.
func (r *CloneRunRepository) Insert(ctx context.Context, run domain.CloneRun) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO clone_runs (id, source_guild_id, target_guild_id, status,
		     roles_cloned, categories_cloned, text_channels_cloned, voice_channels_cloned,
		     messages_cloned, emojis_cloned, webhooks_cloned, errors, started_at, progress, last_message,
		     error_msg, created_by, finished_at)
		 VALUES (:id, :source_guild_id, :target_guild_id, :status,
		     :roles_cloned, :categories_cloned, :text_channels_cloned, :voice_channels_cloned,
		     :messages_cloned, :emojis_cloned, :webhooks_cloned, :errors, :started_at, :progress, :last_message,
		     :error_msg, :created_by, :finished_at)`, run)
	if err != nil {
		return fmt.Errorf("insert clone run %s: %w", run.ID, err)
	}
	return nil
}

// FindByID retrieves a clone run by its job ID.
func (r *CloneRunRepository) FindByID(ctx context.Context, id string) (*domain.CloneRun, error) {
	var run domain.CloneRun
	err := r.db.GetContext(ctx, &run,
		`SELECT `+cloneRunColumns+` FROM clone_runs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find clone run %s: %w", id, err)
	}
	return &run, nil
}

// ListRecent returns the most recently finished clone runs.
func (r *CloneRunRepository) ListRecent(ctx context.Context, limit int) ([]domain.CloneRun, error) {
	runs := []domain.CloneRun{}
	err := r.db.SelectContext(ctx, &runs,
		`SELECT `+cloneRunColumns+` FROM clone_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list clone runs: %w", err)
	}
	return runs, nil
}
