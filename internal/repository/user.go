package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/guildcloner/internal/domain"
)

const userColumns = `id, provider, provider_id, email, display_name, avatar_url, created_at, updated_at`

// UserRepository stores operators who signed in through Discord.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves an operator by ID.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return &user, nil
}

// Upsert records a login. The Discord account ID identifies the operator;
// profile fields are refreshed on every sign-in.
func (r *UserRepository) Upsert(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.Provider == "" {
		user.Provider = domain.AuthProviderDiscord
	}

	var saved domain.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (provider, provider_id, email, display_name, avatar_url)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (provider, provider_id) DO UPDATE
		 SET email = EXCLUDED.email, display_name = EXCLUDED.display_name,
		     avatar_url = EXCLUDED.avatar_url, updated_at = NOW()
		 RETURNING `+userColumns,
		user.Provider, user.ProviderID, user.Email, user.DisplayName, user.AvatarURL,
	).StructScan(&saved)
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", user.ProviderID, err)
	}
	return &saved, nil
}
