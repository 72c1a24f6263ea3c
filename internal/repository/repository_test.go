package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/guildcloner/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

var cloneRunFields = []string{"id", "source_guild_id", "target_guild_id", "status",
	"roles_cloned", "categories_cloned", "text_channels_cloned", "voice_channels_cloned",
	"messages_cloned", "emojis_cloned", "webhooks_cloned", "errors", "started_at", "progress", "last_message",
	"error_msg", "created_by", "finished_at", "created_at"}

func TestCloneRunRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCloneRunRepository(db)

	msg := "invalid Discord credential"
	run := domain.CloneRun{
		ID: "3f1c", SourceGuildID: "1", TargetGuildID: "2",
		Stats:    domain.Stats{RolesCloned: 4, Errors: 1, StartTime: time.Now()},
		ErrorMsg: &msg,
	}.WithStatus(domain.JobStatusFailed, msg)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clone_runs")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloneRunRepository_InsertError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCloneRunRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clone_runs")).
		WillReturnError(errors.New("connection reset"))

	err := repo.Insert(context.Background(), domain.CloneRun{ID: "3f1c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert clone run 3f1c")
}

func TestCloneRunRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCloneRunRepository(db)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clone_runs WHERE id = $1")).
		WithArgs("3f1c").
		WillReturnRows(sqlmock.NewRows(cloneRunFields).AddRow(
			"3f1c", "1", "2", "completed",
			3, 2, 5, 1, 40, 6, 2, 0, now, 100.0, "Cloning completed successfully!",
			nil, int64(7), now.Add(time.Minute), now))

	run, err := repo.FindByID(context.Background(), "3f1c")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, run.Status)
	assert.Equal(t, 5, run.TextChannelsCloned)
	assert.Equal(t, 40, run.MessagesCloned)
	assert.Equal(t, now, run.StartTime)
	assert.Nil(t, run.ErrorMsg)
	require.NotNil(t, run.CreatedBy)
	assert.Equal(t, int64(7), *run.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCloneRunRepository_FindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCloneRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clone_runs WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCloneRunRepository_ListRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCloneRunRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(cloneRunFields).
		AddRow("b", "1", "2", "stopped", 1, 0, 0, 0, 0, 0, 0, 0, now, 15.0, "", nil, nil, now, now).
		AddRow("a", "1", "2", "failed", 0, 0, 0, 0, 0, 0, 0, 1, now, 0.0, "", "boom", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(rows)

	runs, err := repo.ListRecent(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	require.NotNil(t, runs[1].ErrorMsg)
	assert.Equal(t, "boom", *runs[1].ErrorMsg)
}

func TestUserRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider", "provider_id", "email", "display_name", "avatar_url", "created_at", "updated_at"}).
			AddRow(int64(7), "discord", "555", "a@example.com", "Alice", nil, now, now))

	user, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.AuthProviderDiscord, user.Provider)
	assert.Equal(t, "Alice", user.DisplayName)
}

func TestUserRepository_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(domain.AuthProviderDiscord, "555", "a@example.com", "Alice", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider", "provider_id", "email", "display_name", "avatar_url", "created_at", "updated_at"}).
			AddRow(int64(1), "discord", "555", "a@example.com", "Alice", nil, now, now))

	user, err := repo.Upsert(context.Background(), domain.User{
		Provider: domain.AuthProviderDiscord, ProviderID: "555", Email: "a@example.com", DisplayName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS clone_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
