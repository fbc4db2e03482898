package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizations_CreateAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAuthorizationsRepository(db)

	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(10 * time.Minute)

	mock.ExpectExec(`INSERT INTO pending_authorizations`).
		WithArgs(int64(3), "state-1", "verifier-1", expires).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT id, device_id, state, code_verifier, expires_at, created_at`).
		WithArgs("state-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "device_id", "state", "code_verifier", "expires_at", "created_at"}).
			AddRow(int64(1), int64(3), "state-1", "verifier-1", expires, now))

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, 3, "state-1", "verifier-1", expires))

	p, err := repo.GetByState(ctx, "state-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(3), p.DeviceID)
	assert.Equal(t, "verifier-1", p.CodeVerifier)
	assert.False(t, p.Expired(now))
	assert.True(t, p.Expired(expires))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizations_GetByState_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAuthorizationsRepository(db)

	mock.ExpectQuery(`FROM pending_authorizations`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	p, err := repo.GetByState(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorizations_CleanupExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresAuthorizationsRepository(db)

	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM pending_authorizations WHERE expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.CleanupExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
