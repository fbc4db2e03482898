package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
)

// PostgresAuthorizationsRepository 待完成授权 Repository 实现
type PostgresAuthorizationsRepository struct {
	db *sql.DB
}

// NewPostgresAuthorizationsRepository 创建待完成授权 Repository
func NewPostgresAuthorizationsRepository(db *sql.DB) *PostgresAuthorizationsRepository {
	return &PostgresAuthorizationsRepository{db: db}
}

// 确保实现了接口
var _ AuthorizationsRepository = (*PostgresAuthorizationsRepository)(nil)

// Create 保存 state 与 code_verifier
func (r *PostgresAuthorizationsRepository) Create(ctx context.Context, deviceID int64, state, codeVerifier string, expiresAt time.Time) error {
	query := `
		INSERT INTO pending_authorizations (device_id, state, code_verifier, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, deviceID, state, codeVerifier, expiresAt); err != nil {
		return fmt.Errorf("failed to store pending authorization: %w", err)
	}
	return nil
}

// GetByState 根据 state 查询
func (r *PostgresAuthorizationsRepository) GetByState(ctx context.Context, state string) (*domain.PendingAuthorization, error) {
	query := `
		SELECT id, device_id, state, code_verifier, expires_at, created_at
		FROM pending_authorizations
		WHERE state = $1
	`
	var p domain.PendingAuthorization
	err := r.db.QueryRowContext(ctx, query, state).Scan(
		&p.ID,
		&p.DeviceID,
		&p.State,
		&p.CodeVerifier,
		&p.ExpiresAt,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending authorization: %w", err)
	}
	return &p, nil
}

// DeleteByState 删除已完成的授权
func (r *PostgresAuthorizationsRepository) DeleteByState(ctx context.Context, state string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_authorizations WHERE state = $1`, state); err != nil {
		return fmt.Errorf("failed to delete pending authorization: %w", err)
	}
	return nil
}

// CleanupExpired 清理过期授权
func (r *PostgresAuthorizationsRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pending_authorizations WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup pending authorizations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup pending authorizations: %w", err)
	}
	return n, nil
}
