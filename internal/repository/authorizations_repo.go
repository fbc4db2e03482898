package repository

import (
	"context"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
)

// AuthorizationsRepository 待完成授权 Repository 接口
type AuthorizationsRepository interface {
	Create(ctx context.Context, deviceID int64, state, codeVerifier string, expiresAt time.Time) error
	// GetByState 不存在时返回 nil, nil；是否过期由调用方判断
	GetByState(ctx context.Context, state string) (*domain.PendingAuthorization, error)
	DeleteByState(ctx context.Context, state string) error
	// CleanupExpired 删除过期记录，返回删除条数
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}
