package repository

import (
	"context"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
)

// CheckpointStore 每设备、每指标族的采集游标
// 所有 Update 方法只允许前进：旧值大于新值时保持不变
type CheckpointStore interface {
	GetDailyCheckpoint(ctx context.Context, deviceID int64) (*time.Time, error)
	UpdateDailyCheckpoint(ctx context.Context, deviceID int64, date time.Time) error

	GetIntradayCheckpoint(ctx context.Context, deviceID int64) (*time.Time, error)
	UpdateIntradayCheckpoint(ctx context.Context, deviceID int64, ts time.Time) error

	GetSleepCheckpoint(ctx context.Context, deviceID int64) (*time.Time, error)
	UpdateSleepCheckpoint(ctx context.Context, deviceID int64, date time.Time) error

	// last_synch 是设备自身最近一次与提供方同步的时间，作为采集上界
	GetLastSynch(ctx context.Context, deviceID int64) (*time.Time, error)
	UpdateLastSynch(ctx context.Context, deviceID int64, ts time.Time) error
}

// TokenStore 令牌列读写（存取的都是密文，加解密由 vault 负责）
type TokenStore interface {
	// GetTokens 返回密文；任一列为 NULL 时返回空串
	GetTokens(ctx context.Context, deviceID int64) (access, refresh string, err error)
	// UpdateTokens 单条语句同时写入两列
	UpdateTokens(ctx context.Context, deviceID int64, access, refresh string) error
}

// DevicesRepository 设备 Repository 接口
type DevicesRepository interface {
	CheckpointStore
	TokenStore

	// ========== 查询接口 ==========

	// GetByID 不存在时返回 nil, nil
	GetByID(ctx context.Context, deviceID int64) (*domain.Device, error)
	// GetByEmail 返回该地址最新登记的设备，不存在时返回 nil, nil
	GetByEmail(ctx context.Context, email string) (*domain.Device, error)
	// GetAllAuthorized 所有 authorized 设备，按 id 排序
	GetAllAuthorized(ctx context.Context) ([]*domain.Device, error)

	// ========== 写入接口 ==========

	Create(ctx context.Context, userID int64, email string, status domain.DeviceStatus) (int64, error)
	UpdateStatus(ctx context.Context, deviceID int64, status domain.DeviceStatus) error
	UpdateDeviceType(ctx context.Context, deviceID int64, deviceType string) error
}
