package repository

import (
	"context"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
)

// SleepRepository 睡眠数据 Repository 接口（只插入，不更新）
type SleepRepository interface {
	CreateSession(ctx context.Context, deviceID int64) (int64, error)
	InsertLog(ctx context.Context, sessionID int64, log *domain.SleepLog) error
	InsertLevel(ctx context.Context, sessionID int64, level *domain.SleepLevel) error
	InsertShortLevel(ctx context.Context, sessionID int64, short *domain.SleepShortLevel) error

	// SaveSessions 在一个事务内写入一天的全部睡眠，每个按 session→log→levels→short levels 顺序
	// 成功后回填各 session 的 ID
	SaveSessions(ctx context.Context, sessions []*domain.SleepSession) error
}
