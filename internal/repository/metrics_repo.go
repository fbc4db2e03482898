package repository

import (
	"context"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
)

// MetricsRepository 每日汇总与分钟级指标 Repository 接口
type MetricsRepository interface {
	// UpsertDailySummary 按 (device_id, date) 覆盖写入
	UpsertDailySummary(ctx context.Context, s *domain.DailySummary) error

	// UpsertIntradayPoint 一条语句写入合并后的分钟点，NULL 字段不覆盖已有值
	UpsertIntradayPoint(ctx context.Context, p *domain.IntradayPoint) error

	// InsertIntradayMetric 单字段写入，field 必须属于 domain.IntradayFields
	InsertIntradayMetric(ctx context.Context, deviceID int64, ts time.Time, field string, value *float64) error

	// GetIntradayTimestamps [from, to) 内已采集的时间戳，升序
	GetIntradayTimestamps(ctx context.Context, deviceID int64, from, to time.Time) ([]time.Time, error)
}
