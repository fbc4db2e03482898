package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"

	"go.uber.org/zap"
)

// Service 读取已采集数据并计算统计
type Service struct {
	metrics repository.MetricsRepository
	maxGap  time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewService 创建统计服务
func NewService(metrics repository.MetricsRepository, maxGap time.Duration, logger *zap.Logger) *Service {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	return &Service{
		metrics: metrics,
		maxGap:  maxGap,
		now:     time.Now,
		logger:  logger,
	}
}

// LastUsage 最近 rangeDays 天的佩戴时长
// last_synch 为空或早于统计窗口时返回零值
func (s *Service) LastUsage(ctx context.Context, device *domain.Device, rangeDays int) (UsageStatistics, error) {
	empty := UsageStatistics{HoursPerDay: map[string]float64{}}
	if device.LastSynch == nil || rangeDays <= 0 {
		return empty, nil
	}

	end := s.now().UTC()
	start := end.AddDate(0, 0, -rangeDays)
	if !device.LastSynch.After(start) {
		return empty, nil
	}

	timestamps, err := s.metrics.GetIntradayTimestamps(ctx, device.ID, start, end)
	if err != nil {
		return empty, fmt.Errorf("failed to get intraday timestamps: %w", err)
	}

	stats := CalculateUsageStatistics(timestamps, s.maxGap)
	s.logger.Debug("Usage statistics computed",
		zap.Int64("device_id", device.ID),
		zap.Int("range_days", rangeDays),
		zap.Int("points", len(timestamps)),
		zap.Float64("total_hours", stats.TotalHours),
	)
	return stats, nil
}

// SyncData 当前时刻的同步状态
func (s *Service) SyncData(device *domain.Device) SyncData {
	return GetDeviceSyncData(device, s.now().UTC())
}
