package collector

import (
	"context"
	"sort"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/fitbit"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"

	"go.uber.org/zap"
)

// DefaultIntradayEpoch 无检查点时的分钟级起点
var DefaultIntradayEpoch = time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)

// intradayMetric 提供方资源名 → intraday_metrics 字段
type intradayMetric struct {
	resource string
	field    string
}

var intradayMetrics = []intradayMetric{
	{resource: "heart", field: domain.IntradayHeartRate},
	{resource: "steps", field: domain.IntradaySteps},
	{resource: "calories", field: domain.IntradayCalories},
	{resource: "distance", field: domain.IntradayDistance},
	{resource: "floors", field: domain.IntradayFloors},
	{resource: "elevation", field: domain.IntradayElevation},
}

// IntradayCollector 分钟级采集器
// 单元为一天，但检查点是时间戳，每写入一个分钟点就前进一次
type IntradayCollector struct {
	base
	metrics repository.MetricsRepository
	epoch   time.Time
}

var _ Collector = (*IntradayCollector)(nil)

// NewIntradayCollector 创建分钟级采集器；epoch 为零值时使用默认起点
func NewIntradayCollector(deps Deps, metrics repository.MetricsRepository, epoch time.Time) *IntradayCollector {
	if epoch.IsZero() {
		epoch = DefaultIntradayEpoch
	}
	c := &IntradayCollector{metrics: metrics, epoch: epoch}
	c.base = newBase("intraday", deps, c)
	return c
}

func (c *IntradayCollector) process(ctx context.Context, device *domain.Device, session *fitbit.Session) domain.Outcome {
	log := c.logger.With(zap.Int64("device_id", device.ID))

	if device.LastSynch == nil {
		log.Warn("No last_synch for device")
		return domain.OutcomeError
	}
	bound := *device.LastSynch

	// after 为已提交的最后一个时间戳（不含）；无检查点时从 epoch 零点（含）开始
	var after *time.Time
	start := c.epoch
	if device.IntradayCheckpoint != nil {
		cp := *device.IntradayCheckpoint
		after = &cp
		start = cp.Add(time.Minute)
	}

	if !start.Before(bound) {
		return c.refreshDeviceInfo(ctx, log, device, session)
	}

	done := 0
	for day := truncateDay(start); day.Before(bound); day = day.AddDate(0, 0, 1) {
		if err := c.pace(ctx); err != nil {
			log.Info("Collection interrupted", zap.Time("date", day))
			break
		}

		result, err := c.collectDay(ctx, log, device, session, day, after, bound)
		c.recordUnit(result)
		if err != nil {
			log.Error("Failed to advance intraday checkpoint", zap.Error(err))
			return domain.OutcomeError
		}

		switch result {
		case unitRateLimited:
			log.Info("Rate limit reached", zap.String("date", day.Format(fitbit.DateLayout)))
			return domain.OutcomeRateLimited
		case unitFailed:
			// 检查点停在失败日之前，下个周期从该日重试
			log.Warn("Intraday day failed, stopping device",
				zap.String("date", day.Format(fitbit.DateLayout)),
				zap.Int("days_done", done),
			)
			return domain.OutcomeError
		}
		done++
		after = device.IntradayCheckpoint
	}

	outcome := domain.OutcomeSuccess
	log.Info("Intraday metrics processed",
		zap.String("outcome", string(outcome)),
		zap.Time("last_synch", bound),
	)
	return outcome
}

// collectDay 抓取一天六个序列，按时间戳合并后逐点写入
// 返回的 error 仅表示检查点写入失败
func (c *IntradayCollector) collectDay(
	ctx context.Context,
	log *zap.Logger,
	device *domain.Device,
	session *fitbit.Session,
	day time.Time,
	after *time.Time,
	bound time.Time,
) (unitResult, error) {
	date := day.Format(fitbit.DateLayout)
	points := make(map[time.Time]*domain.IntradayPoint)

	for _, m := range intradayMetrics {
		res := session.Fetch(ctx, fitbit.IntradayPath(m.resource, day), false)
		switch res.Kind {
		case fitbit.KindRateLimited:
			return unitRateLimited, nil
		case fitbit.KindOK:
		default:
			log.Error("Failed to fetch intraday series",
				zap.String("metric", m.field), zap.String("date", date), zap.Error(res.Error()))
			return unitFailed, nil
		}

		samples, err := fitbit.ParseIntraday(res.Payload, m.resource)
		if err != nil {
			log.Error("Failed to parse intraday series",
				zap.String("metric", m.field), zap.String("date", date), zap.Error(err))
			return unitFailed, nil
		}
		for _, sample := range samples {
			ts, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+sample.Time, day.Location())
			if err != nil {
				continue
			}
			p, ok := points[ts]
			if !ok {
				p = &domain.IntradayPoint{DeviceID: device.ID, Time: ts}
				points[ts] = p
			}
			p.Set(m.field, sample.Value)
		}
	}

	timestamps := make([]time.Time, 0, len(points))
	for ts := range points {
		if after != nil && !ts.After(*after) {
			continue
		}
		// 不采集设备自身尚未上报的时间段
		if !ts.Before(bound) {
			continue
		}
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	stored := 0
	for _, ts := range timestamps {
		p := points[ts]
		if p.IsEmpty() {
			continue
		}
		if err := c.metrics.UpsertIntradayPoint(ctx, p); err != nil {
			log.Error("Failed to store intraday point", zap.Time("time", ts), zap.Error(err))
			return unitFailed, nil
		}
		if err := c.advance(ctx, device, ts); err != nil {
			return unitFailed, err
		}
		stored++
	}

	// 整天都在上界之前：推进到当天最后一分钟，空白的尾部或整天无数据不会反复重抓
	lastMinute := day.AddDate(0, 0, 1).Add(-time.Minute)
	if lastMinute.Before(bound) {
		if err := c.advance(ctx, device, lastMinute); err != nil {
			return unitFailed, err
		}
	}

	if stored == 0 {
		log.Info("No intraday data for day", zap.String("date", date))
	} else {
		log.Info("Intraday points collected", zap.String("date", date), zap.Int("points", stored))
	}
	return unitDone, nil
}

func (c *IntradayCollector) advance(ctx context.Context, device *domain.Device, ts time.Time) error {
	if device.IntradayCheckpoint != nil && !ts.After(*device.IntradayCheckpoint) {
		return nil
	}
	if err := c.deps.Devices.UpdateIntradayCheckpoint(ctx, device.ID, ts); err != nil {
		return err
	}
	device.IntradayCheckpoint = &ts
	return nil
}

// refreshDeviceInfo 已追上上界时，从设备信息端点刷新 last_synch 与型号
func (c *IntradayCollector) refreshDeviceInfo(ctx context.Context, log *zap.Logger, device *domain.Device, session *fitbit.Session) domain.Outcome {
	res := session.Fetch(ctx, fitbit.DevicesPath, false)
	switch res.Kind {
	case fitbit.KindRateLimited:
		return domain.OutcomeRateLimited
	case fitbit.KindOK:
	default:
		log.Error("Failed to refresh device info", zap.Error(res.Error()))
		return domain.OutcomeError
	}

	info, err := fitbit.ParseDevices(res.Payload)
	if err != nil {
		log.Error("Failed to parse device info", zap.Error(err))
		return domain.OutcomeError
	}

	if info.LastSyncTime.After(*device.LastSynch) {
		ts := info.LastSyncTime.Time
		if err := c.deps.Devices.UpdateLastSynch(ctx, device.ID, ts); err != nil {
			log.Error("Failed to update last_synch", zap.Error(err))
			return domain.OutcomeError
		}
		device.LastSynch = &ts
	}
	if info.DeviceVersion != "" && info.DeviceVersion != device.DeviceType {
		if err := c.deps.Devices.UpdateDeviceType(ctx, device.ID, info.DeviceVersion); err != nil {
			log.Warn("Failed to update device type", zap.Error(err))
		} else {
			device.DeviceType = info.DeviceVersion
		}
	}

	log.Info("Device is up to date for intraday", zap.Time("last_synch", *device.LastSynch))
	return domain.OutcomeSuccess
}
