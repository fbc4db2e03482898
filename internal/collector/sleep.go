package collector

import (
	"context"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/fitbit"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"

	"go.uber.org/zap"
)

// DefaultSleepEpoch 无检查点时的睡眠日志起点
var DefaultSleepEpoch = time.Date(2025, 1, 24, 0, 0, 0, 0, time.UTC)

// SleepCollector 睡眠日志采集器，单元为一天
type SleepCollector struct {
	base
	sleep repository.SleepRepository
	epoch time.Time
}

var _ Collector = (*SleepCollector)(nil)

// NewSleepCollector 创建睡眠采集器；epoch 为零值时使用默认起点
func NewSleepCollector(deps Deps, sleep repository.SleepRepository, epoch time.Time) *SleepCollector {
	if epoch.IsZero() {
		epoch = DefaultSleepEpoch
	}
	c := &SleepCollector{sleep: sleep, epoch: epoch}
	c.base = newBase("sleep", deps, c)
	return c
}

func (c *SleepCollector) process(ctx context.Context, device *domain.Device, session *fitbit.Session) domain.Outcome {
	log := c.logger.With(zap.Int64("device_id", device.ID))

	if device.LastSynch == nil {
		log.Warn("No last_synch for device")
		return domain.OutcomeError
	}

	start, end := dayBounds(device.SleepCheckpoint, c.epoch, *device.LastSynch)
	if start.After(end) {
		log.Debug("Device is up to date for sleep logs")
		return domain.OutcomeSuccess
	}

	outcome := c.walkDays(ctx, log, start, end,
		func(day time.Time) unitResult {
			return c.collectDay(ctx, log, device.ID, session, day)
		},
		func(day time.Time) error {
			if err := c.deps.Devices.UpdateSleepCheckpoint(ctx, device.ID, day); err != nil {
				return err
			}
			device.SleepCheckpoint = &day
			return nil
		},
	)

	log.Info("Sleep logs processed",
		zap.String("outcome", string(outcome)),
		zap.String("end_date", end.Format(fitbit.DateLayout)),
	)
	return outcome
}

// collectDay 一天无睡眠记录也算完成，检查点照常推进
func (c *SleepCollector) collectDay(ctx context.Context, log *zap.Logger, deviceID int64, session *fitbit.Session, day time.Time) unitResult {
	date := day.Format(fitbit.DateLayout)

	res := session.Fetch(ctx, fitbit.SleepPath(day), false)
	switch res.Kind {
	case fitbit.KindRateLimited:
		return unitRateLimited
	case fitbit.KindOK:
	default:
		log.Error("Failed to fetch sleep logs", zap.String("date", date), zap.Error(res.Error()))
		return unitFailed
	}

	var resp fitbit.SleepResponse
	if err := fitbit.Decode(res.Payload, &resp); err != nil {
		log.Error("Failed to parse sleep logs", zap.String("date", date), zap.Error(err))
		return unitFailed
	}

	sessions := make([]*domain.SleepSession, 0, len(resp.Sleep))
	for i := range resp.Sleep {
		sessions = append(sessions, toSleepSession(deviceID, &resp.Sleep[i]))
	}

	if err := c.sleep.SaveSessions(ctx, sessions); err != nil {
		log.Error("Failed to store sleep sessions", zap.String("date", date), zap.Error(err))
		return unitFailed
	}

	log.Debug("Sleep logs collected", zap.String("date", date), zap.Int("sessions", len(sessions)))
	return unitDone
}

// toSleepSession 提供方睡眠记录 → 领域模型；shortData 仅 stages 类型保留
func toSleepSession(deviceID int64, e *fitbit.SleepEntry) *domain.SleepSession {
	s := &domain.SleepSession{
		DeviceID: deviceID,
		Log: domain.SleepLog{
			StartTime:       e.StartTime.Time,
			EndTime:         e.EndTime.Time,
			IsMainSleep:     e.IsMainSleep,
			DurationSeconds: e.Duration / 1000,
			MinutesAsleep:   e.MinutesAsleep,
			MinutesAwake:    e.MinutesAwake,
			MinutesInBed:    e.TimeInBed,
			LogType:         e.LogType,
			Type:            e.Type,
		},
	}

	for _, l := range e.Levels.Data {
		s.Levels = append(s.Levels, domain.SleepLevel{
			Time:    l.DateTime.Time,
			Level:   l.Level,
			Seconds: l.Seconds,
		})
	}
	if e.Type == domain.SleepTypeStages {
		for _, l := range e.Levels.ShortData {
			s.ShortLevels = append(s.ShortLevels, domain.SleepShortLevel{
				Time:    l.DateTime.Time,
				Seconds: l.Seconds,
			})
		}
	}
	return s
}
