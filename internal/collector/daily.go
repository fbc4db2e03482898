package collector

import (
	"context"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/fitbit"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"

	"go.uber.org/zap"
)

// DefaultDailyEpoch 无检查点时的每日汇总起点
var DefaultDailyEpoch = time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC)

// dailyEndpoint 端点 → 提取函数 → 目标字段
type dailyEndpoint struct {
	name     string
	path     func(time.Time) string
	optional bool
	extract  func(payload []byte, s *domain.DailySummary) error
}

// dailyEndpoints 一天需要调用的全部端点
// optional 端点失败只置空对应字段，不影响当天结果
var dailyEndpoints = []dailyEndpoint{
	{
		name: "activity",
		path: fitbit.ActivitySummaryPath,
		extract: func(payload []byte, s *domain.DailySummary) error {
			var r fitbit.ActivitySummaryResponse
			if err := fitbit.Decode(payload, &r); err != nil {
				return err
			}
			s.Steps = r.Summary.Steps
			s.Distance = r.TotalDistance()
			s.Calories = r.Summary.CaloriesOut
			s.Floors = r.Summary.Floors
			s.Elevation = r.Summary.Elevation
			s.ActiveMinutes = r.Summary.VeryActiveMinutes
			s.SedentaryMinutes = r.Summary.SedentaryMinutes
			return nil
		},
	},
	{
		name: "heart",
		path: fitbit.HeartPath,
		extract: func(payload []byte, s *domain.DailySummary) error {
			var r fitbit.HeartResponse
			if err := fitbit.Decode(payload, &r); err != nil {
				return err
			}
			s.HeartRate = r.RestingHeartRate()
			return nil
		},
	},
	{
		name: "sleep",
		path: fitbit.SleepPath,
		extract: func(payload []byte, s *domain.DailySummary) error {
			var r fitbit.SleepResponse
			if err := fitbit.Decode(payload, &r); err != nil {
				return err
			}
			s.SleepMinutes = r.TotalMinutesAsleep()
			return nil
		},
	},
	{
		name: "nutrition",
		path: fitbit.FoodLogPath,
		extract: func(payload []byte, s *domain.DailySummary) error {
			var r fitbit.FoodLogResponse
			if err := fitbit.Decode(payload, &r); err != nil {
				return err
			}
			s.NutritionCalories = r.Summary.Calories
			return nil
		},
	},
	{
		name: "water",
		path: fitbit.WaterLogPath,
		extract: func(payload []byte, s *domain.DailySummary) error {
			var r fitbit.WaterLogResponse
			if err := fitbit.Decode(payload, &r); err != nil {
				return err
			}
			s.Water = r.Summary.Water
			return nil
		},
	},
	{
		name:     "oxygen_saturation",
		path:     fitbit.SpO2Path,
		optional: true,
		extract: func(payload []byte, s *domain.DailySummary) error {
			var r fitbit.SpO2Response
			if err := fitbit.Decode(payload, &r); err != nil {
				return err
			}
			s.OxygenSaturation = r.Avg()
			return nil
		},
	},
	{
		name:     "respiratory_rate",
		path:     fitbit.BreathingRatePath,
		optional: true,
		extract: func(payload []byte, s *domain.DailySummary) error {
			var r fitbit.BreathingRateResponse
			if err := fitbit.Decode(payload, &r); err != nil {
				return err
			}
			s.RespiratoryRate = r.Rate()
			return nil
		},
	},
	{
		name:     "temperature",
		path:     fitbit.CoreTemperaturePath,
		optional: true,
		extract: func(payload []byte, s *domain.DailySummary) error {
			var r fitbit.TemperatureResponse
			if err := fitbit.Decode(payload, &r); err != nil {
				return err
			}
			s.Temperature = r.Core()
			return nil
		},
	},
}

// DailyCollector 每日汇总采集器，单元为一天
type DailyCollector struct {
	base
	metrics repository.MetricsRepository
	epoch   time.Time
}

var _ Collector = (*DailyCollector)(nil)

// NewDailyCollector 创建每日汇总采集器；epoch 为零值时使用默认起点
func NewDailyCollector(deps Deps, metrics repository.MetricsRepository, epoch time.Time) *DailyCollector {
	if epoch.IsZero() {
		epoch = DefaultDailyEpoch
	}
	c := &DailyCollector{metrics: metrics, epoch: epoch}
	c.base = newBase("daily_summaries", deps, c)
	return c
}

func (c *DailyCollector) process(ctx context.Context, device *domain.Device, session *fitbit.Session) domain.Outcome {
	log := c.logger.With(zap.Int64("device_id", device.ID))

	if device.LastSynch == nil {
		log.Warn("No last_synch for device")
		return domain.OutcomeError
	}

	start, end := dayBounds(device.DailySummariesCheckpoint, c.epoch, *device.LastSynch)
	if start.After(end) {
		log.Debug("Device is up to date for daily summaries")
		return domain.OutcomeSuccess
	}

	outcome := c.walkDays(ctx, log, start, end,
		func(day time.Time) unitResult {
			return c.collectDay(ctx, log, device.ID, session, day)
		},
		func(day time.Time) error {
			if err := c.deps.Devices.UpdateDailyCheckpoint(ctx, device.ID, day); err != nil {
				return err
			}
			device.DailySummariesCheckpoint = &day
			return nil
		},
	)

	log.Info("Daily summaries processed",
		zap.String("outcome", string(outcome)),
		zap.String("end_date", end.Format(fitbit.DateLayout)),
	)
	return outcome
}

func (c *DailyCollector) collectDay(ctx context.Context, log *zap.Logger, deviceID int64, session *fitbit.Session, day time.Time) unitResult {
	date := day.Format(fitbit.DateLayout)
	summary := &domain.DailySummary{DeviceID: deviceID, Date: day}

	for _, ep := range dailyEndpoints {
		res := session.Fetch(ctx, ep.path(day), ep.optional)
		switch res.Kind {
		case fitbit.KindRateLimited:
			return unitRateLimited
		case fitbit.KindOK:
		default:
			if ep.optional {
				log.Warn("Optional endpoint failed, leaving field empty",
					zap.String("endpoint", ep.name), zap.String("date", date), zap.Error(res.Error()))
				continue
			}
			log.Error("Failed to fetch daily summary",
				zap.String("endpoint", ep.name), zap.String("date", date), zap.Error(res.Error()))
			return unitFailed
		}

		if err := ep.extract(res.Payload, summary); err != nil {
			if ep.optional {
				log.Warn("Optional endpoint unparseable, leaving field empty",
					zap.String("endpoint", ep.name), zap.String("date", date), zap.Error(err))
				continue
			}
			log.Error("Failed to parse daily summary",
				zap.String("endpoint", ep.name), zap.String("date", date), zap.Error(err))
			return unitFailed
		}
	}

	if summary.IsEmpty() {
		log.Debug("Empty day, advancing checkpoint without storing", zap.String("date", date))
		return unitDone
	}

	if err := c.metrics.UpsertDailySummary(ctx, summary); err != nil {
		log.Error("Failed to store daily summary", zap.String("date", date), zap.Error(err))
		return unitFailed
	}
	log.Info("Daily summary collected", zap.String("date", date))
	return unitDone
}
