// Package collector 增量采集：每设备从检查点向上界逐单元推进
package collector

import (
	"context"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/fitbit"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Collector 采集器公共契约
type Collector interface {
	Name() string
	// ProcessOneDevice 所有单元级错误在内部消化，只返回三态结果
	ProcessOneDevice(ctx context.Context, device *domain.Device) domain.Outcome
	// ProcessAllDevices 顺序处理所有 authorized 设备
	ProcessAllDevices(ctx context.Context) domain.OutcomeCounts
}

// Recorder 采集指标（可选）
type Recorder interface {
	DeviceProcessed(collector string, outcome domain.Outcome, elapsed time.Duration)
	UnitProcessed(collector string, result string)
}

// Deps 三种采集器共享的依赖
type Deps struct {
	Devices  repository.DevicesRepository
	Tokens   fitbit.TokenSource
	Sessions *fitbit.SessionFactory
	// UnitInterval 相邻单元之间的最小间隔，<=0 表示不限速
	UnitInterval time.Duration
	Recorder     Recorder
	Logger       *zap.Logger
}

// unitResult 单个工作单元（一天）的结果
type unitResult int

const (
	unitDone unitResult = iota
	unitFailed
	unitRateLimited
)

func (r unitResult) String() string {
	switch r {
	case unitDone:
		return "done"
	case unitRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// deviceProcessor 各采集器的具体逻辑，会话已建立
type deviceProcessor interface {
	process(ctx context.Context, device *domain.Device, session *fitbit.Session) domain.Outcome
}

// base 公共部分：令牌解析、设备遍历、单元限速
type base struct {
	name      string
	deps      Deps
	throttle  *rate.Limiter
	logger    *zap.Logger
	processor deviceProcessor
}

func newBase(name string, deps Deps, p deviceProcessor) base {
	limit := rate.Inf
	if deps.UnitInterval > 0 {
		limit = rate.Every(deps.UnitInterval)
	}
	return base{
		name:      name,
		deps:      deps,
		throttle:  rate.NewLimiter(limit, 1),
		logger:    deps.Logger.With(zap.String("collector", name)),
		processor: p,
	}
}

// Name 采集器名称
func (b *base) Name() string { return b.name }

// ProcessOneDevice 处理单个设备
func (b *base) ProcessOneDevice(ctx context.Context, device *domain.Device) domain.Outcome {
	start := time.Now()
	outcome := b.processOne(ctx, device)
	if b.deps.Recorder != nil {
		b.deps.Recorder.DeviceProcessed(b.name, outcome, time.Since(start))
	}
	return outcome
}

func (b *base) processOne(ctx context.Context, device *domain.Device) domain.Outcome {
	log := b.logger.With(zap.Int64("device_id", device.ID))

	pair, ok, err := b.deps.Tokens.Fetch(ctx, device.ID)
	if err != nil {
		log.Error("Failed to load tokens", zap.Error(err))
		return domain.OutcomeError
	}
	if !ok {
		log.Warn("No tokens for device, re-authorization required")
		return domain.OutcomeError
	}

	session := b.deps.Sessions.New(device.ID, pair)
	return b.processor.process(ctx, device, session)
}

// ProcessAllDevices 处理所有已授权设备
func (b *base) ProcessAllDevices(ctx context.Context) domain.OutcomeCounts {
	var counts domain.OutcomeCounts

	devices, err := b.deps.Devices.GetAllAuthorized(ctx)
	if err != nil {
		b.logger.Error("Failed to load authorized devices", zap.Error(err))
		return counts
	}
	if len(devices) == 0 {
		b.logger.Warn("No authorized devices found")
		return counts
	}

	for _, device := range devices {
		if ctx.Err() != nil {
			break
		}
		counts.Add(b.ProcessOneDevice(ctx, device))
	}

	b.logger.Info("Collection cycle finished",
		zap.Int("success", counts.Success),
		zap.Int("rate_limited", counts.RateLimited),
		zap.Int("error", counts.Error),
	)
	return counts
}

// pace 单元间限速，ctx 取消时返回错误
func (b *base) pace(ctx context.Context) error {
	return b.throttle.Wait(ctx)
}

func (b *base) recordUnit(r unitResult) {
	if b.deps.Recorder != nil {
		b.deps.Recorder.UnitProcessed(b.name, r.String())
	}
}

// walkDays 从 start 到 end（含）逐日处理
// 成功的单元先 commit 检查点再继续；限流立即停止；失败的单元跳过
func (b *base) walkDays(
	ctx context.Context,
	log *zap.Logger,
	start, end time.Time,
	unit func(day time.Time) unitResult,
	commit func(day time.Time) error,
) domain.Outcome {
	var done, failed int
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := b.pace(ctx); err != nil {
			log.Info("Collection interrupted", zap.Time("date", day))
			break
		}

		result := unit(day)
		b.recordUnit(result)

		switch result {
		case unitRateLimited:
			log.Info("Rate limit reached", zap.String("date", day.Format(fitbit.DateLayout)))
			return domain.OutcomeRateLimited
		case unitFailed:
			failed++
			log.Warn("Unit failed, continuing", zap.String("date", day.Format(fitbit.DateLayout)))
			continue
		}

		if err := commit(day); err != nil {
			log.Error("Failed to advance checkpoint", zap.String("date", day.Format(fitbit.DateLayout)), zap.Error(err))
			return domain.OutcomeError
		}
		done++
	}
	return outcomeOf(done, failed)
}

// outcomeOf 全部失败才算 error
func outcomeOf(done, failed int) domain.Outcome {
	if failed > 0 && done == 0 {
		return domain.OutcomeError
	}
	return domain.OutcomeSuccess
}

// truncateDay 截断到当天零点
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dayBounds 日期型采集器的起止：start = 检查点+1天（或默认起点），end = last_synch 所在日-1天
func dayBounds(checkpoint *time.Time, epoch time.Time, lastSynch time.Time) (time.Time, time.Time) {
	start := truncateDay(epoch)
	if checkpoint != nil {
		start = truncateDay(*checkpoint).AddDate(0, 0, 1)
	}
	end := truncateDay(lastSynch).AddDate(0, 0, -1)
	return start, end
}
