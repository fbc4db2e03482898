// Package orchestrator 按周期驱动单个采集器
package orchestrator

import (
	"context"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/collector"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Intervals 周期结束后的等待时长
type Intervals struct {
	NoDevices   time.Duration // 没有已授权设备
	RateLimited time.Duration // 所有设备都被限流
	Cycle       time.Duration // 其他情况
}

// DefaultIntervals 默认等待时长
var DefaultIntervals = Intervals{
	NoDevices:   60 * time.Second,
	RateLimited: 600 * time.Second,
	Cycle:       1800 * time.Second,
}

// NextInterval 根据本周期结果选择等待时长
func NextInterval(counts domain.OutcomeCounts, iv Intervals) time.Duration {
	total := counts.Total()
	switch {
	case total == 0:
		return iv.NoDevices
	case counts.RateLimited == total:
		return iv.RateLimited
	default:
		return iv.Cycle
	}
}

// CycleSummary 一个周期的汇总，发布到 Redis Stream
type CycleSummary struct {
	CycleID    string               `json:"cycle_id"`
	Collector  string               `json:"collector"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Counts     domain.OutcomeCounts `json:"counts"`
	NextSleep  string               `json:"next_sleep"`
}

// Publisher 周期汇总发布（可选）
type Publisher interface {
	PublishCycle(ctx context.Context, summary *CycleSummary) error
}

// Recorder 周期指标（可选）
type Recorder interface {
	CycleFinished(collector string, counts domain.OutcomeCounts, elapsed, next time.Duration)
}

// Orchestrator 单个采集器的周期循环
type Orchestrator struct {
	collector collector.Collector
	intervals Intervals
	publisher Publisher
	recorder  Recorder
	logger    *zap.Logger
	wake      chan struct{}
}

// Option 可选配置
type Option func(*Orchestrator)

// WithPublisher 设置周期汇总发布器
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithRecorder 设置周期指标记录器
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// New 创建 Orchestrator；intervals 中的零值使用默认值
func New(c collector.Collector, intervals Intervals, logger *zap.Logger, opts ...Option) *Orchestrator {
	if intervals.NoDevices <= 0 {
		intervals.NoDevices = DefaultIntervals.NoDevices
	}
	if intervals.RateLimited <= 0 {
		intervals.RateLimited = DefaultIntervals.RateLimited
	}
	if intervals.Cycle <= 0 {
		intervals.Cycle = DefaultIntervals.Cycle
	}
	o := &Orchestrator{
		collector: c,
		intervals: intervals,
		logger:    logger.With(zap.String("collector", c.Name())),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name 采集器名称
func (o *Orchestrator) Name() string { return o.collector.Name() }

// Wake 提前结束当前等待；等待中已有未处理的唤醒时合并
func (o *Orchestrator) Wake() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Run 循环执行采集周期，直到 ctx 取消
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("Orchestrator started",
		zap.Duration("no_devices_sleep", o.intervals.NoDevices),
		zap.Duration("rate_limit_sleep", o.intervals.RateLimited),
		zap.Duration("cycle_sleep", o.intervals.Cycle),
	)

	for {
		next := o.RunCycle(ctx)
		if ctx.Err() != nil {
			break
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			o.logger.Info("Orchestrator stopped")
			return
		case <-o.wake:
			timer.Stop()
			o.logger.Debug("Woken up before next cycle")
		case <-timer.C:
		}
	}

	o.logger.Info("Orchestrator stopped")
}

// RunCycle 执行一个周期，返回下次等待时长
func (o *Orchestrator) RunCycle(ctx context.Context) time.Duration {
	summary := &CycleSummary{
		CycleID:   uuid.New().String(),
		Collector: o.collector.Name(),
		StartedAt: time.Now().UTC(),
	}
	log := o.logger.With(zap.String("cycle_id", summary.CycleID))
	log.Info("Collection cycle started")

	summary.Counts = o.collector.ProcessAllDevices(ctx)
	summary.FinishedAt = time.Now().UTC()

	next := NextInterval(summary.Counts, o.intervals)
	summary.NextSleep = next.String()
	elapsed := summary.FinishedAt.Sub(summary.StartedAt)

	if o.recorder != nil {
		o.recorder.CycleFinished(summary.Collector, summary.Counts, elapsed, next)
	}
	if o.publisher != nil {
		if err := o.publisher.PublishCycle(ctx, summary); err != nil {
			log.Warn("Failed to publish cycle summary", zap.Error(err))
		}
	}

	log.Info("Collection cycle completed",
		zap.Int("devices", summary.Counts.Total()),
		zap.Int("success", summary.Counts.Success),
		zap.Int("rate_limited", summary.Counts.RateLimited),
		zap.Int("error", summary.Counts.Error),
		zap.Duration("elapsed", elapsed),
		zap.Duration("next_sleep", next),
	)
	return next
}
