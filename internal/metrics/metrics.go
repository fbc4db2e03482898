// Package metrics 采集结果与周期的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/collector"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/orchestrator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder 实现 collector.Recorder 与 orchestrator.Recorder
type Recorder struct {
	DevicesProcessed *prometheus.CounterVec
	DeviceDuration   *prometheus.HistogramVec
	UnitsProcessed   *prometheus.CounterVec
	Cycles           *prometheus.CounterVec
	CycleDuration    *prometheus.HistogramVec
	CycleDevices     *prometheus.GaugeVec
	NextSleep        *prometheus.GaugeVec
}

var (
	_ collector.Recorder    = (*Recorder)(nil)
	_ orchestrator.Recorder = (*Recorder)(nil)
)

// New 在 reg 上注册全部指标
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		DevicesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wearable_collector_devices_processed_total",
				Help: "Devices processed by collector and outcome",
			},
			[]string{"collector", "outcome"},
		),
		DeviceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wearable_collector_device_duration_seconds",
				Help:    "Time spent processing one device",
				Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"collector"},
		),
		UnitsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wearable_collector_units_total",
				Help: "Units of work (days) by collector and result",
			},
			[]string{"collector", "result"}, // done, failed, rate_limited
		),
		Cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wearable_orchestrator_cycles_total",
				Help: "Completed collection cycles",
			},
			[]string{"collector"},
		),
		CycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wearable_orchestrator_cycle_duration_seconds",
				Help:    "Duration of a collection cycle",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"collector"},
		),
		CycleDevices: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wearable_orchestrator_cycle_devices",
				Help: "Device outcomes in the last cycle",
			},
			[]string{"collector", "outcome"},
		),
		NextSleep: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wearable_orchestrator_next_sleep_seconds",
				Help: "Pause chosen after the last cycle",
			},
			[]string{"collector"},
		),
	}
}

// DeviceProcessed 实现 collector.Recorder
func (r *Recorder) DeviceProcessed(name string, outcome domain.Outcome, elapsed time.Duration) {
	r.DevicesProcessed.WithLabelValues(name, string(outcome)).Inc()
	r.DeviceDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// UnitProcessed 实现 collector.Recorder
func (r *Recorder) UnitProcessed(name string, result string) {
	r.UnitsProcessed.WithLabelValues(name, result).Inc()
}

// CycleFinished 实现 orchestrator.Recorder
func (r *Recorder) CycleFinished(name string, counts domain.OutcomeCounts, elapsed, next time.Duration) {
	r.Cycles.WithLabelValues(name).Inc()
	r.CycleDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	r.CycleDevices.WithLabelValues(name, string(domain.OutcomeSuccess)).Set(float64(counts.Success))
	r.CycleDevices.WithLabelValues(name, string(domain.OutcomeRateLimited)).Set(float64(counts.RateLimited))
	r.CycleDevices.WithLabelValues(name, string(domain.OutcomeError)).Set(float64(counts.Error))
	r.NextSleep.WithLabelValues(name).Set(next.Seconds())
}

// RegisterBreakerState 令牌端点熔断器状态：closed=0, half-open=1, open=2
func RegisterBreakerState(reg prometheus.Registerer, state func() string) {
	promauto.With(reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "wearable_token_breaker_state",
			Help: "Token endpoint circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		func() float64 {
			switch state() {
			case "open":
				return 2
			case "half-open":
				return 1
			default:
				return 0
			}
		},
	)
}
