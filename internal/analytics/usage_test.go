package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCalculateUsageStatistics_EmptyAndSingle(t *testing.T) {
	for _, in := range [][]time.Time{nil, {at("2025-01-01T10:00")}} {
		stats := CalculateUsageStatistics(in, DefaultMaxGap)
		assert.Zero(t, stats.TotalHours)
		assert.Zero(t, stats.AverageHoursPerDay)
		assert.Zero(t, stats.NumDays)
		assert.Empty(t, stats.HoursPerDay)
	}
}

func TestCalculateUsageStatistics_ThreeMinutes(t *testing.T) {
	stats := CalculateUsageStatistics([]time.Time{at("2025-01-01T10:00"), at("2025-01-01T10:03")}, DefaultMaxGap)

	assert.InDelta(t, 3.0/60, stats.TotalHours, 1e-9)
	assert.Equal(t, 1, stats.NumDays)
	assert.InDelta(t, 3.0/60, stats.AverageHoursPerDay, 1e-9)
}

func TestCalculateUsageStatistics_SplitsAtMidnight(t *testing.T) {
	stats := CalculateUsageStatistics([]time.Time{at("2025-01-01T23:58"), at("2025-01-02T00:02")}, DefaultMaxGap)

	require.Len(t, stats.HoursPerDay, 2)
	assert.InDelta(t, 2.0/60, stats.HoursPerDay["2025-01-01"], 1e-9)
	assert.InDelta(t, 2.0/60, stats.HoursPerDay["2025-01-02"], 1e-9)
	assert.InDelta(t, 4.0/60, stats.TotalHours, 1e-9)
	assert.Equal(t, 2, stats.NumDays)
}

func TestCalculateUsageStatistics_GapsAndOrdering(t *testing.T) {
	in := []time.Time{
		at("2025-01-01T10:10"),
		at("2025-01-01T10:00"),
		at("2025-01-01T10:01"),
		at("2025-01-01T10:05"), // 间隔恰好 5 分钟，计入
		at("2025-01-01T10:20"), // 间隔 10 分钟，不计入
	}
	original := append([]time.Time(nil), in...)

	stats := CalculateUsageStatistics(in, DefaultMaxGap)

	// 10:00→10:01, 10:01→10:05, 10:05→10:10
	assert.InDelta(t, 10.0/60, stats.TotalHours, 1e-9)
	assert.Equal(t, original, in)
}

func TestGetDeviceSyncData(t *testing.T) {
	now := at("2025-03-20T12:00")

	tests := []struct {
		name       string
		lastSynch  *time.Time
		checkpoint *time.Time
		want       SyncStatus
		gapDays    int
	}{
		{"no last synch", nil, nil, NoData, 0},
		{"ok", ptr(at("2025-03-20T09:30")), ptr(at("2025-03-20T09:00")), SyncOK, 0},
		{"gap warning", ptr(at("2025-03-19T12:00")), ptr(at("2025-03-15T11:00")), GapWarning, 4},
		{"gap of exactly three days", ptr(at("2025-03-19T12:00")), ptr(at("2025-03-16T12:00")), SyncOK, 3},
		{"sync warning wins over gap", ptr(at("2025-03-12T11:00")), ptr(at("2025-03-01T00:00")), SyncWarning, 11},
		{"null checkpoint has no gap", ptr(at("2025-03-20T09:30")), nil, SyncOK, 0},
		{"null checkpoint still reports sync warning", ptr(at("2025-03-10T09:30")), nil, SyncWarning, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &domain.Device{ID: 1, LastSynch: tt.lastSynch, IntradayCheckpoint: tt.checkpoint}
			got := GetDeviceSyncData(d, now)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.gapDays, got.GapDays)
		})
	}
}

func TestGetDeviceSyncData_Elapsed(t *testing.T) {
	d := &domain.Device{LastSynch: ptr(at("2025-03-18T09:15")), IntradayCheckpoint: ptr(at("2025-03-18T09:00"))}

	got := GetDeviceSyncData(d, at("2025-03-20T12:40"))

	assert.Equal(t, 2, got.SyncDays)
	assert.Equal(t, 3, got.SyncHours)
	assert.Equal(t, 25, got.SyncMinutes)
}

type stubMetrics struct {
	repository.MetricsRepository
	timestamps []time.Time
	err        error
	from, to   time.Time
}

func (s *stubMetrics) GetIntradayTimestamps(_ context.Context, _ int64, from, to time.Time) ([]time.Time, error) {
	s.from, s.to = from, to
	return s.timestamps, s.err
}

func TestService_LastUsage(t *testing.T) {
	repo := &stubMetrics{timestamps: []time.Time{at("2025-03-19T08:00"), at("2025-03-19T08:04")}}
	svc := NewService(repo, 0, zap.NewNop())
	svc.now = func() time.Time { return at("2025-03-20T12:00") }

	stats, err := svc.LastUsage(context.Background(), &domain.Device{ID: 1, LastSynch: ptr(at("2025-03-20T11:00"))}, 7)

	require.NoError(t, err)
	assert.InDelta(t, 4.0/60, stats.TotalHours, 1e-9)
	assert.Equal(t, at("2025-03-13T12:00"), repo.from)
	assert.Equal(t, at("2025-03-20T12:00"), repo.to)
}

func TestService_LastUsage_StaleDevice(t *testing.T) {
	repo := &stubMetrics{}
	svc := NewService(repo, 0, zap.NewNop())
	svc.now = func() time.Time { return at("2025-03-20T12:00") }

	stats, err := svc.LastUsage(context.Background(), &domain.Device{ID: 1, LastSynch: ptr(at("2025-03-01T11:00"))}, 7)

	require.NoError(t, err)
	assert.Zero(t, stats.NumDays)
	assert.True(t, repo.from.IsZero())
}

func TestService_LastUsage_RepositoryError(t *testing.T) {
	repo := &stubMetrics{err: errors.New("db down")}
	svc := NewService(repo, 0, zap.NewNop())
	svc.now = func() time.Time { return at("2025-03-20T12:00") }

	_, err := svc.LastUsage(context.Background(), &domain.Device{ID: 1, LastSynch: ptr(at("2025-03-20T11:00"))}, 7)
	assert.Error(t, err)
}

func ptr(t time.Time) *time.Time { return &t }
