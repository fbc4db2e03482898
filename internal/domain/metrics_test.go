package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func TestDailySummary_IsEmpty(t *testing.T) {
	empty := DailySummary{Steps: i64(0), HeartRate: i64(0), Distance: f64(0), SedentaryMinutes: i64(1440)}
	assert.True(t, empty.IsEmpty())

	noHeart := DailySummary{Steps: i64(0), Distance: f64(0), SedentaryMinutes: i64(1440)}
	assert.True(t, noHeart.IsEmpty())

	worn := DailySummary{Steps: i64(12), HeartRate: i64(0), Distance: f64(0), SedentaryMinutes: i64(1440)}
	assert.False(t, worn.IsEmpty())

	partial := DailySummary{Steps: i64(0), HeartRate: i64(0), Distance: f64(0), SedentaryMinutes: i64(900)}
	assert.False(t, partial.IsEmpty())
}

func TestIntradayPoint_SetAndIsEmpty(t *testing.T) {
	p := IntradayPoint{Time: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	assert.True(t, p.IsEmpty())

	assert.True(t, p.Set(IntradaySteps, 0))
	assert.True(t, p.Set(IntradayCalories, 1.2))
	assert.True(t, p.IsEmpty())

	assert.True(t, p.Set(IntradayHeartRate, 61))
	assert.False(t, p.IsEmpty())
	assert.Equal(t, 61.0, *p.HeartRate)

	assert.False(t, p.Set("spo2", 97))
}

func TestOutcomeCounts(t *testing.T) {
	var c OutcomeCounts
	c.Add(OutcomeSuccess)
	c.Add(OutcomeRateLimited)
	c.Add(OutcomeError)
	c.Add(Outcome("unknown"))
	assert.Equal(t, 1, c.Success)
	assert.Equal(t, 1, c.RateLimited)
	assert.Equal(t, 2, c.Error)
	assert.Equal(t, 4, c.Total())
}
