// Package analytics 基于已采集数据的佩戴时长与同步健康度统计
package analytics

import (
	"sort"
	"time"
)

// DefaultMaxGap 相邻分钟点间隔不超过该值视为连续佩戴
const DefaultMaxGap = 5 * time.Minute

// UsageStatistics 佩戴时长统计
type UsageStatistics struct {
	HoursPerDay        map[string]float64 `json:"hours_per_day"` // key: 2006-01-02
	TotalHours         float64            `json:"total_hours"`
	AverageHoursPerDay float64            `json:"average_hours_per_day"`
	NumDays            int                `json:"num_days"`
}

// CalculateUsageStatistics 根据分钟级时间戳计算佩戴时长
// 间隔 <= maxGap 的相邻点之间计为佩戴；跨零点的区间在零点处拆分到两天
// 不修改入参
func CalculateUsageStatistics(timestamps []time.Time, maxGap time.Duration) UsageStatistics {
	stats := UsageStatistics{HoursPerDay: map[string]float64{}}
	if len(timestamps) < 2 {
		return stats
	}
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}

	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	seconds := make(map[string]float64)
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		gap := curr.Sub(prev)
		if gap > maxGap {
			continue
		}
		// 按零点逐段拆分
		for from := prev; from.Before(curr); {
			midnight := nextMidnight(from)
			to := curr
			if midnight.Before(curr) {
				to = midnight
			}
			seconds[dateKey(from)] += to.Sub(from).Seconds()
			from = to
		}
	}

	for day, s := range seconds {
		hours := s / 3600
		stats.HoursPerDay[day] = hours
		stats.TotalHours += hours
	}
	stats.NumDays = len(stats.HoursPerDay)
	if stats.NumDays > 0 {
		stats.AverageHoursPerDay = stats.TotalHours / float64(stats.NumDays)
	}
	return stats
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
