package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
)

// PostgresMetricsRepository 指标 Repository 实现
type PostgresMetricsRepository struct {
	db *sql.DB
}

// NewPostgresMetricsRepository 创建指标 Repository
func NewPostgresMetricsRepository(db *sql.DB) *PostgresMetricsRepository {
	return &PostgresMetricsRepository{db: db}
}

// 确保实现了接口
var _ MetricsRepository = (*PostgresMetricsRepository)(nil)

// UpsertDailySummary 写入每日汇总，重复日期覆盖
func (r *PostgresMetricsRepository) UpsertDailySummary(ctx context.Context, s *domain.DailySummary) error {
	query := `
		INSERT INTO daily_summaries (
			device_id, date, steps, heart_rate, sleep_minutes, calories, distance,
			floors, elevation, active_minutes, sedentary_minutes, nutrition_calories,
			water, weight, bmi, fat, oxygen_saturation, respiratory_rate, temperature
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19
		)
		ON CONFLICT (device_id, date) DO UPDATE SET
			steps = EXCLUDED.steps,
			heart_rate = EXCLUDED.heart_rate,
			sleep_minutes = EXCLUDED.sleep_minutes,
			calories = EXCLUDED.calories,
			distance = EXCLUDED.distance,
			floors = EXCLUDED.floors,
			elevation = EXCLUDED.elevation,
			active_minutes = EXCLUDED.active_minutes,
			sedentary_minutes = EXCLUDED.sedentary_minutes,
			nutrition_calories = EXCLUDED.nutrition_calories,
			water = EXCLUDED.water,
			weight = EXCLUDED.weight,
			bmi = EXCLUDED.bmi,
			fat = EXCLUDED.fat,
			oxygen_saturation = EXCLUDED.oxygen_saturation,
			respiratory_rate = EXCLUDED.respiratory_rate,
			temperature = EXCLUDED.temperature
	`
	_, err := r.db.ExecContext(ctx, query,
		s.DeviceID,
		s.Date.Format("2006-01-02"),
		nullInt(s.Steps),
		nullInt(s.HeartRate),
		nullInt(s.SleepMinutes),
		nullInt(s.Calories),
		nullFloat(s.Distance),
		nullInt(s.Floors),
		nullFloat(s.Elevation),
		nullInt(s.ActiveMinutes),
		nullInt(s.SedentaryMinutes),
		nullInt(s.NutritionCalories),
		nullFloat(s.Water),
		nullFloat(s.Weight),
		nullFloat(s.BMI),
		nullFloat(s.Fat),
		nullFloat(s.OxygenSaturation),
		nullFloat(s.RespiratoryRate),
		nullFloat(s.Temperature),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily summary: %w", err)
	}
	return nil
}

// UpsertIntradayPoint 写入合并后的分钟点
func (r *PostgresMetricsRepository) UpsertIntradayPoint(ctx context.Context, p *domain.IntradayPoint) error {
	query := `
		INSERT INTO intraday_metrics (
			device_id, time, heart_rate, steps, calories, distance, floors, elevation
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (device_id, time) DO UPDATE SET
			heart_rate = COALESCE(EXCLUDED.heart_rate, intraday_metrics.heart_rate),
			steps = COALESCE(EXCLUDED.steps, intraday_metrics.steps),
			calories = COALESCE(EXCLUDED.calories, intraday_metrics.calories),
			distance = COALESCE(EXCLUDED.distance, intraday_metrics.distance),
			floors = COALESCE(EXCLUDED.floors, intraday_metrics.floors),
			elevation = COALESCE(EXCLUDED.elevation, intraday_metrics.elevation)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.DeviceID,
		p.Time,
		nullFloat(p.HeartRate),
		nullFloat(p.Steps),
		nullFloat(p.Calories),
		nullFloat(p.Distance),
		nullFloat(p.Floors),
		nullFloat(p.Elevation),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert intraday point: %w", err)
	}
	return nil
}

// InsertIntradayMetric 写入单个字段
func (r *PostgresMetricsRepository) InsertIntradayMetric(ctx context.Context, deviceID int64, ts time.Time, field string, value *float64) error {
	if !isIntradayField(field) {
		return fmt.Errorf("unknown intraday metric %q", field)
	}
	// field 已通过白名单校验
	query := fmt.Sprintf(`
		INSERT INTO intraday_metrics (device_id, time, %[1]s)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id, time) DO UPDATE SET %[1]s = EXCLUDED.%[1]s
	`, field)
	if _, err := r.db.ExecContext(ctx, query, deviceID, ts, nullFloat(value)); err != nil {
		return fmt.Errorf("failed to insert intraday metric %s: %w", field, err)
	}
	return nil
}

// GetIntradayTimestamps 查询时间范围内的分钟时间戳
func (r *PostgresMetricsRepository) GetIntradayTimestamps(ctx context.Context, deviceID int64, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT time
		FROM intraday_metrics
		WHERE device_id = $1
		  AND time >= $2
		  AND time < $3
		ORDER BY time
	`
	rows, err := r.db.QueryContext(ctx, query, deviceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query intraday timestamps: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan intraday timestamp: %w", err)
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate intraday timestamps: %w", err)
	}
	return out, nil
}

func isIntradayField(field string) bool {
	for _, f := range domain.IntradayFields {
		if f == field {
			return true
		}
	}
	return false
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
