package domain

import "time"

// DailySummary 每日汇总（对应 daily_summaries 表，(device_id, date) 唯一）
// 所有指标可空：提供方未返回的字段保持 NULL
type DailySummary struct {
	DeviceID int64     `db:"device_id"`
	Date     time.Time `db:"date"`

	Steps             *int64   `db:"steps"`
	HeartRate         *int64   `db:"heart_rate"` // 静息心率
	SleepMinutes      *int64   `db:"sleep_minutes"`
	Calories          *int64   `db:"calories"`
	Distance          *float64 `db:"distance"`
	Floors            *int64   `db:"floors"`
	Elevation         *float64 `db:"elevation"`
	ActiveMinutes     *int64   `db:"active_minutes"`
	SedentaryMinutes  *int64   `db:"sedentary_minutes"`
	NutritionCalories *int64   `db:"nutrition_calories"`
	Water             *float64 `db:"water"`
	Weight            *float64 `db:"weight"`
	BMI               *float64 `db:"bmi"`
	Fat               *float64 `db:"fat"`
	OxygenSaturation  *float64 `db:"oxygen_saturation"`
	RespiratoryRate   *float64 `db:"respiratory_rate"`
	Temperature       *float64 `db:"temperature"`
}

// IsEmpty 核心字段全为零：设备当天未佩戴
func (s *DailySummary) IsEmpty() bool {
	return intOrZero(s.Steps) == 0 &&
		intOrZero(s.HeartRate) == 0 &&
		floatOrZero(s.Distance) == 0 &&
		intOrZero(s.SedentaryMinutes) == 1440
}

// Intraday metric 字段名（与 intraday_metrics 列名一致）
const (
	IntradayHeartRate = "heart_rate"
	IntradaySteps     = "steps"
	IntradayCalories  = "calories"
	IntradayDistance  = "distance"
	IntradayFloors    = "floors"
	IntradayElevation = "elevation"
)

// IntradayFields 全部分钟级指标
var IntradayFields = []string{
	IntradayHeartRate,
	IntradaySteps,
	IntradayCalories,
	IntradayDistance,
	IntradayFloors,
	IntradayElevation,
}

// IntradayPoint 分钟级数据点（对应 intraday_metrics 表，(device_id, time) 唯一）
type IntradayPoint struct {
	DeviceID  int64     `db:"device_id"`
	Time      time.Time `db:"time"`
	HeartRate *float64  `db:"heart_rate"`
	Steps     *float64  `db:"steps"`
	Calories  *float64  `db:"calories"`
	Distance  *float64  `db:"distance"`
	Floors    *float64  `db:"floors"`
	Elevation *float64  `db:"elevation"`
}

// Set 按字段名赋值，未知字段返回 false
func (p *IntradayPoint) Set(field string, value float64) bool {
	v := value
	switch field {
	case IntradayHeartRate:
		p.HeartRate = &v
	case IntradaySteps:
		p.Steps = &v
	case IntradayCalories:
		p.Calories = &v
	case IntradayDistance:
		p.Distance = &v
	case IntradayFloors:
		p.Floors = &v
	case IntradayElevation:
		p.Elevation = &v
	default:
		return false
	}
	return true
}

// IsEmpty 无心率且无步数、无距离：视为未佩戴，不落库
func (p *IntradayPoint) IsEmpty() bool {
	return p.HeartRate == nil && floatOrZero(p.Steps) == 0 && floatOrZero(p.Distance) == 0
}

func intOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
