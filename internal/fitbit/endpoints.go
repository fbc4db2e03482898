package fitbit

import (
	"fmt"
	"time"
)

// DateLayout 提供方路径与响应中的日期格式
const DateLayout = "2006-01-02"

func day(d time.Time) string { return d.Format(DateLayout) }

// ActivitySummaryPath 当日活动汇总
func ActivitySummaryPath(d time.Time) string {
	return fmt.Sprintf("/1/user/-/activities/date/%s.json", day(d))
}

// HeartPath 当日心率（含静息心率）
func HeartPath(d time.Time) string {
	return fmt.Sprintf("/1/user/-/activities/heart/date/%s/1d.json", day(d))
}

// SleepPath 当日睡眠日志（v1.2）
func SleepPath(d time.Time) string {
	return fmt.Sprintf("/1.2/user/-/sleep/date/%s.json", day(d))
}

// FoodLogPath 当日饮食
func FoodLogPath(d time.Time) string {
	return fmt.Sprintf("/1/user/-/foods/log/date/%s.json", day(d))
}

// WaterLogPath 当日饮水
func WaterLogPath(d time.Time) string {
	return fmt.Sprintf("/1/user/-/foods/log/water/date/%s.json", day(d))
}

// SpO2Path 血氧
func SpO2Path(d time.Time) string {
	return fmt.Sprintf("/1/user/-/spo2/date/%s.json", day(d))
}

// BreathingRatePath 呼吸频率
func BreathingRatePath(d time.Time) string {
	return fmt.Sprintf("/1/user/-/br/date/%s.json", day(d))
}

// CoreTemperaturePath 核心体温
func CoreTemperaturePath(d time.Time) string {
	return fmt.Sprintf("/1/user/-/temp/core/date/%s.json", day(d))
}

// IntradayPath 单指标分钟级序列，resource 为 heart/steps/calories/distance/floors/elevation
func IntradayPath(resource string, d time.Time) string {
	return fmt.Sprintf("/1/user/-/activities/%s/date/%s/1d/1min.json", resource, day(d))
}

// DevicesPath 设备信息（型号、最近同步时间）
const DevicesPath = "/1/user/-/devices.json"
