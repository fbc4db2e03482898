package fitbit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// 提供方时间均为设备本地时间，不带时区；统一按 UTC 解析保存
var timeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime 解析提供方时间字符串
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized Fitbit time %q", s)
}

// Time 提供方本地时间
type Time struct {
	time.Time
}

// UnmarshalJSON 实现 json.Unmarshaler
func (t *Time) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ========== 每日汇总 ==========

// ActivitySummaryResponse /activities/date/{d}.json
type ActivitySummaryResponse struct {
	Summary struct {
		Steps       *int64 `json:"steps"`
		CaloriesOut *int64 `json:"caloriesOut"`
		Distances   []struct {
			Activity string  `json:"activity"`
			Distance float64 `json:"distance"`
		} `json:"distances"`
		Floors            *int64   `json:"floors"`
		Elevation         *float64 `json:"elevation"`
		VeryActiveMinutes *int64   `json:"veryActiveMinutes"`
		SedentaryMinutes  *int64   `json:"sedentaryMinutes"`
	} `json:"summary"`
}

// TotalDistance 优先取 activity=total，否则取第一项
func (r *ActivitySummaryResponse) TotalDistance() *float64 {
	if len(r.Summary.Distances) == 0 {
		return nil
	}
	for _, d := range r.Summary.Distances {
		if d.Activity == "total" {
			v := d.Distance
			return &v
		}
	}
	v := r.Summary.Distances[0].Distance
	return &v
}

// HeartResponse /activities/heart/date/{d}/1d.json
type HeartResponse struct {
	ActivitiesHeart []struct {
		DateTime string `json:"dateTime"`
		Value    struct {
			RestingHeartRate *int64 `json:"restingHeartRate"`
		} `json:"value"`
	} `json:"activities-heart"`
}

// RestingHeartRate 静息心率
func (r *HeartResponse) RestingHeartRate() *int64 {
	if len(r.ActivitiesHeart) == 0 {
		return nil
	}
	return r.ActivitiesHeart[0].Value.RestingHeartRate
}

// FoodLogResponse /foods/log/date/{d}.json
type FoodLogResponse struct {
	Summary struct {
		Calories *int64 `json:"calories"`
	} `json:"summary"`
}

// WaterLogResponse /foods/log/water/date/{d}.json
type WaterLogResponse struct {
	Summary struct {
		Water *float64 `json:"water"`
	} `json:"summary"`
}

// SpO2Response /spo2/date/{d}.json；无数据时为 {}
type SpO2Response struct {
	Value *struct {
		Avg *float64 `json:"avg"`
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	} `json:"value"`
}

// Avg 当日平均血氧
func (r *SpO2Response) Avg() *float64 {
	if r.Value == nil {
		return nil
	}
	return r.Value.Avg
}

// BreathingRateResponse /br/date/{d}.json
type BreathingRateResponse struct {
	BR []struct {
		DateTime string `json:"dateTime"`
		Value    struct {
			BreathingRate *float64 `json:"breathingRate"`
		} `json:"value"`
	} `json:"br"`
}

// Rate 当日呼吸频率
func (r *BreathingRateResponse) Rate() *float64 {
	if len(r.BR) == 0 {
		return nil
	}
	return r.BR[0].Value.BreathingRate
}

// TemperatureResponse /temp/core/date/{d}.json
type TemperatureResponse struct {
	TempCore []struct {
		DateTime string   `json:"dateTime"`
		Value    *float64 `json:"value"`
	} `json:"tempCore"`
}

// Core 当日首个核心体温读数
func (r *TemperatureResponse) Core() *float64 {
	if len(r.TempCore) == 0 {
		return nil
	}
	return r.TempCore[0].Value
}

// ========== 睡眠 ==========

// SleepResponse /1.2/sleep/date/{d}.json
type SleepResponse struct {
	Sleep []SleepEntry `json:"sleep"`
}

// SleepEntry 单次睡眠
type SleepEntry struct {
	LogID         int64  `json:"logId"`
	DateOfSleep   string `json:"dateOfSleep"`
	StartTime     Time   `json:"startTime"`
	EndTime       Time   `json:"endTime"`
	IsMainSleep   bool   `json:"isMainSleep"`
	Duration      int64  `json:"duration"` // 毫秒
	MinutesAsleep int64  `json:"minutesAsleep"`
	MinutesAwake  int64  `json:"minutesAwake"`
	TimeInBed     int64  `json:"timeInBed"`
	LogType       string `json:"logType"`
	Type          string `json:"type"`
	Levels        struct {
		Data      []SleepLevelEntry `json:"data"`
		ShortData []SleepLevelEntry `json:"shortData"`
	} `json:"levels"`
}

// SleepLevelEntry 睡眠阶段片段
type SleepLevelEntry struct {
	DateTime Time   `json:"dateTime"`
	Level    string `json:"level"`
	Seconds  int64  `json:"seconds"`
}

// TotalMinutesAsleep 当日所有睡眠的入睡分钟数
func (r *SleepResponse) TotalMinutesAsleep() *int64 {
	var total int64
	for _, s := range r.Sleep {
		total += s.MinutesAsleep
	}
	return &total
}

// ========== 分钟级 ==========

// IntradaySample 分钟级采样
type IntradaySample struct {
	Time  string  `json:"time"` // HH:MM:SS
	Value float64 `json:"value"`
}

type intradaySeries struct {
	Dataset []IntradaySample `json:"dataset"`
}

// ParseIntraday 解析 activities-<resource>-intraday.dataset
// 缺少该键视为无数据
func ParseIntraday(payload []byte, resource string) ([]IntradaySample, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intraday %s: %w", resource, err)
	}
	raw, ok := body["activities-"+resource+"-intraday"]
	if !ok {
		return nil, nil
	}
	var series intradaySeries
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, fmt.Errorf("failed to unmarshal intraday %s dataset: %w", resource, err)
	}
	return series.Dataset, nil
}

// ========== 设备 ==========

// DeviceInfo /devices.json 元素
type DeviceInfo struct {
	ID            string `json:"id"`
	DeviceVersion string `json:"deviceVersion"`
	Type          string `json:"type"`
	Battery       string `json:"battery"`
	LastSyncTime  Time   `json:"lastSyncTime"`
}

// ParseDevices 解析设备列表，取第一个设备
func ParseDevices(payload []byte) (*DeviceInfo, error) {
	var devices []DeviceInfo
	if err := json.Unmarshal(payload, &devices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices found in response")
	}
	if devices[0].LastSyncTime.IsZero() {
		return nil, fmt.Errorf("device %s has no lastSyncTime", devices[0].ID)
	}
	return &devices[0], nil
}

// Decode 解析 JSON 载荷；空载荷（可选端点无数据）保持零值
func Decode(payload []byte, v interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal Fitbit response: %w", err)
	}
	return nil
}
