package domain

import "time"

// SleepSession 一次睡眠（sleep_sessions + 一条 sleep_logs + 若干 levels）
// 插入后不可变
type SleepSession struct {
	ID          int64 `db:"id"`
	DeviceID    int64 `db:"device_id"`
	Log         SleepLog
	Levels      []SleepLevel
	ShortLevels []SleepShortLevel
}

// SleepLog 睡眠摘要（对应 sleep_logs 表）
type SleepLog struct {
	StartTime       time.Time `db:"start_time"`
	EndTime         time.Time `db:"end_time"`
	IsMainSleep     bool      `db:"is_main_sleep"`
	DurationSeconds int64     `db:"duration"`
	MinutesAsleep   int64     `db:"minutes_asleep"`
	MinutesAwake    int64     `db:"minutes_awake"`
	MinutesInBed    int64     `db:"minutes_in_the_bed"`
	LogType         string    `db:"log_type"`
	Type            string    `db:"type"` // "stages" / "classic"
}

// SleepLevel 睡眠阶段片段（对应 sleep_levels 表）
type SleepLevel struct {
	Time    time.Time `db:"time"`
	Level   string    `db:"level"`
	Seconds int64     `db:"seconds"`
}

// SleepShortLevel 短时清醒片段，仅 stages 类型存在（对应 sleep_short_levels 表）
type SleepShortLevel struct {
	Time    time.Time `db:"time"`
	Seconds int64     `db:"seconds"`
}

// SleepTypeStages 分期睡眠日志类型
const SleepTypeStages = "stages"
