package analytics

import (
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
)

// SyncStatus 设备同步健康度
type SyncStatus string

const (
	SyncOK      SyncStatus = "ok"
	GapWarning  SyncStatus = "gap_warning"
	SyncWarning SyncStatus = "sync_warning"
	NoData      SyncStatus = "no_data"
)

const (
	// SyncWarningDays 设备超过该天数未与提供方同步
	SyncWarningDays = 7
	// GapWarningDays 分钟级检查点落后 last_synch 超过该天数
	GapWarningDays = 3
)

// SyncData 同步状态详情
type SyncData struct {
	Status      SyncStatus `json:"status"`
	SyncDays    int        `json:"sync_days"`
	SyncHours   int        `json:"sync_hours"`
	SyncMinutes int        `json:"sync_minutes"`
	GapDays     int        `json:"gap_days"`
}

// GetDeviceSyncData 计算设备同步状态
// sync_warning 优先于 gap_warning；分钟级检查点为空时缺口记为 0
func GetDeviceSyncData(device *domain.Device, now time.Time) SyncData {
	if device == nil || device.LastSynch == nil {
		return SyncData{Status: NoData}
	}
	lastSynch := *device.LastSynch

	since := now.Sub(lastSynch)
	if since < 0 {
		since = 0
	}
	data := SyncData{
		SyncDays:    int(since / (24 * time.Hour)),
		SyncHours:   int(since%(24*time.Hour)) / int(time.Hour),
		SyncMinutes: int(since%time.Hour) / int(time.Minute),
	}

	if device.IntradayCheckpoint != nil {
		if gap := lastSynch.Sub(*device.IntradayCheckpoint); gap > 0 {
			data.GapDays = int(gap / (24 * time.Hour))
		}
	}

	switch {
	case data.SyncDays > SyncWarningDays:
		data.Status = SyncWarning
	case data.GapDays > GapWarningDays:
		data.Status = GapWarning
	default:
		data.Status = SyncOK
	}
	return data
}
