package domain

import "time"

// DeviceStatus 设备授权状态
type DeviceStatus string

const (
	StatusInserted   DeviceStatus = "inserted"   // 已登记，无有效令牌
	StatusAuthorized DeviceStatus = "authorized" // 已授权，参与采集
	StatusNonActive  DeviceStatus = "non_active" // 已停用，不参与采集
)

// Device 设备领域模型（对应 devices 表）
// 三个检查点互相独立，只允许前进
type Device struct {
	ID           int64        `db:"id"`                   // SERIAL
	UserID       int64        `db:"admin_user_id"`        // 所属账户
	EmailAddress string       `db:"email_address"`        // 提供方账户标识
	Status       DeviceStatus `db:"authorization_status"` // NOT NULL, default 'inserted'
	DeviceType   string       `db:"device_type"`          // nullable，DB中以空串表示

	DailySummariesCheckpoint *time.Time `db:"daily_summaries_checkpoint"` // DATE, nullable
	IntradayCheckpoint       *time.Time `db:"intraday_checkpoint"`        // TIMESTAMP, nullable
	SleepCheckpoint          *time.Time `db:"sleep_checkpoint"`           // DATE, nullable
	LastSynch                *time.Time `db:"last_synch"`                 // TIMESTAMP, nullable

	CreatedAt time.Time `db:"created_at"`
}

// IsAuthorized 是否参与采集
func (d *Device) IsAuthorized() bool {
	return d.Status == StatusAuthorized
}

// TokenPair OAuth 令牌对（明文，仅在使用点解密得到）
type TokenPair struct {
	Access  string
	Refresh string
}

// Valid 两个令牌都存在才视为有效
func (p TokenPair) Valid() bool {
	return p.Access != "" && p.Refresh != ""
}

// PendingAuthorization 待完成的授权（对应 pending_authorizations 表）
type PendingAuthorization struct {
	ID           int64     `db:"id"`
	DeviceID     int64     `db:"device_id"`
	State        string    `db:"state"`
	CodeVerifier string    `db:"code_verifier"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
}

// Expired 是否已过期
func (p *PendingAuthorization) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
