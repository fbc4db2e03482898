package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"

	"go.uber.org/zap"
)

// PostgresDevicesRepository 设备 Repository 实现
type PostgresDevicesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresDevicesRepository 创建设备 Repository
func NewPostgresDevicesRepository(db *sql.DB, logger *zap.Logger) *PostgresDevicesRepository {
	return &PostgresDevicesRepository{db: db, logger: logger}
}

// 确保实现了接口
var _ DevicesRepository = (*PostgresDevicesRepository)(nil)

const deviceColumns = `
	id,
	admin_user_id,
	email_address,
	authorization_status,
	COALESCE(device_type, '') AS device_type,
	daily_summaries_checkpoint,
	intraday_checkpoint,
	sleep_checkpoint,
	last_synch,
	created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (*domain.Device, error) {
	var (
		d                          domain.Device
		status                     string
		daily, intraday, sleep, ls sql.NullTime
	)
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.EmailAddress,
		&status,
		&d.DeviceType,
		&daily,
		&intraday,
		&sleep,
		&ls,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	d.Status = domain.DeviceStatus(status)
	d.DailySummariesCheckpoint = nullTimePtr(daily)
	d.IntradayCheckpoint = nullTimePtr(intraday)
	d.SleepCheckpoint = nullTimePtr(sleep)
	d.LastSynch = nullTimePtr(ls)
	return &d, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// GetByID 根据 id 获取设备
func (r *PostgresDevicesRepository) GetByID(ctx context.Context, deviceID int64) (*domain.Device, error) {
	query := `SELECT` + deviceColumns + ` FROM devices WHERE id = $1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, deviceID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

// GetByEmail 根据邮箱地址获取最新的设备记录
func (r *PostgresDevicesRepository) GetByEmail(ctx context.Context, email string) (*domain.Device, error) {
	query := `SELECT` + deviceColumns + ` FROM devices WHERE email_address = $1 ORDER BY id DESC LIMIT 1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get device by email: %w", err)
	}
	return d, nil
}

// GetAllAuthorized 获取所有已授权设备
func (r *PostgresDevicesRepository) GetAllAuthorized(ctx context.Context) ([]*domain.Device, error) {
	query := `SELECT` + deviceColumns + ` FROM devices WHERE authorization_status = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, string(domain.StatusAuthorized))
	if err != nil {
		return nil, fmt.Errorf("failed to query authorized devices: %w", err)
	}
	defer rows.Close()

	var devices []*domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}
	return devices, nil
}

// Create 登记新设备，返回 id
func (r *PostgresDevicesRepository) Create(ctx context.Context, userID int64, email string, status domain.DeviceStatus) (int64, error) {
	query := `
		INSERT INTO devices (admin_user_id, email_address, authorization_status)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, userID, email, string(status)).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create device: %w", err)
	}
	r.logger.Info("Device created",
		zap.Int64("device_id", id),
		zap.Int64("user_id", userID),
		zap.String("status", string(status)),
	)
	return id, nil
}

// UpdateStatus 更新授权状态
func (r *PostgresDevicesRepository) UpdateStatus(ctx context.Context, deviceID int64, status domain.DeviceStatus) error {
	return r.execOne(ctx, "update device status",
		`UPDATE devices SET authorization_status = $2 WHERE id = $1`,
		deviceID, string(status))
}

// UpdateDeviceType 更新设备型号
func (r *PostgresDevicesRepository) UpdateDeviceType(ctx context.Context, deviceID int64, deviceType string) error {
	return r.execOne(ctx, "update device type",
		`UPDATE devices SET device_type = $2 WHERE id = $1`,
		deviceID, deviceType)
}

// ========== 令牌 ==========

// GetTokens 获取令牌密文
func (r *PostgresDevicesRepository) GetTokens(ctx context.Context, deviceID int64) (string, string, error) {
	query := `SELECT access_token, refresh_token FROM devices WHERE id = $1`
	var access, refresh sql.NullString
	err := r.db.QueryRowContext(ctx, query, deviceID).Scan(&access, &refresh)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", "", nil
		}
		return "", "", fmt.Errorf("failed to get tokens: %w", err)
	}
	return access.String, refresh.String, nil
}

// UpdateTokens 写入令牌密文
func (r *PostgresDevicesRepository) UpdateTokens(ctx context.Context, deviceID int64, access, refresh string) error {
	return r.execOne(ctx, "update tokens",
		`UPDATE devices SET access_token = $2, refresh_token = $3 WHERE id = $1`,
		deviceID, access, refresh)
}

// ========== 检查点 ==========

// GetDailyCheckpoint 每日汇总检查点
func (r *PostgresDevicesRepository) GetDailyCheckpoint(ctx context.Context, deviceID int64) (*time.Time, error) {
	return r.getTime(ctx, "daily_summaries_checkpoint", deviceID)
}

// UpdateDailyCheckpoint 前进每日汇总检查点
func (r *PostgresDevicesRepository) UpdateDailyCheckpoint(ctx context.Context, deviceID int64, date time.Time) error {
	return r.execOne(ctx, "update daily summaries checkpoint",
		`UPDATE devices SET daily_summaries_checkpoint = GREATEST(daily_summaries_checkpoint, $2::date) WHERE id = $1`,
		deviceID, date)
}

// GetIntradayCheckpoint 分钟级检查点
func (r *PostgresDevicesRepository) GetIntradayCheckpoint(ctx context.Context, deviceID int64) (*time.Time, error) {
	return r.getTime(ctx, "intraday_checkpoint", deviceID)
}

// UpdateIntradayCheckpoint 前进分钟级检查点
func (r *PostgresDevicesRepository) UpdateIntradayCheckpoint(ctx context.Context, deviceID int64, ts time.Time) error {
	return r.execOne(ctx, "update intraday checkpoint",
		`UPDATE devices SET intraday_checkpoint = GREATEST(intraday_checkpoint, $2::timestamp) WHERE id = $1`,
		deviceID, ts)
}

// GetSleepCheckpoint 睡眠检查点
func (r *PostgresDevicesRepository) GetSleepCheckpoint(ctx context.Context, deviceID int64) (*time.Time, error) {
	return r.getTime(ctx, "sleep_checkpoint", deviceID)
}

// UpdateSleepCheckpoint 前进睡眠检查点
func (r *PostgresDevicesRepository) UpdateSleepCheckpoint(ctx context.Context, deviceID int64, date time.Time) error {
	return r.execOne(ctx, "update sleep checkpoint",
		`UPDATE devices SET sleep_checkpoint = GREATEST(sleep_checkpoint, $2::date) WHERE id = $1`,
		deviceID, date)
}

// GetLastSynch 设备最近同步时间
func (r *PostgresDevicesRepository) GetLastSynch(ctx context.Context, deviceID int64) (*time.Time, error) {
	return r.getTime(ctx, "last_synch", deviceID)
}

// UpdateLastSynch 前进设备最近同步时间
func (r *PostgresDevicesRepository) UpdateLastSynch(ctx context.Context, deviceID int64, ts time.Time) error {
	return r.execOne(ctx, "update last synch",
		`UPDATE devices SET last_synch = GREATEST(last_synch, $2::timestamp) WHERE id = $1`,
		deviceID, ts)
}

// getTime column 只来自本文件的常量，不接受外部输入
func (r *PostgresDevicesRepository) getTime(ctx context.Context, column string, deviceID int64) (*time.Time, error) {
	query := fmt.Sprintf(`SELECT %s FROM devices WHERE id = $1`, column)
	var nt sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, deviceID).Scan(&nt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", column, err)
	}
	return nullTimePtr(nt), nil
}

// execOne 执行单行更新，设备不存在时报错
func (r *PostgresDevicesRepository) execOne(ctx context.Context, action, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to %s: %w", action, ErrNotFound)
	}
	return nil
}
