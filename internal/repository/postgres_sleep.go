package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
)

// execer *sql.DB 与 *sql.Tx 的公共部分
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresSleepRepository 睡眠 Repository 实现
type PostgresSleepRepository struct {
	db *sql.DB
}

// NewPostgresSleepRepository 创建睡眠 Repository
func NewPostgresSleepRepository(db *sql.DB) *PostgresSleepRepository {
	return &PostgresSleepRepository{db: db}
}

// 确保实现了接口
var _ SleepRepository = (*PostgresSleepRepository)(nil)

const (
	insertSleepSessionSQL = `INSERT INTO sleep_sessions (device_id) VALUES ($1) RETURNING id`

	insertSleepLogSQL = `
		INSERT INTO sleep_logs (
			sleep_session_id, start_time, end_time, is_main_sleep, duration,
			minutes_asleep, minutes_awake, minutes_in_the_bed, log_type, type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	insertSleepLevelSQL = `INSERT INTO sleep_levels (sleep_session_id, time, level, seconds) VALUES ($1, $2, $3, $4)`

	insertSleepShortLevelSQL = `INSERT INTO sleep_short_levels (sleep_session_id, time, seconds) VALUES ($1, $2, $3)`
)

// CreateSession 创建睡眠会话
func (r *PostgresSleepRepository) CreateSession(ctx context.Context, deviceID int64) (int64, error) {
	return createSession(ctx, r.db, deviceID)
}

// InsertLog 插入睡眠摘要
func (r *PostgresSleepRepository) InsertLog(ctx context.Context, sessionID int64, log *domain.SleepLog) error {
	return insertLog(ctx, r.db, sessionID, log)
}

// InsertLevel 插入睡眠阶段
func (r *PostgresSleepRepository) InsertLevel(ctx context.Context, sessionID int64, level *domain.SleepLevel) error {
	return insertLevel(ctx, r.db, sessionID, level)
}

// InsertShortLevel 插入短时片段
func (r *PostgresSleepRepository) InsertShortLevel(ctx context.Context, sessionID int64, short *domain.SleepShortLevel) error {
	return insertShortLevel(ctx, r.db, sessionID, short)
}

// SaveSessions 事务写入一天的睡眠会话
func (r *PostgresSleepRepository) SaveSessions(ctx context.Context, sessions []*domain.SleepSession) error {
	if len(sessions) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin sleep transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, len(sessions))
	for i, session := range sessions {
		id, err := saveSession(ctx, tx, session)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sleep sessions: %w", err)
	}
	for i, session := range sessions {
		session.ID = ids[i]
	}
	return nil
}

func saveSession(ctx context.Context, q execer, session *domain.SleepSession) (int64, error) {
	sessionID, err := createSession(ctx, q, session.DeviceID)
	if err != nil {
		return 0, err
	}
	if err := insertLog(ctx, q, sessionID, &session.Log); err != nil {
		return 0, err
	}
	for i := range session.Levels {
		if err := insertLevel(ctx, q, sessionID, &session.Levels[i]); err != nil {
			return 0, err
		}
	}
	for i := range session.ShortLevels {
		if err := insertShortLevel(ctx, q, sessionID, &session.ShortLevels[i]); err != nil {
			return 0, err
		}
	}
	return sessionID, nil
}

func createSession(ctx context.Context, q execer, deviceID int64) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, insertSleepSessionSQL, deviceID).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create sleep session: %w", err)
	}
	return id, nil
}

func insertLog(ctx context.Context, q execer, sessionID int64, log *domain.SleepLog) error {
	_, err := q.ExecContext(ctx, insertSleepLogSQL,
		sessionID,
		log.StartTime,
		log.EndTime,
		log.IsMainSleep,
		log.DurationSeconds,
		log.MinutesAsleep,
		log.MinutesAwake,
		log.MinutesInBed,
		log.LogType,
		log.Type,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sleep log: %w", err)
	}
	return nil
}

func insertLevel(ctx context.Context, q execer, sessionID int64, level *domain.SleepLevel) error {
	if _, err := q.ExecContext(ctx, insertSleepLevelSQL, sessionID, level.Time, level.Level, level.Seconds); err != nil {
		return fmt.Errorf("failed to insert sleep level: %w", err)
	}
	return nil
}

func insertShortLevel(ctx context.Context, q execer, sessionID int64, short *domain.SleepShortLevel) error {
	if _, err := q.ExecContext(ctx, insertSleepShortLevelSQL, sessionID, short.Time, short.Seconds); err != nil {
		return fmt.Errorf("failed to insert sleep short level: %w", err)
	}
	return nil
}
