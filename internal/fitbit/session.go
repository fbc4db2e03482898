package fitbit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"

	"go.uber.org/zap"
)

// TokenSink 刷新成功后持久化新令牌对
type TokenSink interface {
	StoreTokens(ctx context.Context, deviceID int64, pair domain.TokenPair) error
}

// TokenSource 读取已持久化的令牌对
type TokenSource interface {
	Fetch(ctx context.Context, deviceID int64) (domain.TokenPair, bool, error)
}

// RefreshLocker 跨采集器的刷新互斥
// ok=false 表示其他进程正在刷新同一设备
type RefreshLocker interface {
	TryLock(ctx context.Context, deviceID int64) (release func(), ok bool, err error)
}

// SessionFactory 为每个设备创建 Session
type SessionFactory struct {
	Client    Getter
	Refresher TokenRefresher
	Sink      TokenSink
	Source    TokenSource   // 可选
	Locker    RefreshLocker // 可选
	Logger    *zap.Logger

	// PeerWait 等待其他采集器完成刷新的轮询间隔与次数
	PeerWait     time.Duration
	PeerAttempts int
}

// New 创建设备会话
func (f *SessionFactory) New(deviceID int64, pair domain.TokenPair) *Session {
	wait, attempts := f.PeerWait, f.PeerAttempts
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}
	if attempts <= 0 {
		attempts = 10
	}
	return &Session{
		deviceID:     deviceID,
		pair:         pair,
		client:       f.Client,
		refresher:    f.Refresher,
		sink:         f.Sink,
		source:       f.Source,
		locker:       f.Locker,
		logger:       f.Logger.With(zap.Int64("device_id", deviceID)),
		peerWait:     wait,
		peerAttempts: attempts,
	}
}

// Session 单设备、单周期的 API 会话
// 401 时刷新一次令牌并通过 TokenSink 持久化，然后重试同一请求一次
type Session struct {
	deviceID     int64
	pair         domain.TokenPair
	client       Getter
	refresher    TokenRefresher
	sink         TokenSink
	source       TokenSource
	locker       RefreshLocker
	logger       *zap.Logger
	peerWait     time.Duration
	peerAttempts int
}

// Tokens 当前令牌对
func (s *Session) Tokens() domain.TokenPair { return s.pair }

// Fetch 请求 path；optional 时 404/400 视为无数据
// 返回的 Kind 只会是 OK、RateLimited 或 Error
func (s *Session) Fetch(ctx context.Context, path string, optional bool) Result {
	res := s.client.Get(ctx, s.pair.Access, path)

	if res.Kind == KindAuthExpired {
		s.logger.Warn("Access token expired, refreshing", zap.String("path", path))
		if err := s.refresh(ctx); err != nil {
			s.logger.Error("Token refresh failed", zap.Error(err))
			return errorResult(http.StatusUnauthorized, fmt.Errorf("token refresh failed: %w", err))
		}
		res = s.client.Get(ctx, s.pair.Access, path)
		if res.Kind == KindAuthExpired {
			return errorResult(http.StatusUnauthorized, errors.New("unauthorized after token refresh"))
		}
	}

	if optional && res.Kind == KindError &&
		(res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusBadRequest) {
		return okResult(res.StatusCode, nil)
	}
	return res
}

func (s *Session) refresh(ctx context.Context) error {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, s.deviceID)
		switch {
		case err != nil:
			s.logger.Warn("Refresh lock unavailable, refreshing without lock", zap.Error(err))
		case !ok:
			return s.awaitPeerRefresh(ctx)
		default:
			defer release()
		}
	}

	if s.adoptStoredPair(ctx) {
		return nil
	}

	pair, err := s.refresher.Refresh(ctx, s.pair.Refresh)
	if err != nil {
		return err
	}
	s.pair = pair
	s.logger.Info("Token refreshed")

	if err := s.sink.StoreTokens(ctx, s.deviceID, pair); err != nil {
		s.logger.Error("Failed to persist refreshed tokens", zap.Error(err))
	}
	return nil
}

// adoptStoredPair 已持久化的令牌与当前不同，说明其他采集器已刷新过
func (s *Session) adoptStoredPair(ctx context.Context) bool {
	if s.source == nil {
		return false
	}
	stored, ok, err := s.source.Fetch(ctx, s.deviceID)
	if err != nil || !ok || stored.Access == s.pair.Access {
		return false
	}
	s.pair = stored
	s.logger.Info("Adopted token pair refreshed by another collector")
	return true
}

func (s *Session) awaitPeerRefresh(ctx context.Context) error {
	if s.source == nil {
		return errors.New("token refresh in progress elsewhere")
	}
	for i := 0; i < s.peerAttempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.peerWait):
		}
		if s.adoptStoredPair(ctx) {
			return nil
		}
	}
	return errors.New("timed out waiting for token refresh in progress elsewhere")
}
