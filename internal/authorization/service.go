package authorization

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/fitbit"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingTTL 授权链接有效期
const PendingTTL = 10 * time.Minute

var (
	ErrDeviceExists   = errors.New("device already registered for this email address")
	ErrDeviceNotFound = errors.New("device not found")
	ErrInvalidState   = errors.New("invalid authorization state")
	ErrStateNotFound  = errors.New("authorization state not found")
	ErrStateExpired   = errors.New("authorization state expired")
)

// Notifier 发送授权邮件（外部提供）
type Notifier interface {
	Send(ctx context.Context, recipient, subject, html, text string) error
}

// statePayload state 参数内容
type statePayload struct {
	EmailAddress string `json:"email_address"`
	Random       string `json:"random"`
}

// EncodeState 生成 base64url(JSON) 形式的 state
func EncodeState(email, nonce string) (string, error) {
	b, err := json.Marshal(statePayload{EmailAddress: email, Random: nonce})
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// DecodeState 解析 state，返回其中的邮箱
func DecodeState(state string) (string, error) {
	b, err := base64.URLEncoding.DecodeString(state)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	var p statePayload
	if err := json.Unmarshal(b, &p); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if p.EmailAddress == "" {
		return "", fmt.Errorf("%w: missing email address", ErrInvalidState)
	}
	return p.EmailAddress, nil
}

// Service 设备登记与授权
type Service struct {
	devices  repository.DevicesRepository
	pending  repository.AuthorizationsRepository
	exchange fitbit.TokenExchanger
	tokens   fitbit.TokenSink
	oauth    fitbit.OAuthConfig
	notifier Notifier // 可选
	logger   *zap.Logger
	now      func() time.Time
	ttl      time.Duration
}

// NewService 创建授权服务；notifier 为 nil 时只返回授权链接
func NewService(
	devices repository.DevicesRepository,
	pending repository.AuthorizationsRepository,
	exchange fitbit.TokenExchanger,
	tokens fitbit.TokenSink,
	oauth fitbit.OAuthConfig,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		devices:  devices,
		pending:  pending,
		exchange: exchange,
		tokens:   tokens,
		oauth:    oauth,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		ttl:      PendingTTL,
	}
}

// RegisterDevice 登记新设备，状态为 inserted
func (s *Service) RegisterDevice(ctx context.Context, userID int64, email string) (int64, error) {
	existing, err := s.devices.GetByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("failed to look up device: %w", err)
	}
	if existing != nil {
		return 0, ErrDeviceExists
	}

	id, err := s.devices.Create(ctx, userID, email, domain.StatusInserted)
	if err != nil {
		return 0, fmt.Errorf("failed to create device: %w", err)
	}
	s.logger.Info("Device registered", zap.Int64("device_id", id), zap.Int64("user_id", userID))
	return id, nil
}

// BeginAuthorization 生成 PKCE 参数与 state，保存待完成授权并返回授权链接
// 配置了 Notifier 时同时发送授权邮件
func (s *Service) BeginAuthorization(ctx context.Context, deviceID int64) (string, error) {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return "", fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return "", ErrDeviceNotFound
	}
	if !CanAuthorize(device.Status) {
		return "", fmt.Errorf("%w: device is %s", ErrInvalidTransition, device.Status)
	}

	verifier, err := fitbit.GenerateCodeVerifier()
	if err != nil {
		return "", err
	}
	state, err := EncodeState(device.EmailAddress, uuid.New().String())
	if err != nil {
		return "", err
	}
	authURL := fitbit.AuthorizationURL(s.oauth, fitbit.GenerateCodeChallenge(verifier), state, nil)

	if err := s.pending.Create(ctx, device.ID, state, verifier, s.now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("failed to store pending authorization: %w", err)
	}

	if s.notifier != nil {
		subject, html, text := authorizationEmail(authURL)
		if err := s.notifier.Send(ctx, device.EmailAddress, subject, html, text); err != nil {
			if delErr := s.pending.DeleteByState(ctx, state); delErr != nil {
				s.logger.Warn("Failed to drop pending authorization", zap.Error(delErr))
			}
			return "", fmt.Errorf("failed to send authorization email: %w", err)
		}
	}

	s.logger.Info("Authorization started",
		zap.Int64("device_id", device.ID),
		zap.Duration("ttl", s.ttl),
		zap.Bool("email_sent", s.notifier != nil),
	)
	return authURL, nil
}

// CompleteAuthorization 用授权码换取令牌，保存后将设备置为 authorized
func (s *Service) CompleteAuthorization(ctx context.Context, state, code string) (*domain.Device, error) {
	email, err := DecodeState(state)
	if err != nil {
		return nil, err
	}

	pending, err := s.pending.GetByState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending authorization: %w", err)
	}
	if pending == nil {
		return nil, ErrStateNotFound
	}
	if pending.Expired(s.now()) {
		if err := s.pending.DeleteByState(ctx, state); err != nil {
			s.logger.Warn("Failed to drop expired authorization", zap.Error(err))
		}
		return nil, ErrStateExpired
	}

	device, err := s.devices.GetByID(ctx, pending.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	if device.EmailAddress != email {
		return nil, fmt.Errorf("%w: email does not match device", ErrInvalidState)
	}

	next, err := Transition(ctx, device.ID, device.Status, EventAuthorize, s.logger)
	if err != nil {
		return nil, err
	}

	pair, err := s.exchange.ExchangeCode(ctx, code, pending.CodeVerifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := s.tokens.StoreTokens(ctx, device.ID, pair); err != nil {
		return nil, fmt.Errorf("failed to store tokens: %w", err)
	}
	if err := s.devices.UpdateStatus(ctx, device.ID, next); err != nil {
		return nil, fmt.Errorf("failed to update device status: %w", err)
	}
	device.Status = next

	if err := s.pending.DeleteByState(ctx, state); err != nil {
		s.logger.Warn("Failed to delete pending authorization", zap.Int64("device_id", device.ID), zap.Error(err))
	}

	s.logger.Info("Device authorized", zap.Int64("device_id", device.ID))
	return device, nil
}

// Deactivate authorized → non_active
func (s *Service) Deactivate(ctx context.Context, deviceID int64) error {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return ErrDeviceNotFound
	}
	return s.deactivate(ctx, device)
}

func (s *Service) deactivate(ctx context.Context, device *domain.Device) error {
	next, err := Transition(ctx, device.ID, device.Status, EventDeactivate, s.logger)
	if err != nil {
		return err
	}
	if err := s.devices.UpdateStatus(ctx, device.ID, next); err != nil {
		return fmt.Errorf("failed to update device status: %w", err)
	}
	device.Status = next
	return nil
}

// Unlink 停用原设备并以相同账户、邮箱登记一个新的 inserted 设备
// 原设备的历史数据保留；已是 non_active 的设备直接登记新记录
func (s *Service) Unlink(ctx context.Context, deviceID int64) (int64, error) {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to get device: %w", err)
	}
	if device == nil {
		return 0, ErrDeviceNotFound
	}

	switch device.Status {
	case domain.StatusAuthorized:
		if err := s.deactivate(ctx, device); err != nil {
			return 0, err
		}
	case domain.StatusNonActive:
	default:
		return 0, fmt.Errorf("%w: cannot unlink a device in %s", ErrInvalidTransition, device.Status)
	}

	id, err := s.devices.Create(ctx, device.UserID, device.EmailAddress, domain.StatusInserted)
	if err != nil {
		return 0, fmt.Errorf("failed to create replacement device: %w", err)
	}
	s.logger.Info("Device unlinked",
		zap.Int64("device_id", device.ID),
		zap.Int64("new_device_id", id),
	)
	return id, nil
}

// CleanupExpired 删除过期的待完成授权
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.pending.CleanupExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired authorizations: %w", err)
	}
	if n > 0 {
		s.logger.Info("Expired authorizations removed", zap.Int64("count", n))
	}
	return n, nil
}

func authorizationEmail(authURL string) (subject, html, text string) {
	subject = "Fitbit authorization"
	html = fmt.Sprintf(`<html>
<body>
<h2>Fitbit authorization</h2>
<p>To allow access to your Fitbit data, open the link below:</p>
<p><a href="%[1]s">Authorize Fitbit</a></p>
<p>Or copy this address into your browser:</p>
<p>%[1]s</p>
</body>
</html>`, authURL)
	text = fmt.Sprintf("Fitbit authorization\n\nTo allow access to your Fitbit data, open this address in your browser:\n\n%s\n", authURL)
	return subject, html, text
}
