package fitbit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"

	"github.com/go-resty/resty/v2"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	// DefaultTokenURL OAuth 令牌端点
	DefaultTokenURL = "https://api.fitbit.com/oauth2/token"
	// DefaultAuthURL OAuth 授权页面
	DefaultAuthURL = "https://www.fitbit.com/oauth2/authorize"
)

// ErrNoRefreshToken 没有可用的刷新令牌
var ErrNoRefreshToken = errors.New("no refresh token available")

// TokenError 令牌端点返回非 200
type TokenError struct {
	StatusCode int
	Body       string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("Fitbit token endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// TokenRefresher 刷新令牌
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
}

// TokenExchanger 授权码换令牌（PKCE）
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, codeVerifier string) (domain.TokenPair, error)
}

// OAuthConfig 客户端凭据
type OAuthConfig struct {
	TokenURL     string
	AuthURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Timeout      time.Duration
}

// TokenEndpoint OAuth 令牌端点客户端，所有调用经过熔断器
type TokenEndpoint struct {
	httpClient *resty.Client
	cfg        OAuthConfig
	breaker    *gobreaker.CircuitBreaker[domain.TokenPair]
	logger     *zap.Logger
}

var (
	_ TokenRefresher = (*TokenEndpoint)(nil)
	_ TokenExchanger = (*TokenEndpoint)(nil)
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// NewTokenEndpoint 创建令牌端点客户端
func NewTokenEndpoint(cfg OAuthConfig, logger *zap.Logger) *TokenEndpoint {
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetBasicAuth(cfg.ClientID, cfg.ClientSecret).
		SetHeader("Accept", "application/json")

	settings := gobreaker.Settings{
		Name:        "fitbit-token-endpoint",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx（如 invalid_grant）不计入熔断
		IsSuccessful: func(err error) bool {
			var te *TokenError
			if errors.As(err, &te) {
				return te.StatusCode >= 400 && te.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &TokenEndpoint{
		httpClient: httpClient,
		cfg:        cfg,
		breaker:    gobreaker.NewCircuitBreaker[domain.TokenPair](settings),
		logger:     logger,
	}
}

// ExchangeCode 授权码 + code_verifier 换取令牌对
func (e *TokenEndpoint) ExchangeCode(ctx context.Context, code, codeVerifier string) (domain.TokenPair, error) {
	return e.breaker.Execute(func() (domain.TokenPair, error) {
		return e.post(ctx, map[string]string{
			"client_id":     e.cfg.ClientID,
			"grant_type":    "authorization_code",
			"code":          code,
			"redirect_uri":  e.cfg.RedirectURI,
			"code_verifier": codeVerifier,
		})
	})
}

// Refresh 使用刷新令牌换取新令牌对
func (e *TokenEndpoint) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if refreshToken == "" {
		return domain.TokenPair{}, ErrNoRefreshToken
	}
	return e.breaker.Execute(func() (domain.TokenPair, error) {
		return e.post(ctx, map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
		})
	})
}

// State 熔断器状态，供监控使用
func (e *TokenEndpoint) State() string {
	return e.breaker.State().String()
}

func (e *TokenEndpoint) post(ctx context.Context, form map[string]string) (domain.TokenPair, error) {
	var body tokenResponse
	resp, err := e.httpClient.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&body).
		Post(e.cfg.TokenURL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to call Fitbit token endpoint: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		e.logger.Warn("Fitbit token endpoint rejected request",
			zap.String("grant_type", form["grant_type"]),
			zap.Int("status_code", resp.StatusCode()),
		)
		return domain.TokenPair{}, &TokenError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	pair := domain.TokenPair{Access: body.AccessToken, Refresh: body.RefreshToken}
	if !pair.Valid() {
		return domain.TokenPair{}, errors.New("Fitbit token endpoint returned an incomplete token pair")
	}
	return pair, nil
}
