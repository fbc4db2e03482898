package fitbit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultAPIBaseURL Fitbit Web API 地址
const DefaultAPIBaseURL = "https://api.fitbit.com"

// Getter 数据端点调用
type Getter interface {
	Get(ctx context.Context, accessToken, path string) Result
}

// Client Fitbit 数据端点客户端
// 只负责单次请求与状态码分类，不做重试和令牌刷新
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

var _ Getter = (*Client)(nil)

// NewClient 创建客户端
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "en_US")

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Get 以 Bearer 令牌请求 path
func (c *Client) Get(ctx context.Context, accessToken, path string) Result {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get(path)
	if err != nil {
		c.logger.Warn("Fitbit API call failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return errorResult(0, fmt.Errorf("failed to call Fitbit API: %w", err))
	}

	return classify(resp.StatusCode(), resp.Body(), path)
}

func classify(status int, body []byte, path string) Result {
	switch {
	case status >= 200 && status < 300:
		return okResult(status, body)
	case status == http.StatusTooManyRequests:
		return Result{Kind: KindRateLimited, StatusCode: status}
	case status == http.StatusUnauthorized:
		return Result{Kind: KindAuthExpired, StatusCode: status}
	default:
		return errorResult(status, fmt.Errorf("Fitbit API %s returned status %d", path, status))
	}
}
