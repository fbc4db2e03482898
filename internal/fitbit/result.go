package fitbit

import "fmt"

// Kind 提供方调用结果类型
type Kind int

const (
	KindOK          Kind = iota // 2xx
	KindRateLimited             // 429，本周期停止该设备
	KindAuthExpired             // 401，需要刷新令牌
	KindError                   // 其他非 2xx 或网络错误
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthExpired:
		return "auth_expired"
	default:
		return "error"
	}
}

// Result 带标签的调用结果；预期内的提供方信号不作为 error 返回
type Result struct {
	Kind       Kind
	Payload    []byte
	StatusCode int
	Err        error
}

// OK 是否成功
func (r Result) OK() bool { return r.Kind == KindOK }

// Empty 成功但无数据（可选端点 404/400）
func (r Result) Empty() bool { return r.Kind == KindOK && len(r.Payload) == 0 }

// Error 把非成功结果转为 error，便于日志记录
func (r Result) Error() error {
	switch r.Kind {
	case KindOK:
		return nil
	case KindError:
		if r.Err != nil {
			return r.Err
		}
	}
	return fmt.Errorf("fitbit request %s (status %d)", r.Kind, r.StatusCode)
}

func okResult(status int, payload []byte) Result {
	return Result{Kind: KindOK, StatusCode: status, Payload: payload}
}

func errorResult(status int, err error) Result {
	return Result{Kind: KindError, StatusCode: status, Err: err}
}
