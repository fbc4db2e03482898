// Package authorization 设备授权状态机与 OAuth 授权流程
package authorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// 状态机事件
const (
	EventAuthorize  = "authorize"
	EventDeactivate = "deactivate"
)

// lifecycleEvents 不存在 authorized → inserted 的转换
var lifecycleEvents = fsm.Events{
	{
		Name: EventAuthorize,
		Src:  []string{string(domain.StatusInserted), string(domain.StatusNonActive)},
		Dst:  string(domain.StatusAuthorized),
	},
	{
		Name: EventDeactivate,
		Src:  []string{string(domain.StatusAuthorized)},
		Dst:  string(domain.StatusNonActive),
	},
}

// ErrInvalidTransition 当前状态不允许该事件
var ErrInvalidTransition = errors.New("invalid device status transition")

// newLifecycle 以设备当前状态为起点创建状态机
func newLifecycle(deviceID int64, current domain.DeviceStatus, logger *zap.Logger) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		lifecycleEvents,
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Info("Device status changed",
					zap.Int64("device_id", deviceID),
					zap.String("event", e.Event),
					zap.String("from", e.Src),
					zap.String("to", e.Dst),
				)
			},
		},
	)
}

// Transition 计算事件触发后的状态，不落库
func Transition(ctx context.Context, deviceID int64, current domain.DeviceStatus, event string, logger *zap.Logger) (domain.DeviceStatus, error) {
	f := newLifecycle(deviceID, current, logger)
	if err := f.Event(ctx, event); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return current, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, current)
		}
		return current, fmt.Errorf("failed to apply %s: %w", event, err)
	}
	return domain.DeviceStatus(f.Current()), nil
}

// CanAuthorize 当前状态能否进入 authorized
func CanAuthorize(current domain.DeviceStatus) bool {
	return newLifecycle(0, current, zap.NewNop()).Can(EventAuthorize)
}
