// Package consumer 设备同步通知消费者
package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	commonmqtt "github.com/giovannibonisoli/wearable-data-platform-sub000/internal/common/mqtt"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/fitbit"

	"go.uber.org/zap"
)

// DefaultTopic 同步通知主题，最后一级为设备标识
const DefaultTopic = "wearable/sync/+"

// Subscriber MQTT 订阅能力（由 common/mqtt.Client 提供）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler commonmqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// LastSynchUpdater 写入 last_synch（只前进）
type LastSynchUpdater interface {
	UpdateLastSynch(ctx context.Context, deviceID int64, ts time.Time) error
}

// Waker 收到新同步后提前唤醒采集周期
type Waker interface {
	Wake()
}

// SyncNotification 同步通知
type SyncNotification struct {
	DeviceID     int64  `json:"device_id"`
	LastSyncTime string `json:"last_sync_time"`
}

// SyncConsumer 订阅同步通知，推进 last_synch 并唤醒各采集器
type SyncConsumer struct {
	subscriber Subscriber
	devices    LastSynchUpdater
	wakers     []Waker
	topic      string
	qos        byte
	logger     *zap.Logger
}

// NewSyncConsumer 创建消费者；topic 为空时使用默认主题
func NewSyncConsumer(subscriber Subscriber, devices LastSynchUpdater, topic string, qos byte, logger *zap.Logger, wakers ...Waker) *SyncConsumer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &SyncConsumer{
		subscriber: subscriber,
		devices:    devices,
		wakers:     wakers,
		topic:      topic,
		qos:        qos,
		logger:     logger,
	}
}

// Start 订阅主题并阻塞到 ctx 取消
func (c *SyncConsumer) Start(ctx context.Context) error {
	handler := func(topic string, payload []byte) error {
		return c.handleMessage(ctx, topic, payload)
	}
	if err := c.subscriber.Subscribe(c.topic, c.qos, handler); err != nil {
		return fmt.Errorf("failed to subscribe to sync topic: %w", err)
	}
	c.logger.Info("Sync consumer started", zap.String("topic", c.topic))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *SyncConsumer) Stop() {
	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("Sync consumer stopped")
}

// handleMessage 单条或数组形式的通知；单条失败不影响其余
func (c *SyncConsumer) handleMessage(ctx context.Context, topic string, payload []byte) error {
	c.logger.Debug("Received sync notification",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	notifications, err := parseNotifications(payload)
	if err != nil {
		return fmt.Errorf("failed to unmarshal sync notification: %w", err)
	}

	updated := 0
	for _, n := range notifications {
		if err := c.apply(ctx, n); err != nil {
			c.logger.Warn("Failed to apply sync notification",
				zap.Int64("device_id", n.DeviceID),
				zap.Error(err),
			)
			continue
		}
		updated++
	}

	if updated > 0 {
		for _, w := range c.wakers {
			w.Wake()
		}
	}
	return nil
}

func (c *SyncConsumer) apply(ctx context.Context, n SyncNotification) error {
	if n.DeviceID <= 0 {
		return fmt.Errorf("missing device_id")
	}
	ts, err := parseSyncTime(n.LastSyncTime)
	if err != nil {
		return err
	}
	return c.devices.UpdateLastSynch(ctx, n.DeviceID, ts)
}

func parseNotifications(payload []byte) ([]SyncNotification, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []SyncNotification
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var one SyncNotification
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, err
	}
	return []SyncNotification{one}, nil
}

// parseSyncTime 接受提供方本地时间格式或带时区的 RFC3339
func parseSyncTime(s string) (time.Time, error) {
	if t, err := fitbit.ParseTime(s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last_sync_time %q", s)
	}
	return t.UTC(), nil
}
