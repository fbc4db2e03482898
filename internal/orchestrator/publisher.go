package orchestrator

import (
	"context"
	"fmt"

	commonredis "github.com/giovannibonisoli/wearable-data-platform-sub000/internal/common/redis"

	"github.com/go-redis/redis/v8"
)

// DefaultCycleStream 周期汇总 Stream
const DefaultCycleStream = "wearable:collector:cycles"

// StreamPublisher 将周期汇总写入 Redis Stream
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ Publisher = (*StreamPublisher)(nil)

// NewStreamPublisher 创建发布器；stream 为空时使用默认 Stream
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	if stream == "" {
		stream = DefaultCycleStream
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// PublishCycle 实现 Publisher
func (p *StreamPublisher) PublishCycle(ctx context.Context, summary *CycleSummary) error {
	if _, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, summary); err != nil {
		return fmt.Errorf("failed to publish cycle summary: %w", err)
	}
	return nil
}
