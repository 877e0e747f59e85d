package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/asrith4444/clover-poller/internal/model"
)

// PubSub Redis 发布/订阅客户端
type PubSub struct {
	client  *redis.Client
	channel string
}

// NewPubSub 创建 PubSub 实例
func NewPubSub(addr, password string, db int, channel string) (*PubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &PubSub{
		client:  client,
		channel: channel,
	}, nil
}

// PublishOrderUpdate 发布订单变更通知（fire-and-forget，不消费投递确认）
func (p *PubSub) PublishOrderUpdate(ctx context.Context, notification *model.OrderUpdateNotification) error {
	msgJSON, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// 发布到 Redis 频道
	if err := p.client.Publish(ctx, p.channel, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// Subscribe 订阅 Redis 频道（用于测试）
func (p *PubSub) Subscribe(ctx context.Context) *redis.PubSub {
	return p.client.Subscribe(ctx, p.channel)
}

// Close 关闭 Redis 连接
func (p *PubSub) Close() error {
	return p.client.Close()
}
