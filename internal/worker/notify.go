package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NotifyChannel 返回用户的通知频道，API 侧的 WebSocket 订阅同一频道。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}

// 导出通知状态。
const (
	NotifyCompleted = "completed"
	NotifyError     = "error"
)

// ExportNotifyMessage 是通过 Redis Pub/Sub 转发给前端的导出结果。
// 字段名与前端解析保持一致。
type ExportNotifyMessage struct {
	Status        string   `json:"status"`
	ResumeID      uint     `json:"resume_id"`
	CorrelationID string   `json:"correlation_id"`
	ErrorCode     int      `json:"error_code"`
	ErrorMessage  string   `json:"error_message"`
	MissingKeys   []string `json:"missing_keys,omitempty"`
	Degraded      bool     `json:"degraded,omitempty"`
}

// Notifier 投递导出通知。
type Notifier interface {
	Notify(ctx context.Context, userID uint, msg ExportNotifyMessage) error
}

// RedisNotifier 通过 Redis PUBLISH 投递通知。
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier returns a notifier publishing on client.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

// Notify publishes msg on the user's channel.
func (n *RedisNotifier) Notify(ctx context.Context, userID uint, msg ExportNotifyMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(userID)
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
