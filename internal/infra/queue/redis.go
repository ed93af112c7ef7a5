package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tg-giveaway-bot/internal/domain"
	"tg-giveaway-bot/internal/infra/metrics"
)

// RedisEventQueue складывает события в Redis list, если RabbitMQ не настроен.
type RedisEventQueue struct {
	client redis.UniversalClient
	key    string
	maxLen int64
}

// NewRedisEventQueue создаёт очередь событий по указанному ключу.
// maxLen ограничивает длину списка, 0 отключает обрезку.
func NewRedisEventQueue(client redis.UniversalClient, key string, maxLen int64) *RedisEventQueue {
	return &RedisEventQueue{client: client, key: key, maxLen: maxLen}
}

// PublishFinished кладёт событие в начало списка.
func (q *RedisEventQueue) PublishFinished(ctx context.Context, event domain.FinishedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.key, payload)
	if q.maxLen > 0 {
		pipe.LTrim(ctx, q.key, 0, q.maxLen-1)
	}
	_, err = pipe.Exec(ctx)
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push event: %w", err)
	}
	return nil
}
