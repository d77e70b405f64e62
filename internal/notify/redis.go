package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"dossierapi/internal/config"
)

// redisDispatcher publishes events as JSON on a Redis pub/sub channel so
// downstream consumers (mailers, dashboards) can react without coupling to
// this service. Publish failures are logged and dropped.
type redisDispatcher struct {
	client  *redis.Client
	channel string
}

// NewRedisDispatcher connects to Redis and returns a pub/sub dispatcher.
func NewRedisDispatcher(cfg config.RedisConfig) (Dispatcher, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &redisDispatcher{client: client, channel: cfg.Channel}, nil
}

func (d *redisDispatcher) Dispatch(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := d.client.Publish(ctx, d.channel, payload).Err(); err != nil {
		log.SetFlags(0)
		entry, _ := json.Marshal(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "error",
			"msg":   "notification_publish_failed",
			"event": ev.Type,
			"error": err.Error(),
		})
		log.Println(string(entry))
	}
}
