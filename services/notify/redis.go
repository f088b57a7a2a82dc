// Package notifysvc relays new notifications out of process.
package notifysvc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/practicum/core/notification"
)

// DefaultChannel prefixes the per-user channels.
const DefaultChannel = "user_notifications"

// RedisPublisher publishes every notification as JSON on the channel "<channel>:<userID>".
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

var _ notification.Publisher = (*RedisPublisher)(nil)

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Channel returns the channel of userID.
func (p *RedisPublisher) Channel(userID string) string {
	return fmt.Sprintf("%s:%s", p.channel, userID)
}

func (p *RedisPublisher) Publish(ctx context.Context, n notification.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}
	if err := p.client.Publish(ctx, p.Channel(n.UserID), payload).Err(); err != nil {
		return errors.Wrap(err, "publishing notification")
	}
	return nil
}
