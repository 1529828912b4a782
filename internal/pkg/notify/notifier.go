// internal/pkg/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Event is the structured payload pushed to subscribed clients on alert
// creation and transfer status changes.
type Event struct {
	Kind      string    `json:"kind"` // "stock_alert" or "transfer_status"
	EventID   uint      `json:"event_id"`
	BarID     uint      `json:"bar_id,omitempty"`
	DrinkID   uint      `json:"drink_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Quantity  int64     `json:"quantity,omitempty"`
	RefID     uint      `json:"ref_id,omitempty"` // alert or transfer id
	Timestamp time.Time `json:"timestamp"`
}

// Notifier fans out events to subscribed clients. Delivery is
// fire-and-forget: implementations log failures and never return them
// into the calling operation.
type Notifier interface {
	Publish(event Event)
}

// RedisNotifier publishes events on a per-event Redis pub/sub channel.
type RedisNotifier struct {
	client        *redis.Client
	channelPrefix string
	logger        *logrus.Logger
}

// NewRedisNotifier creates a Redis-backed notifier
func NewRedisNotifier(client *redis.Client, channelPrefix string, logger *logrus.Logger) *RedisNotifier {
	return &RedisNotifier{
		client:        client,
		channelPrefix: channelPrefix,
		logger:        logger,
	}
}

// Publish sends the event to the event's notification channel.
func (n *RedisNotifier) Publish(event Event) {
	event.Timestamp = time.Now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.WithField("kind", event.Kind).Errorf("failed to marshal notification: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	channel := fmt.Sprintf("%s:event:%d:notifications", n.channelPrefix, event.EventID)
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.WithFields(logrus.Fields{
			"channel": channel,
			"kind":    event.Kind,
		}).Errorf("failed to publish notification: %v", err)
	}
}

// Nop is a notifier that drops everything; used in tests.
type Nop struct{}

// Publish implements Notifier.
func (Nop) Publish(Event) {}
