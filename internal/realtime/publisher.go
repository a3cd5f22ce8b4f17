package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Publisher pushes change events onto the Redis change channel. It
// implements the booking service's ChangeNotifier; publish failures are
// logged and swallowed so a Redis outage never fails a write.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher creates a new change feed publisher
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// NotifyChange publishes a row change to the feed
func (p *Publisher) NotifyChange(table, action string, oldRow, newRow interface{}) {
	event := ChangeEvent{
		Table:     table,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}

	if oldRow != nil {
		raw, err := json.Marshal(oldRow)
		if err != nil {
			logrus.WithField("table", table).Warn("Failed to encode old row for change feed")
			return
		}
		event.Old = raw
	}
	if newRow != nil {
		raw, err := json.Marshal(newRow)
		if err != nil {
			logrus.WithField("table", table).Warn("Failed to encode new row for change feed")
			return
		}
		event.New = raw
	}

	event.Message = event.Summarize()

	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithField("table", table).Warn("Failed to encode change event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"table":   table,
			"action":  action,
			"channel": p.channel,
			"error":   err.Error(),
		}).Warn("Failed to publish change event")
	}
}
