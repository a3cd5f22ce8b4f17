package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Broadcaster receives decoded change feed payloads. Implemented by Hub.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Subscriber bridges the Redis change channel to websocket clients
type Subscriber struct {
	client  *redis.Client
	channel string
	hub     Broadcaster
}

// NewSubscriber creates a new change feed subscriber
func NewSubscriber(client *redis.Client, channel string, hub Broadcaster) *Subscriber {
	return &Subscriber{client: client, channel: channel, hub: hub}
}

// Run consumes the channel until the context is cancelled. Malformed
// payloads are logged and skipped, never fatal.
func (s *Subscriber) Run(ctx context.Context) {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	logrus.WithField("channel", s.channel).Info("Change feed subscriber started")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Change feed subscriber stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				logrus.Warn("Change feed channel closed")
				return
			}
			s.handle(msg.Payload)
		}
	}
}

func (s *Subscriber) handle(payload string) {
	var event ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logrus.WithField("error", err.Error()).Warn("Dropping malformed change event")
		return
	}
	if event.Table == "" || event.Action == "" {
		logrus.Warn("Dropping change event without table or action")
		return
	}

	if event.Message == "" {
		event.Message = event.Summarize()
	}

	out, err := json.Marshal(event)
	if err != nil {
		logrus.WithField("error", err.Error()).Warn("Failed to re-encode change event")
		return
	}

	s.hub.Broadcast(out)
}
