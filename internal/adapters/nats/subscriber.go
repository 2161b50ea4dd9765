package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber sharing a NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeLocationSamples(ctx context.Context, handler func(ctx context.Context, sample *domain.LocationSample) error) error {
	sub, err := s.js.Subscribe("turf.location.>", func(msg *nats.Msg) {
		var sample domain.LocationSample
		if err := json.Unmarshal(msg.Data, &sample); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &sample); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("location-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) SubscribeControlCommands(ctx context.Context, handler func(ctx context.Context, cmd *domain.ControlCommand) error) error {
	sub, err := s.js.Subscribe("turf.control.>", func(msg *nats.Msg) {
		var cmd domain.ControlCommand
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			_ = msg.Nak()
			return
		}
		if err := handler(ctx, &cmd); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("control-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
