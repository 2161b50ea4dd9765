package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
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

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "LOCATION_SAMPLES",
			Subjects:  []string{"turf.location.>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "TERRITORY_CLAIMS",
			Subjects:  []string{"turf.claim.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "SESSION_EVENTS",
			Subjects:  []string{"turf.session.>", "turf.warning.>", "turf.control.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist — try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishClaim(ctx context.Context, t *domain.Territory) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("turf.claim."+t.OwnerID, data)
	return err
}

func (p *Publisher) PublishWarning(ctx context.Context, ownerID string, res domain.CollisionResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("turf.warning."+ownerID, data)
	return err
}

func (p *Publisher) PublishSessionEvent(ctx context.Context, ev *domain.SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("turf.session."+ev.OwnerID, data)
	return err
}

func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish("turf.updates.broadcast", data)
}

// PublishLocationSample feeds a raw device sample into the engine stream.
// Producers (the HTTP ingest endpoint) use this; the tracker consumes it.
func (p *Publisher) PublishLocationSample(ctx context.Context, s *domain.LocationSample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("turf.location."+s.OwnerID, data)
	return err
}

// PublishControl sends a session control command to the tracker.
func (p *Publisher) PublishControl(ctx context.Context, cmd *domain.ControlCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("turf.control."+cmd.OwnerID, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
