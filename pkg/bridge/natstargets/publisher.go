// Package natstargets publishes detected targets to a NATS subject
// as JSON, with automatic reconnection.
package natstargets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"radarlink/pkg/bridge"
	"radarlink/pkg/logger"
	"radarlink/pkg/navigation"
)

// TargetMessage is the JSON payload published per target.
type TargetMessage struct {
	TS      string  `json:"ts"`
	Bearing float64 `json:"bearing_deg"`
	Range   float64 `json:"range_m"`
	Power   float64 `json:"power_db,omitempty"`
}

// Publisher relays every target published on the hub to one NATS
// subject.
type Publisher struct {
	url     string
	subject string
	hub     *bridge.Hub
	log     *logger.Log
	conn    *nats.Conn
}

type Option func(*Publisher)

func WithLogger(log *logger.Log) Option {
	return func(p *Publisher) { p.log = log }
}

func NewPublisher(url, subject string, hub *bridge.Hub, opts ...Option) *Publisher {
	p := &Publisher{
		url:     url,
		subject: subject,
		hub:     hub,
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials the NATS server with unlimited reconnects.
func (p *Publisher) Connect() error {
	opts := []nats.Option{
		nats.Name("radarlink-targets-" + uuid.NewString()),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.log.Info(fmt.Sprintf("nats disconnected: %v", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.log.Info(fmt.Sprintf("nats reconnected: %s", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(p.url, opts...)
	if err != nil {
		return fmt.Errorf("natstargets: connect %s: %w", p.url, err)
	}
	p.conn = conn
	p.log.Info(fmt.Sprintf("nats connected: %s", p.url))
	return nil
}

// Run consumes the hub until its subscription closes, then drains
// the connection.
func (p *Publisher) Run(ctx context.Context) {
	sub := p.hub.Subscribe()
	defer func() {
		if p.conn != nil {
			_ = p.conn.Drain()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case target, ok := <-sub.C():
			if !ok {
				return
			}
			p.publish(target)
		}
	}
}

func (p *Publisher) publish(target navigation.Target) {
	if p.conn == nil {
		return
	}
	msg := TargetMessage{
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Bearing: target.Bearing,
		Range:   target.Range,
		Power:   target.Power,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.log.Debug(fmt.Sprintf("natstargets: publish: %v", err))
	}
}
