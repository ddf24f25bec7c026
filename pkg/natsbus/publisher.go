package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"

	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// DefaultChannel is the subject prefix used when a hook has no channel.
const DefaultChannel = "flowboard.events"

type msgPublisher interface {
	Publish(subject string, data []byte) error
}

// Publisher forwards dashboard events to NATS. Subjects are
// "<channel>.<dashboardID>" so subscribers can follow one dashboard or use
// "<channel>.>" for all of them.
type Publisher struct {
	conn  msgPublisher
	owned *nats.Conn
}

var _ dashboard.NotificationsClient = (*Publisher)(nil)

// Connect dials url and returns a publisher owning the connection.
func Connect(url string, opts ...nats.Option) (*Publisher, error) {
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("natsbus: connect: %w", err)
	}
	return &Publisher{conn: conn, owned: conn}, nil
}

// NewPublisher wraps an existing connection.
func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Close drains a connection created by Connect.
func (p *Publisher) Close() {
	if p.owned != nil {
		_ = p.owned.Drain()
		p.owned.Close()
	}
}

// PublishDashboardEvent implements dashboard.NotificationsClient.
func (p *Publisher) PublishDashboardEvent(ctx context.Context, channel string, event dashboard.Event) error {
	if p == nil || p.conn == nil {
		return errors.New("natsbus: publisher not connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("natsbus: encode event: %w", err)
	}
	if err := p.conn.Publish(Subject(channel, event.DashboardID), data); err != nil {
		return fmt.Errorf("natsbus: publish %s: %w", event.Type, err)
	}
	return nil
}

// Subject builds the subject for a dashboard.
func Subject(channel, dashboardID string) string {
	if channel == "" {
		channel = DefaultChannel
	}
	return channel + "." + subjectToken(dashboardID)
}

// subjectToken replaces characters NATS reserves for subject syntax.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
