package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

// Relay subscribes to every dashboard on channel and republishes the events
// into hook, typically a dashboard.BroadcastHook, so browser clients of one
// instance see changes made on another.
func Relay(conn *nats.Conn, channel string, hook dashboard.EventHook, logger *slog.Logger) (*nats.Subscription, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	sub, err := conn.Subscribe(channel+".>", relayHandler(hook, logger))
	if err != nil {
		return nil, fmt.Errorf("natsbus: subscribe %s: %w", channel, err)
	}
	return sub, nil
}

func relayHandler(hook dashboard.EventHook, logger *slog.Logger) nats.MsgHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(msg *nats.Msg) {
		var event dashboard.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Warn("natsbus: drop malformed event", slog.String("subject", msg.Subject), slog.Any("error", err))
			return
		}
		if err := hook.Publish(context.Background(), event); err != nil {
			logger.Warn("natsbus: relay failed", slog.String("type", event.Type), slog.Any("error", err))
		}
	}
}
