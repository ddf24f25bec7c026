package dashboard

import "context"

// NotificationsClient is the minimal surface of an external notifications bus.
type NotificationsClient interface {
	PublishDashboardEvent(ctx context.Context, channel string, event Event) error
}

// NotificationsHook forwards selected dashboard events to a notifications
// client. With no Types configured every event is forwarded.
type NotificationsHook struct {
	Client  NotificationsClient
	Channel string
	Types   []string
}

// Publish satisfies EventHook.
func (h *NotificationsHook) Publish(ctx context.Context, event Event) error {
	if h == nil || h.Client == nil || !h.wants(event.Type) {
		return nil
	}
	return h.Client.PublishDashboardEvent(ctx, h.Channel, event)
}

func (h *NotificationsHook) wants(eventType string) bool {
	if len(h.Types) == 0 {
		return true
	}
	for _, t := range h.Types {
		if t == eventType {
			return true
		}
	}
	return false
}
