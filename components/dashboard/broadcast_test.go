package dashboard

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastHookSubscribe(t *testing.T) {
	hook := NewBroadcastHook()
	all, cancelAll := hook.Subscribe("")
	defer cancelAll()
	only, cancelOnly := hook.Subscribe("dash-2")
	defer cancelOnly()

	event := Event{Type: EventLayoutChanged, DashboardID: "dash-1"}
	if err := hook.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	select {
	case e := <-all:
		if e.DashboardID != "dash-1" {
			t.Fatalf("expected dash-1, got %s", e.DashboardID)
		}
	default:
		t.Fatalf("expected event to be delivered")
	}
	select {
	case e := <-only:
		t.Fatalf("filtered subscriber received %#v", e)
	default:
	}
}

func TestBroadcastHookCancelClosesChannel(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe("")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if hook.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
}

func waitForSubscribers(t *testing.T, hook *BroadcastHook, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hook.Subscribers() < n {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastHookServeWebSocket(t *testing.T) {
	hook := NewBroadcastHook()
	srv := httptest.NewServer(http.HandlerFunc(hook.ServeWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?dashboard=dash-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitForSubscribers(t, hook, 1)

	_ = hook.Publish(context.Background(), Event{Type: EventMetricsUpdated, DashboardID: "dash-1"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != EventMetricsUpdated {
		t.Fatalf("expected metrics event, got %s", got.Type)
	}
}

func TestBroadcastHookServeSSE(t *testing.T) {
	hook := NewBroadcastHook()
	srv := httptest.NewServer(http.HandlerFunc(hook.ServeSSE))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	waitForSubscribers(t, hook, 1)

	_ = hook.Publish(context.Background(), Event{Type: EventLayoutSaved, DashboardID: "dash-1", Revision: 3})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.TrimSpace(line) != "event: "+EventLayoutSaved {
		t.Fatalf("unexpected event line %q", line)
	}
	data, _ := reader.ReadString('\n')
	if !strings.Contains(data, `"revision":3`) {
		t.Fatalf("unexpected data line %q", data)
	}
}

type failingHook struct{ err error }

func (f failingHook) Publish(context.Context, Event) error { return f.err }

type recordingNotifications struct {
	channel string
	events  []Event
}

func (r *recordingNotifications) PublishDashboardEvent(_ context.Context, channel string, event Event) error {
	r.channel = channel
	r.events = append(r.events, event)
	return nil
}

func TestMultiHookJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	broadcast := NewBroadcastHook()
	ch, cancel := broadcast.Subscribe("")
	defer cancel()

	err := MultiHook{broadcast, nil, failingHook{err: boom}}.Publish(context.Background(), Event{Type: EventRefreshPulse})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(ch) != 1 {
		t.Fatalf("expected broadcast to still receive the event")
	}
}

func TestNotificationsHookFiltersTypes(t *testing.T) {
	client := &recordingNotifications{}
	hook := &NotificationsHook{Client: client, Channel: "ops", Types: []string{EventLayoutSaveError}}

	_ = hook.Publish(context.Background(), Event{Type: EventLayoutSaved})
	_ = hook.Publish(context.Background(), Event{Type: EventLayoutSaveError})

	if len(client.events) != 1 || client.events[0].Type != EventLayoutSaveError {
		t.Fatalf("unexpected forwarded events %#v", client.events)
	}
	if client.channel != "ops" {
		t.Fatalf("expected ops channel, got %s", client.channel)
	}
	var nilHook *NotificationsHook
	if err := nilHook.Publish(context.Background(), Event{}); err != nil {
		t.Fatalf("nil hook should be a no-op: %v", err)
	}
}
