package natsbus

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "github.com/goliatone/go-flowboard/components/dashboard"
)

func TestRelayHandlerRepublishesEvents(t *testing.T) {
	hook := dashboard.NewBroadcastHook()
	events, cancel := hook.Subscribe("well-12")
	defer cancel()

	handle := relayHandler(hook, nil)
	handle(&nats.Msg{Subject: "flowboard.events.well-12", Data: []byte("not json")})
	handle(&nats.Msg{
		Subject: "flowboard.events.well-12",
		Data:    []byte(`{"type":"layout.saved","dashboardId":"well-12","revision":4}`),
	})

	select {
	case event := <-events:
		assert.Equal(t, dashboard.EventLayoutSaved, event.Type)
		assert.Equal(t, uint64(4), event.Revision)
	case <-time.After(time.Second):
		require.FailNow(t, "relayed event not delivered")
	}
	select {
	case extra := <-events:
		t.Fatalf("malformed message should be dropped, got %#v", extra)
	default:
	}
}
