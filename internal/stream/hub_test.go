package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/solbotx/core"
	"github.com/web3guy0/solbotx/types"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	return f
}

func startHub(t *testing.T, snapshot SnapshotFunc) (*Hub, chan core.Event, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan core.Event, 8)
	hub := NewHub(snapshot)
	go hub.Run(ctx, events)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return hub, events, conn
}

func TestHubSendsSnapshotThenEvents(t *testing.T) {
	_, events, conn := startHub(t, func() any {
		return map[string]any{"running": true}
	})

	if f := readFrame(t, conn); f.Type != "bot_status" {
		t.Fatalf("first frame = %s, want bot_status", f.Type)
	}

	events <- core.Event{
		Type: core.EventTrade,
		Trade: &types.Trade{
			Pair:   "SOL/USDC",
			Action: types.Buy,
			Price:  decimal.NewFromInt(101),
			Amount: decimal.NewFromFloat(0.5),
		},
	}

	f := readFrame(t, conn)
	if f.Type != string(core.EventTrade) {
		t.Fatalf("frame = %s, want trade", f.Type)
	}
	var ev core.Event
	if err := json.Unmarshal(f.Payload, &ev); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ev.Trade == nil || !ev.Trade.Price.Equal(decimal.NewFromInt(101)) {
		t.Errorf("payload trade = %+v", ev.Trade)
	}
}

func TestClientSubscriptionFilter(t *testing.T) {
	c := &client{subs: map[core.EventType]bool{}}
	for _, ch := range allChannels {
		c.subs[ch] = true
	}

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"trade"}})
	if c.isSubscribed(core.EventTrade) {
		t.Error("still subscribed to trade")
	}
	if !c.isSubscribed(core.EventPositionClosed) {
		t.Error("lost position_closed subscription")
	}

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"trade"}})
	if !c.isSubscribed(core.EventTrade) {
		t.Error("resubscribe failed")
	}
}
