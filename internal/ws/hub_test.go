package ws

import (
	"encoding/json"
	"testing"
	"time"

	"medichat-client/internal/models"
	"medichat-client/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	hub := NewHub(logger.New(cfg))
	go hub.Run()
	return hub
}

func TestPublishReachesSessionClients(t *testing.T) {
	hub := testHub()

	client := &Client{ID: "c1", SessionID: "sess-1", Send: make(chan []byte, 8), hub: hub}
	other := &Client{ID: "c2", SessionID: "sess-2", Send: make(chan []byte, 8), hub: hub}
	hub.register <- client
	hub.register <- other

	hub.Publish("sess-1", models.Message{Kind: models.KindAssistant, RawText: "Panadol relieves pain."})

	select {
	case raw := <-client.Send:
		var frame Frame
		require.NoError(t, json.Unmarshal(raw, &frame))
		assert.Equal(t, "message", frame.Type)
		content := frame.Content.(map[string]any)
		assert.Equal(t, "assistant", content["kind"])
		assert.Equal(t, "Panadol relieves pain.", content["raw_text"])
	case <-time.After(time.Second):
		t.Fatal("no frame delivered to the session's client")
	}

	select {
	case <-other.Send:
		t.Fatal("frame leaked to a client on a different session")
	default:
	}
}

func TestPublishSkipsSlowClient(t *testing.T) {
	hub := testHub()

	slow := &Client{ID: "c1", SessionID: "sess-1", Send: make(chan []byte), hub: hub}
	hub.register <- slow

	done := make(chan struct{})
	go func() {
		hub.Publish("sess-1", models.Message{Kind: models.KindUser, RawText: "Panadol"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow client")
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := testHub()

	client := &Client{ID: "c1", SessionID: "sess-1", Send: make(chan []byte, 8), hub: hub}
	hub.register <- client
	hub.unregister <- client

	select {
	case _, ok := <-client.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}

	// Publishing to the now-empty session is a no-op
	hub.Publish("sess-1", models.Message{Kind: models.KindUser, RawText: "Panadol"})
}
