package api

import (
	"encoding/json"
	"testing"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	cl := &client{send: make(chan []byte, 4)}
	h.mu.Lock()
	h.clients[cl] = true
	h.mu.Unlock()

	h.SetVisible(true)

	select {
	case msg := <-cl.send:
		var ev presenceEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("event is not JSON: %v", err)
		}
		if ev.Type != "presence" || !ev.Visible {
			t.Errorf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("client did not receive the presence event")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.visible {
		t.Error("hub must remember the current state for new clients")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub()
	cl := &client{send: make(chan []byte)} // no reader, no buffer
	h.mu.Lock()
	h.clients[cl] = true
	h.mu.Unlock()

	h.SetVisible(true)

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[cl]; ok {
		t.Error("slow client should have been dropped")
	}
}
