package ws

import (
	"encoding/json"
	"testing"
)

// addClient inserts a bare client into the hub without a network connection.
func addClient(h *Hub, playerID string) *Client {
	c := &Client{playerID: playerID, send: make(chan []byte, 8)}
	h.mu.Lock()
	h.clients[playerID] = c
	h.mu.Unlock()
	return c
}

func decodeEvent(t *testing.T, raw []byte) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Bad envelope %q: %v", raw, err)
	}
	return env
}

func TestSendToPlayerDeliversEnvelope(t *testing.T) {
	h := NewHub()
	c := addClient(h, "p1")

	h.SendToPlayer("p1", "joined", nil)
	h.SendToPlayer("nobody", "joined", nil) // silently dropped

	select {
	case raw := <-c.send:
		if env := decodeEvent(t, raw); env.Type != "joined" {
			t.Errorf("Envelope type = %q, want joined", env.Type)
		}
	default:
		t.Fatal("No message delivered to p1")
	}
	if len(c.send) != 0 {
		t.Error("Unexpected extra message in buffer")
	}
}

func TestRoomMembershipAndBroadcast(t *testing.T) {
	h := NewHub()
	c1 := addClient(h, "p1")
	c2 := addClient(h, "p2")
	c3 := addClient(h, "outsider")

	h.JoinRoom("room_a", "p1")
	h.JoinRoom("room_a", "p2")
	h.JoinRoom("room_a", "ghost") // no connection: ignored

	h.BroadcastToRoom("room_a", "games-informations", map[string]int{"score1": 1})

	for _, c := range []*Client{c1, c2} {
		select {
		case raw := <-c.send:
			if env := decodeEvent(t, raw); env.Type != "games-informations" {
				t.Errorf("Envelope type = %q", env.Type)
			}
		default:
			t.Fatalf("Room member %s received nothing", c.playerID)
		}
	}
	if len(c3.send) != 0 {
		t.Error("Broadcast leaked to a non-member")
	}

	h.LeaveRoom("room_a", "p1")
	h.BroadcastToRoom("room_a", "games-informations", nil)
	if len(c1.send) != 0 {
		t.Error("Broadcast reached a player who left the room")
	}
	if len(c2.send) != 1 {
		t.Error("Remaining member missed the broadcast")
	}
}

func TestIsConnected(t *testing.T) {
	h := NewHub()

	if h.IsConnected("p1") {
		t.Error("IsConnected true for unknown player")
	}
	addClient(h, "p1")
	if !h.IsConnected("p1") {
		t.Error("IsConnected false for registered player")
	}
}
