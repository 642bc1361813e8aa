package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/playuno/backend/internal/game"
)

func testGateway(maxPlayers int) (*Gateway, *game.Registry) {
	registry := game.NewRegistry(maxPlayers, 7)
	hub := NewHub()
	recorder := game.NewRecorder(nil)
	supervisor := game.NewSupervisor(registry, hub, recorder, time.Hour, time.Hour)
	return NewGateway(hub, registry, supervisor, recorder, NewEventMirror(nil), "test-secret"), registry
}

func TestCreateRoomRollsBackWhenSeatingFails(t *testing.T) {
	gateway, registry := testGateway(0) // no seat can ever be taken

	client := &Client{connID: "c1", send: make(chan []byte, 4)}
	gateway.handleCreateRoom(client, json.RawMessage(`{"identity":"alice"}`))

	if registry.Count() != 0 {
		t.Fatalf("failed seating left %d rooms registered, want 0", registry.Count())
	}
	if client.roomID != "" {
		t.Fatal("client must not be bound to a dead room")
	}

	select {
	case raw := <-client.send:
		var msg map[string]interface{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatal(err)
		}
		if msg["type"] != "error" {
			t.Fatalf("expected an error frame, got %v", msg["type"])
		}
	default:
		t.Fatal("client never received the error frame")
	}
}

func TestCreateRoomRegistersAndBinds(t *testing.T) {
	gateway, registry := testGateway(10)

	client := &Client{connID: "c1", send: make(chan []byte, 4)}
	gateway.handleCreateRoom(client, json.RawMessage(`{"identity":"alice"}`))

	if registry.Count() != 1 {
		t.Fatalf("expected 1 room registered, got %d", registry.Count())
	}
	if client.identity != "alice" || client.roomID == "" {
		t.Fatalf("client not bound: identity=%q room=%q", client.identity, client.roomID)
	}

	select {
	case raw := <-client.send:
		var msg map[string]interface{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatal(err)
		}
		if msg["type"] != "room_created" {
			t.Fatalf("expected room_created, got %v", msg["type"])
		}
		if msg["room_id"] != client.roomID {
			t.Fatalf("room_id mismatch: %v vs %s", msg["room_id"], client.roomID)
		}
	default:
		t.Fatal("client never received room_created")
	}
}
