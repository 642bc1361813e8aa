package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/playuno/backend/internal/auth"
	"github.com/playuno/backend/internal/game"
)

const seatTokenTTL = 24 * time.Hour

// Gateway is the single entry point for player intents. It owns the message
// loop per connection, translates frames into engine calls and engine results
// into events. It never touches game state directly - every mutation goes
// through a room operation.
type Gateway struct {
	hub        *Hub
	registry   *game.Registry
	supervisor *game.Supervisor
	recorder   *game.Recorder
	mirror     *EventMirror
	jwtSecret  string
}

// NewGateway wires the gateway to the engine and transport.
func NewGateway(hub *Hub, registry *game.Registry, supervisor *game.Supervisor, recorder *game.Recorder, mirror *EventMirror, jwtSecret string) *Gateway {
	return &Gateway{
		hub:        hub,
		registry:   registry,
		supervisor: supervisor,
		recorder:   recorder,
		mirror:     mirror,
		jwtSecret:  jwtSecret,
	}
}

// HandleWebSocket upgrades the connection and runs the read loop until the
// client goes away.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	client := &Client{
		conn:   conn,
		connID: uuid.NewString(),
		send:   make(chan []byte, 256),
	}
	g.hub.addClient(client)
	log.Printf("[WS] Connection %s opened", client.connID)

	go client.writePump()
	g.readPump(client)
}

func (g *Gateway) readPump(client *Client) {
	defer func() {
		roomID, identity := client.roomID, client.identity
		wasBound := g.hub.removeClient(client)
		close(client.send)
		client.conn.Close()
		log.Printf("[WS] Connection %s closed", client.connID)
		if wasBound {
			g.supervisor.HandleDisconnect(roomID, identity)
		}
	}()

	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.sendError(string(game.KindValidation), "invalid message format")
			continue
		}
		g.handleMessage(client, msg)
	}
}

func (g *Gateway) handleMessage(client *Client, msg WSMessage) {
	switch msg.Type {
	case "create_room":
		g.handleCreateRoom(client, msg.Data)
	case "join_room":
		g.handleJoinRoom(client, msg.Data)
	case "start_game":
		g.handleStartGame(client)
	case "play_card":
		g.handlePlayCard(client, msg.Data)
	case "select_color":
		g.handleSelectColor(client, msg.Data)
	case "draw_card":
		g.handleDrawCard(client)
	case "reconnect":
		g.handleReconnect(client, msg.Data)
	case "get_state":
		g.handleGetState(client)
	case "leave_room":
		g.handleLeaveRoom(client)
	default:
		client.sendError(string(game.KindValidation), "unknown message type: "+msg.Type)
	}
}

func (g *Gateway) handleCreateRoom(client *Client, data json.RawMessage) {
	var req struct {
		Identity string `json:"identity"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.Identity == "" {
		client.sendError(string(game.KindValidation), "identity is required")
		return
	}
	if client.roomID != "" {
		client.sendError(string(game.KindValidation), "already in a room")
		return
	}

	room := g.registry.CreateRoom()
	seat, err := room.AddPlayer(req.Identity, client.connID)
	if err != nil {
		// Never leave a room nobody can join sitting in the registry.
		g.registry.Destroy(room.ID)
		g.sendEngineError(client, err)
		return
	}
	g.hub.bind(client, room.ID, req.Identity)

	token, err := auth.NewSeatToken(g.jwtSecret, room.ID, req.Identity, seatTokenTTL)
	if err != nil {
		log.Printf("[WS] Failed to mint seat token for room %s: %v", room.ID, err)
	}

	client.sendJSON(map[string]interface{}{
		"type":    "room_created",
		"room_id": room.ID,
		"seat":    seat,
		"token":   token,
		"state":   room.SnapshotFor(req.Identity),
	})
	g.mirror.Publish(room.ID, "room_created", map[string]interface{}{"identity": req.Identity})
}

func (g *Gateway) handleJoinRoom(client *Client, data json.RawMessage) {
	var req struct {
		RoomID   string `json:"room_id"`
		Identity string `json:"identity"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.Identity == "" || req.RoomID == "" {
		client.sendError(string(game.KindValidation), "room_id and identity are required")
		return
	}
	if client.roomID != "" {
		client.sendError(string(game.KindValidation), "already in a room")
		return
	}

	room, err := g.registry.Get(req.RoomID)
	if err != nil {
		g.sendEngineError(client, err)
		return
	}
	seat, err := room.AddPlayer(req.Identity, client.connID)
	if err != nil {
		g.sendEngineError(client, err)
		return
	}
	g.hub.bind(client, room.ID, req.Identity)

	token, err := auth.NewSeatToken(g.jwtSecret, room.ID, req.Identity, seatTokenTTL)
	if err != nil {
		log.Printf("[WS] Failed to mint seat token for room %s: %v", room.ID, err)
	}

	client.sendJSON(map[string]interface{}{
		"type":    "room_joined",
		"room_id": room.ID,
		"seat":    seat,
		"token":   token,
		"state":   room.SnapshotFor(req.Identity),
	})
	g.hub.BroadcastToRoom(room.ID, map[string]interface{}{
		"type":     "player_joined",
		"identity": req.Identity,
		"seat":     seat,
	})
	g.mirror.Publish(room.ID, "player_joined", map[string]interface{}{"identity": req.Identity})
}

func (g *Gateway) handleStartGame(client *Client) {
	room, ok := g.boundRoom(client)
	if !ok {
		return
	}

	res, err := room.Start()
	if err != nil {
		g.sendEngineError(client, err)
		return
	}

	g.recorder.RecordMove(room.ID, client.identity, "start_game", res)
	g.hub.BroadcastToRoom(room.ID, map[string]interface{}{
		"type":       "game_started",
		"top_card":   res.TopCard,
		"first_turn": res.FirstTurn,
		"seats":      res.Seats,
	})
	g.fanOutState(room)
	g.mirror.Publish(room.ID, "game_started", map[string]interface{}{"first_turn": res.FirstTurn})
}

func (g *Gateway) handlePlayCard(client *Client, data json.RawMessage) {
	var req struct {
		CardIndex int `json:"card_index"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		client.sendError(string(game.KindValidation), "card_index is required")
		return
	}
	room, ok := g.boundRoom(client)
	if !ok {
		return
	}

	res, err := room.PlayCard(client.identity, req.CardIndex)
	if err != nil {
		g.sendEngineError(client, err)
		return
	}

	g.recorder.RecordMove(room.ID, client.identity, "play_card", res)
	event := map[string]interface{}{
		"type":     "card_played",
		"identity": res.Identity,
		"card":     res.Card,
	}
	if res.Effect != "" {
		event["effect"] = res.Effect
	}
	if res.Reversed {
		event["reversed"] = true
	}
	if res.VictimDrew > 0 {
		event["victim"] = res.VictimIdentity
		event["victim_drew"] = res.VictimDrew
	}
	if res.NextTurn != "" {
		event["next_turn"] = res.NextTurn
	}
	g.hub.BroadcastToRoom(room.ID, event)

	switch {
	case res.GameOver:
		g.finishGame(room, res.Winner)
	case res.AwaitingColor:
		g.hub.BroadcastToRoom(room.ID, map[string]interface{}{
			"type":     "color_select_request",
			"identity": res.Identity,
		})
	}
	g.fanOutState(room)
}

func (g *Gateway) handleSelectColor(client *Client, data json.RawMessage) {
	var req struct {
		Color string `json:"color"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		client.sendError(string(game.KindValidation), "color is required")
		return
	}
	room, ok := g.boundRoom(client)
	if !ok {
		return
	}

	res, err := room.SelectColor(client.identity, game.Color(req.Color))
	if err != nil {
		g.sendEngineError(client, err)
		return
	}

	g.recorder.RecordMove(room.ID, client.identity, "select_color", res)
	event := map[string]interface{}{
		"type":      "color_selected",
		"identity":  res.Identity,
		"color":     req.Color,
		"top_card":  res.Card,
		"next_turn": res.NextTurn,
	}
	if res.VictimDrew > 0 {
		event["victim"] = res.VictimIdentity
		event["victim_drew"] = res.VictimDrew
	}
	g.hub.BroadcastToRoom(room.ID, event)
	g.fanOutState(room)
}

func (g *Gateway) handleDrawCard(client *Client) {
	room, ok := g.boundRoom(client)
	if !ok {
		return
	}

	res, err := room.DrawCard(client.identity)
	if err != nil {
		g.sendEngineError(client, err)
		return
	}

	g.recorder.RecordMove(room.ID, client.identity, "draw_card", res)
	// Only the drawer learns which card came off the deck.
	client.sendJSON(map[string]interface{}{
		"type":      "card_drawn",
		"card":      res.Card,
		"next_turn": res.NextTurn,
	})
	g.hub.BroadcastToRoom(room.ID, map[string]interface{}{
		"type":      "player_drew",
		"identity":  res.Identity,
		"next_turn": res.NextTurn,
	})
	g.fanOutState(room)
}

func (g *Gateway) handleReconnect(client *Client, data json.RawMessage) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.Token == "" {
		client.sendError(string(game.KindValidation), "token is required")
		return
	}
	if client.roomID != "" {
		client.sendError(string(game.KindValidation), "already in a room")
		return
	}

	claims, err := auth.ParseSeatToken(g.jwtSecret, req.Token)
	if err != nil {
		client.sendError(string(game.KindLifecycle), err.Error())
		return
	}

	room, err := g.supervisor.AttemptReconnect(claims.RoomID, claims.Identity, client.connID)
	if err != nil {
		g.sendEngineError(client, err)
		return
	}
	g.hub.bind(client, claims.RoomID, claims.Identity)

	client.sendJSON(map[string]interface{}{
		"type":  "reconnected",
		"state": room.SnapshotFor(claims.Identity),
	})
}

func (g *Gateway) handleGetState(client *Client) {
	room, ok := g.boundRoom(client)
	if !ok {
		return
	}
	client.sendJSON(map[string]interface{}{
		"type":  "game_state",
		"state": room.SnapshotFor(client.identity),
	})
}

func (g *Gateway) handleLeaveRoom(client *Client) {
	if client.roomID == "" {
		client.sendError(string(game.KindLifecycle), "not in a room")
		return
	}

	roomID, identity := client.roomID, client.identity
	g.hub.unbind(client)
	g.supervisor.Leave(roomID, identity)
	client.sendJSON(map[string]interface{}{"type": "room_left", "room_id": roomID})
	g.mirror.Publish(roomID, "player_left", map[string]interface{}{"identity": identity})
}

// finishGame runs the end-of-game bookkeeping. The room object lingers in
// the registry until the last seat leaves or disconnects.
func (g *Gateway) finishGame(room *game.Room, winner string) {
	g.hub.BroadcastToRoom(room.ID, map[string]interface{}{
		"type":   "game_over",
		"winner": winner,
	})
	g.recorder.RecordResult(room)
	g.mirror.Publish(room.ID, "game_over", map[string]interface{}{"winner": winner})
}

// fanOutState pushes each seat its own view of the room.
func (g *Gateway) fanOutState(room *game.Room) {
	for _, identity := range room.Identities() {
		g.hub.SendToIdentity(room.ID, identity, map[string]interface{}{
			"type":  "game_state",
			"state": room.SnapshotFor(identity),
		})
	}
}

func (g *Gateway) boundRoom(client *Client) (*game.Room, bool) {
	if client.roomID == "" {
		client.sendError(string(game.KindLifecycle), "not in a room")
		return nil, false
	}
	room, err := g.registry.Get(client.roomID)
	if err != nil {
		client.sendError(string(game.KindLifecycle), game.ErrRoomGone.Error())
		return nil, false
	}
	return room, true
}

func (g *Gateway) sendEngineError(client *Client, err error) {
	client.sendError(string(game.KindOf(err)), err.Error())
}
