package game

import (
	"log"
	"sync"
	"time"
)

// Notifier delivers engine-originated events to connected players. The ws
// hub implements it; tests substitute a recording fake.
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
	SendToIdentity(roomID, identity string, message interface{})
}

type seatTimers struct {
	skip    *time.Timer
	forfeit *time.Timer
}

// Supervisor tracks disconnected seats and drives the grace-period timers:
// a short one that skips the absent player's turn so the game keeps moving,
// and a long one that forfeits the seat entirely. Reconnects cancel both.
type Supervisor struct {
	registry      *Registry
	notifier      Notifier
	recorder      *Recorder
	turnSkipGrace time.Duration
	forfeitAfter  time.Duration

	mu     sync.Mutex
	timers map[string]*seatTimers // roomID + "/" + identity
}

// NewSupervisor wires the supervisor to the registry and notifier.
func NewSupervisor(registry *Registry, notifier Notifier, recorder *Recorder, turnSkipGrace, forfeitAfter time.Duration) *Supervisor {
	return &Supervisor{
		registry:      registry,
		notifier:      notifier,
		recorder:      recorder,
		turnSkipGrace: turnSkipGrace,
		forfeitAfter:  forfeitAfter,
		timers:        make(map[string]*seatTimers),
	}
}

// HandleDisconnect reacts to a dropped transport. In the lobby (or after the
// game finished) the seat is removed outright; mid-game the seat is marked
// disconnected, its hand preserved, and the grace timers armed.
func (s *Supervisor) HandleDisconnect(roomID, identity string) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return
	}

	phase := room.Phase()
	if phase == PhaseLobby || phase == PhaseFinished {
		s.Leave(roomID, identity)
		return
	}

	holdsTurn, err := room.MarkDisconnected(identity)
	if err != nil {
		return
	}
	log.Printf("[SUPERVISOR] %s disconnected from room %s (holds turn: %v)", identity, roomID, holdsTurn)

	s.notifier.BroadcastToRoom(roomID, map[string]interface{}{
		"type":     "player_disconnected",
		"identity": identity,
	})

	key := timerKey(roomID, identity)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(key)
	timers := &seatTimers{
		forfeit: time.AfterFunc(s.forfeitAfter, func() { s.fireForfeit(roomID, identity) }),
	}
	if holdsTurn {
		timers.skip = time.AfterFunc(s.turnSkipGrace, func() { s.fireTurnSkip(roomID, identity) })
	}
	s.timers[key] = timers
}

// AttemptReconnect rebinds identity to a fresh transport handle. The three
// ineligible cases each surface their own error: the room is gone, the
// identity is already live, or it was never seated here.
func (s *Supervisor) AttemptReconnect(roomID, identity, connID string) (*Room, error) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return nil, ErrRoomGone
	}

	if err := room.Rebind(identity, connID); err != nil {
		return nil, err
	}
	s.cancel(roomID, identity)
	log.Printf("[SUPERVISOR] %s reconnected to room %s", identity, roomID)

	s.notifier.BroadcastToRoom(roomID, map[string]interface{}{
		"type":     "player_reconnected",
		"identity": identity,
	})
	return room, nil
}

// Leave removes a seat immediately, with no grace period.
func (s *Supervisor) Leave(roomID, identity string) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return
	}

	s.cancel(roomID, identity)
	res, err := room.RemoveSeat(identity)
	if err != nil || res == nil {
		return
	}
	s.afterRemoval(room, res, "player_left")
}

// fireTurnSkip runs when the short grace timer expires. The room decides
// whether the skip still applies; reconnects and turn changes that raced the
// timer make it a no-op.
func (s *Supervisor) fireTurnSkip(roomID, identity string) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return
	}

	res, err := room.ForceSkipTurn(identity)
	if err != nil {
		log.Printf("[SUPERVISOR] Turn skip in room %s failed: %v", roomID, err)
		return
	}
	if res == nil {
		return
	}

	s.recorder.RecordMove(roomID, identity, "turn_skipped", res)
	s.notifier.BroadcastToRoom(roomID, map[string]interface{}{
		"type":      "turn_skipped",
		"identity":  res.SkippedIdentity,
		"next_turn": res.NextTurn,
	})
	s.fanOutState(room)
}

// fireForfeit runs when the long grace timer expires and removes the seat
// if the player never came back.
func (s *Supervisor) fireForfeit(roomID, identity string) {
	room, err := s.registry.Get(roomID)
	if err != nil {
		return
	}

	s.cancel(roomID, identity)
	res, err := room.ForfeitDisconnected(identity)
	if err != nil {
		log.Printf("[SUPERVISOR] Forfeit in room %s failed: %v", roomID, err)
		return
	}
	if res == nil {
		return
	}
	log.Printf("[SUPERVISOR] %s forfeited room %s after grace period", identity, roomID)

	s.recorder.RecordMove(roomID, identity, "forfeited", res)
	s.afterRemoval(room, res, "player_forfeited")
}

func (s *Supervisor) afterRemoval(room *Room, res *RemoveResult, event string) {
	if res.Remaining == 0 {
		s.registry.Destroy(room.ID)
		return
	}

	s.notifier.BroadcastToRoom(room.ID, map[string]interface{}{
		"type":      event,
		"identity":  res.Identity,
		"remaining": res.Remaining,
	})
	s.fanOutState(room)
}

// fanOutState pushes each seat its own view of the room.
func (s *Supervisor) fanOutState(room *Room) {
	for _, identity := range room.Identities() {
		s.notifier.SendToIdentity(room.ID, identity, map[string]interface{}{
			"type":  "game_state",
			"state": room.SnapshotFor(identity),
		})
	}
}

func (s *Supervisor) cancel(roomID, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(timerKey(roomID, identity))
}

func (s *Supervisor) cancelLocked(key string) {
	if timers, ok := s.timers[key]; ok {
		if timers.skip != nil {
			timers.skip.Stop()
		}
		if timers.forfeit != nil {
			timers.forfeit.Stop()
		}
		delete(s.timers, key)
	}
}

func timerKey(roomID, identity string) string {
	return roomID + "/" + identity
}
