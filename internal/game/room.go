package game

import (
	"log"
	"math/rand"
	"sync"
	"time"
)

// Phase represents the lifecycle state of a room
type Phase string

const (
	PhaseLobby         Phase = "LOBBY"
	PhaseInProgress    Phase = "IN_PROGRESS"
	PhaseAwaitingColor Phase = "AWAITING_COLOR"
	PhaseFinished      Phase = "FINISHED"
)

// Seat represents a stable position in the turn order. The transport handle
// (ConnID) is a rebindable attribute, never the player's identity.
type Seat struct {
	Identity       string
	ConnID         string
	Hand           []Card
	Connected      bool
	DisconnectedAt *time.Time
}

// Room is one isolated game instance. Every operation locks the room for its
// whole duration, so compound mutations (hand + discard + turn pointer) are
// never observed half-applied. No I/O happens under the lock.
type Room struct {
	ID               string
	seats            []*Seat
	deck             *Deck
	discard          []PlayedCard
	turn             int
	direction        int
	phase            Phase
	pendingColorSeat int
	winner           string
	forfeited        []Card // hands of forfeited seats, permanently out of play
	invalid          bool
	maxPlayers       int
	handSize         int
	createdAt        time.Time
	startedAt        *time.Time
	mu               sync.Mutex
}

// NewRoom creates an empty room in the lobby phase.
func NewRoom(id string, maxPlayers, handSize int) *Room {
	return &Room{
		ID:               id,
		direction:        1,
		phase:            PhaseLobby,
		pendingColorSeat: -1,
		maxPlayers:       maxPlayers,
		handSize:         handSize,
		createdAt:        time.Now(),
	}
}

// PlayResult describes the outcome of a successful play_card or select_color.
type PlayResult struct {
	Seat           int
	Identity       string
	Card           PlayedCard
	AwaitingColor  bool
	GameOver       bool
	Winner         string
	Effect         Value
	Reversed       bool
	VictimIdentity string
	VictimDrew     int
	NextTurn       string
}

// DrawResult describes a voluntary draw. Card is private to the drawer.
type DrawResult struct {
	Identity string
	Card     Card
	NextTurn string
}

// StartResult describes a freshly started game.
type StartResult struct {
	TopCard   PlayedCard
	FirstTurn string
	Seats     int
}

// SkipResult describes a forced turn advance after a disconnect grace period.
type SkipResult struct {
	SkippedIdentity string
	NextTurn        string
}

// RemoveResult describes a seat removal (forfeit or explicit leave).
type RemoveResult struct {
	Identity  string
	Seat      int
	Remaining int
}

// AddPlayer seats a new player. Only possible while the room is in the lobby.
func (r *Room) AddPlayer(identity, connID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseLobby {
		return 0, ErrGameStarted
	}
	for _, s := range r.seats {
		if s.Identity == identity {
			return 0, ErrIdentityTaken
		}
	}
	if len(r.seats) >= r.maxPlayers {
		return 0, ErrRoomFull
	}

	r.seats = append(r.seats, &Seat{
		Identity:  identity,
		ConnID:    connID,
		Connected: true,
	})
	return len(r.seats) - 1, nil
}

// Start shuffles a fresh canonical deck, deals every seat its opening hand
// and flips the initial top card. A wild or wild-draw-four may not start the
// discard pile; offenders are shuffled back in and redrawn.
func (r *Room) Start() (*StartResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseLobby {
		return nil, ErrGameStarted
	}
	if len(r.seats) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	r.deck = NewDeck()
	r.deck.Shuffle()

	for _, s := range r.seats {
		hand, err := r.deck.DrawMultiple(r.handSize)
		if err != nil {
			return nil, err
		}
		s.Hand = hand
	}

	for {
		card, err := r.deck.Draw()
		if err != nil {
			return nil, err
		}
		if !card.IsWild() {
			r.discard = []PlayedCard{{Card: card}}
			break
		}
		r.deck.ReturnCard(card)
	}

	r.turn = 0
	r.direction = 1
	r.phase = PhaseInProgress
	now := time.Now()
	r.startedAt = &now

	if err := r.checkInvariantsLocked(); err != nil {
		return nil, err
	}

	log.Printf("[ROOM] Room %s started with %d seats, %s to act", r.ID, len(r.seats), r.seats[0].Identity)
	return &StartResult{
		TopCard:   r.top(),
		FirstTurn: r.seats[0].Identity,
		Seats:     len(r.seats),
	}, nil
}

// PlayCard validates and applies a card play for the acting player. The win
// check runs the moment the hand empties, before any effect resolution; a
// wild played with cards remaining parks its effect until SelectColor.
func (r *Room) PlayCard(identity string, cardIndex int) (*PlayResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireActionPhase(); err != nil {
		return nil, err
	}
	idx := r.seatIndexOf(identity)
	if idx < 0 {
		return nil, ErrSeatNotFound
	}
	if idx != r.turn {
		return nil, ErrNotYourTurn
	}
	seat := r.seats[idx]
	if cardIndex < 0 || cardIndex >= len(seat.Hand) {
		return nil, ErrBadCardIndex
	}

	card := seat.Hand[cardIndex]
	top := r.top()
	if !card.CanPlayOn(top) {
		return nil, ErrIllegalCard
	}
	if card.Value == DrawFour {
		for _, held := range seat.Hand {
			if held.Color == top.EffectiveColor() {
				return nil, ErrIllegalDrawFour
			}
		}
	}
	// Draw effects need cards to hand out; verify before mutating anything.
	if n := drawCount(card.Value); n > 0 && !card.IsWild() {
		if r.deck.Len()+len(r.discard) < n {
			return nil, ErrUnrecoverableEmpty
		}
	}

	seat.Hand = append(seat.Hand[:cardIndex], seat.Hand[cardIndex+1:]...)
	played := PlayedCard{Card: card}
	r.discard = append(r.discard, played)

	result := &PlayResult{Seat: idx, Identity: identity, Card: played}

	if len(seat.Hand) == 0 {
		r.finishLocked(identity)
		result.GameOver = true
		result.Winner = identity
		return result, r.checkInvariantsLocked()
	}

	if card.IsWild() {
		r.phase = PhaseAwaitingColor
		r.pendingColorSeat = idx
		result.AwaitingColor = true
		return result, r.checkInvariantsLocked()
	}

	if err := r.resolveEffect(card.Value, result); err != nil {
		return nil, err
	}
	result.NextTurn = r.currentIdentity()
	return result, r.checkInvariantsLocked()
}

// SelectColor completes the two-phase wild play: only the seat that played
// the pending wild may pick, only once, and only a concrete color.
func (r *Room) SelectColor(identity string, color Color) (*PlayResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.invalid {
		return nil, ErrInvariantViolation
	}
	if r.phase != PhaseAwaitingColor {
		return nil, ErrWrongPhase
	}
	idx := r.seatIndexOf(identity)
	if idx < 0 {
		return nil, ErrSeatNotFound
	}
	if idx != r.pendingColorSeat {
		return nil, ErrNotColorPicker
	}
	if !color.IsConcrete() {
		return nil, ErrBadColor
	}

	return r.selectColorLocked(color)
}

// selectColorLocked applies the color choice and the parked wild effect.
// Caller holds the lock and has validated phase and picker.
func (r *Room) selectColorLocked(color Color) (*PlayResult, error) {
	pending := r.top()
	if pending.Value == DrawFour && r.deck.Len()+len(r.discard)-1 < 4 {
		return nil, ErrUnrecoverableEmpty
	}

	r.discard[len(r.discard)-1].ChosenColor = color
	idx := r.pendingColorSeat
	r.pendingColorSeat = -1
	r.phase = PhaseInProgress

	result := &PlayResult{
		Seat:     idx,
		Identity: r.seats[idx].Identity,
		Card:     r.top(),
	}
	if pending.Value == DrawFour {
		if err := r.applyDrawEffect(4, result); err != nil {
			return nil, err
		}
		result.Effect = DrawFour
	} else {
		r.advance(1)
	}
	result.NextTurn = r.currentIdentity()
	return result, r.checkInvariantsLocked()
}

// DrawCard draws a single card for the acting player and passes the turn.
func (r *Room) DrawCard(identity string) (*DrawResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireActionPhase(); err != nil {
		return nil, err
	}
	idx := r.seatIndexOf(identity)
	if idx < 0 {
		return nil, ErrSeatNotFound
	}
	if idx != r.turn {
		return nil, ErrNotYourTurn
	}

	card, err := r.drawOne()
	if err != nil {
		return nil, err
	}
	r.seats[idx].Hand = append(r.seats[idx].Hand, card)
	r.advance(1)

	if err := r.checkInvariantsLocked(); err != nil {
		return nil, err
	}
	return &DrawResult{Identity: identity, Card: card, NextTurn: r.currentIdentity()}, nil
}

// resolveEffect applies a non-wild special effect and advances the turn.
func (r *Room) resolveEffect(value Value, result *PlayResult) error {
	switch value {
	case Skip:
		result.Effect = Skip
		r.advance(2)
	case Reverse:
		result.Effect = Reverse
		result.Reversed = true
		r.direction = -r.direction
		if len(r.seats) == 2 {
			// With two seats reversing hands the turn straight back,
			// so reverse behaves as a skip.
			r.advance(2)
		} else {
			r.advance(1)
		}
	case DrawTwo:
		result.Effect = DrawTwo
		return r.applyDrawEffect(2, result)
	default:
		r.advance(1)
	}
	return nil
}

// applyDrawEffect makes the next player in direction draw n cards, one at a
// time so each draw independently recycles an empty deck, then skips them.
func (r *Room) applyDrawEffect(n int, result *PlayResult) error {
	victim := r.normalize(r.turn + r.direction)
	for i := 0; i < n; i++ {
		card, err := r.drawOne()
		if err != nil {
			return err
		}
		r.seats[victim].Hand = append(r.seats[victim].Hand, card)
	}
	result.VictimIdentity = r.seats[victim].Identity
	result.VictimDrew = n
	r.advance(2)
	return nil
}

// drawOne pops a card from the deck, recycling the discard pile first when
// the deck is empty. Caller holds the lock.
func (r *Room) drawOne() (Card, error) {
	if r.deck.Len() == 0 {
		discard, err := r.deck.RecycleFrom(r.discard)
		if err != nil {
			return Card{}, err
		}
		r.discard = discard
		log.Printf("[ROOM] Room %s recycled discard pile into deck (%d cards)", r.ID, r.deck.Len())
	}
	return r.deck.Draw()
}

func (r *Room) requireActionPhase() error {
	if r.invalid {
		return ErrInvariantViolation
	}
	switch r.phase {
	case PhaseInProgress:
		return nil
	case PhaseLobby:
		return ErrGameNotStarted
	default:
		return ErrWrongPhase
	}
}

func (r *Room) finishLocked(winner string) {
	r.phase = PhaseFinished
	r.winner = winner
	r.pendingColorSeat = -1
	log.Printf("[ROOM] Room %s finished, winner %s", r.ID, winner)
}

func (r *Room) seatIndexOf(identity string) int {
	for i, s := range r.seats {
		if s.Identity == identity {
			return i
		}
	}
	return -1
}

func (r *Room) top() PlayedCard {
	return r.discard[len(r.discard)-1]
}

func (r *Room) currentIdentity() string {
	if r.phase == PhaseFinished || len(r.seats) == 0 {
		return ""
	}
	return r.seats[r.turn].Identity
}

// advance moves the turn pointer steps positions in the current direction.
func (r *Room) advance(steps int) {
	r.turn = r.normalize(r.turn + steps*r.direction)
}

// normalize wraps an index into [0, len(seats)).
func (r *Room) normalize(i int) int {
	n := len(r.seats)
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// MarkDisconnected flags a seat as disconnected, preserving its hand. Returns
// whether the seat held the turn (or an outstanding color pick), which is
// what decides if a turn-skip timer is needed.
func (r *Room) MarkDisconnected(identity string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.seatIndexOf(identity)
	if idx < 0 {
		return false, ErrSeatNotFound
	}
	seat := r.seats[idx]
	if !seat.Connected {
		return false, nil // already handled
	}
	seat.Connected = false
	seat.ConnID = ""
	now := time.Now()
	seat.DisconnectedAt = &now

	holdsTurn := r.phase == PhaseInProgress && idx == r.turn ||
		r.phase == PhaseAwaitingColor && idx == r.pendingColorSeat
	return holdsTurn, nil
}

// Rebind re-attaches a new transport handle to a disconnected seat. The hand,
// seat index and turn ownership are untouched.
func (r *Room) Rebind(identity, connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.seatIndexOf(identity)
	if idx < 0 {
		return ErrNeverPresent
	}
	seat := r.seats[idx]
	if seat.Connected {
		return ErrAlreadyConnected
	}
	seat.Connected = true
	seat.ConnID = connID
	seat.DisconnectedAt = nil
	return nil
}

// ForceSkipTurn advances past a disconnected seat as if it passed. Called by
// the supervisor's turn-skip timer; a stale firing (seat reconnected, turn
// moved on, game over) is a benign no-op and returns nil, nil.
func (r *Room) ForceSkipTurn(identity string) (*SkipResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.seatIndexOf(identity)
	if idx < 0 || r.seats[idx].Connected || r.invalid {
		return nil, nil
	}

	switch r.phase {
	case PhaseInProgress:
		if idx != r.turn {
			return nil, nil
		}
		r.advance(1)
	case PhaseAwaitingColor:
		if idx != r.pendingColorSeat {
			return nil, nil
		}
		// The picker is gone; resolve the wild with a random color so the
		// room does not deadlock waiting on a dead connection.
		if _, err := r.selectColorLocked(concreteColors[rand.Intn(len(concreteColors))]); err != nil {
			return nil, err
		}
	default:
		return nil, nil
	}

	log.Printf("[ROOM] Room %s skipped turn of disconnected %s", r.ID, identity)
	return &SkipResult{SkippedIdentity: identity, NextTurn: r.currentIdentity()}, nil
}

// RemoveSeat permanently removes a seat (explicit leave). The forfeited hand
// stays out of play but remains counted, keeping the 108-card accounting
// closed. Subsequent seat indices shift down by one.
func (r *Room) RemoveSeat(identity string) (*RemoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.seatIndexOf(identity)
	if idx < 0 {
		return nil, nil // already removed; races with prior removal are benign
	}
	return r.removeSeatLocked(idx)
}

// ForfeitDisconnected removes a seat only if it is still disconnected.
// Called by the supervisor's forfeiture timer; a reconnect that won the
// race makes this a no-op.
func (r *Room) ForfeitDisconnected(identity string) (*RemoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.seatIndexOf(identity)
	if idx < 0 || r.seats[idx].Connected {
		return nil, nil
	}
	return r.removeSeatLocked(idx)
}

func (r *Room) removeSeatLocked(idx int) (*RemoveResult, error) {
	identity := r.seats[idx].Identity

	// An outstanding color pick owned by this seat must resolve before the
	// seat disappears, or the top card would stay wild forever.
	if r.phase == PhaseAwaitingColor && idx == r.pendingColorSeat {
		if _, err := r.selectColorLocked(concreteColors[rand.Intn(len(concreteColors))]); err != nil {
			return nil, err
		}
	}

	r.forfeited = append(r.forfeited, r.seats[idx].Hand...)
	r.seats = append(r.seats[:idx], r.seats[idx+1:]...)

	if len(r.seats) > 0 {
		if idx < r.turn {
			r.turn--
		} else if idx == r.turn {
			r.turn = r.turn % len(r.seats)
		}
		if r.pendingColorSeat > idx {
			r.pendingColorSeat--
		}
	}

	log.Printf("[ROOM] Room %s removed seat %d (%s), %d remaining", r.ID, idx, identity, len(r.seats))
	res := &RemoveResult{Identity: identity, Seat: idx, Remaining: len(r.seats)}
	if r.phase == PhaseLobby || len(r.seats) == 0 {
		return res, nil
	}
	return res, r.checkInvariantsLocked()
}

var canonicalCounts = func() map[Card]int {
	counts := make(map[Card]int)
	for _, c := range NewDeck().cards {
		counts[c]++
	}
	return counts
}()

// checkInvariantsLocked verifies the closed 108-card multiset across deck,
// discard, hands and forfeited cards, and the turn pointer bounds. A failure
// is a programming error: the room is marked dead rather than repaired.
func (r *Room) checkInvariantsLocked() error {
	if r.deck == nil {
		return nil
	}

	counts := make(map[Card]int, len(canonicalCounts))
	for _, c := range r.deck.cards {
		counts[c]++
	}
	for _, p := range r.discard {
		counts[p.Card]++
	}
	for _, s := range r.seats {
		for _, c := range s.Hand {
			counts[c]++
		}
	}
	for _, c := range r.forfeited {
		counts[c]++
	}

	ok := len(counts) == len(canonicalCounts)
	if ok {
		for card, n := range canonicalCounts {
			if counts[card] != n {
				ok = false
				break
			}
		}
	}
	if ok && r.phase != PhaseFinished && len(r.seats) > 0 {
		ok = r.turn >= 0 && r.turn < len(r.seats)
	}
	if !ok {
		r.invalid = true
		r.phase = PhaseFinished
		log.Printf("[ROOM] INVARIANT VIOLATION in room %s - discarding room (deck=%d discard=%d seats=%d turn=%d)",
			r.ID, r.deck.Len(), len(r.discard), len(r.seats), r.turn)
		return ErrInvariantViolation
	}
	return nil
}

// Phase returns the current lifecycle phase.
func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// CurrentTurn returns the identity whose turn it is, empty once finished.
func (r *Room) CurrentTurn() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentIdentity()
}

// Winner returns the winning identity once the room is finished.
func (r *Room) Winner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.winner
}

// Identities returns the seated identities in turn order.
func (r *Room) Identities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.seats))
	for i, s := range r.seats {
		ids[i] = s.Identity
	}
	return ids
}

// SeatCount returns the number of occupied seats.
func (r *Room) SeatCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seats)
}

// StartedAt returns when the game started, nil while in the lobby.
func (r *Room) StartedAt() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

// SnapshotFor builds the per-seat-safe state for one player: their own hand
// plus public info only (top card, turn, direction, opponent card counts).
func (r *Room) SnapshotFor(identity string) map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.publicSnapshotLocked()
	idx := r.seatIndexOf(identity)
	if idx >= 0 {
		hand := make([]Card, len(r.seats[idx].Hand))
		copy(hand, r.seats[idx].Hand)
		snap["hand"] = hand
		snap["my_seat"] = idx
		snap["my_identity"] = identity
	}
	return snap
}

// PublicSnapshot builds the state visible to everyone (no hands).
func (r *Room) PublicSnapshot() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.publicSnapshotLocked()
}

func (r *Room) publicSnapshotLocked() map[string]interface{} {
	players := make([]map[string]interface{}, len(r.seats))
	for i, s := range r.seats {
		players[i] = map[string]interface{}{
			"identity":   s.Identity,
			"seat":       i,
			"card_count": len(s.Hand),
			"connected":  s.Connected,
		}
	}

	snap := map[string]interface{}{
		"room_id":   r.ID,
		"phase":     r.phase,
		"direction": r.direction,
		"players":   players,
	}
	if r.phase != PhaseLobby {
		snap["current_turn"] = r.currentIdentity()
		snap["deck_count"] = r.deck.Len()
		snap["discard_count"] = len(r.discard)
		if len(r.discard) > 0 {
			snap["top_card"] = r.top()
		}
	}
	if r.winner != "" {
		snap["winner"] = r.winner
	}
	return snap
}

func drawCount(v Value) int {
	switch v {
	case DrawTwo:
		return 2
	case DrawFour:
		return 4
	}
	return 0
}
