package game

import (
	"encoding/json"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
)

// Recorder writes the results ledger. All writes are best-effort: a nil DB or
// an insert failure is logged and ignored, gameplay never blocks on postgres.
type Recorder struct {
	db *sqlx.DB
}

// NewRecorder wraps an optional database handle. db may be nil.
func NewRecorder(db *sqlx.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordMove appends one move to the game_moves ledger.
func (rec *Recorder) RecordMove(roomID, identity, action string, detail interface{}) {
	if rec.db == nil {
		return
	}

	payload, err := json.Marshal(detail)
	if err != nil {
		log.Printf("[DB] Failed to marshal move detail for room %s: %v", roomID, err)
		return
	}

	_, err = rec.db.Exec(`
		INSERT INTO game_moves (room_id, identity, action, detail, move_number, created_at)
		VALUES ($1, $2, $3, $4,
			COALESCE((SELECT MAX(move_number) FROM game_moves WHERE room_id = $1), 0) + 1,
			$5)`,
		roomID, identity, action, payload, time.Now())
	if err != nil {
		log.Printf("[DB] Failed to record move for room %s: %v", roomID, err)
	}
}

// RecordResult writes the final outcome of a finished room.
func (rec *Recorder) RecordResult(room *Room) {
	if rec.db == nil {
		return
	}

	winner := room.Winner()
	identities, err := json.Marshal(room.Identities())
	if err != nil {
		log.Printf("[DB] Failed to marshal players for room %s: %v", room.ID, err)
		return
	}

	var startedAt interface{}
	if t := room.StartedAt(); t != nil {
		startedAt = *t
	}

	_, err = rec.db.Exec(`
		INSERT INTO game_results (room_id, winner, players, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5)`,
		room.ID, winner, identities, startedAt, time.Now())
	if err != nil {
		log.Printf("[DB] Failed to record result for room %s: %v", room.ID, err)
		return
	}
	log.Printf("[DB] Recorded result for room %s (winner %s)", room.ID, winner)
}
