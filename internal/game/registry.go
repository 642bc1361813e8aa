package game

import (
	"crypto/rand"
	"log"
	"math/big"
	"sync"
)

const roomIDLength = 6

const roomIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Registry owns the live rooms. It is the only structure shared across
// rooms, guarded by a single RWMutex; everything inside a room is guarded
// by that room's own lock.
type Registry struct {
	mu         sync.RWMutex
	rooms      map[string]*Room
	maxPlayers int
	handSize   int
}

// NewRegistry creates an empty registry with the per-room limits.
func NewRegistry(maxPlayers, handSize int) *Registry {
	return &Registry{
		rooms:      make(map[string]*Room),
		maxPlayers: maxPlayers,
		handSize:   handSize,
	}
}

// CreateRoom allocates a new room under a fresh shareable id.
func (reg *Registry) CreateRoom() *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var id string
	for {
		id = generateRoomID()
		if _, exists := reg.rooms[id]; !exists {
			break
		}
	}

	room := NewRoom(id, reg.maxPlayers, reg.handSize)
	reg.rooms[id] = room
	log.Printf("[REGISTRY] Created room %s (%d active)", id, len(reg.rooms))
	return room
}

// Get returns the room for id.
func (reg *Registry) Get(id string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Destroy removes a room from the registry. In-flight operations holding a
// reference finish against the orphaned room and then it is garbage.
func (reg *Registry) Destroy(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.rooms[id]; ok {
		delete(reg.rooms, id)
		log.Printf("[REGISTRY] Destroyed room %s (%d active)", id, len(reg.rooms))
	}
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// generateRoomID builds a 6-character shareable code. The alphabet drops
// 0/O/1/I so codes survive being read out loud.
func generateRoomID() string {
	id := make([]byte, roomIDLength)
	for i := range id {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomIDAlphabet))))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic(err)
		}
		id[i] = roomIDAlphabet[n.Int64()]
	}
	return string(id)
}
