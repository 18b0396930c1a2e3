package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/quiesqui/server/internal/game"
)

// MemoryStore is an in-process Store with the same contract as
// RedisStore. It backs tests and single-binary development runs; it does
// not expire rooms.
type MemoryStore struct {
	mu      sync.Mutex
	rooms   map[string]*game.Room
	secrets map[string]map[string]int
	open    map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string]*game.Room),
		secrets: make(map[string]map[string]int),
		open:    make(map[string]bool),
	}
}

// clone round-trips through JSON so callers never share memory with the
// stored blob, matching the serialization boundary of the Redis store.
func clone(room *game.Room) *game.Room {
	data, _ := json.Marshal(room)
	var out game.Room
	_ = json.Unmarshal(data, &out)
	return &out
}

func (s *MemoryStore) CreateRoom(ctx context.Context, roomID string, cfg *game.GameConfig) (*game.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[roomID]; exists {
		return nil, ErrRoomExists
	}
	room := &game.Room{
		RoomID:  roomID,
		Players: []game.Player{},
		Status:  game.StatusWaiting,
		Config:  cfg,
		Version: 1,
	}
	s.rooms[roomID] = clone(room)
	s.open[roomID] = true
	return room, nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, roomID string) (*game.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return clone(room), nil
}

func (s *MemoryStore) UpdateRoom(ctx context.Context, room *game.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[room.RoomID]
	if !ok {
		return ErrRoomNotFound
	}
	if current.Version != room.Version {
		return ErrVersionConflict
	}
	room.Version++
	s.rooms[room.RoomID] = clone(room)
	return nil
}

func (s *MemoryStore) Mutate(ctx context.Context, roomID string, fn func(*game.Room) error) (*game.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	room := clone(current)
	if err := fn(room); err != nil {
		return nil, err
	}
	room.Version++
	s.rooms[roomID] = clone(room)
	return room, nil
}

func (s *MemoryStore) AddPlayer(ctx context.Context, roomID string, p game.Player) (*game.Room, error) {
	room, err := s.Mutate(ctx, roomID, func(r *game.Room) error {
		if len(r.Players) >= 2 {
			return ErrRoomFull
		}
		r.Players = append(r.Players, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(room.Players) == 2 {
		s.mu.Lock()
		delete(s.open, roomID)
		s.mu.Unlock()
	}
	return room, nil
}

func (s *MemoryStore) DeleteRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, roomID)
	delete(s.secrets, roomID)
	delete(s.open, roomID)
	return nil
}

func (s *MemoryStore) ListOpenRoomIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryStore) SetSecret(ctx context.Context, roomID, playerID string, characterID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.secrets[roomID] == nil {
		s.secrets[roomID] = make(map[string]int)
	}
	s.secrets[roomID][playerID] = characterID
	return nil
}

func (s *MemoryStore) GetSecret(ctx context.Context, roomID, playerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.secrets[roomID][playerID]
	if !ok {
		return 0, ErrSecretNotFound
	}
	return id, nil
}

func (s *MemoryStore) Secrets(ctx context.Context, roomID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.secrets[roomID]))
	for playerID, id := range s.secrets[roomID] {
		out[playerID] = id
	}
	return out, nil
}
