// Package store provides keyed persistence for room state, the
// companion secret-assignment table and the set of open room ids.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/quiesqui/server/internal/game"
)

// DefaultRoomTTL is how long an untouched room lingers before the store
// evicts it. Every write refreshes the TTL, so rooms expire only by
// inactivity.
const DefaultRoomTTL = time.Hour

var (
	// ErrRoomExists is returned by CreateRoom when the id is taken,
	// including by a TTL-expired entry that still lingers with stale
	// data. Absence is the only valid "not exists" signal.
	ErrRoomExists = errors.New("room already exists")

	// ErrRoomNotFound is returned when no room is stored under the id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomFull is returned by AddPlayer when the room already holds
	// two players.
	ErrRoomFull = errors.New("room is full")

	// ErrSecretNotFound is returned when no secret assignment exists
	// for the (room, player) pair.
	ErrSecretNotFound = errors.New("secret assignment not found")

	// ErrVersionConflict is returned by UpdateRoom when the stored room
	// changed since it was read.
	ErrVersionConflict = errors.New("room version conflict")
)

// Store is the persistence boundary for rooms and secret assignments.
// All room mutations are read-modify-write cycles; Mutate wraps one in
// a versioned transaction so lost updates are detected rather than
// silently absorbed.
type Store interface {
	// CreateRoom initializes a waiting room with an empty player list
	// and registers it as open. Fails with ErrRoomExists if any entry,
	// stale or not, is stored under the id.
	CreateRoom(ctx context.Context, roomID string, cfg *game.GameConfig) (*game.Room, error)

	// GetRoom fetches the room or returns ErrRoomNotFound.
	GetRoom(ctx context.Context, roomID string) (*game.Room, error)

	// UpdateRoom overwrites the full room blob and refreshes its TTL.
	// The write is rejected with ErrVersionConflict if the stored
	// version differs from the version the caller read.
	UpdateRoom(ctx context.Context, room *game.Room) error

	// Mutate runs fn inside a read-modify-write transaction and
	// persists the result, retrying on concurrent modification. An
	// error returned by fn aborts the cycle without writing and is
	// passed through to the caller. Returns the room as written.
	Mutate(ctx context.Context, roomID string, fn func(*game.Room) error) (*game.Room, error)

	// AddPlayer appends a player, rejecting with ErrRoomNotFound or
	// ErrRoomFull. Once the room reaches two players it is removed
	// from the open-rooms set.
	AddPlayer(ctx context.Context, roomID string, p game.Player) (*game.Room, error)

	// DeleteRoom removes the room, its secret assignments and its
	// open-rooms membership.
	DeleteRoom(ctx context.Context, roomID string) error

	// ListOpenRoomIDs returns the rooms still accepting a second player.
	ListOpenRoomIDs(ctx context.Context) ([]string, error)

	// SetSecret records the character secretly assigned to a player.
	SetSecret(ctx context.Context, roomID, playerID string, characterID int) error

	// GetSecret returns a player's assignment or ErrSecretNotFound.
	GetSecret(ctx context.Context, roomID, playerID string) (int, error)

	// Secrets returns all assignments for a room, keyed by player id.
	Secrets(ctx context.Context, roomID string) (map[string]int, error)
}
