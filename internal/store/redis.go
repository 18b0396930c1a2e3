package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/quiesqui/server/internal/game"
)

const (
	roomKeyPrefix   = "room:"
	secretKeySuffix = ":secrets"
	openRoomsKey    = "available_rooms"

	// mutateAttempts bounds the optimistic-transaction retry loop. Two
	// human-paced players rarely collide, so conflicts are transient.
	mutateAttempts = 5
)

// RedisStore keeps room state in Redis: the room blob as JSON under
// room:<id>, secret assignments in the hash room:<id>:secrets, and the
// open-rooms membership in a set. Rooms are evicted by inactivity; the
// TTL is refreshed on every write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an already-connected client. A non-positive ttl
// falls back to DefaultRoomTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func roomKey(roomID string) string   { return roomKeyPrefix + roomID }
func secretKey(roomID string) string { return roomKeyPrefix + roomID + secretKeySuffix }

func (s *RedisStore) CreateRoom(ctx context.Context, roomID string, cfg *game.GameConfig) (*game.Room, error) {
	room := &game.Room{
		RoomID:  roomID,
		Players: []game.Player{},
		Status:  game.StatusWaiting,
		Config:  cfg,
		Version: 1,
	}
	data, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room: %w", err)
	}

	set, err := s.client.SetNX(ctx, roomKey(roomID), data, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	if !set {
		return nil, ErrRoomExists
	}
	if err := s.client.SAdd(ctx, openRoomsKey, roomID).Err(); err != nil {
		return nil, fmt.Errorf("failed to register open room: %w", err)
	}

	log.Debug().Str("room_id", roomID).Msg("room created")
	return room, nil
}

func (s *RedisStore) GetRoom(ctx context.Context, roomID string) (*game.Room, error) {
	data, err := s.client.Get(ctx, roomKey(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	var room game.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

func (s *RedisStore) UpdateRoom(ctx context.Context, room *game.Room) error {
	expected := room.Version
	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, roomKey(room.RoomID)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrRoomNotFound
			}
			return err
		}
		var current game.Room
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}
		if current.Version != expected {
			return ErrVersionConflict
		}

		room.Version = expected + 1
		payload, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("failed to marshal room: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey(room.RoomID), payload, s.ttl)
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txn, roomKey(room.RoomID)); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return ErrVersionConflict
		}
		return err
	}
	return nil
}

func (s *RedisStore) Mutate(ctx context.Context, roomID string, fn func(*game.Room) error) (*game.Room, error) {
	var result *game.Room

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, roomKey(roomID)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrRoomNotFound
			}
			return err
		}
		var room game.Room
		if err := json.Unmarshal(data, &room); err != nil {
			return fmt.Errorf("failed to unmarshal room: %w", err)
		}

		if err := fn(&room); err != nil {
			return err
		}
		room.Version++

		payload, err := json.Marshal(&room)
		if err != nil {
			return fmt.Errorf("failed to marshal room: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey(roomID), payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = &room
		return nil
	}

	for attempt := 0; attempt < mutateAttempts; attempt++ {
		err := s.client.Watch(ctx, txn, roomKey(roomID))
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			log.Debug().Str("room_id", roomID).Int("attempt", attempt+1).Msg("room transaction conflict, retrying")
			continue
		}
		return nil, err
	}
	return nil, ErrVersionConflict
}

func (s *RedisStore) AddPlayer(ctx context.Context, roomID string, p game.Player) (*game.Room, error) {
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

	// Full rooms are no longer joinable by browsing.
	if len(room.Players) == 2 {
		if err := s.client.SRem(ctx, openRoomsKey, roomID).Err(); err != nil {
			return nil, fmt.Errorf("failed to close room for browsing: %w", err)
		}
	}
	return room, nil
}

func (s *RedisStore) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(roomID))
		pipe.Del(ctx, secretKey(roomID))
		pipe.SRem(ctx, openRoomsKey, roomID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	log.Debug().Str("room_id", roomID).Msg("room deleted")
	return nil
}

func (s *RedisStore) ListOpenRoomIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, openRoomsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list open rooms: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) SetSecret(ctx context.Context, roomID, playerID string, characterID int) error {
	key := secretKey(roomID)
	if err := s.client.HSet(ctx, key, playerID, characterID).Err(); err != nil {
		return fmt.Errorf("failed to set secret: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire secrets: %w", err)
	}
	return nil
}

func (s *RedisStore) GetSecret(ctx context.Context, roomID, playerID string) (int, error) {
	val, err := s.client.HGet(ctx, secretKey(roomID), playerID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrSecretNotFound
		}
		return 0, fmt.Errorf("failed to get secret: %w", err)
	}
	id, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt secret assignment %q: %w", val, err)
	}
	return id, nil
}

func (s *RedisStore) Secrets(ctx context.Context, roomID string) (map[string]int, error) {
	vals, err := s.client.HGetAll(ctx, secretKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get secrets: %w", err)
	}
	secrets := make(map[string]int, len(vals))
	for playerID, val := range vals {
		id, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("corrupt secret assignment %q: %w", val, err)
		}
		secrets[playerID] = id
	}
	return secrets, nil
}
