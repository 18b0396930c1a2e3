// Package engine implements the server-authoritative room and game
// state machine: join/leave, game start, question/answer relay, guess
// resolution, forfeit and turn-timeout handling.
package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quiesqui/server/internal/catalog"
	"github.com/quiesqui/server/internal/events"
	"github.com/quiesqui/server/internal/game"
	"github.com/quiesqui/server/internal/scheduler"
	"github.com/quiesqui/server/internal/store"
)

// EventSink delivers events to connections. Implemented by the gateway
// connection manager.
type EventSink interface {
	// Send delivers an event to a single connection.
	Send(connID string, ev *events.Event)
	// Broadcast delivers an event to every connection in a room.
	Broadcast(roomID string, ev *events.Event)
}

// Registry tracks which room a connection participates in, for fast
// disconnect cleanup.
type Registry interface {
	BindRoom(connID, roomID string)
	RoomFor(connID string) (string, bool)
	UnbindRoom(connID string)
}

// errStaleTimer marks a timer fire that lost the race against a real
// action; the callback is absorbed as a no-op.
var errStaleTimer = errors.New("stale turn timer")

// Engine is the room/game state machine. Each inbound intent and each
// timer callback runs as an independent task performing read-modify-
// write cycles against the store; the store's versioned transactions
// protect those cycles against lost updates.
type Engine struct {
	store store.Store
	sched scheduler.Scheduler
	sink  EventSink
	reg   Registry
	clock clockwork.Clock

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates an engine over the given collaborators.
func New(st store.Store, sched scheduler.Scheduler, sink EventSink, reg Registry) *Engine {
	return &Engine{
		store: st,
		sched: sched,
		sink:  sink,
		reg:   reg,
		clock: clockwork.NewRealClock(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *Engine) now() int64 {
	return e.clock.Now().UnixMilli()
}

// reject reports a rejected intent to the originating connection only.
func (e *Engine) reject(connID, msg string) {
	e.sink.Send(connID, events.Error(msg))
}

// ListRooms replies to the caller with the joinable room ids.
func (e *Engine) ListRooms(ctx context.Context, connID string) {
	ids, err := e.store.ListOpenRoomIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list open rooms")
		e.reject(connID, "failed to list rooms")
		return
	}
	e.sink.Send(connID, events.RoomsList(ids))
}

// Join handles a join_room intent. The first joiner's config wins and is
// permanent; a duplicate join by the same connection is a membership
// no-op that still broadcasts; a sessionID matching an existing player
// rebinds that player's route instead of adding a third identity.
func (e *Engine) Join(ctx context.Context, connID, roomID, username, sessionID string, cfg *game.GameConfig) {
	room, err := e.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrRoomNotFound) {
		room, err = e.store.CreateRoom(ctx, roomID, cfg)
		if errors.Is(err, store.ErrRoomExists) {
			// Lost the creation race; the other joiner's room wins.
			room, err = e.store.GetRoom(ctx, roomID)
		}
	}
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("join failed against store")
		e.reject(connID, "failed to join room")
		return
	}

	// Attach config if the creator's join had not carried one yet.
	if cfg != nil && room.Config == nil {
		room, err = e.store.Mutate(ctx, roomID, func(r *game.Room) error {
			if r.Config == nil {
				r.Config = cfg
			}
			return nil
		})
		if err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("failed to attach room config")
			e.reject(connID, "failed to join room")
			return
		}
	}

	switch {
	case room.PlayerByConn(connID) != nil:
		// Client retry of a join it already made; no membership change.

	case sessionID != "" && room.PlayerByID(sessionID) != nil:
		// Known session on a fresh connection: rebind the route,
		// keeping turn, lives and secret assignment intact.
		room, err = e.store.Mutate(ctx, roomID, func(r *game.Room) error {
			if p := r.PlayerByID(sessionID); p != nil {
				p.Conn = connID
			}
			return nil
		})
		if err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("failed to rebind player route")
			e.reject(connID, "failed to join room")
			return
		}
		log.Info().Str("room_id", roomID).Str("player_id", sessionID).Msg("player route rebound")

	case len(room.Players) >= 2:
		e.reject(connID, "room is full")
		return

	default:
		player := game.Player{
			ID:   uuid.NewString(),
			Conn: connID,
			Name: username,
		}
		if room.Mode() == game.ModeLives {
			player.Lives = game.StartingLives
		}
		room, err = e.store.AddPlayer(ctx, roomID, player)
		if errors.Is(err, store.ErrRoomFull) {
			e.reject(connID, "room is full")
			return
		}
		if err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("failed to add player")
			e.reject(connID, "failed to join room")
			return
		}
		log.Info().
			Str("room_id", roomID).
			Str("player_id", player.ID).
			Str("name", username).
			Msg("player joined room")
	}

	e.reg.BindRoom(connID, roomID)
	e.sink.Broadcast(roomID, events.RoomUpdate(room))

	if len(room.Players) == 2 && room.Status == game.StatusWaiting {
		e.startGame(ctx, room)
	}
}

// startGame transitions a freshly-paired room to playing: first-joined
// player takes the turn, both players draw distinct secret characters,
// and the turn timer is armed.
func (e *Engine) startGame(ctx context.Context, room *game.Room) {
	roomID := room.RoomID
	limit := room.Config.TurnTimeOrDefault()
	now := e.now()

	room, err := e.store.Mutate(ctx, roomID, func(r *game.Room) error {
		r.Status = game.StatusPlaying
		r.Turn = r.Players[0].ID
		r.TurnStartTime = now
		r.TurnTimeLimit = limit
		if r.Mode() == game.ModeLives {
			for i := range r.Players {
				if r.Players[i].Lives == 0 {
					r.Players[i].Lives = game.StartingLives
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to start game")
		return
	}

	e.rngMu.Lock()
	first, second := catalog.DistinctPair(e.rng)
	e.rngMu.Unlock()

	assignments := []struct {
		player    game.Player
		character catalog.Character
	}{
		{room.Players[0], first},
		{room.Players[1], second},
	}
	for _, a := range assignments {
		if err := e.store.SetSecret(ctx, roomID, a.player.ID, a.character.ID); err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("failed to persist secret assignment")
			return
		}
	}
	// Each player only ever learns their own secret here.
	for _, a := range assignments {
		e.sink.Send(a.player.Conn, events.SecretCharacter(a.character))
	}

	e.sink.Broadcast(roomID, events.GameStarted(room))
	e.armTurnTimer(roomID, room.Turn, limit)

	log.Info().
		Str("room_id", roomID).
		Str("turn", room.Turn).
		Int("turn_time", limit).
		Str("mode", string(room.Mode())).
		Msg("game started")
}

// AskQuestion relays a question to the opponent. Only the turn holder
// may ask; asking does not consume the turn.
func (e *Engine) AskQuestion(ctx context.Context, connID, roomID, question, attribute, value string) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		e.reject(connID, "room not found")
		return
	}
	player := room.PlayerByConn(connID)
	if player == nil || room.Turn != player.ID {
		e.reject(connID, "not your turn")
		return
	}
	opponent := room.Opponent(player.ID)
	if opponent == nil {
		return
	}
	e.sink.Send(opponent.Conn, events.New(events.TypeReceiveQuestion, events.QuestionPayload{
		Question:  question,
		Attribute: attribute,
		Value:     value,
	}))
}

// AnswerQuestion broadcasts the answer to the room and transfers the
// turn to the answerer: turns alternate strictly by response.
func (e *Engine) AnswerQuestion(ctx context.Context, connID, roomID string, answer bool, attribute, value string) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		e.reject(connID, "room not found")
		return
	}
	player := room.PlayerByConn(connID)
	if player == nil {
		e.reject(connID, "not a room member")
		return
	}

	e.sink.Broadcast(roomID, events.New(events.TypeReceiveAnswer, events.AnswerPayload{
		Answer:    answer,
		Attribute: attribute,
		Value:     value,
		From:      player.ID,
	}))

	if room.Opponent(player.ID) == nil {
		return
	}

	now := e.now()
	room, err = e.store.Mutate(ctx, roomID, func(r *game.Room) error {
		r.Turn = player.ID
		r.TurnStartTime = now
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to transfer turn after answer")
		return
	}
	e.sink.Broadcast(roomID, events.RoomUpdate(room))
	e.armTurnTimer(roomID, player.ID, room.TurnTimeLimit)
}

// GuessCharacter resolves a final guess against the opponent's secret
// assignment. By default either player may guess at any time; rooms
// configured with EnforceGuessTurn restrict guessing to the turn holder.
func (e *Engine) GuessCharacter(ctx context.Context, connID, roomID string, characterID int) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		e.reject(connID, "room not found")
		return
	}
	if room.Status != game.StatusPlaying {
		e.reject(connID, "game is not in progress")
		return
	}
	player := room.PlayerByConn(connID)
	if player == nil {
		e.reject(connID, "not a room member")
		return
	}
	opponent := room.Opponent(player.ID)
	if opponent == nil {
		return
	}
	if room.Config != nil && room.Config.EnforceGuessTurn && room.Turn != player.ID {
		e.reject(connID, "not your turn")
		return
	}

	secretID, err := e.store.GetSecret(ctx, roomID, opponent.ID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to resolve secret assignment")
		e.reject(connID, "failed to resolve guess")
		return
	}

	if characterID == secretID {
		e.finishGame(ctx, roomID, player.ID, events.ReasonGuessedCorrectly, "")
		return
	}

	switch room.Mode() {
	case game.ModeHardcore:
		detail := ""
		if c := catalog.ByID(secretID); c != nil {
			detail = c.Name
		}
		e.finishGame(ctx, roomID, opponent.ID, events.ReasonWrongGuess, detail)

	case game.ModeLives:
		now := e.now()
		var livesLeft int
		room, err = e.store.Mutate(ctx, roomID, func(r *game.Room) error {
			p := r.PlayerByID(player.ID)
			if p == nil {
				return store.ErrRoomNotFound
			}
			p.Lives--
			livesLeft = p.Lives
			if p.Lives > 0 {
				// A wrong guess cedes the initiative.
				r.Turn = opponent.ID
				r.TurnStartTime = now
			}
			return nil
		})
		if err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("failed to apply wrong guess")
			return
		}

		if livesLeft <= 0 {
			e.finishGame(ctx, roomID, opponent.ID, events.ReasonOutOfLives, "")
			return
		}

		e.sink.Broadcast(roomID, events.RoomUpdate(room))
		e.sink.Send(connID, events.New(events.TypeLifeLost, events.LifeLostPayload{LivesRemaining: livesLeft}))
		e.armTurnTimer(roomID, opponent.ID, room.TurnTimeLimit)
	}
}

// finishGame finalizes the room and broadcasts game_over with both
// secret assignments revealed.
func (e *Engine) finishGame(ctx context.Context, roomID, winnerID string, reason events.GameOverReason, detail string) {
	e.sched.Cancel(roomID)

	_, err := e.store.Mutate(ctx, roomID, func(r *game.Room) error {
		r.Status = game.StatusFinished
		r.Winner = winnerID
		r.Turn = ""
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to finalize game")
		return
	}

	secrets := make(map[string]catalog.Character)
	if assignments, err := e.store.Secrets(ctx, roomID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to resolve secrets for reveal")
	} else {
		for playerID, characterID := range assignments {
			if c := catalog.ByID(characterID); c != nil {
				secrets[playerID] = *c
			}
		}
	}

	e.sink.Broadcast(roomID, events.New(events.TypeGameOver, events.GameOverPayload{
		Winner:  winnerID,
		Reason:  reason,
		Detail:  detail,
		Secrets: secrets,
	}))

	log.Info().
		Str("room_id", roomID).
		Str("winner", winnerID).
		Str("reason", string(reason)).
		Msg("game over")
}

// Leave handles an explicit leave_room intent.
func (e *Engine) Leave(ctx context.Context, connID string) {
	e.resolveDeparture(ctx, connID)
}

// HandleDisconnect treats a dropped connection as an implicit leave for
// the room the registry maps it to. Registry entries for the connection
// are removed regardless of outcome.
func (e *Engine) HandleDisconnect(ctx context.Context, connID string) {
	e.resolveDeparture(ctx, connID)
}

func (e *Engine) resolveDeparture(ctx context.Context, connID string) {
	roomID, ok := e.reg.RoomFor(connID)
	if !ok {
		return
	}
	defer e.reg.UnbindRoom(connID)

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return
	}
	player := room.PlayerByConn(connID)
	if player == nil {
		return
	}
	wasPlaying := room.Status == game.StatusPlaying

	room, err = e.store.Mutate(ctx, roomID, func(r *game.Room) error {
		r.RemovePlayer(player.ID)
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to remove departing player")
		return
	}

	switch {
	case len(room.Players) == 0:
		// Recipientless; delete rather than mark.
		e.sched.Cancel(roomID)
		if err := e.store.DeleteRoom(ctx, roomID); err != nil {
			log.Error().Err(err).Str("room_id", roomID).Msg("failed to delete empty room")
		}
		log.Info().Str("room_id", roomID).Msg("room emptied and deleted")

	case wasPlaying:
		// Unilateral win-by-forfeit for whoever remains, regardless of
		// turn, lives or score state.
		e.finishGame(ctx, roomID, room.Players[0].ID, events.ReasonForfeit, "")

	default:
		e.sink.Broadcast(roomID, events.New(events.TypePlayerLeft, events.PlayerLeftPayload{
			PlayerID: player.ID,
			Name:     player.Name,
		}))
		e.sink.Broadcast(roomID, events.RoomUpdate(room))
	}
}

// armTurnTimer schedules the turn countdown for the given player,
// replacing any pending timer for the room.
func (e *Engine) armTurnTimer(roomID, playerID string, limitSeconds int) {
	if limitSeconds <= 0 {
		limitSeconds = game.DefaultTurnTime
	}
	e.sched.Arm(roomID, time.Duration(limitSeconds)*time.Second, func() {
		e.onTurnExpired(context.Background(), roomID, playerID)
	})
}

// onTurnExpired force-switches the turn when the countdown runs out. The
// room is re-read inside the transaction; if it is gone, finished, or
// the turn already moved, the fire lost a benign race and is absorbed.
func (e *Engine) onTurnExpired(ctx context.Context, roomID, armedPlayerID string) {
	now := e.now()
	var next string

	room, err := e.store.Mutate(ctx, roomID, func(r *game.Room) error {
		if r.Status != game.StatusPlaying || r.Turn != armedPlayerID {
			return errStaleTimer
		}
		opponent := r.Opponent(armedPlayerID)
		if opponent == nil {
			return errStaleTimer
		}
		r.Turn = opponent.ID
		r.TurnStartTime = now
		next = opponent.ID
		return nil
	})
	if errors.Is(err, errStaleTimer) || errors.Is(err, store.ErrRoomNotFound) {
		return
	}
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to apply turn timeout")
		return
	}

	e.sink.Broadcast(roomID, events.RoomUpdate(room))
	e.sink.Broadcast(roomID, events.New(events.TypeTurnTimeout, events.TurnTimeoutPayload{PlayerID: armedPlayerID}))
	e.armTurnTimer(roomID, next, room.TurnTimeLimit)

	log.Info().
		Str("room_id", roomID).
		Str("timed_out", armedPlayerID).
		Str("turn", next).
		Msg("turn timed out")
}
