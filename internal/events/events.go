// Package events defines the server-to-client event envelope and the
// payloads carried on the room event channel.
package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quiesqui/server/internal/catalog"
	"github.com/quiesqui/server/internal/game"
)

// Event is the envelope every server-to-client message is wrapped in.
type Event struct {
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Type identifies an event on the wire.
type Type string

const (
	TypeRoomsList       Type = "rooms_list"
	TypeRoomUpdate      Type = "room_update"
	TypeSecretCharacter Type = "secret_character"
	TypeGameStarted     Type = "game_started"
	TypeReceiveQuestion Type = "receive_question"
	TypeReceiveAnswer   Type = "receive_answer"
	TypeGameOver        Type = "game_over"
	TypeLifeLost        Type = "life_lost"
	TypeTurnTimeout     Type = "turn_timeout"
	TypePlayerLeft      Type = "player_left"
	TypeReceiveInvite   Type = "receive_invite"
	TypeInviteResponse  Type = "invite_response"
	TypeError           Type = "error"
)

// GameOverReason explains why a game ended.
type GameOverReason string

const (
	ReasonGuessedCorrectly GameOverReason = "guessed_correctly"
	ReasonWrongGuess       GameOverReason = "wrong_guess"
	ReasonOutOfLives       GameOverReason = "out_of_lives"
	ReasonForfeit          GameOverReason = "forfeit"
)

// QuestionPayload relays an asked question to the opponent.
type QuestionPayload struct {
	Question  string `json:"question"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// AnswerPayload broadcasts a yes/no answer to the room.
type AnswerPayload struct {
	Answer    bool   `json:"answer"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	From      string `json:"from"`
}

// GameOverPayload carries the final outcome. Secrets maps each player ID
// to the character that was secretly assigned to them, so both clients
// can reveal the answers.
type GameOverPayload struct {
	Winner  string                       `json:"winner"`
	Reason  GameOverReason               `json:"reason"`
	Detail  string                       `json:"detail,omitempty"`
	Secrets map[string]catalog.Character `json:"secrets,omitempty"`
}

// LifeLostPayload privately tells a player a wrong guess cost a life.
type LifeLostPayload struct {
	LivesRemaining int `json:"livesRemaining"`
}

// TurnTimeoutPayload names the player whose turn expired.
type TurnTimeoutPayload struct {
	PlayerID string `json:"playerId"`
}

// PlayerLeftPayload announces a departure from a waiting room.
type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// InvitePayload relays a game invitation to a named player.
type InvitePayload struct {
	From   string           `json:"from"`
	RoomID string           `json:"roomId"`
	Config *game.GameConfig `json:"config,omitempty"`
}

// InviteResponsePayload relays the invitee's decision back.
type InviteResponsePayload struct {
	From     string `json:"from"`
	Accepted bool   `json:"accepted"`
	RoomID   string `json:"roomId"`
}

// ErrorPayload is a rejected-intent notice, delivered only to the
// originating connection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// New wraps a payload in an envelope. Marshal failures cannot happen for
// the payload types above, but are logged rather than silently dropped.
func New(t Type, payload interface{}) *Event {
	ev := &Event{Type: t, Timestamp: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("event_type", string(t)).Msg("failed to marshal event payload")
			return ev
		}
		ev.Data = data
	}
	return ev
}

// RoomsList builds a rooms_list event from the joinable room ids.
func RoomsList(roomIDs []string) *Event {
	if roomIDs == nil {
		roomIDs = []string{}
	}
	return New(TypeRoomsList, roomIDs)
}

// RoomUpdate builds a room_update event from the full room state.
func RoomUpdate(room *game.Room) *Event {
	return New(TypeRoomUpdate, room)
}

// GameStarted builds a game_started event from the full room state.
func GameStarted(room *game.Room) *Event {
	return New(TypeGameStarted, room)
}

// SecretCharacter builds the private assignment notice for one player.
func SecretCharacter(c catalog.Character) *Event {
	return New(TypeSecretCharacter, c)
}

// Error builds a rejected-intent notice.
func Error(msg string) *Event {
	return New(TypeError, ErrorPayload{Message: msg})
}
