package gateway

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/quiesqui/server/internal/events"
	"github.com/quiesqui/server/internal/game"
)

// GameIntents is what the dispatcher needs from the game state machine.
type GameIntents interface {
	ListRooms(ctx context.Context, connID string)
	Join(ctx context.Context, connID, roomID, username, sessionID string, cfg *game.GameConfig)
	AskQuestion(ctx context.Context, connID, roomID, question, attribute, value string)
	AnswerQuestion(ctx context.Context, connID, roomID string, answer bool, attribute, value string)
	GuessCharacter(ctx context.Context, connID, roomID string, characterID int)
	Leave(ctx context.Context, connID string)
	HandleDisconnect(ctx context.Context, connID string)
}

// ClientMessage is the envelope every client intent arrives in.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinPayload struct {
	RoomID    string           `json:"roomId"`
	Username  string           `json:"username"`
	SessionID string           `json:"sessionId,omitempty"`
	Config    *game.GameConfig `json:"config,omitempty"`
}

type askPayload struct {
	RoomID    string `json:"roomId"`
	Question  string `json:"question"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

type answerPayload struct {
	RoomID    string `json:"roomId"`
	Answer    bool   `json:"answer"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

type guessPayload struct {
	RoomID      string `json:"roomId"`
	CharacterID int    `json:"characterId"`
}

type identifyPayload struct {
	Username string `json:"username"`
}

type sendInvitePayload struct {
	From   string           `json:"from"`
	To     string           `json:"to"`
	RoomID string           `json:"roomId"`
	Config *game.GameConfig `json:"config,omitempty"`
}

type respondInvitePayload struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Accepted bool   `json:"accepted"`
	RoomID   string `json:"roomId"`
}

// EventSender delivers an event to a single connection.
type EventSender interface {
	Send(connID string, ev *events.Event)
}

// Dispatcher decodes client intents and routes them to the state
// machine, and relays invitations between identified connections.
type Dispatcher struct {
	intents  GameIntents
	registry *Registry
	sink     EventSender
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(intents GameIntents, registry *Registry, sink EventSender) *Dispatcher {
	return &Dispatcher{intents: intents, registry: registry, sink: sink}
}

// Dispatch routes one raw client message. Malformed intents are
// reported only to the sender.
func (d *Dispatcher) Dispatch(connID string, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Debug().Err(err).Str("conn_id", connID).Msg("malformed client message")
		d.sink.Send(connID, events.Error("malformed message"))
		return
	}

	ctx := context.Background()

	switch msg.Type {
	case "get_rooms":
		d.intents.ListRooms(ctx, connID)

	case "join_room":
		var p joinPayload
		if !d.decode(connID, msg.Data, &p) {
			return
		}
		d.intents.Join(ctx, connID, p.RoomID, p.Username, p.SessionID, p.Config)

	case "ask_question":
		var p askPayload
		if !d.decode(connID, msg.Data, &p) {
			return
		}
		d.intents.AskQuestion(ctx, connID, p.RoomID, p.Question, p.Attribute, p.Value)

	case "answer_question":
		var p answerPayload
		if !d.decode(connID, msg.Data, &p) {
			return
		}
		d.intents.AnswerQuestion(ctx, connID, p.RoomID, p.Answer, p.Attribute, p.Value)

	case "guess_character":
		var p guessPayload
		if !d.decode(connID, msg.Data, &p) {
			return
		}
		d.intents.GuessCharacter(ctx, connID, p.RoomID, p.CharacterID)

	case "leave_room":
		d.intents.Leave(ctx, connID)

	case "identify":
		var p identifyPayload
		if !d.decode(connID, msg.Data, &p) {
			return
		}
		d.registry.Identify(p.Username, connID)

	case "send_invite":
		var p sendInvitePayload
		if !d.decode(connID, msg.Data, &p) {
			return
		}
		d.relayInvite(connID, p)

	case "respond_invite":
		var p respondInvitePayload
		if !d.decode(connID, msg.Data, &p) {
			return
		}
		d.relayInviteResponse(connID, p)

	default:
		log.Debug().Str("conn_id", connID).Str("type", msg.Type).Msg("unknown intent")
		d.sink.Send(connID, events.Error("unknown intent"))
	}
}

// Disconnected resolves a dropped connection as an implicit leave.
func (d *Dispatcher) Disconnected(connID string) {
	d.intents.HandleDisconnect(context.Background(), connID)
}

func (d *Dispatcher) decode(connID string, data json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().Err(err).Str("conn_id", connID).Msg("malformed intent payload")
		d.sink.Send(connID, events.Error("malformed payload"))
		return false
	}
	return true
}

// relayInvite forwards a game invitation to the invitee's live
// connection, if they are identified.
func (d *Dispatcher) relayInvite(connID string, p sendInvitePayload) {
	target, ok := d.registry.ConnForName(p.To)
	if !ok {
		d.sink.Send(connID, events.Error("player is not online"))
		return
	}
	d.sink.Send(target, events.New(events.TypeReceiveInvite, events.InvitePayload{
		From:   p.From,
		RoomID: p.RoomID,
		Config: p.Config,
	}))
}

// relayInviteResponse forwards the invitee's decision back to the
// inviter.
func (d *Dispatcher) relayInviteResponse(connID string, p respondInvitePayload) {
	target, ok := d.registry.ConnForName(p.To)
	if !ok {
		return
	}
	d.sink.Send(target, events.New(events.TypeInviteResponse, events.InviteResponsePayload{
		From:     p.From,
		Accepted: p.Accepted,
		RoomID:   p.RoomID,
	}))
}
