package game

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Mode selects how wrong guesses are resolved.
type Mode string

const (
	// ModeHardcore ends the game on the first wrong guess.
	ModeHardcore Mode = "hardcore"
	// ModeLives gives each player a small pool of lives; a wrong guess
	// costs one and the game ends when a player runs out.
	ModeLives Mode = "lives"
)

// StartingLives is the life pool each player begins with in lives mode.
const StartingLives = 2

// DefaultTurnTime is the per-turn allotment in seconds when a room was
// created without an explicit turn time.
const DefaultTurnTime = 60

// AllowedTurnTimes are the turn durations (seconds) a room may be
// configured with.
var AllowedTurnTimes = []int{15, 30, 60}

// GameConfig is attached at first join and immutable thereafter.
type GameConfig struct {
	Mode     Mode `json:"mode"`
	TurnTime int  `json:"turnTime,omitempty"`

	// EnforceGuessTurn requires the guesser to hold the turn. The
	// observed behavior of the game is permissive (either player may
	// attempt a desperation guess at any time), so this defaults off.
	EnforceGuessTurn bool `json:"enforceGuessTurn,omitempty"`
}

// TurnTimeOrDefault returns the configured turn time clamped to the
// allowed set, or DefaultTurnTime.
func (c *GameConfig) TurnTimeOrDefault() int {
	if c == nil {
		return DefaultTurnTime
	}
	for _, t := range AllowedTurnTimes {
		if c.TurnTime == t {
			return t
		}
	}
	return DefaultTurnTime
}

// Player is a room member. ID is a stable per-session identifier issued
// at join time; Conn is the transport connection currently routing
// messages to the player and may be rebound on reconnect without
// touching turn, lives or secret state.
type Player struct {
	ID   string `json:"id"`
	Conn string `json:"conn"`
	Name string `json:"name"`
	// Lives is only meaningful in lives mode.
	Lives int `json:"lives,omitempty"`
}

// Room is the unit of matchmaking and game state. It is owned by the
// room store and mutated only through read-modify-write cycles.
type Room struct {
	RoomID  string   `json:"roomId"`
	Players []Player `json:"players"`
	// Turn holds the player ID currently allowed to act; empty when no
	// game is active.
	Turn   string `json:"turn"`
	Status Status `json:"status"`
	Winner string `json:"winner,omitempty"`
	// TurnStartTime is unix milliseconds when the current turn began.
	TurnStartTime int64       `json:"turnStartTime,omitempty"`
	TurnTimeLimit int         `json:"turnTimeLimit,omitempty"`
	Config        *GameConfig `json:"config,omitempty"`

	// Version increments on every store write so concurrent
	// read-modify-write cycles can detect lost updates.
	Version int64 `json:"version"`
}

// Mode returns the configured mode, defaulting to hardcore like the
// guess resolution does.
func (r *Room) Mode() Mode {
	if r.Config == nil || r.Config.Mode == "" {
		return ModeHardcore
	}
	return r.Config.Mode
}

// PlayerByID returns the player with the given stable ID.
func (r *Room) PlayerByID(id string) *Player {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i]
		}
	}
	return nil
}

// PlayerByConn returns the player currently routed through the given
// connection.
func (r *Room) PlayerByConn(conn string) *Player {
	for i := range r.Players {
		if r.Players[i].Conn == conn {
			return &r.Players[i]
		}
	}
	return nil
}

// Opponent returns the other player, or nil if the room does not hold
// two players.
func (r *Room) Opponent(playerID string) *Player {
	for i := range r.Players {
		if r.Players[i].ID != playerID {
			return &r.Players[i]
		}
	}
	return nil
}

// RemovePlayer drops the player with the given ID, reporting whether it
// was present.
func (r *Room) RemovePlayer(id string) bool {
	for i := range r.Players {
		if r.Players[i].ID == id {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	return false
}
