// Package protocol defines the JSON wire format between clients and their
// session tasks. Messages stay small: single-letter type tags, omitted
// zero fields.
package protocol

import (
	"encoding/json"
	"time"

	"aimrange/internal/game"
	"aimrange/internal/rankings"
)

// ClientMessage is the JSON structure received from clients.
type ClientMessage struct {
	Type   string `json:"t"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Ch     string `json:"ch,omitempty"`
	Width  int    `json:"w,omitempty"`
	Height int    `json:"h,omitempty"`
}

// DecodeAction parses one client message into an action. The bool is false
// for malformed JSON and unknown types; the session ignores those.
func DecodeAction(data []byte) (game.Action, bool) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false
	}

	switch msg.Type {
	case "move":
		return game.PointerMove{X: msg.X, Y: msg.Y}, true
	case "click":
		return game.PointerClick{X: msg.X, Y: msg.Y}, true
	case "key":
		runes := []rune(msg.Ch)
		if len(runes) != 1 {
			return nil, false
		}
		return game.AppendChar{Ch: runes[0]}, true
	case "backspace":
		return game.DeleteChar{}, true
	case "submit":
		return game.SubmitInput{}, true
	case "resize":
		if msg.Width <= 0 || msg.Height <= 0 {
			return nil, false
		}
		return game.ViewportResize{Width: msg.Width, Height: msg.Height}, true
	case "menu":
		return game.BackToMenu{}, true
	case "restart":
		return game.Restart{}, true
	case "reset":
		return game.RequestReset{}, true
	case "confirm":
		return game.ConfirmReset{}, true
	case "cancel":
		return game.CancelReset{}, true
	case "left":
		return game.NavigateLeft{}, true
	case "right":
		return game.NavigateRight{}, true
	case "quit":
		return game.Quit{}, true
	}
	return nil, false
}

// RankingEntry is one leaderboard row.
type RankingEntry struct {
	Name  string `json:"n"`
	Score int64  `json:"s"`
}

// NamingState renders the name prompt.
type NamingState struct {
	Input   string `json:"input"`
	Err     string `json:"err,omitempty"`
	Loading bool   `json:"loading,omitempty"`
}

// PlayingState renders one live round.
type PlayingState struct {
	TargetX     int   `json:"tx"`
	TargetY     int   `json:"ty"`
	TargetWidth int   `json:"tw"`
	Score       int64 `json:"score"`
	Combo       int   `json:"combo"`
	Hits        int   `json:"hits"`
	Misses      int   `json:"misses"`
	RemainingMs int64 `json:"rem"`
}

// GameOverState renders the round result.
type GameOverState struct {
	Score  int64 `json:"score"`
	Record bool  `json:"record,omitempty"`
}

// ProfileState renders the player card on menu-like scenes.
type ProfileState struct {
	Name        string `json:"n"`
	HighScore   int64  `json:"hs"`
	TotalHits   int64  `json:"hits"`
	TotalMisses int64  `json:"misses"`
	Sessions    int64  `json:"rounds"`
}

// Frame is the full per-tick state push.
type Frame struct {
	Type     string         `json:"t"`
	Scene    string         `json:"sc"`
	PointerX int            `json:"x"`
	PointerY int            `json:"y"`
	Warning  bool           `json:"warn,omitempty"`
	Notice   string         `json:"notice,omitempty"`
	Naming   *NamingState   `json:"naming,omitempty"`
	Playing  *PlayingState  `json:"playing,omitempty"`
	GameOver *GameOverState `json:"over,omitempty"`
	Profile  *ProfileState  `json:"profile,omitempty"`
	Tab      string         `json:"tab,omitempty"`
	Rankings []RankingEntry `json:"board,omitempty"`
	Gen      uint64         `json:"gen,omitempty"`
}

// Goodbye is the final message before the server closes a session.
type Goodbye struct {
	Type   string `json:"t"`
	Reason string `json:"reason,omitempty"`
}

// EncodeFrame snapshots the controller into one wire frame. Leaderboard data
// only rides along on scenes that display it.
func EncodeFrame(c *game.Controller, snap *rankings.Snapshot, roundDuration time.Duration, now time.Time) ([]byte, error) {
	frame := Frame{
		Type:     "state",
		PointerX: c.Pointer().X,
		PointerY: c.Pointer().Y,
		Warning:  c.WarningActive(),
		Notice:   c.Notice(),
	}

	switch scene := c.Scene().(type) {
	case game.NamingScene:
		frame.Scene = "naming"
		frame.Naming = &NamingState{Input: scene.Input, Err: scene.Err, Loading: scene.Loading}

	case game.MenuScene:
		frame.Scene = "menu"
		frame.Profile = profileState(c.Profile())
		attachRankings(&frame, c.Tab(), snap)

	case *game.PlayingScene:
		frame.Scene = "playing"
		remaining := roundDuration - now.Sub(scene.RoundStart)
		if remaining < 0 {
			remaining = 0
		}
		frame.Playing = &PlayingState{
			TargetX:     scene.Target.Pos.X,
			TargetY:     scene.Target.Pos.Y,
			TargetWidth: scene.Target.VisualWidth,
			Score:       scene.Stats.FinalScore(),
			Combo:       scene.Stats.Combo,
			Hits:        scene.Stats.Hits,
			Misses:      scene.Stats.Misses,
			RemainingMs: remaining.Milliseconds(),
		}

	case game.GameOverScene:
		frame.Scene = "gameover"
		frame.GameOver = &GameOverState{Score: scene.FinalScore, Record: scene.NewRecord}
		frame.Profile = profileState(c.Profile())
		attachRankings(&frame, c.Tab(), snap)

	case game.ResetConfirmScene:
		frame.Scene = "resetconfirm"
	}

	return json.Marshal(frame)
}

// EncodeGoodbye builds the close notification. Marshalling a flat struct of
// two strings cannot fail.
func EncodeGoodbye(reason string) []byte {
	data, _ := json.Marshal(Goodbye{Type: "bye", Reason: reason})
	return data
}

func profileState(p game.Profile) *ProfileState {
	return &ProfileState{
		Name:        p.Name,
		HighScore:   p.HighScore,
		TotalHits:   p.TotalHits,
		TotalMisses: p.TotalMisses,
		Sessions:    p.Sessions,
	}
}

func attachRankings(frame *Frame, tab rankings.Period, snap *rankings.Snapshot) {
	frame.Tab = tab.String()
	frame.Gen = snap.Generation
	for _, e := range snap.List(tab) {
		frame.Rankings = append(frame.Rankings, RankingEntry{Name: e.Name, Score: e.Score})
	}
}
