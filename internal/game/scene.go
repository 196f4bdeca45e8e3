package game

import (
	"time"

	"aimrange/internal/anticheat"
)

// Scene is the closed set of per-session states. Transitions happen only
// inside Controller.Apply.
type Scene interface {
	scene()
}

// NamingScene collects the player's display name before anything else.
type NamingScene struct {
	Input   string
	Err     string
	Loading bool
}

// MenuScene is the idle hub between rounds.
type MenuScene struct{}

// PlayingScene is one live round.
type PlayingScene struct {
	Target     Target
	Stats      CombatStats
	Trace      *anticheat.PointerTrace
	SpawnedAt  time.Time
	RoundStart time.Time
}

// GameOverScene shows the round result until the player clicks through.
type GameOverScene struct {
	FinalScore int64
	NewRecord  bool
}

// ResetConfirmScene gates the destructive identity reset.
type ResetConfirmScene struct{}

func (NamingScene) scene()       {}
func (MenuScene) scene()         {}
func (*PlayingScene) scene()     {}
func (GameOverScene) scene()     {}
func (ResetConfirmScene) scene() {}
