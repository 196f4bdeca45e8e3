package game

import (
	"time"

	"aimrange/internal/anticheat"
	"aimrange/internal/geom"
	"aimrange/internal/rankings"
)

const (
	// How long a validator rejection stays visible on screen.
	cheatWarningWindow = 2 * time.Second
	// Debounce between entering GameOver and the click that leaves it, so
	// the final in-round click does not immediately dismiss the result.
	gameOverCooldown = 500 * time.Millisecond
	// How long a recoverable async-failure notice stays visible.
	noticeWindow = 3 * time.Second
	// How long to wait for a rename/delete reply before giving up.
	ReplyTimeout = 2 * time.Second
)

// Persister is the controller's narrow view of the persistence worker.
// Submissions are queue inserts: false means the queue was full.
type Persister interface {
	SubmitRound(userID, score int64, hits, misses int) bool
	SubmitRename(userID int64, name string) (<-chan error, bool)
	SubmitDelete(userID int64) (<-chan error, bool)
}

// PendingKind tags which async operation a reply channel settles.
type PendingKind int

const (
	PendingRename PendingKind = iota
	PendingDelete
)

// Pending is an in-flight rename or delete. The session forwards the reply
// (or a timeout) back into Resolve.
type Pending struct {
	Kind  PendingKind
	Reply <-chan error
}

// Outcome reports the side effects of one applied action.
type Outcome struct {
	Pending      *Pending
	CheatFlagged bool
}

// Controller is one session's finite-state machine. It is not safe for
// concurrent use; the owning session task applies actions one at a time.
type Controller struct {
	profile   Profile
	scene     Scene
	pointer   geom.Point
	viewport  geom.Size
	validator *anticheat.Validator
	persister Persister

	roundDuration   time.Duration
	lastSceneChange time.Time
	warningUntil    time.Time
	notice          string
	noticeUntil     time.Time
	tab             rankings.Period
	pendingName     string
	awaiting        bool
	quit            bool

	now func() time.Time
}

func NewController(profile Profile, validator *anticheat.Validator, persister Persister, roundDuration time.Duration) *Controller {
	c := &Controller{
		profile:       profile,
		validator:     validator,
		persister:     persister,
		roundDuration: roundDuration,
		tab:           rankings.AllTime,
		now:           time.Now,
	}

	if profile.Name == "" {
		c.scene = NamingScene{}
	} else {
		c.scene = MenuScene{}
	}
	c.lastSceneChange = c.now()
	return c
}

func (c *Controller) Scene() Scene         { return c.scene }
func (c *Controller) Profile() Profile     { return c.profile }
func (c *Controller) Pointer() geom.Point  { return c.pointer }
func (c *Controller) Viewport() geom.Size  { return c.viewport }
func (c *Controller) Tab() rankings.Period { return c.tab }
func (c *Controller) ShouldQuit() bool     { return c.quit }
func (c *Controller) AwaitingReply() bool  { return c.awaiting }

// WarningActive reports whether the anti-cheat warning should render.
func (c *Controller) WarningActive() bool {
	return c.now().Before(c.warningUntil)
}

// Notice returns the transient recoverable-error message, if still fresh.
func (c *Controller) Notice() string {
	if c.now().Before(c.noticeUntil) {
		return c.notice
	}
	return ""
}

// AdoptProfile replaces the in-memory identity, e.g. after a reset
// recreated the durable row under a new ID.
func (c *Controller) AdoptProfile(p Profile) {
	c.profile = p
}

// Apply advances the state machine by one action.
func (c *Controller) Apply(a Action) Outcome {
	switch act := a.(type) {
	case Quit:
		c.quit = true
	case Tick:
		c.handleTick()
	case ViewportResize:
		c.viewport = geom.Size{Width: act.Width, Height: act.Height}
	case PointerMove:
		c.handlePointerMove(act.X, act.Y)
	case PointerClick:
		return c.handleClick(act.X, act.Y)
	case Restart:
		switch c.scene.(type) {
		case *PlayingScene, GameOverScene:
			c.startRound()
		}
	case BackToMenu:
		if !c.awaiting {
			c.changeScene(MenuScene{})
		}
	case RequestReset:
		if _, ok := c.scene.(MenuScene); ok {
			c.changeScene(ResetConfirmScene{})
		}
	case ConfirmReset:
		return c.handleConfirmReset()
	case CancelReset:
		if _, ok := c.scene.(ResetConfirmScene); ok {
			c.changeScene(MenuScene{})
		}
	case NavigateLeft:
		switch c.scene.(type) {
		case MenuScene, GameOverScene:
			c.tab = c.tab.Prev()
		}
	case NavigateRight:
		switch c.scene.(type) {
		case MenuScene, GameOverScene:
			c.tab = c.tab.Next()
		}
	case AppendChar:
		c.handleAppendChar(act.Ch)
	case DeleteChar:
		c.handleDeleteChar()
	case SubmitInput:
		return c.handleSubmitName()
	}
	return Outcome{}
}

// Resolve applies the result of a previously issued async operation.
func (c *Controller) Resolve(kind PendingKind, err error) {
	c.awaiting = false

	switch kind {
	case PendingRename:
		state, ok := c.scene.(NamingScene)
		if !ok {
			return
		}
		if err != nil {
			state.Err = err.Error()
			state.Loading = false
			c.scene = state
			return
		}
		c.profile.Name = c.pendingName
		c.pendingName = ""
		c.changeScene(MenuScene{})

	case PendingDelete:
		if err != nil {
			c.notice = "Reset failed: " + err.Error()
			c.noticeUntil = c.now().Add(noticeWindow)
			c.changeScene(MenuScene{})
			return
		}
		c.profile.HighScore = 0
		c.profile.TotalHits = 0
		c.profile.TotalMisses = 0
		c.profile.Sessions = 0
		c.profile.Activity = nil
		c.changeScene(MenuScene{})
	}
}

func (c *Controller) changeScene(s Scene) {
	c.scene = s
	c.lastSceneChange = c.now()
}

func (c *Controller) startRound() {
	now := c.now()
	trace := anticheat.NewPointerTrace()
	trace.Push(c.pointer, now)

	c.changeScene(&PlayingScene{
		Target:     NewRandomTarget(c.viewport),
		Trace:      trace,
		SpawnedAt:  now,
		RoundStart: now,
	})
}

func (c *Controller) endRound(stats CombatStats) {
	final := stats.FinalScore()

	// Best-effort: a full queue drops the submission, never the round.
	c.persister.SubmitRound(c.profile.ID, final, stats.Hits, stats.Misses)

	newRecord := final > c.profile.HighScore
	if newRecord {
		c.profile.HighScore = final
	}
	c.profile.TotalHits += int64(stats.Hits)
	c.profile.TotalMisses += int64(stats.Misses)
	c.profile.Sessions++

	today := c.now().UTC().Format("2006-01-02")
	bumped := false
	for i := range c.profile.Activity {
		if c.profile.Activity[i].Date == today {
			c.profile.Activity[i].Count++
			bumped = true
			break
		}
	}
	if !bumped {
		c.profile.Activity = append([]ActivityDay{{Date: today, Count: 1}}, c.profile.Activity...)
	}

	c.changeScene(GameOverScene{FinalScore: final, NewRecord: newRecord})
}

func (c *Controller) handleTick() {
	state, ok := c.scene.(*PlayingScene)
	if !ok {
		return
	}

	now := c.now()

	if now.Sub(state.RoundStart) >= c.roundDuration {
		c.endRound(state.Stats)
		return
	}

	if state.Target.IsExpired(now.Sub(state.SpawnedAt), state.Stats.Hits) {
		state.Stats.RegisterMiss()
		state.Target = NewRandomTarget(c.viewport)
		state.SpawnedAt = now
		state.Trace.Clear()
	}
}

func (c *Controller) handlePointerMove(x, y int) {
	c.pointer = geom.Point{X: x, Y: y}

	if state, ok := c.scene.(*PlayingScene); ok {
		state.Trace.Push(c.pointer, c.now())
	}
}

func (c *Controller) handleClick(x, y int) Outcome {
	switch state := c.scene.(type) {
	case MenuScene:
		c.startRound()

	case *PlayingScene:
		if !state.Target.IsHit(x, y) {
			state.Stats.RegisterMiss()
			return Outcome{}
		}

		now := c.now()
		legit := c.validator.IsLegitimate(state.Trace.Samples(), state.SpawnedAt, geom.Point{X: x, Y: y})
		if legit {
			state.Stats.RegisterHit()
			state.Target = NewRandomTarget(c.viewport)
			state.SpawnedAt = now
			state.Trace.Clear()
			return Outcome{}
		}

		// Rejection downgrades to a miss; the target stays put.
		state.Stats.RegisterMiss()
		state.Trace.Clear()
		c.warningUntil = now.Add(cheatWarningWindow)
		return Outcome{CheatFlagged: true}

	case GameOverScene:
		if c.now().Sub(c.lastSceneChange) >= gameOverCooldown {
			c.changeScene(MenuScene{})
		}
	}
	return Outcome{}
}

func (c *Controller) handleAppendChar(ch rune) {
	state, ok := c.scene.(NamingScene)
	if !ok || state.Loading {
		return
	}
	isAlnum := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
	if isAlnum && len(state.Input) < MaxNameLen {
		state.Input += string(ch)
		c.scene = state
	}
}

func (c *Controller) handleDeleteChar() {
	state, ok := c.scene.(NamingScene)
	if !ok || state.Loading || state.Input == "" {
		return
	}
	state.Input = state.Input[:len(state.Input)-1]
	c.scene = state
}

func (c *Controller) handleSubmitName() Outcome {
	state, ok := c.scene.(NamingScene)
	if !ok || state.Loading {
		return Outcome{}
	}

	if state.Input == "" {
		return Outcome{}
	}
	name := FormatName(state.Input)

	reply, ok := c.persister.SubmitRename(c.profile.ID, name)
	if !ok {
		state.Err = "Server busy, try again"
		c.scene = state
		return Outcome{}
	}

	state.Loading = true
	state.Err = ""
	c.scene = state
	c.pendingName = name
	c.awaiting = true
	return Outcome{Pending: &Pending{Kind: PendingRename, Reply: reply}}
}

func (c *Controller) handleConfirmReset() Outcome {
	if _, ok := c.scene.(ResetConfirmScene); !ok || c.awaiting {
		return Outcome{}
	}

	reply, ok := c.persister.SubmitDelete(c.profile.ID)
	if !ok {
		c.notice = "Server busy, try again"
		c.noticeUntil = c.now().Add(noticeWindow)
		c.changeScene(MenuScene{})
		return Outcome{}
	}

	c.awaiting = true
	return Outcome{Pending: &Pending{Kind: PendingDelete, Reply: reply}}
}
