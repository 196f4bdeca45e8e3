package game

import (
	"errors"
	"testing"
	"time"

	"aimrange/internal/anticheat"
	"aimrange/internal/rankings"
)

type roundCall struct {
	userID int64
	score  int64
	hits   int
	misses int
}

type fakePersister struct {
	rounds      []roundCall
	renameCalls int
	deleteCalls int
	reply       chan error
	full        bool
}

func (f *fakePersister) SubmitRound(userID, score int64, hits, misses int) bool {
	if f.full {
		return false
	}
	f.rounds = append(f.rounds, roundCall{userID, score, hits, misses})
	return true
}

func (f *fakePersister) SubmitRename(userID int64, name string) (<-chan error, bool) {
	if f.full {
		return nil, false
	}
	f.renameCalls++
	return f.reply, true
}

func (f *fakePersister) SubmitDelete(userID int64) (<-chan error, bool) {
	if f.full {
		return nil, false
	}
	f.deleteCalls++
	return f.reply, true
}

type fakeClock struct {
	cur time.Time
}

func (f *fakeClock) now() time.Time          { return f.cur }
func (f *fakeClock) advance(d time.Duration) { f.cur = f.cur.Add(d) }

func newTestController(name string) (*Controller, *fakePersister, *fakeClock) {
	p := &fakePersister{reply: make(chan error, 1)}
	clock := &fakeClock{cur: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)}
	c := NewController(
		Profile{ID: 7, Fingerprint: "fp", Name: name, HighScore: 100},
		anticheat.NewValidator(anticheat.DefaultConfig()),
		p,
		15*time.Second,
	)
	c.now = clock.now
	c.Apply(ViewportResize{Width: 80, Height: 24})
	return c, p, clock
}

// hitTarget drives the pointer to the live target with a plausible human
// trace, then clicks it.
func hitTarget(t *testing.T, c *Controller, clock *fakeClock) {
	t.Helper()

	state, ok := c.Scene().(*PlayingScene)
	if !ok {
		t.Fatal("not in Playing scene")
	}
	pos := state.Target.Pos

	clock.advance(120 * time.Millisecond)
	c.Apply(PointerMove{X: pos.X - 2, Y: pos.Y})
	clock.advance(30 * time.Millisecond)
	c.Apply(PointerMove{X: pos.X, Y: pos.Y})
	c.Apply(PointerClick{X: pos.X, Y: pos.Y})
}

func TestController_StartsInNamingWhenUnnamed(t *testing.T) {
	c, _, _ := newTestController("")
	if _, ok := c.Scene().(NamingScene); !ok {
		t.Errorf("scene = %T, want NamingScene", c.Scene())
	}
}

func TestController_StartsInMenuWhenNamed(t *testing.T) {
	c, _, _ := newTestController("Alice")
	if _, ok := c.Scene().(MenuScene); !ok {
		t.Errorf("scene = %T, want MenuScene", c.Scene())
	}
}

func TestController_MenuClickStartsRound(t *testing.T) {
	c, _, _ := newTestController("Alice")

	c.Apply(PointerClick{X: 5, Y: 5})

	if _, ok := c.Scene().(*PlayingScene); !ok {
		t.Errorf("scene = %T, want PlayingScene", c.Scene())
	}
}

func TestController_LegitimateHitScores(t *testing.T) {
	c, _, clock := newTestController("Alice")
	c.Apply(PointerClick{X: 5, Y: 5})

	hitTarget(t, c, clock)

	state := c.Scene().(*PlayingScene)
	if state.Stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", state.Stats.Hits)
	}
	if state.Stats.Score <= 0 {
		t.Errorf("Score = %v, want > 0", state.Stats.Score)
	}
	if state.Trace.Len() != 0 {
		t.Error("trace should be cleared after a confirmed hit")
	}
}

func TestController_GeometricMissKeepsTarget(t *testing.T) {
	c, _, clock := newTestController("Alice")
	c.Apply(PointerClick{X: 5, Y: 5})

	state := c.Scene().(*PlayingScene)
	before := state.Target

	clock.advance(200 * time.Millisecond)
	c.Apply(PointerClick{X: before.Pos.X, Y: before.Pos.Y + 3})

	state = c.Scene().(*PlayingScene)
	if state.Stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", state.Stats.Misses)
	}
	if state.Target != before {
		t.Error("geometric miss must not move the target")
	}
}

func TestController_CheatRejectionDowngradesToMiss(t *testing.T) {
	c, _, clock := newTestController("Alice")
	c.Apply(PointerClick{X: 5, Y: 5})

	state := c.Scene().(*PlayingScene)
	pos := state.Target.Pos
	before := state.Target

	// Instant click with no approach trace landing on the click point.
	clock.advance(200 * time.Millisecond)
	out := c.Apply(PointerClick{X: pos.X, Y: pos.Y})

	if !out.CheatFlagged {
		t.Fatal("expected CheatFlagged outcome")
	}
	state = c.Scene().(*PlayingScene)
	if state.Stats.Misses != 1 || state.Stats.Hits != 0 {
		t.Errorf("Hits/Misses = %d/%d, want 0/1", state.Stats.Hits, state.Stats.Misses)
	}
	if state.Target != before {
		t.Error("rejected click must not move the target")
	}
	if !c.WarningActive() {
		t.Error("cheat warning should be active")
	}

	clock.advance(cheatWarningWindow + time.Millisecond)
	if c.WarningActive() {
		t.Error("cheat warning should expire")
	}
}

func TestController_TargetExpiryRegistersMiss(t *testing.T) {
	c, _, clock := newTestController("Alice")
	c.Apply(PointerClick{X: 5, Y: 5})

	state := c.Scene().(*PlayingScene)
	spawnedAt := state.SpawnedAt

	clock.advance(Lifetime(0) + 10*time.Millisecond)
	c.Apply(Tick{})

	state = c.Scene().(*PlayingScene)
	if state.Stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1 after expiry", state.Stats.Misses)
	}
	if !state.SpawnedAt.After(spawnedAt) {
		t.Error("expired target should respawn with a fresh spawn time")
	}
	if state.Trace.Len() != 0 {
		t.Error("trace should be cleared on target change")
	}
}

func TestController_RoundTimerEndsGame(t *testing.T) {
	c, p, clock := newTestController("Alice")
	c.Apply(PointerClick{X: 5, Y: 5})

	hitTarget(t, c, clock)

	clock.advance(15 * time.Second)
	c.Apply(Tick{})

	over, ok := c.Scene().(GameOverScene)
	if !ok {
		t.Fatalf("scene = %T, want GameOverScene", c.Scene())
	}
	if over.FinalScore <= 0 {
		t.Errorf("FinalScore = %d, want > 0", over.FinalScore)
	}
	if over.NewRecord {
		t.Error("score below the 100 high score should not be a record")
	}

	if len(p.rounds) != 1 {
		t.Fatalf("persisted rounds = %d, want 1", len(p.rounds))
	}
	if p.rounds[0].userID != 7 || p.rounds[0].hits != 1 {
		t.Errorf("unexpected round submission: %+v", p.rounds[0])
	}

	prof := c.Profile()
	if prof.Sessions != 1 || prof.TotalHits != 1 {
		t.Errorf("profile Sessions/TotalHits = %d/%d, want 1/1", prof.Sessions, prof.TotalHits)
	}
	if len(prof.Activity) != 1 || prof.Activity[0].Count != 1 {
		t.Errorf("activity = %+v, want one entry with count 1", prof.Activity)
	}

	// A second round the same day increments, not inserts.
	c.Apply(Restart{})
	clock.advance(15 * time.Second)
	c.Apply(Tick{})

	prof = c.Profile()
	if len(prof.Activity) != 1 || prof.Activity[0].Count != 2 {
		t.Errorf("activity after second round = %+v, want count 2", prof.Activity)
	}
}

func TestController_NewRecordFlag(t *testing.T) {
	c, _, clock := newTestController("Alice")
	c.profile.HighScore = 5
	c.Apply(PointerClick{X: 5, Y: 5})

	hitTarget(t, c, clock)

	clock.advance(15 * time.Second)
	c.Apply(Tick{})

	over := c.Scene().(GameOverScene)
	if !over.NewRecord {
		t.Error("beating the high score should set NewRecord")
	}
	if c.Profile().HighScore != over.FinalScore {
		t.Errorf("HighScore = %d, want %d", c.Profile().HighScore, over.FinalScore)
	}
}

func TestController_GameOverClickCooldown(t *testing.T) {
	c, _, clock := newTestController("Alice")
	c.Apply(PointerClick{X: 5, Y: 5})
	clock.advance(15 * time.Second)
	c.Apply(Tick{})

	// Immediately clicking through is debounced.
	c.Apply(PointerClick{X: 1, Y: 1})
	if _, ok := c.Scene().(GameOverScene); !ok {
		t.Fatal("click inside cooldown should not leave GameOver")
	}

	clock.advance(gameOverCooldown)
	c.Apply(PointerClick{X: 1, Y: 1})
	if _, ok := c.Scene().(MenuScene); !ok {
		t.Errorf("scene = %T, want MenuScene after cooldown click", c.Scene())
	}
}

func TestController_RestartFromGameOver(t *testing.T) {
	c, _, clock := newTestController("Alice")
	c.Apply(PointerClick{X: 5, Y: 5})
	clock.advance(15 * time.Second)
	c.Apply(Tick{})

	c.Apply(Restart{})
	if _, ok := c.Scene().(*PlayingScene); !ok {
		t.Errorf("scene = %T, want PlayingScene after restart", c.Scene())
	}
}

func TestController_RestartIgnoredInMenu(t *testing.T) {
	c, _, _ := newTestController("Alice")
	c.Apply(Restart{})
	if _, ok := c.Scene().(MenuScene); !ok {
		t.Errorf("scene = %T, restart should be a no-op in Menu", c.Scene())
	}
}

func TestController_NamingFlow(t *testing.T) {
	c, p, _ := newTestController("")

	for _, ch := range "Ali ce!9" {
		c.Apply(AppendChar{Ch: ch})
	}
	state := c.Scene().(NamingScene)
	if state.Input != "Alice9" {
		t.Errorf("Input = %q, want %q (non-alphanumerics dropped)", state.Input, "Alice9")
	}

	c.Apply(DeleteChar{})
	state = c.Scene().(NamingScene)
	if state.Input != "Alice" {
		t.Errorf("Input = %q, want %q", state.Input, "Alice")
	}

	out := c.Apply(SubmitInput{})
	if out.Pending == nil || out.Pending.Kind != PendingRename {
		t.Fatal("submit should issue a pending rename")
	}
	if p.renameCalls != 1 {
		t.Errorf("renameCalls = %d, want 1", p.renameCalls)
	}

	state = c.Scene().(NamingScene)
	if !state.Loading {
		t.Error("naming scene should be loading while awaiting reply")
	}

	// Input is frozen while loading.
	c.Apply(AppendChar{Ch: 'x'})
	if c.Scene().(NamingScene).Input != "Alice" {
		t.Error("input should be frozen while loading")
	}

	// Re-submission is blocked.
	if out := c.Apply(SubmitInput{}); out.Pending != nil {
		t.Error("re-submission while loading should not issue another request")
	}

	c.Resolve(PendingRename, nil)
	if _, ok := c.Scene().(MenuScene); !ok {
		t.Errorf("scene = %T, want MenuScene after successful rename", c.Scene())
	}
	if c.Profile().Name != "Alice" {
		t.Errorf("profile name = %q, want %q", c.Profile().Name, "Alice")
	}
}

func TestController_NamingFailureKeepsSessionAlive(t *testing.T) {
	c, _, _ := newTestController("")
	c.Apply(AppendChar{Ch: 'B'})
	c.Apply(SubmitInput{})

	c.Resolve(PendingRename, errors.New("name taken"))

	state, ok := c.Scene().(NamingScene)
	if !ok {
		t.Fatalf("scene = %T, want NamingScene", c.Scene())
	}
	if state.Err != "name taken" {
		t.Errorf("Err = %q, want %q", state.Err, "name taken")
	}
	if state.Loading {
		t.Error("loading should clear on failure")
	}
}

func TestController_EmptySubmitIgnored(t *testing.T) {
	c, p, _ := newTestController("")
	if out := c.Apply(SubmitInput{}); out.Pending != nil {
		t.Error("empty input should not submit")
	}
	if p.renameCalls != 0 {
		t.Errorf("renameCalls = %d, want 0", p.renameCalls)
	}
}

func TestController_ResetFlow(t *testing.T) {
	c, p, _ := newTestController("Alice")
	c.profile.HighScore = 42

	c.Apply(RequestReset{})
	if _, ok := c.Scene().(ResetConfirmScene); !ok {
		t.Fatalf("scene = %T, want ResetConfirmScene", c.Scene())
	}

	out := c.Apply(ConfirmReset{})
	if out.Pending == nil || out.Pending.Kind != PendingDelete {
		t.Fatal("confirm should issue a pending delete")
	}
	if p.deleteCalls != 1 {
		t.Errorf("deleteCalls = %d, want 1", p.deleteCalls)
	}

	c.Resolve(PendingDelete, nil)
	if _, ok := c.Scene().(MenuScene); !ok {
		t.Errorf("scene = %T, want MenuScene after reset", c.Scene())
	}
	if c.Profile().HighScore != 0 {
		t.Errorf("HighScore = %d, want 0 after reset", c.Profile().HighScore)
	}
}

func TestController_ResetCancel(t *testing.T) {
	c, p, _ := newTestController("Alice")
	c.Apply(RequestReset{})
	c.Apply(CancelReset{})

	if _, ok := c.Scene().(MenuScene); !ok {
		t.Errorf("scene = %T, want MenuScene after cancel", c.Scene())
	}
	if p.deleteCalls != 0 {
		t.Error("cancel must not issue a delete")
	}
}

func TestController_ResetFailureSurfacesNotice(t *testing.T) {
	c, _, clock := newTestController("Alice")
	c.Apply(RequestReset{})
	c.Apply(ConfirmReset{})

	c.Resolve(PendingDelete, errors.New("disk full"))

	if _, ok := c.Scene().(MenuScene); !ok {
		t.Fatalf("scene = %T, want MenuScene", c.Scene())
	}
	if c.Notice() == "" {
		t.Error("failed reset should surface a notice")
	}

	clock.advance(noticeWindow + time.Millisecond)
	if c.Notice() != "" {
		t.Error("notice should expire")
	}
}

func TestController_ResetIgnoredOutsideMenu(t *testing.T) {
	c, _, _ := newTestController("Alice")
	c.Apply(PointerClick{X: 5, Y: 5})

	c.Apply(RequestReset{})
	if _, ok := c.Scene().(*PlayingScene); !ok {
		t.Error("reset request should be ignored mid-round")
	}
}

func TestController_FullQueueSurfacesError(t *testing.T) {
	c, p, _ := newTestController("")
	p.full = true

	c.Apply(AppendChar{Ch: 'Z'})
	out := c.Apply(SubmitInput{})

	if out.Pending != nil {
		t.Error("full queue should not yield a pending reply")
	}
	state := c.Scene().(NamingScene)
	if state.Err == "" {
		t.Error("full queue should surface an error on the scene")
	}
	if state.Loading {
		t.Error("loading must not be set when the submit failed")
	}
}

func TestController_TabNavigation(t *testing.T) {
	c, _, _ := newTestController("Alice")

	if c.Tab() != rankings.AllTime {
		t.Fatalf("initial tab = %v, want AllTime", c.Tab())
	}
	c.Apply(NavigateRight{})
	if c.Tab() != rankings.Daily {
		t.Errorf("tab = %v, want Daily", c.Tab())
	}
	c.Apply(NavigateLeft{})
	c.Apply(NavigateLeft{})
	if c.Tab() != rankings.Weekly {
		t.Errorf("tab = %v, want Weekly", c.Tab())
	}

	// Navigation is inert mid-round.
	c.Apply(PointerClick{X: 5, Y: 5})
	c.Apply(NavigateRight{})
	if c.Tab() != rankings.Weekly {
		t.Error("tab should not change while playing")
	}
}

func TestController_Quit(t *testing.T) {
	c, _, _ := newTestController("Alice")
	c.Apply(Quit{})
	if !c.ShouldQuit() {
		t.Error("ShouldQuit() should be true after Quit action")
	}
}

func TestFormatName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Alice  ", "Alice"},
		{"", "Anonymous"},
		{"   ", "Anonymous"},
		{"\x01\x02", "Anonymous"},
		{"abcdefghijklmnopqrst", "abcdefghijklmno"},
		{"Bob\x00by", "Bobby"},
	}
	for _, tc := range cases {
		if got := FormatName(tc.in); got != tc.want {
			t.Errorf("FormatName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
