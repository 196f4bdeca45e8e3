package game

import (
	"math"
	"math/rand"
	"time"

	"aimrange/internal/geom"
)

const (
	targetVisualWidth = 2
	targetHitMargin   = 1
	minEdgePadding    = 2

	// Target lifetime shrinks exponentially as the player's hit count
	// grows, so pressure rises with demonstrated skill.
	maxTargetLifetime = 2 * time.Second
	lifetimeDecayRate = 0.93
)

// Target occupies a single row: VisualWidth cells wide, with HitMargin
// extra cells of clickable slack on each side.
type Target struct {
	Pos         geom.Point
	VisualWidth int
	HitMargin   int
}

// NewRandomTarget places a target uniformly at random inside the viewport,
// keeping minEdgePadding cells clear of every edge. Viewports too small to
// honor the padding get the fallback target at the origin.
func NewRandomTarget(viewport geom.Size) Target {
	total := targetVisualWidth + targetHitMargin*2

	if viewport.Width <= total+minEdgePadding || viewport.Height <= minEdgePadding*2 {
		return fallbackTarget()
	}

	return Target{
		Pos: geom.Point{
			X: minEdgePadding + rand.Intn(viewport.Width-total-minEdgePadding),
			Y: minEdgePadding + rand.Intn(viewport.Height-minEdgePadding*2),
		},
		VisualWidth: targetVisualWidth,
		HitMargin:   targetHitMargin,
	}
}

func fallbackTarget() Target {
	return Target{
		Pos:         geom.Point{X: 0, Y: 0},
		VisualWidth: targetVisualWidth,
		HitMargin:   targetHitMargin,
	}
}

// IsHit reports whether a click at (x, y) lands inside the hit-test region:
// the visual rect expanded horizontally by the hit margin, clamped at zero.
func (t Target) IsHit(x, y int) bool {
	if y != t.Pos.Y {
		return false
	}
	left := t.Pos.X - t.HitMargin
	if left < 0 {
		left = 0
	}
	right := t.Pos.X + t.VisualWidth + t.HitMargin
	return x >= left && x < right
}

// Lifetime returns how long a target survives before it expires, given the
// number of hits already landed this round.
func Lifetime(hits int) time.Duration {
	scaled := float64(maxTargetLifetime) * math.Pow(lifetimeDecayRate, float64(hits))
	return time.Duration(scaled)
}

// IsExpired reports whether a target spawned `age` ago has outlived its
// lifetime at the given hit count.
func (t Target) IsExpired(age time.Duration, hits int) bool {
	return age >= Lifetime(hits)
}
