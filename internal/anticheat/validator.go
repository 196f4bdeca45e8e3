// Package anticheat classifies pointer interactions as human or scripted.
package anticheat

import (
	"math"
	"time"

	"aimrange/internal/geom"
)

// Config carries the rejection thresholds.
type Config struct {
	// MinReactionTime rejects clicks whose approach finished sooner after
	// the target spawned than any human could react.
	MinReactionTime time.Duration
	// MaxPixelsPerMs rejects pointer motion faster than a physical mouse.
	MaxPixelsPerMs float64
	// MinVarianceThreshold is the jitter floor: synthetic trajectories show
	// near-zero acceleration variance, human tremor does not.
	MinVarianceThreshold float64
}

func DefaultConfig() Config {
	return Config{
		MinReactionTime:      100 * time.Millisecond,
		MaxPixelsPerMs:       6.0,
		MinVarianceThreshold: 0.001,
	}
}

// Validator is a stateless heuristic classifier. Safe for concurrent use.
type Validator struct {
	cfg Config
}

func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// IsLegitimate runs the ordered checks against one approach trace and
// short-circuits on the first failure:
//
//  1. the trace must not be empty
//  2. the last motion sample must land exactly on the click point (warp)
//  3. spawn-to-last-sample time must meet the minimum reaction time
//  4. no consecutive pair may move faster than MaxPixelsPerMs
//  5. with four or more samples, the variance of the absolute
//     accelerations must clear the jitter floor
func (v *Validator) IsLegitimate(trace []TraceSample, spawnTime time.Time, click geom.Point) bool {
	if len(trace) == 0 {
		return false
	}

	last := trace[len(trace)-1]
	if last.Pos != click {
		return false
	}

	if last.At.Sub(spawnTime) < v.cfg.MinReactionTime {
		return false
	}

	speeds := segmentSpeeds(trace)
	for _, s := range speeds {
		if s > v.cfg.MaxPixelsPerMs {
			return false
		}
	}

	if len(trace) >= 4 {
		if accelVariance(speeds) <= v.cfg.MinVarianceThreshold {
			return false
		}
	}

	return true
}

// segmentSpeeds returns per-segment speeds in pixels per millisecond.
// Zero-elapsed pairs are skipped rather than treated as infinite.
func segmentSpeeds(trace []TraceSample) []float64 {
	speeds := make([]float64, 0, len(trace)-1)
	for i := 1; i < len(trace); i++ {
		elapsed := trace[i].At.Sub(trace[i-1].At)
		ms := float64(elapsed) / float64(time.Millisecond)
		if ms <= 0 {
			continue
		}
		dx := float64(trace[i].Pos.X - trace[i-1].Pos.X)
		dy := float64(trace[i].Pos.Y - trace[i-1].Pos.Y)
		speeds = append(speeds, math.Hypot(dx, dy)/ms)
	}
	return speeds
}

// accelVariance computes the population variance of the absolute
// consecutive speed deltas. Fewer than two deltas means no measurable
// jitter, which reads as zero variance.
func accelVariance(speeds []float64) float64 {
	if len(speeds) < 3 {
		return 0
	}

	accels := make([]float64, 0, len(speeds)-1)
	for i := 1; i < len(speeds); i++ {
		accels = append(accels, math.Abs(speeds[i]-speeds[i-1]))
	}

	var mean float64
	for _, a := range accels {
		mean += a
	}
	mean /= float64(len(accels))

	var variance float64
	for _, a := range accels {
		d := a - mean
		variance += d * d
	}
	return variance / float64(len(accels))
}
