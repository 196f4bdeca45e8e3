package anticheat

import (
	"time"

	"github.com/eapache/queue"

	"aimrange/internal/geom"
)

// traceCapacity bounds the pointer history; old samples fall off the front.
const traceCapacity = 50

// TraceSample is one pointer-motion observation.
type TraceSample struct {
	Pos geom.Point
	At  time.Time
}

// PointerTrace is a bounded ring of pointer-motion samples, the evidence a
// click is judged against. It is cleared on every target change so each
// trace describes the approach to exactly one target.
type PointerTrace struct {
	q *queue.Queue
}

func NewPointerTrace() *PointerTrace {
	return &PointerTrace{q: queue.New()}
}

// Push records a sample, evicting the oldest when at capacity.
func (t *PointerTrace) Push(pos geom.Point, at time.Time) {
	t.q.Add(TraceSample{Pos: pos, At: at})
	if t.q.Length() > traceCapacity {
		t.q.Remove()
	}
}

func (t *PointerTrace) Len() int {
	return t.q.Length()
}

// Samples copies the trace oldest-first.
func (t *PointerTrace) Samples() []TraceSample {
	n := t.q.Length()
	out := make([]TraceSample, n)
	for i := 0; i < n; i++ {
		out[i] = t.q.Get(i).(TraceSample)
	}
	return out
}

func (t *PointerTrace) Clear() {
	for t.q.Length() > 0 {
		t.q.Remove()
	}
}
