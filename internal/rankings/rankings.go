// Package rankings distributes immutable leaderboard snapshots to sessions.
package rankings

import (
	"sync/atomic"
	"time"
)

// Period selects one of the three leaderboard lists.
type Period int

const (
	Daily Period = iota
	Weekly
	AllTime
)

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	default:
		return "all-time"
	}
}

// Next cycles Daily -> Weekly -> AllTime -> Daily.
func (p Period) Next() Period {
	switch p {
	case Daily:
		return Weekly
	case Weekly:
		return AllTime
	default:
		return Daily
	}
}

// Prev cycles in the opposite direction.
func (p Period) Prev() Period {
	switch p {
	case Daily:
		return AllTime
	case AllTime:
		return Weekly
	default:
		return Daily
	}
}

// Entry is one leaderboard row.
type Entry struct {
	Name  string
	Score int64
	At    time.Time
}

// Snapshot is a fully-computed set of the three ranking lists. It is never
// mutated after publication; the worker always builds a fresh one.
type Snapshot struct {
	Generation uint64
	Daily      []Entry
	Weekly     []Entry
	AllTime    []Entry
}

// List returns the entries for one period.
func (s *Snapshot) List(p Period) []Entry {
	switch p {
	case Daily:
		return s.Daily
	case Weekly:
		return s.Weekly
	default:
		return s.AllTime
	}
}

// Cache hands the latest snapshot to any number of readers without locking.
// Readers observe either the fully-old or fully-new snapshot, never a mix.
type Cache struct {
	ptr atomic.Pointer[Snapshot]
	gen atomic.Uint64
}

func NewCache() *Cache {
	c := &Cache{}
	c.ptr.Store(&Snapshot{})
	return c
}

// Publish stamps the snapshot with the next generation and swaps it in.
// Only the persistence worker calls this.
func (c *Cache) Publish(s *Snapshot) {
	s.Generation = c.gen.Add(1)
	c.ptr.Store(s)
}

// Load returns the latest published snapshot. Never blocks.
func (c *Cache) Load() *Snapshot {
	return c.ptr.Load()
}
