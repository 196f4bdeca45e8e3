package game

import "strings"

// MaxNameLen bounds display names, matching the naming input.
const MaxNameLen = 15

// Profile is the session's in-memory view of its persisted identity. It is
// updated optimistically on round completion; the durable copy catches up
// through the persistence worker (eventually consistent by contract).
type Profile struct {
	ID          int64
	Fingerprint string
	Name        string
	HighScore   int64
	TotalHits   int64
	TotalMisses int64
	Sessions    int64
	Activity    []ActivityDay
}

// ActivityDay counts rounds finished on one calendar date, newest first.
type ActivityDay struct {
	Date  string
	Count int64
}

// FormatName normalizes a raw display name: trim, drop control characters,
// truncate, and fall back to Anonymous when nothing is left.
func FormatName(name string) string {
	runes := make([]rune, 0, MaxNameLen)
	for _, r := range strings.TrimSpace(name) {
		if r < 0x20 || r == 0x7f {
			continue
		}
		runes = append(runes, r)
		if len(runes) == MaxNameLen {
			break
		}
	}
	if len(runes) == 0 {
		return "Anonymous"
	}
	return string(runes)
}
