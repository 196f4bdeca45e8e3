package store

import (
	"fmt"
	"time"
)

// RoundResult is one finished round's contribution to the durable stats.
type RoundResult struct {
	UserID int64
	Score  int64
	Hits   int
	Misses int
}

func dailyKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func weeklyKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// SaveRound upserts the cumulative counters and rolls the per-period high
// scores forward. A period whose stored marker (date / ISO week) differs
// from the current one restarts at the new score; otherwise the max wins.
// The whole write is idempotent in shape, so a retry never corrupts state.
func (s *Store) SaveRound(r RoundResult, now time.Time) error {
	day := dailyKey(now)
	week := weeklyKey(now)
	at := toMillis(now)

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE user_stats SET
			total_hits = total_hits + ?,
			total_misses = total_misses + ?,
			sessions = sessions + 1,
			high_score_at = CASE WHEN ? > high_score THEN ? ELSE high_score_at END,
			high_score    = CASE WHEN ? > high_score THEN ? ELSE high_score END,
			daily_score_at = CASE WHEN daily_date <> ? OR ? > daily_score THEN ? ELSE daily_score_at END,
			daily_score    = CASE WHEN daily_date <> ? THEN ? ELSE MAX(daily_score, ?) END,
			daily_date     = ?,
			weekly_score_at = CASE WHEN weekly_week <> ? OR ? > weekly_score THEN ? ELSE weekly_score_at END,
			weekly_score    = CASE WHEN weekly_week <> ? THEN ? ELSE MAX(weekly_score, ?) END,
			weekly_week     = ?
		WHERE user_id = ?
	`,
		r.Hits, r.Misses,
		r.Score, at,
		r.Score, r.Score,
		day, r.Score, at,
		day, r.Score, r.Score,
		day,
		week, r.Score, at,
		week, r.Score, r.Score,
		week,
		r.UserID,
	)
	if err != nil {
		return fmt.Errorf("saving round stats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving round stats: %w", err)
	}
	if n == 0 {
		// Identity deleted while the round was in flight; nothing to record.
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO daily_activity (user_id, date, count) VALUES (?, ?, 1)
		ON CONFLICT (user_id, date) DO UPDATE SET count = count + 1
	`, r.UserID, day); err != nil {
		return fmt.Errorf("bumping activity: %w", err)
	}

	return tx.Commit()
}
