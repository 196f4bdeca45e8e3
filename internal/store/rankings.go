package store

import (
	"fmt"
	"time"

	"aimrange/internal/rankings"
)

// ComputeSnapshot builds a fresh ranking snapshot: the top N per period.
// Daily and weekly lists only admit rows whose stored period marker matches
// the current date / ISO week, so stale period scores age out naturally.
func (s *Store) ComputeSnapshot(limit int, now time.Time) (*rankings.Snapshot, error) {
	allTime, err := s.topEntries(`
		SELECT u.username, st.high_score, st.high_score_at
		FROM user_stats st JOIN users u ON u.id = st.user_id
		WHERE st.high_score > 0
		ORDER BY st.high_score DESC, st.high_score_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("computing all-time rankings: %w", err)
	}

	daily, err := s.topEntries(`
		SELECT u.username, st.daily_score, st.daily_score_at
		FROM user_stats st JOIN users u ON u.id = st.user_id
		WHERE st.daily_score > 0 AND st.daily_date = ?
		ORDER BY st.daily_score DESC, st.daily_score_at ASC
		LIMIT ?
	`, dailyKey(now), limit)
	if err != nil {
		return nil, fmt.Errorf("computing daily rankings: %w", err)
	}

	weekly, err := s.topEntries(`
		SELECT u.username, st.weekly_score, st.weekly_score_at
		FROM user_stats st JOIN users u ON u.id = st.user_id
		WHERE st.weekly_score > 0 AND st.weekly_week = ?
		ORDER BY st.weekly_score DESC, st.weekly_score_at ASC
		LIMIT ?
	`, weeklyKey(now), limit)
	if err != nil {
		return nil, fmt.Errorf("computing weekly rankings: %w", err)
	}

	return &rankings.Snapshot{Daily: daily, Weekly: weekly, AllTime: allTime}, nil
}

func (s *Store) topEntries(query string, args ...any) ([]rankings.Entry, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []rankings.Entry
	for rows.Next() {
		var name string
		var score, at int64
		if err := rows.Scan(&name, &score, &at); err != nil {
			return nil, err
		}
		if name == "" {
			name = "Anonymous"
		}
		entries = append(entries, rankings.Entry{
			Name:  name,
			Score: score,
			At:    time.UnixMilli(at).UTC(),
		})
	}
	return entries, rows.Err()
}
