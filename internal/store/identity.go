package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrCapacityExceeded means the identity cap is reached and no zero-score
// identity was available to evict.
var ErrCapacityExceeded = errors.New("identity capacity exceeded")

// activityWindow bounds how many recent activity days a session loads.
const activityWindow = 30

// Identity is a persisted player. Name is empty until the player picks one.
type Identity struct {
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

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// GetOrCreateIdentity looks an identity up by fingerprint, creating it when
// absent. Creation enforces the identity cap: at capacity, the single
// oldest identity with a zero high score is evicted; identities that ever
// scored are never evicted. The bool reports whether a row was created.
func (s *Store) GetOrCreateIdentity(fingerprint string, now time.Time, maxIdentities int) (*Identity, bool, error) {
	id, err := s.getIdentity(fingerprint)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	var count int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return nil, false, fmt.Errorf("counting identities: %w", err)
	}

	if count >= maxIdentities {
		res, err := s.conn.Exec(`
			DELETE FROM users WHERE id = (
				SELECT u.id FROM users u
				JOIN user_stats st ON st.user_id = u.id
				WHERE st.high_score = 0
				ORDER BY u.created_at ASC, u.id ASC
				LIMIT 1
			)
		`)
		if err != nil {
			return nil, false, fmt.Errorf("evicting idle identity: %w", err)
		}
		evicted, err := res.RowsAffected()
		if err != nil {
			return nil, false, fmt.Errorf("evicting idle identity: %w", err)
		}
		if evicted == 0 {
			return nil, false, ErrCapacityExceeded
		}
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO users (fingerprint, username, created_at) VALUES (?, '', ?)
	`, fingerprint, toMillis(now))
	if err != nil {
		return nil, false, fmt.Errorf("creating identity: %w", err)
	}
	userID, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("creating identity: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO user_stats (user_id) VALUES (?)`, userID); err != nil {
		return nil, false, fmt.Errorf("creating identity stats: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("creating identity: %w", err)
	}

	return &Identity{ID: userID, Fingerprint: fingerprint}, true, nil
}

func (s *Store) getIdentity(fingerprint string) (*Identity, error) {
	var id Identity
	err := s.conn.QueryRow(`
		SELECT u.id, u.fingerprint, u.username,
		       st.high_score, st.total_hits, st.total_misses, st.sessions
		FROM users u
		JOIN user_stats st ON st.user_id = u.id
		WHERE u.fingerprint = ?
	`, fingerprint).Scan(&id.ID, &id.Fingerprint, &id.Name,
		&id.HighScore, &id.TotalHits, &id.TotalMisses, &id.Sessions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("getting identity: %w", err)
	}

	rows, err := s.conn.Query(`
		SELECT date, count FROM daily_activity
		WHERE user_id = ?
		ORDER BY date DESC
		LIMIT ?
	`, id.ID, activityWindow)
	if err != nil {
		return nil, fmt.Errorf("getting activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day ActivityDay
		if err := rows.Scan(&day.Date, &day.Count); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		id.Activity = append(id.Activity, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading activity: %w", err)
	}

	return &id, nil
}

// RenameIdentity updates the display name.
func (s *Store) RenameIdentity(userID int64, name string) error {
	res, err := s.conn.Exec(`UPDATE users SET username = ? WHERE id = ?`, name, userID)
	if err != nil {
		return fmt.Errorf("renaming identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("renaming identity: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("renaming identity: no such identity %d", userID)
	}
	return nil
}

// DeleteIdentity removes the identity; stats and activity rows cascade.
func (s *Store) DeleteIdentity(userID int64) error {
	if _, err := s.conn.Exec(`DELETE FROM users WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("deleting identity: %w", err)
	}
	return nil
}

// CountIdentities is used by tests and the health endpoint.
func (s *Store) CountIdentities() (int, error) {
	var count int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting identities: %w", err)
	}
	return count, nil
}
