// Package store owns the durable SQLite state. All writes go through the
// Worker, which holds the sole writable handle.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the database file and applies migrations.
// Any failure here is fatal to process start.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The worker is the only writer; a single connection also keeps the
	// WAL reader/writer story trivial.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("[DB] Opened %s\n", path)
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) Ping() error {
	return s.conn.Ping()
}

// migrate executes every embedded migration. The statements are written to
// be idempotent, so re-running on every start is safe.
func (s *Store) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations dir: %w", err)
	}

	for _, entry := range entries {
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", entry.Name(), err)
		}
		log.Printf("[DB] Applied migration: %s\n", entry.Name())
	}
	return nil
}
