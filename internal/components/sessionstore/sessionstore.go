// Package sessionstore persists browser cookies between runs in sqlite.
package sessionstore

import (
	"context"
	"database/sql"
	"fmt"
	"galerts/internal/components/chrono"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Cookie is one cookie scoped to the host it was collected from.
type Cookie struct {
	Host  string `json:"host"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Store struct {
	db    *sql.DB
	clock chrono.API
}

// Open opens (creating if necessary) the session database at path. Passing
// ":memory:" gives a store that lives as long as the process.
func Open(path string) (Store, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0700)
		if err != nil {
			return Store{}, fmt.Errorf("create session dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	// a single connection keeps ":memory:" pointing at the same database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return Store{}, fmt.Errorf("apply session schema: %w", err)
	}
	return Store{db: db, clock: chrono.StandardImpl{}}, nil
}

// WithClock returns a copy of the store that stamps saves with clock.
func (s Store) WithClock(clock chrono.API) Store {
	s.clock = clock
	return s
}

func (s Store) Close() error {
	return s.db.Close()
}

// Load returns every saved cookie, ordered by host then name.
func (s Store) Load(ctx context.Context) ([]Cookie, error) {
	rows, err := s.db.QueryContext(ctx, "select host, name, value from cookie order by host, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cookies []Cookie
	for rows.Next() {
		var c Cookie
		err := rows.Scan(&c.Host, &c.Name, &c.Value)
		if err != nil {
			return nil, err
		}
		cookies = append(cookies, c)
	}
	return cookies, rows.Err()
}

// Save replaces the saved session with cookies.
func (s Store) Save(ctx context.Context, cookies []Cookie) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from cookie")
	if err != nil {
		return err
	}

	now := s.clock.Now().Unix()
	for _, c := range cookies {
		_, err = tx.ExecContext(
			ctx,
			"insert or replace into cookie (host, name, value, saved_at) values (?, ?, ?, ?)",
			c.Host, c.Name, c.Value, now,
		)
		if err != nil {
			return fmt.Errorf("save cookie %s/%s: %w", c.Host, c.Name, err)
		}
	}

	return tx.Commit()
}

// SavedAt returns when the session was last saved, false if there is no
// saved session.
func (s Store) SavedAt(ctx context.Context) (time.Time, bool, error) {
	var savedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, "select max(saved_at) from cookie").Scan(&savedAt)
	if err != nil {
		return time.Time{}, false, err
	}
	if !savedAt.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(savedAt.Int64, 0), true, nil
}

func (s Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "delete from cookie")
	return err
}
