package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"inspectsync/internal/events"
	"inspectsync/internal/syncer"
)

// Entry is one recorded change.
type Entry struct {
	ID            int64     `json:"id"`
	CycleID       string    `json:"cycle_id"`
	BookingID     string    `json:"booking_id"`
	Kind          string    `json:"kind"`
	ChangedFields []string  `json:"changed_fields,omitempty"`
	Payload       string    `json:"payload"`
	CreatedAt     time.Time `json:"created_at"`
}

// Journal stores every added/updated booking in SQLite.
type Journal struct {
	db *sql.DB
}

// Open opens the journal database at path and creates its table.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS booking_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id TEXT NOT NULL,
			booking_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			changed_fields TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_changes_booking ON booking_changes(booking_id)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// PingContext checks the database connection.
func (j *Journal) PingContext(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Record stores a change decoded from an event payload.
func (j *Journal) Record(ctx context.Context, c syncer.Change, payload []byte) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO booking_changes (cycle_id, booking_id, kind, changed_fields, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.CycleID, c.BookingID, string(c.Kind), strings.Join(c.ChangedFields, ","), string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert change %s: %w", c.BookingID, err)
	}
	return nil
}

// Handle is an events.EventHandler that records booking events.
func (j *Journal) Handle(e events.Event) error {
	c, err := syncer.DecodeChange(e.Payload)
	if err != nil {
		return fmt.Errorf("decode change: %w", err)
	}
	return j.Record(context.Background(), c, e.Payload)
}

// Subscribe registers the journal for added and updated bookings.
func (j *Journal) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.BookingAdded, j.Handle)
	bus.Subscribe(events.BookingUpdated, j.Handle)
}

// Recent returns up to limit entries, newest first. A non-empty bookingID
// restricts the result to that booking.
func (j *Journal) Recent(ctx context.Context, bookingID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, cycle_id, booking_id, kind, changed_fields, payload, created_at
		FROM booking_changes`
	args := []interface{}{}
	if bookingID != "" {
		query += ` WHERE booking_id = ?`
		args = append(args, bookingID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var fields string
		if err := rows.Scan(&e.ID, &e.CycleID, &e.BookingID, &e.Kind, &fields, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if fields != "" {
			e.ChangedFields = strings.Split(fields, ",")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
