// Package storage persists the engine event stream in SQLite. The events
// table is the write-ahead journal the sequencer appends to before acting;
// the metadata table is a small KV store for operational state.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"

	"github.com/mixmaster1989/mexcscalp-sub000/internal/event"
)

// EventStore handles persistent storage of events in SQLite.
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new SQLite event store with WAL mode enabled.
func NewEventStore(dbPath string) (*EventStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	// Outbound notifications live in their own table: they carry their own
	// sequence space and must never collide with the inbound WAL ids.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			seq INTEGER NOT NULL,
			type INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifications table: %w", err)
	}

	return &EventStore{db: db}, nil
}

// SaveEvent appends one event to the journal. The sequence number is the
// primary key, so duplicates fail loudly instead of silently rewriting
// history.
func (s *EventStore) SaveEvent(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, ts, payload) VALUES (?, ?, ?, ?)",
		ev.GetSeq(), ev.GetType(), ev.GetTs(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// UpsertMetadata saves a key-value pair to the metadata table.
func (s *EventStore) UpsertMetadata(ctx context.Context, key, value string, ts int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, ts,
	)
	return err
}

// GetMetadata retrieves a value from the metadata table, "" when absent.
func (s *EventStore) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetLastSeq returns the highest sequence number in the journal, 0 when
// empty.
func (s *EventStore) GetLastSeq(ctx context.Context) (uint64, error) {
	var lastSeq sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(id) FROM events").Scan(&lastSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to get last seq: %w", err)
	}
	if !lastSeq.Valid {
		return 0, nil
	}
	return uint64(lastSeq.Int64), nil
}

// LoadEvents loads journal events from fromSeq (inclusive) in order.
// Rows of types that cannot be decoded into a known event are skipped.
func (s *EventStore) LoadEvents(ctx context.Context, fromSeq uint64) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, payload FROM events WHERE id >= ? ORDER BY id ASC",
		fromSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var id int64
		var evType int
		var payload []byte
		if err := rows.Scan(&id, &evType, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		ev, err := decodeEvent(event.Type(evType), payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", id, err)
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return events, nil
}

// SaveNotification appends one outbound event to the notifications audit
// trail.
func (s *EventStore) SaveNotification(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO notifications (seq, type, ts, payload) VALUES (?, ?, ?, ?)",
		ev.GetSeq(), ev.GetType(), ev.GetTs(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// CountNotifications returns how many notifications of the given type are
// recorded (all types when t is 0).
func (s *EventStore) CountNotifications(ctx context.Context, t event.Type) (int, error) {
	var n int
	var err error
	if t == 0 {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications").Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications WHERE type = ?", t).Scan(&n)
	}
	return n, err
}

// RunJournal drains an event bus subscription into the notifications table.
// Persistence failures here are logged, not fatal: this sink is an audit
// trail, the sequencer's own WAL-first append is the authoritative record.
func (s *EventStore) RunJournal(ctx context.Context, events <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.SaveNotification(ctx, ev); err != nil {
				slog.Warn("journal write failed",
					slog.Uint64("seq", ev.GetSeq()),
					slog.Any("error", err))
			}
		}
	}
}

// Close closes the database connection.
func (s *EventStore) Close() error {
	return s.db.Close()
}

func decodeEvent(t event.Type, payload []byte) (event.Event, error) {
	switch t {
	case event.EvTrade:
		var ev event.TradeEvent
		return &ev, json.Unmarshal(payload, &ev)
	case event.EvCandle:
		var ev event.CandleEvent
		return &ev, json.Unmarshal(payload, &ev)
	case event.EvBook:
		var ev event.BookEvent
		return &ev, json.Unmarshal(payload, &ev)
	case event.EvBookTicker:
		var ev event.BookTickerEvent
		return &ev, json.Unmarshal(payload, &ev)
	case event.EvOrderUpdate:
		var ev event.OrderUpdateEvent
		return &ev, json.Unmarshal(payload, &ev)
	case event.EvFill:
		var ev event.FillEvent
		return &ev, json.Unmarshal(payload, &ev)
	case event.EvRegimeChange:
		var ev event.RegimeChangeEvent
		return &ev, json.Unmarshal(payload, &ev)
	default:
		// Notification types are never replayed even if a row sneaks in.
		return nil, nil
	}
}
