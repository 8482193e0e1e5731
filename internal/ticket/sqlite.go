package ticket

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/river-app/river/pkg/protocol"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id              TEXT PRIMARY KEY,
			kind            TEXT NOT NULL,
			stage           TEXT NOT NULL,
			unit            TEXT NOT NULL DEFAULT '',
			requested_at    TEXT NOT NULL,
			intermediate_at TEXT,
			completed_at    TEXT,
			result_amount   REAL
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_kind ON tickets(kind);
		CREATE INDEX IF NOT EXISTS idx_tickets_stage ON tickets(stage);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(t protocol.Ticket) error {
	_, err := s.db.Exec(`
		INSERT INTO tickets (id, kind, stage, unit, requested_at, intermediate_at, completed_at, result_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			stage=excluded.stage, intermediate_at=excluded.intermediate_at,
			completed_at=excluded.completed_at, result_amount=excluded.result_amount
	`, t.ID, string(t.Kind), string(t.Stage), t.Unit, formatTime(t.RequestedAt),
		formatTimePtr(t.IntermediateAt), formatTimePtr(t.CompletedAt), t.ResultAmount)
	if err != nil {
		return fmt.Errorf("ticket store: save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (protocol.Ticket, error) {
	row := s.db.QueryRow(`SELECT `+columns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return protocol.Ticket{}, fmt.Errorf("ticket %q: %w", id, ErrNotFound)
		}
		return protocol.Ticket{}, fmt.Errorf("ticket store: get: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) List(filter Filter) ([]protocol.Ticket, error) {
	where, args := filter.where()
	query := "SELECT " + columns + " FROM tickets" + where + " ORDER BY requested_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	defer rows.Close()

	var tickets []protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *SQLiteStore) Count(filter Filter) (int, error) {
	where, args := filter.where()
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tickets"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ticket store: count: %w", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers ---

const columns = "id, kind, stage, unit, requested_at, intermediate_at, completed_at, result_amount"

func (f Filter) where() (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if f.Kind != "" {
		where += " AND kind = ?"
		args = append(args, string(f.Kind))
	}
	if f.Stage != "" {
		where += " AND stage = ?"
		args = append(args, string(f.Stage))
	}
	return where, args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTicket(s scannable) (protocol.Ticket, error) {
	var t protocol.Ticket
	var kind, stage, requestedAt string
	var intermediateAt, completedAt *string
	var amount *float64

	if err := s.Scan(&t.ID, &kind, &stage, &t.Unit, &requestedAt, &intermediateAt, &completedAt, &amount); err != nil {
		return protocol.Ticket{}, err
	}
	t.Kind = protocol.ServiceKind(kind)
	t.Stage = protocol.Stage(stage)
	t.RequestedAt, _ = time.Parse(time.RFC3339Nano, requestedAt)
	t.IntermediateAt = parseTimePtr(intermediateAt)
	t.CompletedAt = parseTimePtr(completedAt)
	t.ResultAmount = amount
	return t, nil
}

// timeLayout is fixed width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, _ := time.Parse(time.RFC3339Nano, *s)
	return &t
}
