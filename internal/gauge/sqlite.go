package gauge

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
		return nil, fmt.Errorf("gauge store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("gauge store: wal: %w", err)
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
		CREATE TABLE IF NOT EXISTS gauge_levels (
			gauge      TEXT PRIMARY KEY,
			current    REAL NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS gauge_log (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			gauge  TEXT NOT NULL,
			action TEXT NOT NULL,
			amount REAL NOT NULL,
			time   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS deliveries (
			id     TEXT PRIMARY KEY,
			gauge  TEXT NOT NULL,
			amount REAL NOT NULL,
			time   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_log_gauge ON gauge_log(gauge, action);
		CREATE INDEX IF NOT EXISTS idx_deliveries_time ON deliveries(time);
	`)
	if err != nil {
		return fmt.Errorf("gauge store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadLevel(gauge string) (float64, bool, error) {
	var current float64
	err := s.db.QueryRow(`SELECT current FROM gauge_levels WHERE gauge = ?`, gauge).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("gauge store: load level: %w", err)
	}
	return current, true, nil
}

func (s *SQLiteStore) SaveLevel(gauge string, current float64) error {
	_, err := s.db.Exec(`
		INSERT INTO gauge_levels (gauge, current, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(gauge) DO UPDATE SET current=excluded.current, updated_at=excluded.updated_at
	`, gauge, current, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("gauge store: save level: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AppendLog(e protocol.LogEntry) error {
	_, err := s.db.Exec(`INSERT INTO gauge_log (gauge, action, amount, time) VALUES (?, ?, ?, ?)`,
		e.Gauge, string(e.Action), e.Amount, formatTime(e.Time))
	if err != nil {
		return fmt.Errorf("gauge store: append log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Log(gauge string, limit int) ([]protocol.LogEntry, error) {
	query := `SELECT gauge, action, amount, time FROM gauge_log WHERE gauge = ? ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(query, gauge)
	if err != nil {
		return nil, fmt.Errorf("gauge store: log: %w", err)
	}
	defer rows.Close()

	var entries []protocol.LogEntry
	for rows.Next() {
		var e protocol.LogEntry
		var action, ts string
		if err := rows.Scan(&e.Gauge, &action, &e.Amount, &ts); err != nil {
			return nil, fmt.Errorf("gauge store: scan log: %w", err)
		}
		e.Action = protocol.GaugeAction(action)
		e.Time = parseTime(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) AddDelivery(d protocol.Delivery) error {
	_, err := s.db.Exec(`INSERT INTO deliveries (id, gauge, amount, time) VALUES (?, ?, ?, ?)`,
		d.ID, d.Gauge, d.Amount, formatTime(d.Time))
	if err != nil {
		return fmt.Errorf("gauge store: add delivery: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Deliveries(gauge string, limit int) ([]protocol.Delivery, error) {
	query := "SELECT id, gauge, amount, time FROM deliveries WHERE 1=1"
	var args []any
	if gauge != "" {
		query += " AND gauge = ?"
		args = append(args, gauge)
	}
	query += " ORDER BY time DESC, rowid DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("gauge store: deliveries: %w", err)
	}
	defer rows.Close()

	var out []protocol.Delivery
	for rows.Next() {
		var d protocol.Delivery
		var ts string
		if err := rows.Scan(&d.ID, &d.Gauge, &d.Amount, &ts); err != nil {
			return nil, fmt.Errorf("gauge store: scan delivery: %w", err)
		}
		d.Time = parseTime(ts)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MonthlyConsumption(gauge string, months int) ([]protocol.MonthlyConsumption, error) {
	query := `
		SELECT substr(time, 1, 7) AS month, SUM(amount)
		FROM gauge_log
		WHERE gauge = ? AND action = ?
		GROUP BY month
		ORDER BY month DESC`
	if months > 0 {
		query += fmt.Sprintf(" LIMIT %d", months)
	}
	rows, err := s.db.Query(query, gauge, string(protocol.GaugeConsumed))
	if err != nil {
		return nil, fmt.Errorf("gauge store: consumption: %w", err)
	}
	defer rows.Close()

	var out []protocol.MonthlyConsumption
	for rows.Next() {
		var m protocol.MonthlyConsumption
		if err := rows.Scan(&m.Month, &m.Amount); err != nil {
			return nil, fmt.Errorf("gauge store: scan consumption: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Times are stored in UTC at a fixed width so that string order matches
// time order and substr(time, 1, 7) yields the month.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
