package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"DivergenceSentinel/internal/logger"
	"DivergenceSentinel/internal/model"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	// WAL mode so external readers do not block the monitor.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id              TEXT PRIMARY KEY,
			timestamp       INTEGER NOT NULL,
			instrument      TEXT NOT NULL,
			timeframe       TEXT NOT NULL,
			kind            TEXT NOT NULL,
			reference_price REAL,
			oscillator      REAL,
			occurrence      INTEGER,
			cap             INTEGER,
			levels          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_instrument ON alerts(instrument, kind)`,

		`CREATE TABLE IF NOT EXISTS cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			instrument  TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			bar_time    INTEGER,
			close       REAL,
			oscillator  REAL,
			zone        TEXT,
			active      TEXT,
			emitted     INTEGER,
			bars        INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAlert(ev *model.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var levels sql.NullString
	if ev.Levels != nil {
		data, err := json.Marshal(ev.Levels)
		if err != nil {
			return fmt.Errorf("marshal levels: %w", err)
		}
		levels = sql.NullString{String: string(data), Valid: true}
	}
	_, err := r.db.Exec(`INSERT INTO alerts
		(id, timestamp, instrument, timeframe, kind, reference_price, oscillator, occurrence, cap, levels)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		ev.ID, ev.Timestamp.UnixMilli(), ev.Instrument, ev.Timeframe, string(ev.Kind),
		ev.ReferencePrice, ev.Oscillator, ev.Occurrence, ev.Cap, levels,
	)
	return err
}

func (r *SQLiteRecorder) RecordCycle(rec *CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]string, len(rec.Active))
	for i, k := range rec.Active {
		active[i] = string(k)
	}
	var barTime int64
	if !rec.BarTime.IsZero() {
		barTime = rec.BarTime.Unix()
	}
	_, err := r.db.Exec(`INSERT INTO cycles
		(timestamp, instrument, timeframe, bar_time, close, oscillator, zone, active, emitted, bars, duration_ms, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.Instrument, rec.Timeframe, barTime, rec.Close, rec.Oscillator,
		string(rec.Zone), strings.Join(active, ","), rec.Emitted, rec.Bars,
		rec.Duration.Milliseconds(), rec.Err,
	)
	return err
}

// RecentAlerts returns up to limit alerts, newest first.
func (r *SQLiteRecorder) RecentAlerts(limit int) ([]model.AlertEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT id, timestamp, instrument, timeframe, kind, reference_price,
		oscillator, occurrence, cap, levels
		FROM alerts ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AlertEvent
	for rows.Next() {
		var (
			ev     model.AlertEvent
			ts     int64
			kind   string
			levels sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ts, &ev.Instrument, &ev.Timeframe, &kind,
			&ev.ReferencePrice, &ev.Oscillator, &ev.Occurrence, &ev.Cap, &levels); err != nil {
			return nil, err
		}
		ev.Timestamp = time.UnixMilli(ts)
		ev.Kind = model.AlertKind(kind)
		if levels.Valid {
			var lv model.TradeLevels
			if err := json.Unmarshal([]byte(levels.String), &lv); err != nil {
				return nil, fmt.Errorf("decode levels of %s: %w", ev.ID, err)
			}
			ev.Levels = &lv
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Info("closing sqlite recorder")
	return r.db.Close()
}
