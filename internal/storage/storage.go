// Package storage persists heatmap samples and signal scans in SQLite.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/gogpu/heatmap"
	"github.com/gogpu/heatmap/wire"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNoScan is returned by LatestScan when no scan has been recorded.
var ErrNoScan = errors.New("storage: no scan recorded")

// DB is a heatmap database.
type DB struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens or creates the database at path and applies all pending
// migrations. Use ":memory:" for a private in-memory database.
func Open(path string, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:"
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: pragma: %w", err)
	}

	s := &DB{db: db, log: log}
	if err := s.migrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}

// migrateUp runs all pending migrations up to the latest version.
func (s *DB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("storage: migrations source: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("storage: sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("storage: migrate instance: %w", err)
	}
	m.Log = &migrateLogger{log: s.log}
	// m is not closed: that would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("storage: migration up failed: %w", err)
	}
	version, dirty, err := m.Version()
	if err == nil {
		s.log.Debug("storage: schema ready", "version", version, "dirty", dirty)
	}
	return nil
}

// migrateLogger implements migrate.Logger on top of slog.
type migrateLogger struct {
	log *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.log.Debug(fmt.Sprintf("migrate: "+format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// InsertSample appends a sample.
func (s *DB) InsertSample(ctx context.Context, sm heatmap.Sample) error {
	if err := sm.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO samples (x, y, signal, label, ts) VALUES (?, ?, ?, ?, ?)`,
		sm.Position.X, sm.Position.Y, nullStrength(sm.Strength), sm.Label, nullTime(sm.Timestamp))
	if err != nil {
		return fmt.Errorf("storage: insert sample: %w", err)
	}
	return nil
}

// Samples returns every sample in insertion order.
func (s *DB) Samples(ctx context.Context) ([]heatmap.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT x, y, signal, label, ts FROM samples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage: query samples: %w", err)
	}
	defer rows.Close()

	var out []heatmap.Sample
	for rows.Next() {
		var (
			sm     heatmap.Sample
			signal sql.NullFloat64
			ts     sql.NullString
		)
		if err := rows.Scan(&sm.Position.X, &sm.Position.Y, &signal, &sm.Label, &ts); err != nil {
			return nil, fmt.Errorf("storage: scan sample: %w", err)
		}
		if signal.Valid {
			sm.Strength = heatmap.StrengthOf(signal.Float64)
		}
		sm.Timestamp = parseTime(ts)
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: samples: %w", err)
	}
	return out, nil
}

// DeleteSamples removes every sample and reports how many were deleted.
func (s *DB) DeleteSamples(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM samples`)
	if err != nil {
		return 0, fmt.Errorf("storage: delete samples: %w", err)
	}
	return res.RowsAffected()
}

// InsertScan records one signal reading.
func (s *DB) InsertScan(ctx context.Context, st wire.Status) error {
	ts := st.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (ts, ssid, bssid, signal) VALUES (?, ?, ?, ?)`,
		formatTime(ts), nullString(st.SSID), nullString(st.BSSID), nullStrength(st.Strength))
	if err != nil {
		return fmt.Errorf("storage: insert scan: %w", err)
	}
	return nil
}

// LatestScan returns the most recent scan, or ErrNoScan.
func (s *DB) LatestScan(ctx context.Context) (wire.Status, error) {
	var (
		st          wire.Status
		ts          sql.NullString
		ssid, bssid sql.NullString
		signal      sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT ts, ssid, bssid, signal FROM scans ORDER BY id DESC LIMIT 1`).
		Scan(&ts, &ssid, &bssid, &signal)
	if errors.Is(err, sql.ErrNoRows) {
		return wire.Status{}, ErrNoScan
	}
	if err != nil {
		return wire.Status{}, fmt.Errorf("storage: latest scan: %w", err)
	}
	st.Timestamp = parseTime(ts)
	st.SSID = ssid.String
	st.BSSID = bssid.String
	if signal.Valid {
		st.Strength = heatmap.StrengthOf(signal.Float64)
	}
	return st, nil
}

func nullStrength(s heatmap.Strength) sql.NullFloat64 {
	v, ok := s.Value()
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
