// Package store persists border-crossing entries in SQLite and serves the
// filtered queries behind the HTTP API.
package store

import (
	"context"
	"database/sql"
	"fmt"

	// SQLite driver using pure Go implementation
	_ "modernc.org/sqlite"
)

const tableName = "border_crossing_entry_data"

// Entry is one border-crossing record as stored. Pointer fields are NULL in
// the database when nil.
type Entry struct {
	ID        int64    `json:"id"`
	PortName  string   `json:"port_name"`
	State     string   `json:"state"`
	PortCode  *int64   `json:"port_code"`
	Border    string   `json:"border"`
	Date      string   `json:"date"`
	Measure   string   `json:"measure"`
	Value     *int64   `json:"value"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Point     string   `json:"point"`
}

// Config configures the SQLite store.
type Config struct {
	// Path to the SQLite database file.
	Path string

	// BusyTimeout is the lock acquisition timeout in milliseconds.
	BusyTimeout int

	// JournalMode sets the SQLite journal mode (WAL, DELETE, TRUNCATE, ...).
	JournalMode string

	// MaxConnections is the max number of database connections.
	MaxConnections int
}

// DefaultConfig returns default store configuration.
func DefaultConfig() Config {
	return Config{
		Path:           "crossguard.db",
		BusyTimeout:    5000,
		JournalMode:    "WAL",
		MaxConnections: 10,
	}
}

// Store provides access to the border-crossing table.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = "crossguard.db"
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5000
	}
	if cfg.JournalMode == "" {
		cfg.JournalMode = "WAL"
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 10
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(%s)&_pragma=busy_timeout(%d)",
		cfg.Path, cfg.JournalMode, cfg.BusyTimeout)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections / 2)

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Init drops any existing table and recreates the schema.
func (s *Store) Init(ctx context.Context) error {
	schema := fmt.Sprintf(`
DROP TABLE IF EXISTS %[1]s;
CREATE TABLE %[1]s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	port_name TEXT,
	state TEXT,
	port_code INTEGER,
	border TEXT,
	date TEXT,
	measure TEXT,
	value INTEGER,
	latitude REAL,
	longitude REAL,
	point TEXT
);
CREATE INDEX idx_%[1]s_date ON %[1]s(date);
CREATE INDEX idx_%[1]s_state ON %[1]s(state);
CREATE INDEX idx_%[1]s_measure ON %[1]s(measure);
`, tableName)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// InsertEntries bulk-inserts entries in a single transaction, rolling back
// on any failure.
func (s *Store) InsertEntries(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (port_name, state, port_code, border, date, measure, value, latitude, longitude, point)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, tableName))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.PortName, e.State, e.PortCode, e.Border,
			nullString(e.Date), e.Measure, e.Value, e.Latitude, e.Longitude, e.Point,
		); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}
	return tx.Commit()
}

// Filter narrows a query. Zero-valued fields are not applied.
type Filter struct {
	PortName string
	State    string
	Border   string
	Measure  string
	Date     string
	PortCode *int64

	// ValueMin and ValueMax bound the value column at the SQL level.
	ValueMin *float64
	ValueMax *float64

	// RequireValue excludes rows whose value is NULL.
	RequireValue bool
}

// Query returns the entries matching f, ordered by date descending, then
// state and port name ascending.
func (s *Store) Query(ctx context.Context, f Filter) ([]Entry, error) {
	query := fmt.Sprintf(
		`SELECT id, port_name, state, port_code, border, date, measure, value, latitude, longitude, point
		 FROM %s WHERE 1=1`, tableName)
	var args []any

	if f.PortName != "" {
		query += " AND port_name = ?"
		args = append(args, f.PortName)
	}
	if f.State != "" {
		query += " AND state = ?"
		args = append(args, f.State)
	}
	if f.Border != "" {
		query += " AND border = ?"
		args = append(args, f.Border)
	}
	if f.Measure != "" {
		query += " AND measure = ?"
		args = append(args, f.Measure)
	}
	if f.Date != "" {
		query += " AND date = ?"
		args = append(args, f.Date)
	}
	if f.PortCode != nil {
		query += " AND port_code = ?"
		args = append(args, *f.PortCode)
	}
	if f.ValueMin != nil {
		query += " AND value >= ?"
		args = append(args, *f.ValueMin)
	}
	if f.ValueMax != nil {
		query += " AND value <= ?"
		args = append(args, *f.ValueMax)
	}
	if f.RequireValue {
		query += " AND value IS NOT NULL"
	}
	query += " ORDER BY date DESC, state ASC, port_name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var date, point sql.NullString
		if err := rows.Scan(&e.ID, &e.PortName, &e.State, &e.PortCode, &e.Border,
			&date, &e.Measure, &e.Value, &e.Latitude, &e.Longitude, &point); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		e.Date = date.String
		e.Point = point.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// OptionItem is one selectable filter value with its display label.
type OptionItem struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Options lists the distinct values available for each filter.
type Options struct {
	PortNames []OptionItem `json:"port_names"`
	States    []OptionItem `json:"states"`
	Borders   []OptionItem `json:"borders"`
	Measures  []OptionItem `json:"measures"`
	Dates     []OptionItem `json:"dates"`
	PortCodes []OptionItem `json:"port_codes"`
}

// FilterOptions returns the distinct values of every filterable column.
func (s *Store) FilterOptions(ctx context.Context) (*Options, error) {
	opts := &Options{}

	textColumns := []struct {
		column string
		dest   *[]OptionItem
	}{
		{"port_name", &opts.PortNames},
		{"state", &opts.States},
		{"border", &opts.Borders},
		{"measure", &opts.Measures},
		{"date", &opts.Dates},
	}
	for _, tc := range textColumns {
		items, err := s.distinctText(ctx, tc.column)
		if err != nil {
			return nil, err
		}
		*tc.dest = items
	}

	codes, err := s.distinctCodes(ctx)
	if err != nil {
		return nil, err
	}
	opts.PortCodes = codes
	return opts, nil
}

func (s *Store) distinctText(ctx context.Context, column string) ([]OptionItem, error) {
	query := fmt.Sprintf("SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL ORDER BY %[1]s", column, tableName)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s failed: %w", column, err)
	}
	defer rows.Close()

	var items []OptionItem
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		items = append(items, OptionItem{Value: v, Label: v})
	}
	return items, rows.Err()
}

func (s *Store) distinctCodes(ctx context.Context) ([]OptionItem, error) {
	query := fmt.Sprintf("SELECT DISTINCT port_code FROM %s WHERE port_code IS NOT NULL ORDER BY port_code", tableName)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct port_code failed: %w", err)
	}
	defer rows.Close()

	var items []OptionItem
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		items = append(items, OptionItem{Value: v, Label: fmt.Sprintf("%d", v)})
	}
	return items, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
