package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"txledger/internal/application"

	_ "modernc.org/sqlite"
)

// rowColumns maps ledger row positions to table columns.
var rowColumns = []string{
	"tx_hash", "block", "time_utc", "from_addr", "to_addr", "token", "token_symbol",
	"amount", "result", "status", "confirmations", "cost_native", "cost_fiat",
	"logged_by", "logged_at",
}

// Repository stores ledger worksheets in a single sqlite file. tx_hash is
// unique per worksheet.
type Repository struct {
	dbPath string

	mu        sync.RWMutex
	db        *sql.DB
	worksheet string
}

func NewRepository(dbPath string) (*Repository, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	return &Repository{dbPath: dbPath}, nil
}

func (r *Repository) Open(ctx context.Context) (string, error) {
	db, err := sql.Open("sqlite", r.dbPath)
	if err != nil {
		return "", err
	}
	if r.dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return "", err
	}
	if err := createSchema(ctx, db); err != nil {
		_ = db.Close()
		return "", err
	}

	r.mu.Lock()
	if r.db != nil {
		_ = r.db.Close()
	}
	r.db = db
	r.mu.Unlock()
	return strings.TrimSuffix(filepath.Base(r.dbPath), filepath.Ext(r.dbPath)), nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS worksheets (
			title TEXT PRIMARY KEY,
			header TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			worksheet TEXT NOT NULL,
			tx_hash TEXT NOT NULL,
			block TEXT NOT NULL,
			time_utc TEXT NOT NULL,
			from_addr TEXT NOT NULL,
			to_addr TEXT NOT NULL,
			token TEXT NOT NULL,
			token_symbol TEXT NOT NULL,
			amount TEXT NOT NULL,
			result TEXT NOT NULL,
			status TEXT NOT NULL,
			confirmations TEXT NOT NULL,
			cost_native TEXT NOT NULL,
			cost_fiat TEXT NOT NULL,
			logged_by TEXT NOT NULL,
			logged_at TEXT NOT NULL,
			UNIQUE(worksheet, tx_hash)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) handle() (*sql.DB, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.db == nil {
		return nil, "", errors.New("sqlite ledger is not open")
	}
	return r.db, r.worksheet, nil
}

func (r *Repository) EnsureWorksheet(ctx context.Context, title string) (bool, error) {
	db, _, err := r.handle()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx, `INSERT INTO worksheets (title, created_at) VALUES (?, ?)
		ON CONFLICT(title) DO NOTHING`, title, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	r.worksheet = title
	r.mu.Unlock()
	return affected == 1, nil
}

func (r *Repository) WriteHeader(ctx context.Context, header []string) error {
	db, worksheet, err := r.handle()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `UPDATE worksheets SET header = ? WHERE title = ?`, string(encoded), worksheet)
	return err
}

func (r *Repository) header(ctx context.Context, db *sql.DB, worksheet string) ([]string, error) {
	var raw string
	if err := db.QueryRowContext(ctx, `SELECT header FROM worksheets WHERE title = ?`, worksheet).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var header []string
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return nil, err
	}
	return header, nil
}

func (r *Repository) ReadKeyColumn(ctx context.Context) ([]string, error) {
	db, worksheet, err := r.handle()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, 64)
	header, err := r.header(ctx, db, worksheet)
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		keys = append(keys, header[0])
	}

	rows, err := db.QueryContext(ctx, `SELECT tx_hash FROM ledger_rows WHERE worksheet = ? ORDER BY id ASC`, worksheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *Repository) ReadAll(ctx context.Context) ([][]string, error) {
	db, worksheet, err := r.handle()
	if err != nil {
		return nil, err
	}
	header, err := r.header(ctx, db, worksheet)
	if err != nil {
		return nil, err
	}
	var out [][]string
	if len(header) > 0 {
		out = append(out, header)
	}

	query := `SELECT ` + strings.Join(rowColumns, ", ") + ` FROM ledger_rows WHERE worksheet = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, worksheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		values := make([]string, len(rowColumns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

// AppendRow maps a unique violation to application.ErrDuplicateKey.
func (r *Repository) AppendRow(ctx context.Context, row []string) error {
	if len(row) != len(rowColumns) {
		return fmt.Errorf("ledger row has %d values, want %d", len(row), len(rowColumns))
	}
	db, worksheet, err := r.handle()
	if err != nil {
		return err
	}
	args := make([]any, 0, len(row)+1)
	args = append(args, worksheet, strings.ToLower(row[0]))
	for _, value := range row[1:] {
		args = append(args, value)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	stmt := `INSERT INTO ledger_rows (worksheet, ` + strings.Join(rowColumns, ", ") + `) VALUES (` + placeholders + `)`
	if _, err := db.ExecContext(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return application.ErrDuplicateKey
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *Repository) Ping(ctx context.Context) error {
	db, _, err := r.handle()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
