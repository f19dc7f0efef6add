package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"txledger/internal/application"

	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const errDuplicateEntry = 1062

var rowColumns = []string{
	"tx_hash", "block", "time_utc", "from_addr", "to_addr", "token", "token_symbol",
	"amount", "result", "status", "confirmations", "cost_native", "cost_fiat",
	"logged_by", "logged_at",
}

// Repository is the shared ledger backend. The unique key on
// (worksheet, tx_hash) rejects duplicates written by any process.
type Repository struct {
	dsn    string
	dbName string

	mu        sync.RWMutex
	db        *sql.DB
	worksheet string
}

func NewRepository(dsn string) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("db dsn is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	return &Repository{dsn: dsn, dbName: cfg.DBName}, nil
}

// Title is the database name, used as the ledger title.
func (r *Repository) Title() string {
	return r.dbName
}

func (r *Repository) Open(ctx context.Context) (string, error) {
	ctx, span := startDBSpan(ctx, "mysql.Open")
	defer span.End()

	db, err := sql.Open("mysql", r.dsn)
	if err != nil {
		return "", recordSpanError(span, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return "", recordSpanError(span, err)
	}
	if err := createSchema(ctx, db); err != nil {
		_ = db.Close()
		return "", recordSpanError(span, err)
	}

	r.mu.Lock()
	if r.db != nil {
		_ = r.db.Close()
	}
	r.db = db
	r.mu.Unlock()
	return r.dbName, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS worksheets (
			title VARCHAR(100) NOT NULL,
			header TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (title)
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_rows (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			worksheet VARCHAR(100) NOT NULL,
			tx_hash CHAR(64) NOT NULL,
			block VARCHAR(32) NOT NULL,
			time_utc VARCHAR(32) NOT NULL,
			from_addr VARCHAR(64) NOT NULL,
			to_addr VARCHAR(64) NOT NULL,
			token VARCHAR(64) NOT NULL,
			token_symbol VARCHAR(32) NOT NULL,
			amount VARCHAR(96) NOT NULL,
			result VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL,
			confirmations VARCHAR(32) NOT NULL,
			cost_native VARCHAR(64) NOT NULL,
			cost_fiat VARCHAR(64) NOT NULL,
			logged_by VARCHAR(128) NOT NULL,
			logged_at VARCHAR(32) NOT NULL,
			PRIMARY KEY (id),
			UNIQUE KEY ledger_rows_hash (worksheet, tx_hash)
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
		return nil, "", errors.New("mysql ledger is not open")
	}
	return r.db, r.worksheet, nil
}

func (r *Repository) EnsureWorksheet(ctx context.Context, title string) (bool, error) {
	db, _, err := r.handle()
	if err != nil {
		return false, err
	}
	ctx, span := startDBSpan(ctx, "mysql.EnsureWorksheet", attribute.String("ledger.worksheet", title))
	defer span.End()

	res, err := db.ExecContext(ctx, `INSERT IGNORE INTO worksheets (title, header, created_at) VALUES (?, '[]', ?)`,
		title, time.Now().UTC())
	if err != nil {
		return false, recordSpanError(span, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, recordSpanError(span, err)
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
	ctx, span := startDBSpan(ctx, "mysql.ReadKeyColumn", attribute.String("ledger.worksheet", worksheet))
	defer span.End()

	keys := make([]string, 0, 64)
	header, err := r.header(ctx, db, worksheet)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	if len(header) > 0 {
		keys = append(keys, header[0])
	}
	rows, err := db.QueryContext(ctx, `SELECT tx_hash FROM ledger_rows WHERE worksheet = ? ORDER BY id ASC`, worksheet)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, recordSpanError(span, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.Int("ledger.rows", len(keys)))
	return keys, nil
}

func (r *Repository) ReadAll(ctx context.Context) ([][]string, error) {
	db, worksheet, err := r.handle()
	if err != nil {
		return nil, err
	}
	ctx, span := startDBSpan(ctx, "mysql.ReadAll", attribute.String("ledger.worksheet", worksheet))
	defer span.End()

	header, err := r.header(ctx, db, worksheet)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	var out [][]string
	if len(header) > 0 {
		out = append(out, header)
	}
	query := `SELECT ` + strings.Join(rowColumns, ", ") + ` FROM ledger_rows WHERE worksheet = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, worksheet)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	defer rows.Close()
	for rows.Next() {
		values := make([]string, len(rowColumns))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, recordSpanError(span, err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, recordSpanError(span, err)
	}
	return out, nil
}

func (r *Repository) AppendRow(ctx context.Context, row []string) error {
	if len(row) != len(rowColumns) {
		return fmt.Errorf("ledger row has %d values, want %d", len(row), len(rowColumns))
	}
	db, worksheet, err := r.handle()
	if err != nil {
		return err
	}
	ctx, span := startDBSpan(ctx, "mysql.AppendRow", attribute.String("ledger.worksheet", worksheet))
	defer span.End()

	args := make([]any, 0, len(row)+1)
	args = append(args, worksheet, strings.ToLower(row[0]))
	for _, value := range row[1:] {
		args = append(args, value)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	stmt := `INSERT INTO ledger_rows (worksheet, ` + strings.Join(rowColumns, ", ") + `) VALUES (` + placeholders + `)`
	if _, err := db.ExecContext(ctx, stmt, args...); err != nil {
		if isDuplicateEntry(err) {
			return application.ErrDuplicateKey
		}
		return recordSpanError(span, err)
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == errDuplicateEntry
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

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func startDBSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", "mysql"))
	return otel.Tracer("txledger/mysql").Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}
