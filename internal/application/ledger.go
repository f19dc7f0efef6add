package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"txledger/internal/domain"
)

// LedgerBackend is the append-only table behind a LedgerStore.
type LedgerBackend interface {
	// Open authenticates and opens the store, returning its title.
	Open(ctx context.Context) (string, error)
	// EnsureWorksheet selects the named worksheet, creating it when missing.
	EnsureWorksheet(ctx context.Context, title string) (created bool, err error)
	WriteHeader(ctx context.Context, header []string) error
	// ReadKeyColumn returns the first column including the header cell.
	ReadKeyColumn(ctx context.Context) ([]string, error)
	// ReadAll returns every row including the header.
	ReadAll(ctx context.Context) ([][]string, error)
	AppendRow(ctx context.Context, row []string) error
	Close() error
}

type StoreState int

const (
	StoreDisconnected StoreState = iota
	StoreConnecting
	StoreConnected
	StoreFailed
)

func (s StoreState) String() string {
	switch s {
	case StoreConnecting:
		return "connecting"
	case StoreConnected:
		return "connected"
	case StoreFailed:
		return "failed"
	default:
		return "disconnected"
	}
}

type LedgerStoreConfig struct {
	Worksheet string
	Timeout   time.Duration
	StoreURL  string
	Now       func() time.Time
}

// LedgerStore owns the ledger session. The duplicate check and append run
// under one mutex per process; backends with a unique key also reject
// duplicates written by other processes.
type LedgerStore struct {
	backend LedgerBackend
	cfg     LedgerStoreConfig

	mu      sync.RWMutex
	state   StoreState
	title   string
	lastErr error

	appendMu sync.Mutex
}

// NewLedgerStore connects immediately. A failed connection leaves the store
// in StoreFailed; use IsConnected and LastError to inspect it.
func NewLedgerStore(ctx context.Context, backend LedgerBackend, cfg LedgerStoreConfig) (*LedgerStore, error) {
	if backend == nil {
		return nil, errors.New("ledger backend is required")
	}
	if cfg.Worksheet == "" {
		cfg.Worksheet = "Transactions"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	store := &LedgerStore{backend: backend, cfg: cfg}
	if err := store.Connect(ctx); err != nil {
		slog.Warn("ledger connect failed, logging disabled", "err", err)
	}
	return store, nil
}

func (s *LedgerStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StoreConnecting

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	title, err := s.backend.Open(ctx)
	if err != nil {
		return s.failLocked(fmt.Errorf("open ledger: %w", err))
	}
	created, err := s.backend.EnsureWorksheet(ctx, s.cfg.Worksheet)
	if err != nil {
		return s.failLocked(fmt.Errorf("worksheet %q: %w", s.cfg.Worksheet, err))
	}
	if created {
		if err := s.backend.WriteHeader(ctx, domain.LedgerColumns); err != nil {
			return s.failLocked(fmt.Errorf("write header: %w", err))
		}
		slog.Info("ledger worksheet created", "worksheet", s.cfg.Worksheet)
	}

	s.state = StoreConnected
	s.title = title
	s.lastErr = nil
	slog.Info("ledger connected", "store", title, "worksheet", s.cfg.Worksheet)
	return nil
}

func (s *LedgerStore) failLocked(err error) error {
	s.state = StoreFailed
	s.lastErr = err
	return err
}

func (s *LedgerStore) State() StoreState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *LedgerStore) IsConnected() bool {
	return s.State() == StoreConnected
}

func (s *LedgerStore) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// CheckDuplicate scans the whole key column, so cost grows with the ledger size.
func (s *LedgerStore) CheckDuplicate(ctx context.Context, hash domain.TransactionHash) (bool, error) {
	if !s.IsConnected() {
		return false, ErrStoreNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	keys, err := s.backend.ReadKeyColumn(ctx)
	if err != nil {
		return false, fmt.Errorf("read key column: %w", err)
	}
	for _, key := range keys {
		if hash.Matches(key) {
			return true, nil
		}
	}
	return false, nil
}

// LogTransaction appends the record once. A repeated hash returns ErrDuplicateHash
// and leaves the ledger unchanged. Once the append starts it is not cancelled
// by ctx, so an interrupted caller never leaves a partial row.
func (s *LedgerStore) LogTransaction(ctx context.Context, record domain.CanonicalRecord, callerID string) (string, error) {
	if !s.IsConnected() {
		return "", ErrStoreNotConnected
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	duplicate, err := s.CheckDuplicate(ctx, record.Hash)
	if err != nil {
		return "", err
	}
	if duplicate {
		return "", ErrDuplicateHash
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	row := domain.NewLedgerRow(record, callerID, s.cfg.Now())
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()
	if err := s.backend.AppendRow(writeCtx, row.Values()); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return "", ErrDuplicateHash
		}
		return "", fmt.Errorf("append row: %w", err)
	}

	slog.Info("ledger append", "hash", record.Hash.Short(), "caller", callerID)
	return fmt.Sprintf("Transaction successfully logged to %s", s.Title()), nil
}

// Stats returns false when the store is not connected or cannot be read.
func (s *LedgerStore) Stats(ctx context.Context) (domain.LedgerStats, bool) {
	if !s.IsConnected() {
		return domain.LedgerStats{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	rows, err := s.backend.ReadAll(ctx)
	if err != nil {
		slog.Warn("ledger stats read failed", "err", err)
		return domain.LedgerStats{}, false
	}
	total := len(rows) - 1
	if total < 0 {
		total = 0
	}
	return domain.LedgerStats{
		TotalTransactions: total,
		StoreTitle:        s.Title(),
		WorksheetTitle:    s.cfg.Worksheet,
		StoreURL:          s.cfg.StoreURL,
	}, true
}

func (s *LedgerStore) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// Close disconnects the store; later operations fail with ErrStoreNotConnected.
func (s *LedgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StoreDisconnected
	return s.backend.Close()
}
