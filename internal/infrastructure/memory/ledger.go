package memory

import (
	"context"
	"strings"
	"sync"

	"txledger/internal/application"
)

// Ledger is a process-local worksheet store for development and dry runs.
// Rows are lost on exit.
type Ledger struct {
	mu         sync.RWMutex
	title      string
	worksheets map[string][][]string
	active     string
}

func NewLedger(title string) *Ledger {
	if title == "" {
		title = "In-Memory Ledger"
	}
	return &Ledger{title: title, worksheets: make(map[string][][]string)}
}

func (l *Ledger) Open(ctx context.Context) (string, error) {
	return l.title, ctx.Err()
}

func (l *Ledger) EnsureWorksheet(ctx context.Context, title string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = title
	if _, ok := l.worksheets[title]; ok {
		return false, nil
	}
	l.worksheets[title] = nil
	return true, nil
}

func (l *Ledger) WriteHeader(ctx context.Context, header []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows := l.worksheets[l.active]
	headerRow := append([]string(nil), header...)
	if len(rows) == 0 {
		l.worksheets[l.active] = [][]string{headerRow}
		return nil
	}
	rows[0] = headerRow
	return nil
}

func (l *Ledger) ReadKeyColumn(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows := l.worksheets[l.active]
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			keys = append(keys, "")
			continue
		}
		keys = append(keys, row[0])
	}
	return keys, nil
}

func (l *Ledger) ReadAll(ctx context.Context) ([][]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows := l.worksheets[l.active]
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// AppendRow rejects a key already present, like a unique index would.
func (l *Ledger) AppendRow(ctx context.Context, row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows := l.worksheets[l.active]
	if len(row) > 0 {
		for i, existing := range rows {
			if i == 0 || len(existing) == 0 {
				continue
			}
			if strings.EqualFold(existing[0], row[0]) {
				return application.ErrDuplicateKey
			}
		}
	}
	l.worksheets[l.active] = append(rows, append([]string(nil), row...))
	return nil
}

func (l *Ledger) Close() error {
	return nil
}
