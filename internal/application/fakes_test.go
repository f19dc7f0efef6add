package application

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"txledger/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	sampleHash = "3bb06f21d607e8c19b0638c6f9ecd3986c377d47116f737ab1964d324223bef9"
	otherHash  = "a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f90"
)

func mustRaw(payload string) RawRecord {
	record, err := DecodeRawRecord([]byte(payload))
	if err != nil {
		panic(err)
	}
	return record
}

type fakeFetcher struct {
	mu      sync.Mutex
	records map[domain.TransactionHash]RawRecord
	errs    map[domain.TransactionHash][]error
	calls   map[domain.TransactionHash]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		records: make(map[domain.TransactionHash]RawRecord),
		errs:    make(map[domain.TransactionHash][]error),
		calls:   make(map[domain.TransactionHash]int),
	}
}

// failWith queues errors returned before the record is served.
func (f *fakeFetcher) failWith(hash domain.TransactionHash, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[hash] = append(f.errs[hash], errs...)
}

func (f *fakeFetcher) Fetch(ctx context.Context, hash domain.TransactionHash) (RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[hash]++
	if queued := f.errs[hash]; len(queued) > 0 {
		f.errs[hash] = queued[1:]
		return nil, queued[0]
	}
	record, ok := f.records[hash]
	if !ok {
		return nil, &FetchError{Kind: ErrNotFound, Message: "Transaction not found"}
	}
	return record, nil
}

func (f *fakeFetcher) callCount(hash domain.TransactionHash) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[hash]
}

type fixedPrice struct {
	price decimal.Decimal
}

func (p fixedPrice) CurrentUnitPriceUSD(ctx context.Context) decimal.Decimal {
	return p.price
}

// fakeBackend is an in-memory sheet with optional failure injection.
type fakeBackend struct {
	mu         sync.Mutex
	title      string
	worksheets map[string]bool
	rows       [][]string
	headers    int
	openErr    error
	appendErr  error
	readErr    error
	uniqueKey  bool
	appendHook func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{title: "Ledger", worksheets: make(map[string]bool)}
}

func (b *fakeBackend) Open(ctx context.Context) (string, error) {
	if b.openErr != nil {
		return "", b.openErr
	}
	return b.title, nil
}

func (b *fakeBackend) EnsureWorksheet(ctx context.Context, title string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.worksheets[title] {
		return false, nil
	}
	b.worksheets[title] = true
	return true, nil
}

func (b *fakeBackend) WriteHeader(ctx context.Context, header []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.headers++
	b.rows = append([][]string{append([]string(nil), header...)}, b.rows...)
	return nil
}

func (b *fakeBackend) ReadKeyColumn(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return nil, b.readErr
	}
	keys := make([]string, 0, len(b.rows))
	for _, row := range b.rows {
		keys = append(keys, row[0])
	}
	return keys, nil
}

func (b *fakeBackend) ReadAll(ctx context.Context) ([][]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readErr != nil {
		return nil, b.readErr
	}
	return append([][]string(nil), b.rows...), nil
}

func (b *fakeBackend) AppendRow(ctx context.Context, row []string) error {
	if b.appendHook != nil {
		b.appendHook()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.appendErr != nil {
		return b.appendErr
	}
	if b.uniqueKey {
		for _, existing := range b.rows[1:] {
			if strings.EqualFold(existing[0], row[0]) {
				return ErrDuplicateKey
			}
		}
	}
	b.rows = append(b.rows, append([]string(nil), row...))
	return nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) dataRows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows) - 1
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)
}

func newConnectedStore(backend *fakeBackend) *LedgerStore {
	store, err := NewLedgerStore(context.Background(), backend, LedgerStoreConfig{Worksheet: "Transactions", Now: fixedNow})
	if err != nil {
		panic(err)
	}
	return store
}

func usdtTransferRecord() RawRecord {
	payload := map[string]any{
		"block":         73012345,
		"timestamp":     1750064400000,
		"ownerAddress":  "TOwner",
		"toAddress":     "TContractTarget",
		"contractRet":   "SUCCESS",
		"confirmed":     true,
		"confirmations": 150,
		"cost":          map[string]any{"fee": 345000, "energy_fee": 13050900},
		"trc20TransferInfo": []any{map[string]any{
			"to_address":       "TRecipient",
			"contract_address": "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
			"symbol":           "USDT",
			"amount_str":       "25000000",
			"decimals":         6,
		}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return mustRaw(string(encoded))
}
