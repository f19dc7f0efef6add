package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"txledger/internal/application"
	"txledger/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const spreadsheetID = "sheet-123"

// fakeSpreadsheet serves the subset of the Sheets v4 REST API the ledger uses.
type fakeSpreadsheet struct {
	mu        sync.Mutex
	title     string
	sheets    map[string][][]string
	order     []string
	addSheets int
	appendErr bool
}

func newFakeSpreadsheet(existing ...string) *fakeSpreadsheet {
	f := &fakeSpreadsheet{title: "Tron Ledger", sheets: make(map[string][][]string)}
	for _, name := range existing {
		f.sheets[name] = nil
		f.order = append(f.order, name)
	}
	return f
}

func (f *fakeSpreadsheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/v4/spreadsheets/"+spreadsheetID)
	if !ok {
		http.Error(w, `{"error":{"code":404,"message":"Requested entity was not found."}}`, http.StatusNotFound)
		return
	}
	switch {
	case rest == "" && r.Method == http.MethodGet:
		sheets := make([]map[string]any, 0, len(f.order))
		for _, name := range f.order {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": name}})
		}
		writeJSON(w, map[string]any{"spreadsheetId": spreadsheetID, "properties": map[string]any{"title": f.title}, "sheets": sheets})
	case rest == ":batchUpdate" && r.Method == http.MethodPost:
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, item := range req.Requests {
			name := item.AddSheet.Properties.Title
			f.sheets[name] = nil
			f.order = append(f.order, name)
			f.addSheets++
		}
		writeJSON(w, map[string]any{"spreadsheetId": spreadsheetID})
	case strings.HasPrefix(rest, "/values/"):
		f.serveValues(w, r, strings.TrimPrefix(rest, "/values/"))
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func (f *fakeSpreadsheet) serveValues(w http.ResponseWriter, r *http.Request, target string) {
	appendCall := strings.HasSuffix(target, ":append")
	target = strings.TrimSuffix(target, ":append")
	sheet, cells, _ := strings.Cut(target, "!")
	sheet = strings.ReplaceAll(strings.Trim(sheet, "'"), "''", "'")
	rows, ok := f.sheets[sheet]
	if !ok {
		http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == http.MethodGet:
		values := make([][]string, 0, len(rows))
		for _, row := range rows {
			if cells == "A:A" {
				values = append(values, row[:1])
				continue
			}
			values = append(values, row)
		}
		writeJSON(w, map[string]any{"range": target, "majorDimension": "ROWS", "values": values})
	case r.Method == http.MethodPost && appendCall:
		if f.appendErr {
			http.Error(w, `{"error":{"code":403,"message":"The caller does not have permission"}}`, http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			http.Error(w, "valueInputOption must be RAW", http.StatusBadRequest)
			return
		}
		var body struct {
			Values [][]string `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.sheets[sheet] = append(rows, body.Values...)
		writeJSON(w, map[string]any{"spreadsheetId": spreadsheetID})
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]string `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(rows) == 0 {
			rows = append(rows, nil)
		}
		rows[0] = body.Values[0]
		f.sheets[sheet] = rows
		writeJSON(w, map[string]any{"spreadsheetId": spreadsheetID})
	default:
		http.Error(w, "unexpected values call", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func newTestLedger(t *testing.T, fake *fakeSpreadsheet) *Ledger {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	ledger, err := NewLedger(Config{
		SpreadsheetID: spreadsheetID,
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithoutAuthentication(),
			option.WithHTTPClient(srv.Client()),
		},
	})
	require.NoError(t, err)
	return ledger
}

func TestNewLedger_Validation(t *testing.T) {
	_, err := NewLedger(Config{})
	assert.Error(t, err)
	_, err = NewLedger(Config{SpreadsheetID: "x"})
	assert.Error(t, err)
	_, err = NewLedger(Config{SpreadsheetID: "x", CredentialsFile: "service_account.json"})
	assert.NoError(t, err)
}

func TestLedger_CreatesWorksheetAndHeader(t *testing.T) {
	fake := newFakeSpreadsheet("Sheet1")
	ledger := newTestLedger(t, fake)
	ctx := context.Background()

	store, err := application.NewLedgerStore(ctx, ledger, application.LedgerStoreConfig{Worksheet: "Transactions"})
	require.NoError(t, err)
	require.True(t, store.IsConnected(), "last error: %v", store.LastError())
	assert.Equal(t, "Tron Ledger", store.Title())
	assert.Equal(t, 1, fake.addSheets)
	assert.Equal(t, domain.LedgerColumns, fake.sheets["Transactions"][0])

	// Reconnecting finds the worksheet and leaves the header alone.
	require.NoError(t, store.Connect(ctx))
	assert.Equal(t, 1, fake.addSheets)
	assert.Len(t, fake.sheets["Transactions"], 1)
}

func TestLedger_AppendAndDuplicate(t *testing.T) {
	fake := newFakeSpreadsheet("Transactions")
	fake.sheets["Transactions"] = [][]string{domain.LedgerColumns}
	ledger := newTestLedger(t, fake)
	ctx := context.Background()

	store, err := application.NewLedgerStore(ctx, ledger, application.LedgerStoreConfig{Worksheet: "Transactions"})
	require.NoError(t, err)
	require.True(t, store.IsConnected(), "last error: %v", store.LastError())
	assert.Equal(t, 0, fake.addSheets)

	record := domain.CanonicalRecord{Hash: "3bb06f21d607e8c19b0638c6f9ecd3986c377d47116f737ab1964d324223bef9", Block: "1"}
	message, err := store.LogTransaction(ctx, record, "U1")
	require.NoError(t, err)
	assert.Equal(t, "Transaction successfully logged to Tron Ledger", message)

	_, err = store.LogTransaction(ctx, record, "U1")
	assert.ErrorIs(t, err, application.ErrDuplicateHash)

	require.Len(t, fake.sheets["Transactions"], 2)
	assert.Len(t, fake.sheets["Transactions"][1], len(domain.LedgerColumns))

	stats, ok := store.Stats(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, stats.TotalTransactions)
	assert.Equal(t, "Transactions", stats.WorksheetTitle)
}

func TestLedger_AppendPermissionDenied(t *testing.T) {
	fake := newFakeSpreadsheet("Transactions")
	fake.appendErr = true
	ledger := newTestLedger(t, fake)
	ctx := context.Background()

	store, err := application.NewLedgerStore(ctx, ledger, application.LedgerStoreConfig{Worksheet: "Transactions"})
	require.NoError(t, err)

	_, err = store.LogTransaction(ctx, domain.CanonicalRecord{Hash: "3bb06f21d607e8c19b0638c6f9ecd3986c377d47116f737ab1964d324223bef9"}, "U1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission")
}

func TestLedger_OpenFailsForUnknownSpreadsheet(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	ledger, err := NewLedger(Config{
		SpreadsheetID: spreadsheetID,
		ClientOptions: []option.ClientOption{option.WithEndpoint(srv.URL + "/"), option.WithoutAuthentication()},
	})
	require.NoError(t, err)

	_, err = ledger.Open(context.Background())
	assert.Error(t, err)
}

func TestA1(t *testing.T) {
	assert.Equal(t, "'Transactions'!A:A", a1("Transactions", "A:A"))
	assert.Equal(t, "'Bob''s'", a1("Bob's", ""))
}
