package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	defaultRows    = 1000
	defaultColumns = 15
	valueInputRaw  = "RAW"
	insertRows     = "INSERT_ROWS"
)

type Config struct {
	SpreadsheetID   string
	CredentialsFile string
	// ClientOptions are appended after the credentials option; tests use them
	// to point the client at a local server.
	ClientOptions []option.ClientOption
}

// Ledger appends rows to one worksheet of a Google spreadsheet through a
// service account.
type Ledger struct {
	cfg Config

	mu        sync.RWMutex
	service   *gsheets.Service
	worksheet string
}

func NewLedger(cfg Config) (*Ledger, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if cfg.CredentialsFile == "" && len(cfg.ClientOptions) == 0 {
		return nil, errors.New("credentials file is required")
	}
	return &Ledger{cfg: cfg}, nil
}

func (l *Ledger) Open(ctx context.Context) (string, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	if l.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(l.cfg.CredentialsFile))
	}
	opts = append(opts, l.cfg.ClientOptions...)

	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("sheets client: %w", err)
	}
	spreadsheet, err := service.Spreadsheets.Get(l.cfg.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	l.service = service
	l.mu.Unlock()

	if spreadsheet.Properties == nil {
		return l.cfg.SpreadsheetID, nil
	}
	return spreadsheet.Properties.Title, nil
}

func (l *Ledger) handle() (*gsheets.Service, string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.service == nil {
		return nil, "", errors.New("spreadsheet is not open")
	}
	return l.service, l.worksheet, nil
}

func (l *Ledger) EnsureWorksheet(ctx context.Context, title string) (bool, error) {
	service, _, err := l.handle()
	if err != nil {
		return false, err
	}
	spreadsheet, err := service.Spreadsheets.Get(l.cfg.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return false, err
	}

	created := true
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			created = false
			break
		}
	}
	if created {
		req := &gsheets.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheets.Request{{
				AddSheet: &gsheets.AddSheetRequest{
					Properties: &gsheets.SheetProperties{
						Title: title,
						GridProperties: &gsheets.GridProperties{
							RowCount:    defaultRows,
							ColumnCount: defaultColumns,
						},
					},
				},
			}},
		}
		if _, err := service.Spreadsheets.BatchUpdate(l.cfg.SpreadsheetID, req).Context(ctx).Do(); err != nil {
			return false, err
		}
	}

	l.mu.Lock()
	l.worksheet = title
	l.mu.Unlock()
	return created, nil
}

func (l *Ledger) WriteHeader(ctx context.Context, header []string) error {
	service, worksheet, err := l.handle()
	if err != nil {
		return err
	}
	values := &gsheets.ValueRange{Values: [][]interface{}{toCells(header)}}
	_, err = service.Spreadsheets.Values.Update(l.cfg.SpreadsheetID, a1(worksheet, "A1"), values).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	return err
}

func (l *Ledger) ReadKeyColumn(ctx context.Context) ([]string, error) {
	rows, err := l.read(ctx, "A:A")
	if err != nil {
		return nil, err
	}
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
	return l.read(ctx, "")
}

func (l *Ledger) read(ctx context.Context, cells string) ([][]string, error) {
	service, worksheet, err := l.handle()
	if err != nil {
		return nil, err
	}
	resp, err := service.Spreadsheets.Values.Get(l.cfg.SpreadsheetID, a1(worksheet, cells)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		values := make([]string, len(row))
		for i, cell := range row {
			values[i] = fmt.Sprint(cell)
		}
		out = append(out, values)
	}
	return out, nil
}

func (l *Ledger) AppendRow(ctx context.Context, row []string) error {
	service, worksheet, err := l.handle()
	if err != nil {
		return err
	}
	values := &gsheets.ValueRange{Values: [][]interface{}{toCells(row)}}
	_, err = service.Spreadsheets.Values.Append(l.cfg.SpreadsheetID, a1(worksheet, "A1"), values).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	return err
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.service = nil
	return nil
}

// a1 builds a range on the worksheet; an empty cells part selects the whole sheet.
func a1(worksheet, cells string) string {
	quoted := "'" + strings.ReplaceAll(worksheet, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
