package render

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"txledger/internal/application"
	"txledger/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const hash = domain.TransactionHash("3bb06f21d607e8c19b0638c6f9ecd3986c377d47116f737ab1964d324223bef9")

func sampleRecord() *domain.CanonicalRecord {
	return &domain.CanonicalRecord{
		Hash:            hash,
		Block:           "73012345",
		TimestampUTC:    "2025-06-16 09:00:00",
		FromAddress:     "TOwner",
		ToAddress:       "TRecipient",
		TokenSymbol:     "USDT",
		Amount:          "25.000000",
		ResultCode:      "SUCCESS",
		Confirmed:       true,
		Confirmations:   150,
		TotalCostNative: decimal.RequireFromString("13.3959"),
		TotalCostFiat:   decimal.RequireFromString("0.937713"),
	}
}

func TestRenderer_FailuresNameHashAndRemedy(t *testing.T) {
	renderer := NewRenderer(Config{BotName: "TronBot"})

	tests := []struct {
		name   string
		result application.Result
		remedy string
	}{
		{
			name:   "not found",
			result: application.Result{Kind: application.ResultNotFound, Hash: hash, Detail: "Transaction not found on TRON blockchain"},
			remedy: "verify the hash",
		},
		{
			name:   "upstream",
			result: application.Result{Kind: application.ResultUpstreamError, Hash: hash, Detail: "API error: 502"},
			remedy: "retry",
		},
		{
			name:   "store unavailable",
			result: application.Result{Kind: application.ResultStoreUnavailable, Hash: hash},
			remedy: "contact the operator",
		},
		{
			name:   "log failed",
			result: application.Result{Kind: application.ResultLogFailed, Hash: hash, Detail: "quota exceeded", Err: errors.New("quota exceeded")},
			remedy: "try again",
		},
		{
			name:   "duplicate",
			result: application.Result{Kind: application.ResultDuplicate, Hash: hash},
			remedy: "No new row",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := renderer.Text(tt.result)
			assert.Contains(t, text, hash.String())
			assert.Contains(t, text, tt.remedy)
			if tt.result.Detail != "" {
				assert.Contains(t, text, tt.result.Detail)
			}
		})
	}
}

func TestRenderer_Text(t *testing.T) {
	renderer := NewRenderer(Config{BotName: "TronBot", StoreURL: "https://docs.google.com/spreadsheets/d/abc"})

	tests := []struct {
		name     string
		result   application.Result
		contains []string
		excludes []string
	}{
		{name: "ignored", result: application.Result{Kind: application.ResultIgnored}},
		{
			name:     "usage",
			result:   application.Result{Kind: application.ResultUsageError, Command: application.CommandLog},
			contains: []string{"Invalid or missing transaction hash", `@TronBot !log "hash_id"`, "64 hexadecimal"},
		},
		{
			name:     "hint",
			result:   application.Result{Kind: application.ResultCommandHint, LedgerAvailable: false},
			contains: []string{"Command not recognized", `@TronBot !get "hash"`, "(disabled)"},
		},
		{
			name:     "help",
			result:   application.Result{Kind: application.ResultHelp, LedgerAvailable: true},
			contains: []string{"TronBot User Guide", "(enabled)", "Ledger: https://docs.google.com/spreadsheets/d/abc"},
		},
		{
			name: "logged",
			result: application.Result{
				Kind: application.ResultLogged, Hash: hash, Message: "Transaction successfully logged to Ledger", TotalCount: 12,
			},
			contains: []string{"Transaction Successfully Logged", "Total transactions logged: 12", "View ledger: https://docs.google.com/spreadsheets/d/abc"},
		},
		{
			name:     "logged without stats",
			result:   application.Result{Kind: application.ResultLogged, Hash: hash, TotalCount: -1},
			contains: []string{"Total transactions logged: N/A"},
		},
		{
			name:     "analysis",
			result:   application.Result{Kind: application.ResultAnalysis, Command: application.CommandGet, Hash: hash, Record: sampleRecord(), LedgerAvailable: true},
			contains: []string{"Amount: 25.000000 USDT", "Total Cost: 13.395900 TRX (0.9377 USD)", "Token: (native)", "Ready to log?"},
		},
		{
			name:     "analysis without ledger",
			result:   application.Result{Kind: application.ResultAnalysis, Command: application.CommandGet, Hash: hash, Record: sampleRecord()},
			contains: []string{"Status: CONFIRMED"},
			excludes: []string{"Ready to log?"},
		},
		{
			name:     "status",
			result:   application.Result{Kind: application.ResultAnalysis, Command: application.CommandStatus, Hash: hash, Record: sampleRecord()},
			contains: []string{"Transaction Status", "Confirmations: 150"},
			excludes: []string{"Total Cost"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := renderer.Text(tt.result)
			if len(tt.contains) == 0 {
				assert.Empty(t, text)
			}
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, text, unwanted)
			}
		})
	}
}

func TestDisplayRecord(t *testing.T) {
	var buf bytes.Buffer
	DisplayRecord(&buf, *sampleRecord())

	out := buf.String()
	assert.Contains(t, out, "Txn Hash")
	assert.Contains(t, out, hash.String())
	assert.Contains(t, out, "Total Cost USD")
	assert.Contains(t, out, "0.9377")
	assert.NotContains(t, out, "Logged By")
}

func TestDisplayImportSummary(t *testing.T) {
	var buf bytes.Buffer
	DisplayImportSummary(&buf, application.ImportSummary{
		Total: 3, Success: 1, Skipped: 1, Failed: 1,
		Errors:      []string{"ffffffffffffffff...: Transaction not found on TRON blockchain"},
		Elapsed:     1500 * time.Millisecond,
		Interrupted: true,
	})

	out := buf.String()
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "ffffffffffffffff...")
	assert.Contains(t, out, "interrupted")
}

func TestDisplayStats(t *testing.T) {
	var buf bytes.Buffer
	DisplayStats(&buf, domain.LedgerStats{TotalTransactions: 7, StoreTitle: "Ledger", WorksheetTitle: "Transactions"})
	assert.Contains(t, buf.String(), "Transactions")
	assert.Contains(t, buf.String(), "7")
}
