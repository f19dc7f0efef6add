package domain

import (
	"strconv"
	"time"
)

// TimeLayout is the UTC calendar format used for record and audit timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// LedgerColumns is the header row of the ledger. Order is part of the stored format.
var LedgerColumns = []string{
	"Txn Hash",
	"Block",
	"Time(UTC)",
	"From",
	"To",
	"Token",
	"Token Symbol",
	"Amount/TokenID",
	"Result",
	"Status",
	"Confirmations",
	"Total Cost TRX",
	"Total Cost USD",
	"Logged By",
	"Logged At(UTC)",
}

// LedgerRow is a canonical record plus the audit fields written with it.
type LedgerRow struct {
	Record   CanonicalRecord
	LoggedBy string
	LoggedAt time.Time
}

func NewLedgerRow(record CanonicalRecord, loggedBy string, loggedAt time.Time) LedgerRow {
	return LedgerRow{Record: record, LoggedBy: loggedBy, LoggedAt: loggedAt.UTC()}
}

func (r LedgerRow) Values() []string {
	rec := r.Record
	return []string{
		string(rec.Hash),
		rec.Block,
		rec.TimestampUTC,
		rec.FromAddress,
		rec.ToAddress,
		rec.TokenContractAddress,
		rec.TokenSymbol,
		rec.Amount,
		rec.ResultCode,
		rec.Status(),
		strconv.FormatInt(rec.Confirmations, 10),
		rec.CostNativeDisplay(),
		rec.CostFiatDisplay(),
		r.LoggedBy,
		r.LoggedAt.Format(TimeLayout),
	}
}

// LedgerStats summarizes the ledger contents.
type LedgerStats struct {
	TotalTransactions int    `json:"total_transactions"`
	StoreTitle        string `json:"store_title"`
	WorksheetTitle    string `json:"worksheet_title"`
	StoreURL          string `json:"store_url,omitempty"`
}
