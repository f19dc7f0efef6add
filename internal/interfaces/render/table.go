package render

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"txledger/internal/application"
	"txledger/internal/domain"

	"github.com/jedib0t/go-pretty/v6/table"
)

// DisplayRecord prints one canonical record as a two-column table in ledger column order.
func DisplayRecord(w io.Writer, record domain.CanonicalRecord) {
	values := domain.NewLedgerRow(record, "", time.Time{}).Values()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	// The audit columns are not known until the row is written.
	for i, column := range domain.LedgerColumns[:len(domain.LedgerColumns)-2] {
		t.AppendRow(table.Row{column, values[i]})
	}
	t.Render()
}

func DisplayStats(w io.Writer, stats domain.LedgerStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Ledger", "Worksheet", "Total Transactions", "URL"})
	t.AppendRow(table.Row{stats.StoreTitle, stats.WorksheetTitle, stats.TotalTransactions, stats.StoreURL})
	t.Render()
}

func DisplayImportSummary(w io.Writer, summary application.ImportSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Total", "Logged", "Skipped", "Failed", "Elapsed"})
	t.AppendRow(table.Row{summary.Total, summary.Success, summary.Skipped, summary.Failed, summary.Elapsed.Round(time.Millisecond).String()})
	t.Render()
	if summary.Interrupted {
		fmt.Fprintln(w, "Import interrupted before all hashes were submitted.")
	}

	if len(summary.Errors) == 0 {
		return
	}
	errs := table.NewWriter()
	errs.SetOutputMirror(w)
	errs.AppendHeader(table.Row{"#", "Error"})
	for i, message := range summary.Errors {
		errs.AppendRow(table.Row{strconv.Itoa(i + 1), message})
	}
	errs.Render()
}
