package application

import "txledger/internal/domain"

type ResultKind string

const (
	ResultIgnored          ResultKind = "ignored"
	ResultCommandHint      ResultKind = "command_hint"
	ResultHelp             ResultKind = "help"
	ResultUsageError       ResultKind = "usage_error"
	ResultNotFound         ResultKind = "not_found"
	ResultUpstreamError    ResultKind = "upstream_error"
	ResultStoreUnavailable ResultKind = "store_unavailable"
	ResultDuplicate        ResultKind = "duplicate"
	ResultLogged           ResultKind = "logged"
	ResultLogFailed        ResultKind = "log_failed"
	ResultAnalysis         ResultKind = "analysis"
)

// Result is what a trigger produces for the presentation layer. Which fields
// are set depends on Kind.
type Result struct {
	Kind    ResultKind              `json:"kind"`
	Command Command                 `json:"-"`
	Hash    domain.TransactionHash  `json:"hash,omitempty"`
	Record  *domain.CanonicalRecord `json:"record,omitempty"`
	Message string                  `json:"message,omitempty"`
	Detail  string                  `json:"detail,omitempty"`
	// TotalCount is the ledger size after a successful log, -1 when unknown.
	TotalCount      int                 `json:"total_count,omitempty"`
	Stats           *domain.LedgerStats `json:"stats,omitempty"`
	LedgerAvailable bool                `json:"ledger_available"`
	Err             error               `json:"-"`
}

func (r Result) CommandName() string {
	return r.Command.String()
}

// Failed reports kinds that represent an error for the caller. Duplicates are expected outcomes.
func (r Result) Failed() bool {
	switch r.Kind {
	case ResultUsageError, ResultNotFound, ResultUpstreamError, ResultStoreUnavailable, ResultLogFailed:
		return true
	default:
		return false
	}
}
