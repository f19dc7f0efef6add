package domain

import "github.com/shopspring/decimal"

const (
	StatusConfirmed = "CONFIRMED"
	StatusPending   = "PENDING"
)

// CanonicalRecord is the normalized transaction record. Every field is populated.
type CanonicalRecord struct {
	Hash                 TransactionHash `json:"hash"`
	Block                string          `json:"block"`
	TimestampUTC         string          `json:"timestamp_utc"`
	FromAddress          string          `json:"from_address"`
	ToAddress            string          `json:"to_address"`
	TokenContractAddress string          `json:"token_contract_address"`
	TokenSymbol          string          `json:"token_symbol"`
	Amount               string          `json:"amount"`
	ResultCode           string          `json:"result_code"`
	Confirmed            bool            `json:"confirmed"`
	Confirmations        int64           `json:"confirmations"`
	TotalCostNative      decimal.Decimal `json:"total_cost_native"`
	TotalCostFiat        decimal.Decimal `json:"total_cost_fiat"`
}

func (r CanonicalRecord) Status() string {
	if r.Confirmed {
		return StatusConfirmed
	}
	return StatusPending
}

// CostNativeDisplay and CostFiatDisplay are the fixed-precision forms written to the ledger.
func (r CanonicalRecord) CostNativeDisplay() string {
	return r.TotalCostNative.StringFixed(6)
}

func (r CanonicalRecord) CostFiatDisplay() string {
	return r.TotalCostFiat.StringFixed(4)
}
