package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRowValues(t *testing.T) {
	record := CanonicalRecord{
		Hash:                 TransactionHash(sampleHash),
		Block:                "73012345",
		TimestampUTC:         "2025-06-16 10:00:00",
		FromAddress:          "TFrom",
		ToAddress:            "TTo",
		TokenContractAddress: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		TokenSymbol:          "USDT",
		Amount:               "12.500000",
		ResultCode:           "SUCCESS",
		Confirmed:            false,
		Confirmations:        1234,
		TotalCostNative:      decimal.RequireFromString("13.3959"),
		TotalCostFiat:        decimal.RequireFromString("0.937713"),
	}
	loggedAt := time.Date(2025, 6, 16, 12, 30, 5, 0, time.FixedZone("UTC+2", 2*3600))

	values := NewLedgerRow(record, "U123", loggedAt).Values()

	require.Len(t, values, len(LedgerColumns))
	assert.Equal(t, []string{
		sampleHash,
		"73012345",
		"2025-06-16 10:00:00",
		"TFrom",
		"TTo",
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		"USDT",
		"12.500000",
		"SUCCESS",
		StatusPending,
		"1234",
		"13.395900",
		"0.9377",
		"U123",
		"2025-06-16 10:30:05",
	}, values)
}

func TestLedgerColumnsOrder(t *testing.T) {
	require.Len(t, LedgerColumns, 15)
	assert.Equal(t, "Txn Hash", LedgerColumns[0])
	assert.Equal(t, "Logged At(UTC)", LedgerColumns[14])
}
