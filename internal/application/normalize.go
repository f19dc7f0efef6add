package application

import (
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"txledger/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	defaultNativeSymbol   = "TRX"
	defaultTokenDecimals  = 6
	maxTokenDecimals      = 77
	feeUnitDecimals       = 6
	noTransferAmount      = "0.000000"
	defaultTransferAmount = "0"
)

// Normalizer maps raw upstream records to canonical records. It never fails:
// missing or malformed fields fall back to defaults.
type Normalizer struct {
	nativeSymbol string
}

func NewNormalizer(nativeSymbol string) *Normalizer {
	if strings.TrimSpace(nativeSymbol) == "" {
		nativeSymbol = defaultNativeSymbol
	}
	return &Normalizer{nativeSymbol: nativeSymbol}
}

func (n *Normalizer) Normalize(raw RawRecord, hash domain.TransactionHash, unitPriceUSD decimal.Decimal) domain.CanonicalRecord {
	if raw == nil {
		raw = RawRecord{}
	}
	record := domain.CanonicalRecord{
		Hash:      hash,
		Confirmed: true,
	}

	record.Block, _ = text(raw[fieldBlock])
	record.ResultCode, _ = text(raw[fieldResultCode])
	record.FromAddress, _ = text(raw[fieldOwnerAddress])
	record.TimestampUTC = formatTimestamp(raw[fieldTimestamp])

	if confirmed, ok := boolean(raw[fieldConfirmed]); ok {
		record.Confirmed = confirmed
	}
	if confirmations, ok := integer(raw[fieldConfirmations]); ok && confirmations > 0 {
		record.Confirmations = confirmations
	}

	transfers := objects(raw[fieldTRC20Transfer])
	if len(transfers) == 0 {
		transfers = objects(raw[fieldTokenTransfer])
	}
	if len(transfers) > 0 {
		transfer := transfers[0]
		record.ToAddress, _ = text(transfer["to_address"])
		record.TokenContractAddress, _ = text(transfer["contract_address"])
		record.TokenSymbol, _ = text(transfer["symbol"])
		record.Amount = transferAmount(transfer)
	} else {
		record.ToAddress, _ = text(raw[fieldToAddress])
		record.TokenSymbol = n.nativeSymbol
		record.Amount = noTransferAmount
	}

	record.TotalCostNative = totalCost(raw[fieldCost])
	record.TotalCostFiat = record.TotalCostNative.Mul(unitPriceUSD)
	return record
}

func formatTimestamp(msg json.RawMessage) string {
	millis, ok := integer(msg)
	if !ok || millis == 0 {
		return ""
	}
	return time.UnixMilli(millis).UTC().Format(domain.TimeLayout)
}

// transferAmount scales amount_str by 10^decimals. Anything that is not an
// integer amount with a usable decimals value is returned unscaled.
func transferAmount(transfer RawRecord) string {
	amount, ok := text(transfer["amount_str"])
	if !ok {
		amount = defaultTransferAmount
	}

	decimals := int64(defaultTokenDecimals)
	if rawDecimals, present := transfer["decimals"]; present && string(rawDecimals) != "null" {
		parsed, ok := integer(rawDecimals)
		if !ok || parsed < 0 || parsed > maxTokenDecimals {
			return amount
		}
		decimals = parsed
	}

	value, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok {
		return amount
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}

// totalCost is (fee + energy_fee) in the native coin; upstream reports both in
// millionths. A missing or malformed cost object yields zero.
func totalCost(msg json.RawMessage) decimal.Decimal {
	var cost RawRecord
	if err := json.Unmarshal(msg, &cost); err != nil || cost == nil {
		return decimal.Zero
	}
	fee, ok := number(cost["fee"])
	if !ok {
		return decimal.Zero
	}
	energyFee, ok := number(cost["energy_fee"])
	if !ok {
		return decimal.Zero
	}
	return fee.Add(energyFee).Shift(-feeUnitDecimals)
}
