package application

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Upstream field names.
const (
	fieldResultCode    = "contractRet"
	fieldContractMap   = "contract_map"
	fieldContractInfo  = "contractInfo"
	fieldBlock         = "block"
	fieldTimestamp     = "timestamp"
	fieldOwnerAddress  = "ownerAddress"
	fieldToAddress     = "toAddress"
	fieldConfirmed     = "confirmed"
	fieldConfirmations = "confirmations"
	fieldCost          = "cost"
	fieldTRC20Transfer = "trc20TransferInfo"
	fieldTokenTransfer = "tokenTransferInfo"
)

// RawRecord is the undecoded upstream transaction object. Fields are decoded
// lazily by the normalizer so shape variations never fail the whole record.
type RawRecord map[string]json.RawMessage

func DecodeRawRecord(payload []byte) (RawRecord, error) {
	var record RawRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, err
	}
	if record == nil {
		record = RawRecord{}
	}
	return record, nil
}

// Found reports whether any presence field (result code, contract map or contract info) is set.
func (r RawRecord) Found() bool {
	return truthy(r[fieldResultCode]) || truthy(r[fieldContractMap]) || truthy(r[fieldContractInfo])
}

func decodeAny(msg json.RawMessage) (any, bool) {
	if len(bytes.TrimSpace(msg)) == 0 {
		return nil, false
	}
	decoder := json.NewDecoder(bytes.NewReader(msg))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

func truthy(msg json.RawMessage) bool {
	value, ok := decodeAny(msg)
	if !ok {
		return false
	}
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return err == nil && !d.IsZero()
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	default:
		return false
	}
}

// text renders strings verbatim and numbers by their literal digits.
func text(msg json.RawMessage) (string, bool) {
	value, ok := decodeAny(msg)
	if !ok {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func integer(msg json.RawMessage) (int64, bool) {
	value, ok := decodeAny(msg)
	if !ok {
		return 0, false
	}
	var literal string
	switch v := value.(type) {
	case json.Number:
		literal = v.String()
	case string:
		literal = strings.TrimSpace(v)
	default:
		return 0, false
	}
	if n, err := strconv.ParseInt(literal, 10, 64); err == nil {
		return n, true
	}
	d, err := decimal.NewFromString(literal)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	return d.IntPart(), true
}

func boolean(msg json.RawMessage) (bool, bool) {
	value, ok := decodeAny(msg)
	if !ok {
		return false, false
	}
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return parsed, err == nil
	default:
		return false, false
	}
}

// number accepts only JSON numbers; absent or null is zero.
func number(msg json.RawMessage) (decimal.Decimal, bool) {
	value, ok := decodeAny(msg)
	if !ok || value == nil {
		return decimal.Zero, true
	}
	n, isNumber := value.(json.Number)
	if !isNumber {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// objects decodes a single object or a list of objects, dropping empty or non-object entries.
func objects(msg json.RawMessage) []RawRecord {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 {
		return nil
	}
	var items []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
	case '{':
		items = []json.RawMessage{trimmed}
	default:
		return nil
	}
	out := make([]RawRecord, 0, len(items))
	for _, item := range items {
		var object RawRecord
		if err := json.Unmarshal(item, &object); err != nil || len(object) == 0 {
			continue
		}
		out = append(out, object)
	}
	return out
}
