package xrpl

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// dropsPerXRP converts the on-ledger integer representation to XRP.
var dropsPerXRP = decimal.New(1, 6)

// Amount is an XRPL currency amount. On the wire it is either a string of
// drops (native XRP) or an object {currency, issuer, value} for issued
// currencies.
type Amount struct {
	Currency string // hex or 3-char code; empty for XRP
	Issuer   string
	Value    decimal.Decimal
	Native   bool // true when the amount is XRP drops
}

// UnmarshalJSON accepts both wire encodings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var drops string
		if err := json.Unmarshal(data, &drops); err != nil {
			return fmt.Errorf("decode drops amount: %w", err)
		}
		v, err := decimal.NewFromString(drops)
		if err != nil {
			return fmt.Errorf("parse drops %q: %w", drops, err)
		}
		a.Native = true
		a.Currency = ""
		a.Issuer = ""
		a.Value = v.Div(dropsPerXRP)
		return nil
	}

	var obj struct {
		Currency string `json:"currency"`
		Issuer   string `json:"issuer"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode issued amount: %w", err)
	}
	v, err := decimal.NewFromString(obj.Value)
	if err != nil {
		return fmt.Errorf("parse issued value %q: %w", obj.Value, err)
	}
	a.Native = false
	a.Currency = obj.Currency
	a.Issuer = obj.Issuer
	a.Value = v
	return nil
}

// AccountTxRequest parameterizes one account_tx page request.
type AccountTxRequest struct {
	Account        string
	LedgerIndexMin int64 // -1 means earliest available history
	LedgerIndexMax int64
	Limit          int
	Marker         json.RawMessage // opaque; nil on the first page
}

// accountTxParams is the wire form of AccountTxRequest.
type accountTxParams struct {
	Account        string          `json:"account"`
	LedgerIndexMin int64           `json:"ledger_index_min"`
	LedgerIndexMax int64           `json:"ledger_index_max"`
	Limit          int             `json:"limit,omitempty"`
	Marker         json.RawMessage `json:"marker,omitempty"`
	Forward        bool            `json:"forward"`
}

// AccountTxPage is one page of account transaction history.
type AccountTxPage struct {
	Transactions []TransactionEntry `json:"transactions"`
	Marker       json.RawMessage    `json:"marker,omitempty"`
}

// TransactionEntry is a single history entry as returned by account_tx.
// TxJSON is retained verbatim for the output record's audit blob.
type TransactionEntry struct {
	Hash        string          `json:"hash"`
	LedgerIndex int64           `json:"ledger_index"`
	Validated   bool            `json:"validated"`
	TxJSON      json.RawMessage `json:"tx_json"`
}

// TxSummary is the subset of tx_json the scanner inspects. Date is seconds
// since the ripple epoch.
type TxSummary struct {
	TransactionType string `json:"TransactionType"`
	Account         string `json:"Account"`
	Destination     string `json:"Destination"`
	Date            int64  `json:"date"`
}

// Summary parses the inspected subset of tx_json.
func (e *TransactionEntry) Summary() (*TxSummary, error) {
	if len(e.TxJSON) == 0 {
		return nil, fmt.Errorf("transaction %s: empty tx_json", e.Hash)
	}
	var s TxSummary
	if err := json.Unmarshal(e.TxJSON, &s); err != nil {
		return nil, fmt.Errorf("transaction %s: decode tx_json: %w", e.Hash, err)
	}
	if s.TransactionType == "" {
		return nil, fmt.Errorf("transaction %s: missing TransactionType", e.Hash)
	}
	return &s, nil
}

// AccountLine is one trust line from account_lines. Balance is kept as a
// string; issued-currency precision is the caller's concern.
type AccountLine struct {
	Account  string `json:"account"`
	Currency string `json:"currency"` // hex-encoded for non-standard codes
	Balance  string `json:"balance"`
}

// AMMInfo describes an AMM account's asset pair and reserves.
type AMMInfo struct {
	Account string
	Amount  Amount
	Amount2 Amount
}

// accountTxResult is the rippled result payload for account_tx.
type accountTxResult struct {
	Account      string             `json:"account"`
	Transactions []TransactionEntry `json:"transactions"`
	Marker       json.RawMessage    `json:"marker"`
}

// ledgerResult is the rippled result payload for ledger.
type ledgerResult struct {
	LedgerIndex int64 `json:"ledger_index"`
	Ledger      struct {
		CloseTime int64 `json:"close_time"`
	} `json:"ledger"`
}

// accountLinesResult is the rippled result payload for account_lines.
type accountLinesResult struct {
	Lines []AccountLine `json:"lines"`
}

// accountInfoResult is the rippled result payload for account_info.
type accountInfoResult struct {
	AccountData struct {
		Balance string `json:"Balance"` // drops
	} `json:"account_data"`
}

// ammInfoResult is the rippled result payload for amm_info.
type ammInfoResult struct {
	AMM struct {
		Account string `json:"account"`
		Amount  Amount `json:"amount"`
		Amount2 Amount `json:"amount2"`
	} `json:"amm"`
}
