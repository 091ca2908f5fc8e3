// Package ledger talks to the trade ledger that owns cumulative PnL, the
// open-position count and the append-only trade log.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformed marks a ledger response that could not be interpreted.
var ErrMalformed = errors.New("malformed ledger response")

// Ledger is the full collaborator surface consumed by the webhook.
type Ledger interface {
	CumulativePnL(ctx context.Context) (decimal.Decimal, error)
	OpenPositionCount(ctx context.Context) (int, error)
	AppendTrade(ctx context.Context, rec TradeRecord) error
}

// TradeRecord is one accepted, sized signal as appended to the ledger.
// Field names follow the ledger sheet columns.
type TradeRecord struct {
	ID           string
	Env          string
	Symbol       string
	Side         string
	EntryPrice   decimal.Decimal
	StopPrice    decimal.Decimal
	TakeProfit   decimal.Decimal
	Qty          int64
	RiskUSD      decimal.Decimal
	StopDistance decimal.Decimal
	Equity       decimal.Decimal
	Notes        string
	CreatedAt    time.Time
}

type tradeRecordWire struct {
	ID           string      `json:"id"`
	Env          string      `json:"env"`
	Symbol       string      `json:"symbol"`
	Side         string      `json:"side"`
	EntryPrice   json.Number `json:"entry_price"`
	StopPrice    json.Number `json:"stop_price"`
	TakeProfit   json.Number `json:"take_profit"`
	Qty          int64       `json:"qty"`
	RiskUSD      json.Number `json:"risk_usd"`
	StopDistance json.Number `json:"stop_distance"`
	Equity       json.Number `json:"equity"`
	Notes        string      `json:"notes"`
	CreatedAt    string      `json:"created_at"`
}

// MarshalJSON writes decimals as bare JSON numbers at full precision.
func (r TradeRecord) MarshalJSON() ([]byte, error) {
	created := ""
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(tradeRecordWire{
		ID:           r.ID,
		Env:          r.Env,
		Symbol:       r.Symbol,
		Side:         r.Side,
		EntryPrice:   json.Number(r.EntryPrice.String()),
		StopPrice:    json.Number(r.StopPrice.String()),
		TakeProfit:   json.Number(r.TakeProfit.String()),
		Qty:          r.Qty,
		RiskUSD:      json.Number(r.RiskUSD.String()),
		StopDistance: json.Number(r.StopDistance.String()),
		Equity:       json.Number(r.Equity.String()),
		Notes:        r.Notes,
		CreatedAt:    created,
	})
}
