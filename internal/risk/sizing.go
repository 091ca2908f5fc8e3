// Package risk resolves account equity, enforces the open-position cap and
// sizes orders from a fixed fractional stop.
package risk

import (
	"errors"
	"math"

	"tradegate/internal/config"
	"tradegate/internal/signal"

	"github.com/shopspring/decimal"
)

var (
	ErrEquityInvalid       = errors.New("equity invalid")
	ErrInvalidStopDistance = errors.New("invalid stop distance")
	ErrPositionTooSmall    = errors.New("position too small")
	ErrPositionTooLarge    = errors.New("position too large")
)

var (
	decOne                    = decimal.NewFromInt(1)
	decHundred                = decimal.NewFromInt(100)
	decMaxQty                 = decimal.NewFromInt(math.MaxInt64)
	defaultTakeProfitMultiple = decimal.NewFromInt(2)
)

// Sizing is the order proposal for one signal. Values carry full precision;
// rounding is left to whoever renders them.
type Sizing struct {
	Stop         decimal.Decimal
	TakeProfit   decimal.Decimal
	StopDistance decimal.Decimal
	RiskUSD      decimal.Decimal
	Qty          int64
}

// ComputeSizing places the stop stopPct away from the entry on the losing
// side, sets take-profit at TakeProfitMultiple stop distances on the winning
// side and sizes qty so a stop-out loses at most equity*riskPct/100.
//
// On ErrPositionTooSmall and ErrPositionTooLarge the returned Sizing still
// carries stop, take-profit, distance and risk amount so the rejection can be
// reported. Qty is zero in both cases.
func ComputeSizing(sig signal.Signal, equity decimal.Decimal, cfg config.RiskConfig) (Sizing, error) {
	price := sig.Price
	multiple := cfg.TakeProfitMultiple
	if !multiple.IsPositive() {
		multiple = defaultTakeProfitMultiple
	}

	var out Sizing
	switch sig.Side {
	case signal.SideBuy:
		out.Stop = price.Mul(decOne.Sub(cfg.StopPct))
		out.StopDistance = price.Sub(out.Stop)
		out.TakeProfit = price.Add(multiple.Mul(out.StopDistance))
	case signal.SideSell:
		out.Stop = price.Mul(decOne.Add(cfg.StopPct))
		out.StopDistance = out.Stop.Sub(price)
		out.TakeProfit = price.Sub(multiple.Mul(out.StopDistance))
	default:
		return Sizing{}, signal.ErrInvalidSide
	}
	out.RiskUSD = equity.Mul(cfg.RiskPct).Div(decHundred)

	if !out.StopDistance.IsPositive() {
		return out, ErrInvalidStopDistance
	}
	qty, ok := floorUnits(out.RiskUSD, out.StopDistance)
	if !ok {
		return out, ErrPositionTooLarge
	}
	out.Qty = qty
	if out.Qty <= 0 {
		out.Qty = 0
		return out, ErrPositionTooSmall
	}
	return out, nil
}

// floorUnits returns floor(budget/unit) exactly. Div rounds to
// DivisionPrecision digits first, which can push 49.999... up to 50.
// ok is false when the quotient does not fit in an int64.
func floorUnits(budget, unit decimal.Decimal) (qty int64, ok bool) {
	if !budget.IsPositive() || !unit.IsPositive() {
		return 0, true
	}
	q, _ := budget.QuoRem(unit, 0)
	if q.GreaterThan(decMaxQty) {
		return 0, false
	}
	return q.IntPart(), true
}
