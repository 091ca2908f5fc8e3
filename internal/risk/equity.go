package risk

import (
	"context"
	"errors"
	"time"

	"tradegate/internal/logger"

	"github.com/shopspring/decimal"
)

// PnLReader exposes the ledger's cumulative realized profit/loss.
type PnLReader interface {
	CumulativePnL(ctx context.Context) (decimal.Decimal, error)
}

// EquitySnapshot is recomputed on every request; PnL moves between requests.
type EquitySnapshot struct {
	BaseCapital decimal.Decimal
	TotalPnL    decimal.Decimal
	Equity      decimal.Decimal
	// Degraded is set when the PnL read failed and TotalPnL fell back to 0.
	Degraded bool
	Err      error
}

// Valid reports whether the snapshot can fund a risk budget.
func (s EquitySnapshot) Valid() bool {
	return s.Equity.IsPositive()
}

type EquityResolver struct {
	reader      PnLReader
	baseCapital decimal.Decimal
	timeout     time.Duration
}

func NewEquityResolver(reader PnLReader, baseCapital decimal.Decimal, timeout time.Duration) *EquityResolver {
	return &EquityResolver{reader: reader, baseCapital: baseCapital, timeout: timeout}
}

// Resolve never fails: a PnL read error degrades equity to base capital.
// Callers must still check Valid before sizing.
func (r *EquityResolver) Resolve(ctx context.Context) EquitySnapshot {
	snap := EquitySnapshot{BaseCapital: r.baseCapital, TotalPnL: decimal.Zero}
	pnl, err := r.read(ctx)
	if err != nil {
		snap.Degraded = true
		snap.Err = err
		logger.Warnf("[risk] pnl read failed, equity falls back to base capital %s: %v", r.baseCapital, err)
	} else {
		snap.TotalPnL = pnl
	}
	snap.Equity = snap.BaseCapital.Add(snap.TotalPnL)
	return snap
}

func (r *EquityResolver) read(ctx context.Context) (decimal.Decimal, error) {
	if r.reader == nil {
		return decimal.Zero, errors.New("no pnl reader configured")
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.reader.CumulativePnL(ctx)
}
