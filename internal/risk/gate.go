package risk

import (
	"context"
	"errors"
	"time"

	"tradegate/internal/logger"
)

// OpenPositionReader exposes how many positions the ledger holds open.
type OpenPositionReader interface {
	OpenPositionCount(ctx context.Context) (int, error)
}

type GateDecision struct {
	Allowed   bool
	OpenCount int
	Max       int
	// Degraded is set when the count could not be read; Allowed then
	// follows the fail-open/fail-closed policy.
	Degraded bool
	// FailedClosed marks a rejection caused by an unreadable count rather
	// than by the cap.
	FailedClosed bool
	Err          error
}

type OpenPositionGate struct {
	reader     OpenPositionReader
	max        int
	failClosed bool
	timeout    time.Duration
}

func NewOpenPositionGate(reader OpenPositionReader, maxOpen int, failClosed bool, timeout time.Duration) *OpenPositionGate {
	return &OpenPositionGate{reader: reader, max: maxOpen, failClosed: failClosed, timeout: timeout}
}

// Check allows a new signal while openCount < max. When the read fails the
// gate counts zero open positions unless it was built fail-closed.
func (g *OpenPositionGate) Check(ctx context.Context) GateDecision {
	dec := GateDecision{Max: g.max}
	count, err := g.read(ctx)
	if err != nil {
		dec.Degraded = true
		dec.Err = err
		if g.failClosed {
			logger.Warnf("[risk] open position read failed, gate closed: %v", err)
			dec.FailedClosed = true
			return dec
		}
		logger.Warnf("[risk] open position read failed, assuming 0 open (fail-open): %v", err)
		count = 0
	}
	if count < 0 {
		count = 0
	}
	dec.OpenCount = count
	dec.Allowed = count < g.max
	return dec
}

func (g *OpenPositionGate) read(ctx context.Context) (int, error) {
	if g.reader == nil {
		return 0, errors.New("no open position reader configured")
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.reader.OpenPositionCount(ctx)
}
