package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Memory is a process-local ledger for paper runs: every appended trade
// stays open and realized PnL only moves through SetPnL.
type Memory struct {
	mu      sync.Mutex
	records []TradeRecord
	pnl     decimal.Decimal
}

func NewMemory() *Memory {
	return &Memory{records: make([]TradeRecord, 0, 16)}
}

func (m *Memory) CumulativePnL(context.Context) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pnl, nil
}

func (m *Memory) OpenPositionCount(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *Memory) AppendTrade(_ context.Context, rec TradeRecord) error {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetPnL(pnl decimal.Decimal) {
	m.mu.Lock()
	m.pnl = pnl
	m.mu.Unlock()
}

// Records returns a copy of the appended trades.
func (m *Memory) Records() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.records))
	copy(out, m.records)
	return out
}
