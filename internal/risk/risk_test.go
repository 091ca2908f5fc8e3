package risk

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"tradegate/internal/config"
	"tradegate/internal/signal"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func baseRisk() config.RiskConfig {
	return config.RiskConfig{
		BaseCapital:        dec("5000"),
		RiskPct:            dec("1"),
		StopPct:            dec("0.01"),
		MaxOpenPositions:   2,
		TakeProfitMultiple: dec("2"),
		DisplayPlaces:      2,
	}
}

func TestComputeSizing_Scenarios(t *testing.T) {
	cases := []struct {
		name     string
		side     signal.Side
		wantStop string
		wantTP   string
	}{
		{name: "buy", side: signal.SideBuy, wantStop: "99", wantTP: "102"},
		{name: "sell", side: signal.SideSell, wantStop: "101", wantTP: "98"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sig := signal.Signal{Symbol: "BTCUSDT", Side: tc.side, Price: dec("100")}
			out, err := ComputeSizing(sig, dec("5000"), baseRisk())
			require.NoError(t, err)
			assert.Equal(t, tc.wantStop, out.Stop.String())
			assert.Equal(t, tc.wantTP, out.TakeProfit.String())
			assert.Equal(t, "1", out.StopDistance.String())
			assert.Equal(t, "50", out.RiskUSD.String())
			assert.Equal(t, int64(50), out.Qty)
		})
	}
}

func TestComputeSizing_SideConventions(t *testing.T) {
	cfg := baseRisk()
	cfg.StopPct = dec("0.0375")
	cfg.RiskPct = dec("0.75")
	equity := dec("12345.67")

	for _, price := range []string{"0.00042", "1", "17.3", "64250.5", "99999.99"} {
		p := dec(price)
		t.Run("buy "+price, func(t *testing.T) {
			out, err := ComputeSizing(signal.Signal{Symbol: "X", Side: signal.SideBuy, Price: p}, equity, cfg)
			if errors.Is(err, ErrPositionTooSmall) {
				return
			}
			require.NoError(t, err)
			assert.True(t, out.Stop.Equal(p.Mul(decOne.Sub(cfg.StopPct))))
			assert.True(t, out.StopDistance.Equal(p.Sub(out.Stop)))
			assert.True(t, out.TakeProfit.Equal(p.Add(dec("2").Mul(out.StopDistance))))
			assert.True(t, out.Stop.LessThan(p))
			assert.True(t, out.TakeProfit.GreaterThan(p))
		})
		t.Run("sell "+price, func(t *testing.T) {
			out, err := ComputeSizing(signal.Signal{Symbol: "X", Side: signal.SideSell, Price: p}, equity, cfg)
			if errors.Is(err, ErrPositionTooSmall) {
				return
			}
			require.NoError(t, err)
			assert.True(t, out.Stop.Equal(p.Mul(decOne.Add(cfg.StopPct))))
			assert.True(t, out.StopDistance.Equal(out.Stop.Sub(p)))
			assert.True(t, out.TakeProfit.Equal(p.Sub(dec("2").Mul(out.StopDistance))))
			assert.True(t, out.Stop.GreaterThan(p))
			assert.True(t, out.TakeProfit.LessThan(p))
		})
	}
}

func TestComputeSizing_FloorBounds(t *testing.T) {
	cfg := baseRisk()
	cfg.StopPct = dec("0.013")
	for _, eq := range []string{"5000", "4999.99", "731.2", "1000000", "333.33"} {
		for _, price := range []string{"3", "7.77", "123.456", "100"} {
			out, err := ComputeSizing(signal.Signal{Symbol: "X", Side: signal.SideBuy, Price: dec(price)}, dec(eq), cfg)
			if errors.Is(err, ErrPositionTooSmall) {
				assert.True(t, out.RiskUSD.LessThan(out.StopDistance))
				continue
			}
			require.NoError(t, err)
			q := decimal.NewFromInt(out.Qty)
			assert.True(t, q.Mul(out.StopDistance).LessThanOrEqual(out.RiskUSD), "eq=%s price=%s", eq, price)
			assert.True(t, q.Add(decOne).Mul(out.StopDistance).GreaterThan(out.RiskUSD), "eq=%s price=%s", eq, price)
		}
	}
}

func TestComputeSizing_RepeatingDistance(t *testing.T) {
	// repeating-decimal stop distance just under 1/3
	cfg := baseRisk()
	cfg.StopPct = dec("0.0033333333333333333")
	out, err := ComputeSizing(signal.Signal{Symbol: "X", Side: signal.SideBuy, Price: dec("100")}, dec("5000"), cfg)
	require.NoError(t, err)
	q := decimal.NewFromInt(out.Qty)
	assert.True(t, q.Mul(out.StopDistance).LessThanOrEqual(out.RiskUSD))
	assert.Equal(t, int64(150), out.Qty)
}

func TestComputeSizing_Guards(t *testing.T) {
	t.Run("zero stop pct", func(t *testing.T) {
		cfg := baseRisk()
		cfg.StopPct = decimal.Zero
		_, err := ComputeSizing(signal.Signal{Symbol: "X", Side: signal.SideBuy, Price: dec("100")}, dec("5000"), cfg)
		assert.ErrorIs(t, err, ErrInvalidStopDistance)
	})

	t.Run("negative stop pct", func(t *testing.T) {
		cfg := baseRisk()
		cfg.StopPct = dec("-0.01")
		_, err := ComputeSizing(signal.Signal{Symbol: "X", Side: signal.SideSell, Price: dec("100")}, dec("5000"), cfg)
		assert.ErrorIs(t, err, ErrInvalidStopDistance)
	})

	t.Run("position too small keeps context", func(t *testing.T) {
		out, err := ComputeSizing(signal.Signal{Symbol: "BTC", Side: signal.SideBuy, Price: dec("65000")}, dec("5000"), baseRisk())
		assert.ErrorIs(t, err, ErrPositionTooSmall)
		assert.Equal(t, int64(0), out.Qty)
		assert.Equal(t, "50", out.RiskUSD.String())
		assert.Equal(t, "650", out.StopDistance.String())
	})

	t.Run("unknown side", func(t *testing.T) {
		_, err := ComputeSizing(signal.Signal{Symbol: "X", Side: "HOLD", Price: dec("1")}, dec("1"), baseRisk())
		assert.ErrorIs(t, err, signal.ErrInvalidSide)
	})

	t.Run("missing multiple defaults to two", func(t *testing.T) {
		cfg := baseRisk()
		cfg.TakeProfitMultiple = decimal.Zero
		out, err := ComputeSizing(signal.Signal{Symbol: "X", Side: signal.SideBuy, Price: dec("100")}, dec("5000"), cfg)
		require.NoError(t, err)
		assert.Equal(t, "102", out.TakeProfit.String())
	})
}

func TestComputeSizing_Idempotent(t *testing.T) {
	sig := signal.Signal{Symbol: "ETH", Side: signal.SideSell, Price: dec("2412.37")}
	first, err1 := ComputeSizing(sig, dec("8123.4"), baseRisk())
	second, err2 := ComputeSizing(sig, dec("8123.4"), baseRisk())
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) CumulativePnL(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockLedger) OpenPositionCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestEquityResolver(t *testing.T) {
	t.Run("adds pnl", func(t *testing.T) {
		l := new(mockLedger)
		l.On("CumulativePnL", mock.Anything).Return(dec("-1250.5"), nil)
		snap := NewEquityResolver(l, dec("5000"), time.Second).Resolve(context.Background())
		assert.Equal(t, "3749.5", snap.Equity.String())
		assert.False(t, snap.Degraded)
		assert.True(t, snap.Valid())
		l.AssertExpectations(t)
	})

	t.Run("read failure degrades to base capital", func(t *testing.T) {
		l := new(mockLedger)
		l.On("CumulativePnL", mock.Anything).Return(decimal.Zero, errors.New("timeout"))
		snap := NewEquityResolver(l, dec("5000"), time.Second).Resolve(context.Background())
		assert.True(t, snap.Equity.Equal(dec("5000")))
		assert.True(t, snap.TotalPnL.IsZero())
		assert.True(t, snap.Degraded)
		assert.Error(t, snap.Err)
	})

	t.Run("losses beyond capital are invalid", func(t *testing.T) {
		l := new(mockLedger)
		l.On("CumulativePnL", mock.Anything).Return(dec("-5000"), nil)
		snap := NewEquityResolver(l, dec("5000"), 0).Resolve(context.Background())
		assert.False(t, snap.Valid())
	})

	t.Run("nil reader", func(t *testing.T) {
		snap := NewEquityResolver(nil, dec("10"), 0).Resolve(context.Background())
		assert.True(t, snap.Degraded)
		assert.Equal(t, "10", snap.Equity.String())
	})

	t.Run("deadline applied", func(t *testing.T) {
		l := new(mockLedger)
		l.On("CumulativePnL", mock.Anything).Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok)
		}).Return(decimal.Zero, nil)
		NewEquityResolver(l, dec("1"), 50*time.Millisecond).Resolve(context.Background())
		l.AssertExpectations(t)
	})
}

func TestOpenPositionGate(t *testing.T) {
	cases := []struct {
		name        string
		count       int
		err         error
		failClosed  bool
		max         int
		wantAllowed bool
		wantCount   int
		wantDegrade bool
	}{
		{name: "below cap", count: 1, max: 2, wantAllowed: true, wantCount: 1},
		{name: "at cap", count: 2, max: 2, wantAllowed: false, wantCount: 2},
		{name: "above cap", count: 5, max: 2, wantAllowed: false, wantCount: 5},
		{name: "zero cap rejects all", count: 0, max: 0, wantAllowed: false},
		{name: "read failure fails open", err: errors.New("503"), max: 2, wantAllowed: true, wantDegrade: true},
		{name: "read failure fails closed", err: errors.New("503"), max: 2, failClosed: true, wantAllowed: false, wantDegrade: true},
		{name: "negative count clamps", count: -3, max: 1, wantAllowed: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := new(mockLedger)
			l.On("OpenPositionCount", mock.Anything).Return(tc.count, tc.err)
			got := NewOpenPositionGate(l, tc.max, tc.failClosed, time.Second).Check(context.Background())
			assert.Equal(t, tc.wantAllowed, got.Allowed)
			assert.Equal(t, tc.wantCount, got.OpenCount)
			assert.Equal(t, tc.wantDegrade, got.Degraded)
			assert.Equal(t, tc.max, got.Max)
			assert.Equal(t, tc.failClosed && tc.err != nil, got.FailedClosed)
		})
	}
}

func TestFloorUnits_DoesNotRoundUp(t *testing.T) {
	cases := []struct {
		budget, unit string
		want         int64
	}{
		// Div would round this quotient to 3 at DivisionPrecision.
		{"2.99999999999999999", "1", 2},
		{"3", "1", 3},
		{"0.5", "1", 0},
		{"5", "0", 0},
		{"9223372036854775807", "1", math.MaxInt64},
	}
	for _, tc := range cases {
		got, ok := floorUnits(dec(tc.budget), dec(tc.unit))
		assert.True(t, ok, "%s/%s", tc.budget, tc.unit)
		assert.Equal(t, tc.want, got, "%s/%s", tc.budget, tc.unit)
	}

	_, ok := floorUnits(dec("9223372036854775808"), dec("1"))
	assert.False(t, ok)
}

func TestComputeSizing_QtyBeyondInt64(t *testing.T) {
	for _, price := range []string{"1e-20", "3e-24"} {
		out, err := ComputeSizing(signal.Signal{Symbol: "DUST", Side: signal.SideBuy, Price: dec(price)}, dec("5000"), baseRisk())
		assert.ErrorIs(t, err, ErrPositionTooLarge, "price=%s", price)
		assert.Equal(t, int64(0), out.Qty)
		assert.Equal(t, "50", out.RiskUSD.String())
		assert.True(t, out.StopDistance.IsPositive())
	}

	// largest quotient that still fits is accepted exactly
	out, err := ComputeSizing(signal.Signal{Symbol: "DUST", Side: signal.SideBuy, Price: dec("1e-15")}, dec("5000"), baseRisk())
	require.NoError(t, err)
	assert.Equal(t, int64(5_000_000_000_000_000_000), out.Qty)
}
