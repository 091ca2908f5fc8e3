// Package dispatch fans an accepted, sized signal out to the notify and
// log sinks. Delivery is best-effort: failures are recorded in the Outcome
// and never change the accept decision.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"tradegate/internal/gateway/ledger"
	"tradegate/internal/gateway/notifier"
	"tradegate/internal/logger"
	"tradegate/internal/metrics"
	"tradegate/internal/risk"
	"tradegate/internal/signal"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	SinkNotify = "notify"
	SinkLog    = "log"
)

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

type Delivery struct {
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Outcome is reported to the caller for logging and tests; it is not part of
// the HTTP response.
type Outcome struct {
	Notify Delivery
	Log    Delivery
}

// TradeAppender is the write half of the ledger.
type TradeAppender interface {
	AppendTrade(ctx context.Context, rec ledger.TradeRecord) error
}

// Accepted carries everything the sinks need about one accepted signal.
type Accepted struct {
	TradeID  string
	Signal   signal.Signal
	Equity   decimal.Decimal
	Sizing   risk.Sizing
	Received time.Time
}

type Options struct {
	Env           string
	NotifyTimeout time.Duration
	LogTimeout    time.Duration
	DisplayPlaces int32
}

type Dispatcher struct {
	notifier notifier.TextNotifier
	appender TradeAppender
	opts     Options
}

// NewDispatcher accepts nil sinks; a nil sink is reported as skipped.
func NewDispatcher(n notifier.TextNotifier, a TradeAppender, opts Options) *Dispatcher {
	if opts.Env == "" {
		opts.Env = "staging"
	}
	return &Dispatcher{notifier: n, appender: a, opts: opts}
}

// Dispatch runs both sinks concurrently and waits for both. Each sink gets
// its own timeout; neither can cancel the other, and a caller that goes away
// after acceptance does not abort delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, acc Accepted) Outcome {
	ctx = context.WithoutCancel(ctx)
	if acc.TradeID == "" {
		acc.TradeID = uuid.NewString()
	}
	if acc.Received.IsZero() {
		acc.Received = time.Now()
	}

	var out Outcome
	var eg errgroup.Group
	eg.Go(func() error {
		out.Notify = d.deliver(ctx, SinkNotify, d.opts.NotifyTimeout, d.notifier != nil, func(c context.Context) error {
			return d.notifier.SendText(c, RenderAlert(acc, d.opts.Env, d.opts.DisplayPlaces))
		})
		return nil
	})
	eg.Go(func() error {
		out.Log = d.deliver(ctx, SinkLog, d.opts.LogTimeout, d.appender != nil, func(c context.Context) error {
			return d.appender.AppendTrade(c, BuildRecord(acc, d.opts.Env))
		})
		return nil
	})
	_ = eg.Wait()
	return out
}

func (d *Dispatcher) deliver(parent context.Context, sink string, timeout time.Duration, enabled bool, send func(context.Context) error) (res Delivery) {
	if !enabled {
		metrics.RecordSinkDelivery(sink, string(StatusSkipped))
		return Delivery{Status: StatusSkipped}
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[dispatch] %s sink panic: %v", sink, r)
			res = Delivery{Status: StatusFailed, Err: fmt.Errorf("panic: %v", r)}
		}
		res.Elapsed = time.Since(start)
		metrics.RecordSinkDelivery(sink, string(res.Status))
	}()

	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}
	if err := send(ctx); err != nil {
		logger.Warnf("[dispatch] %s sink failed: %v", sink, err)
		return Delivery{Status: StatusFailed, Err: err}
	}
	logger.Debugf("[dispatch] %s sink delivered", sink)
	return Delivery{Status: StatusDelivered}
}

// BuildRecord maps an accepted signal onto the ledger row.
func BuildRecord(acc Accepted, env string) ledger.TradeRecord {
	return ledger.TradeRecord{
		ID:           acc.TradeID,
		Env:          env,
		Symbol:       acc.Signal.Symbol,
		Side:         acc.Signal.Side.String(),
		EntryPrice:   acc.Signal.Price,
		StopPrice:    acc.Sizing.Stop,
		TakeProfit:   acc.Sizing.TakeProfit,
		Qty:          acc.Sizing.Qty,
		RiskUSD:      acc.Sizing.RiskUSD,
		StopDistance: acc.Sizing.StopDistance,
		Equity:       acc.Equity,
		CreatedAt:    acc.Received,
	}
}
