// Package pipeline runs one webhook body through normalization, equity,
// the open-position gate, sizing and dispatch, and shapes the response.
package pipeline

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tradegate/internal/config"
	"tradegate/internal/dispatch"
	"tradegate/internal/logger"
	"tradegate/internal/metrics"
	"tradegate/internal/risk"
	"tradegate/internal/signal"

	"github.com/google/uuid"
)

// Dispatcher delivers an accepted signal to the sinks.
type Dispatcher interface {
	Dispatch(ctx context.Context, acc dispatch.Accepted) dispatch.Outcome
}

// Pipeline 负责按顺序调度信号处理步骤，任一步骤可提前给出响应。
type Pipeline struct {
	name       string
	secret     []byte
	riskCfg    config.RiskConfig
	equity     *risk.EquityResolver
	gate       *risk.OpenPositionGate
	dispatcher Dispatcher
	respond    responder
	stages     []Stage
	newID      func() string
}

func New(cfg *config.Config, equity *risk.EquityResolver, gate *risk.OpenPositionGate, dispatcher Dispatcher) *Pipeline {
	p := &Pipeline{
		name:       "signal",
		secret:     []byte(cfg.Auth.Secret),
		riskCfg:    cfg.Risk,
		equity:     equity,
		gate:       gate,
		dispatcher: dispatcher,
		respond:    responder{places: cfg.Risk.DisplayPlaces},
		newID:      uuid.NewString,
	}
	p.stages = []Stage{
		{Name: "decode", Run: p.decode},
		{Name: "authenticate", Run: p.authenticate},
		{Name: "normalize", Run: p.normalize},
		{Name: "equity", Run: p.resolveEquity},
		{Name: "gate", Run: p.checkGate},
		{Name: "size", Run: p.size},
		{Name: "dispatch", Run: p.dispatchSinks},
	}
	return p
}

// Handle runs every stage in order and always returns a Result. A panic
// inside a stage becomes a 500 with details.
func (p *Pipeline) Handle(ctx context.Context, body []byte) (res Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	sc := NewSignalContext(shortID(p.newID()), body)
	defer func() {
		if r := recover(); r != nil {
			err := &StageError{Stage: sc.Stage, Err: fmt.Errorf("panic: %v", r)}
			logger.Errorf("[pipeline] %s trace=%s %v", p.name, sc.TraceID, err)
			res = InternalError(err.Error())
		}
		elapsed := time.Since(sc.StartedAt)
		metrics.RecordSignal(res.Outcome, elapsed)
		p.logResult(sc, res, elapsed)
	}()

	for _, st := range p.stages {
		sc.Stage = st.Name
		if out := st.Run(ctx, sc); out != nil {
			return *out
		}
	}
	return InternalError("pipeline finished without a response")
}

func (p *Pipeline) decode(_ context.Context, sc *SignalContext) *Result {
	payload, err := signal.Decode(sc.Body)
	if err != nil {
		return p.invalid(sc, err)
	}
	sc.Payload = payload
	return nil
}

func (p *Pipeline) authenticate(_ context.Context, sc *SignalContext) *Result {
	if len(p.secret) == 0 || subtle.ConstantTimeCompare([]byte(sc.Payload.Secret), p.secret) != 1 {
		res := unauthorized()
		return &res
	}
	return nil
}

func (p *Pipeline) normalize(_ context.Context, sc *SignalContext) *Result {
	sig, err := signal.Normalize(sc.Payload)
	if err != nil {
		return p.invalid(sc, err)
	}
	sc.Signal = sig
	return nil
}

func (p *Pipeline) invalid(sc *SignalContext, err error) *Result {
	var serr *signal.Error
	if !errors.As(err, &serr) {
		res := InternalError(err.Error())
		return &res
	}
	logger.Debugf("[pipeline] trace=%s rejected input: %v", sc.TraceID, err)
	res := badRequest(serr.Message)
	return &res
}

func (p *Pipeline) resolveEquity(ctx context.Context, sc *SignalContext) *Result {
	sc.Equity = p.equity.Resolve(ctx)
	if sc.Equity.Degraded {
		metrics.RecordLedgerReadFailure("pnl")
		sc.AddWarning("pnl unavailable, using base capital")
	}
	if !sc.Equity.Valid() {
		logger.Errorf("[pipeline] trace=%s equity %s is not positive (base=%s pnl=%s)",
			sc.TraceID, sc.Equity.Equity, sc.Equity.BaseCapital, sc.Equity.TotalPnL)
		res := errorResult(http.StatusInternalServerError, OutcomeEquityInvalid, "Equity invalid")
		return &res
	}
	equity, _ := sc.Equity.Equity.Float64()
	metrics.SetEquity(equity)
	return nil
}

func (p *Pipeline) checkGate(ctx context.Context, sc *SignalContext) *Result {
	sc.Gate = p.gate.Check(ctx)
	if sc.Gate.Degraded {
		metrics.RecordLedgerReadFailure("open_positions")
		sc.AddWarning("open position count unavailable")
	}
	if sc.Gate.Allowed {
		return nil
	}
	var res Result
	if sc.Gate.FailedClosed {
		res = p.respond.rejectedGateUnavailable(sc)
	} else {
		res = p.respond.rejectedMaxOpen(sc)
	}
	return &res
}

func (p *Pipeline) size(_ context.Context, sc *SignalContext) *Result {
	sizing, err := risk.ComputeSizing(sc.Signal, sc.Equity.Equity, p.riskCfg)
	var res Result
	switch {
	case err == nil:
		sc.Sizing = sizing
		return nil
	case errors.Is(err, risk.ErrPositionTooSmall):
		res = p.respond.rejectedTooSmall(sc, sizing)
	case errors.Is(err, risk.ErrPositionTooLarge):
		logger.Warnf("[pipeline] trace=%s qty for %s %s@%s exceeds int64, stop distance %s",
			sc.TraceID, sc.Signal.Side, sc.Signal.Symbol, sc.Signal.Price, sizing.StopDistance)
		res = p.respond.rejectedTooLarge(sc, sizing)
	case errors.Is(err, risk.ErrInvalidStopDistance):
		logger.Errorf("[pipeline] trace=%s stop distance %s for %s %s@%s, check risk.stop_pct",
			sc.TraceID, sizing.StopDistance, sc.Signal.Side, sc.Signal.Symbol, sc.Signal.Price)
		res = errorResult(http.StatusInternalServerError, OutcomeInvalidStopDistance, "Invalid stop distance")
	default:
		res = InternalError((&StageError{Stage: sc.Stage, Err: err}).Error())
	}
	return &res
}

func (p *Pipeline) dispatchSinks(ctx context.Context, sc *SignalContext) *Result {
	tradeID := p.newID()
	if p.dispatcher != nil {
		out := p.dispatcher.Dispatch(ctx, dispatch.Accepted{
			TradeID:  tradeID,
			Signal:   sc.Signal,
			Equity:   sc.Equity.Equity,
			Sizing:   sc.Sizing,
			Received: sc.StartedAt,
		})
		sc.Dispatch = &out
	}
	res := p.respond.accepted(sc, tradeID)
	return &res
}

func (p *Pipeline) logResult(sc *SignalContext, res Result, elapsed time.Duration) {
	kv := []any{
		"trace", sc.TraceID,
		"outcome", res.Outcome,
		"status", res.Status,
		"stage", sc.Stage,
		"elapsed", elapsed.Round(time.Millisecond).String(),
	}
	if sc.Signal.Symbol != "" {
		kv = append(kv, "symbol", sc.Signal.Symbol, "side", sc.Signal.Side.String(), "price", sc.Signal.Price.String())
	}
	if res.Sizing != nil {
		kv = append(kv, "qty", res.Sizing.Qty, "stop", res.Sizing.Stop.String(), "risk_usd", res.Sizing.RiskUSD.String())
	}
	if res.Dispatch != nil {
		kv = append(kv, "notify", string(res.Dispatch.Notify.Status), "log", string(res.Dispatch.Log.Status))
	}
	if w := sc.Warnings(); len(w) > 0 {
		kv = append(kv, "warnings", strings.Join(w, "; "))
	}
	if res.Status >= http.StatusInternalServerError {
		logger.Warnw("signal handled", kv...)
		return
	}
	logger.Infow("signal handled", kv...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
