package pipeline

import (
	"net/http"

	"tradegate/internal/dispatch"
	"tradegate/internal/risk"

	"github.com/shopspring/decimal"
)

// Outcome labels, also used as the signals_total metric label.
const (
	OutcomeAccepted            = "accepted"
	OutcomeRejectedMaxOpen     = "rejected_max_open"
	OutcomeRejectedGate        = "rejected_gate_unavailable"
	OutcomeRejectedTooSmall    = "rejected_position_too_small"
	OutcomeRejectedTooLarge    = "rejected_position_too_large"
	OutcomeInvalidInput        = "invalid_input"
	OutcomeUnauthorized        = "unauthorized"
	OutcomeEquityInvalid       = "equity_invalid"
	OutcomeInvalidStopDistance = "invalid_stop_distance"
	OutcomeInternalError       = "internal_error"
)

// Rejection codes returned in the error field of a 200 response.
const (
	CodeRejectedMaxOpen          = "REJECTED_MAX_OPEN"
	CodeRejectedGateUnavailable  = "REJECTED_GATE_UNAVAILABLE"
	CodeRejectedPositionTooSmall = "REJECTED_POSITION_TOO_SMALL"
	CodeRejectedPositionTooLarge = "REJECTED_POSITION_TOO_LARGE"
)

// Result is the transport-independent response of one signal.
type Result struct {
	Status  int
	Body    any
	Outcome string

	Sizing   *risk.Sizing
	Dispatch *dispatch.Outcome
}

type AcceptedBody struct {
	OK         bool    `json:"ok"`
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Price      float64 `json:"price"`
	Equity     float64 `json:"equity"`
	RiskUSD    float64 `json:"riskUsd"`
	Stop       float64 `json:"stop"`
	TakeProfit float64 `json:"takeProfit"`
	Qty        int64   `json:"qty"`
}

type MaxOpenBody struct {
	OK        bool    `json:"ok"`
	Error     string  `json:"error"`
	OpenCount int     `json:"openCount"`
	Equity    float64 `json:"equity"`
}

type GateUnavailableBody struct {
	OK     bool    `json:"ok"`
	Error  string  `json:"error"`
	Equity float64 `json:"equity"`
}

// SizingRejectedBody reports a signal whose quantity could not be used.
type SizingRejectedBody struct {
	OK           bool    `json:"ok"`
	Error        string  `json:"error"`
	Equity       float64 `json:"equity"`
	RiskUSD      float64 `json:"riskUsd"`
	StopDistance float64 `json:"stopDistance"`
}

type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// responder renders decimals at a fixed number of places. Rounding happens
// here and nowhere upstream.
type responder struct {
	places int32
}

func (r responder) money(v decimal.Decimal) float64 {
	f, _ := v.Round(r.places).Float64()
	return f
}

func (r responder) accepted(sc *SignalContext, tradeID string) Result {
	sizing := sc.Sizing
	price, _ := sc.Signal.Price.Float64()
	return Result{
		Status:  http.StatusOK,
		Outcome: OutcomeAccepted,
		Body: AcceptedBody{
			OK:         true,
			ID:         tradeID,
			Symbol:     sc.Signal.Symbol,
			Side:       sc.Signal.Side.String(),
			Price:      price,
			Equity:     r.money(sc.Equity.Equity),
			RiskUSD:    r.money(sizing.RiskUSD),
			Stop:       r.money(sizing.Stop),
			TakeProfit: r.money(sizing.TakeProfit),
			Qty:        sizing.Qty,
		},
		Sizing:   &sizing,
		Dispatch: sc.Dispatch,
	}
}

func (r responder) rejectedMaxOpen(sc *SignalContext) Result {
	return Result{
		Status:  http.StatusOK,
		Outcome: OutcomeRejectedMaxOpen,
		Body: MaxOpenBody{
			Error:     CodeRejectedMaxOpen,
			OpenCount: sc.Gate.OpenCount,
			Equity:    r.money(sc.Equity.Equity),
		},
	}
}

func (r responder) rejectedGateUnavailable(sc *SignalContext) Result {
	return Result{
		Status:  http.StatusOK,
		Outcome: OutcomeRejectedGate,
		Body: GateUnavailableBody{
			Error:  CodeRejectedGateUnavailable,
			Equity: r.money(sc.Equity.Equity),
		},
	}
}

func (r responder) rejectedTooSmall(sc *SignalContext, sizing risk.Sizing) Result {
	return r.rejectedSizing(sc, sizing, OutcomeRejectedTooSmall, CodeRejectedPositionTooSmall)
}

func (r responder) rejectedTooLarge(sc *SignalContext, sizing risk.Sizing) Result {
	return r.rejectedSizing(sc, sizing, OutcomeRejectedTooLarge, CodeRejectedPositionTooLarge)
}

func (r responder) rejectedSizing(sc *SignalContext, sizing risk.Sizing, outcome, code string) Result {
	return Result{
		Status:  http.StatusOK,
		Outcome: outcome,
		Body: SizingRejectedBody{
			Error:        code,
			Equity:       r.money(sc.Equity.Equity),
			RiskUSD:      r.money(sizing.RiskUSD),
			StopDistance: r.money(sizing.StopDistance),
		},
		Sizing: &sizing,
	}
}

func errorResult(status int, outcome, msg string) Result {
	return Result{Status: status, Outcome: outcome, Body: ErrorBody{Error: msg}}
}

func badRequest(msg string) Result {
	return errorResult(http.StatusBadRequest, OutcomeInvalidInput, msg)
}

func unauthorized() Result {
	return errorResult(http.StatusUnauthorized, OutcomeUnauthorized, "Unauthorized")
}

// InternalError is the shape of any unhandled fault.
func InternalError(details string) Result {
	return Result{
		Status:  http.StatusInternalServerError,
		Outcome: OutcomeInternalError,
		Body:    ErrorBody{Error: "Internal Server Error", Details: details},
	}
}
