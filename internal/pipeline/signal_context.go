package pipeline

import (
	"time"

	"tradegate/internal/dispatch"
	"tradegate/internal/risk"
	"tradegate/internal/signal"
)

// SignalContext 表示一次 webhook 请求在 Pipeline 中累积的状态，仅在该请求内使用。
type SignalContext struct {
	TraceID   string
	StartedAt time.Time
	Stage     string

	Body     []byte
	Payload  signal.Payload
	Signal   signal.Signal
	Equity   risk.EquitySnapshot
	Gate     risk.GateDecision
	Sizing   risk.Sizing
	Dispatch *dispatch.Outcome

	warnings []string
}

func NewSignalContext(traceID string, body []byte) *SignalContext {
	return &SignalContext{TraceID: traceID, StartedAt: time.Now(), Body: body}
}

// AddWarning records a degraded-but-continuing condition for the request log.
func (sc *SignalContext) AddWarning(msg string) {
	if msg == "" {
		return
	}
	sc.warnings = append(sc.warnings, msg)
}

func (sc *SignalContext) Warnings() []string {
	out := make([]string, len(sc.warnings))
	copy(out, sc.warnings)
	return out
}
