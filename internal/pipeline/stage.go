package pipeline

import "context"

// Stage 描述一次信号处理中的一个步骤。返回非 nil 的 Result 即终止后续步骤。
type Stage struct {
	Name string
	Run  func(ctx context.Context, sc *SignalContext) *Result
}

// StageError 封装步骤内部的意外失败。
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Stage
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
