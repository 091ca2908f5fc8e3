package signal

import "fmt"

// Kind classifies why an inbound signal was refused.
type Kind string

const (
	KindInvalidPayload Kind = "InvalidPayload"
	KindInvalidSide    Kind = "InvalidSide"
	KindInvalidPrice   Kind = "InvalidPrice"
)

// Error is returned by Decode and Normalize. Message is safe to echo back to
// the caller; Detail is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// Is matches on Kind so wrapped errors with extra detail still satisfy
// errors.Is(err, ErrInvalidPrice).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidPayload = &Error{Kind: KindInvalidPayload, Message: "Invalid payload"}
	ErrInvalidSide    = &Error{Kind: KindInvalidSide, Message: "Invalid side"}
	ErrInvalidPrice   = &Error{Kind: KindInvalidPrice, Message: "Invalid price"}
)

func newError(base *Error, format string, args ...any) *Error {
	return &Error{Kind: base.Kind, Message: base.Message, Detail: fmt.Sprintf(format, args...)}
}
