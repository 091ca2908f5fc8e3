// Package signal turns the raw webhook body into a typed trade signal.
package signal

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide matches BUY/SELL case-insensitively.
func ParseSide(raw string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(SideBuy):
		return SideBuy, true
	case string(SideSell):
		return SideSell, true
	default:
		return "", false
	}
}

func (s Side) String() string { return string(s) }

// Signal is an inbound trade proposal after normalization. Values are
// request-scoped and never mutated.
type Signal struct {
	Symbol string
	Side   Side
	Price  decimal.Decimal
}

// Payload is a syntactically valid webhook body whose fields have not been
// checked yet.
type Payload struct {
	Secret string
	raw    []byte
}

// Decode accepts any JSON object. An empty body is treated as {} so that it
// fails authentication rather than parsing.
func Decode(body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !gjson.ValidBytes(body) {
		return Payload{}, newError(ErrInvalidPayload, "body is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Payload{}, newError(ErrInvalidPayload, "body must be a JSON object")
	}
	p := Payload{raw: body}
	// only a JSON string can match the shared secret
	if secret := root.Get("secret"); secret.Type == gjson.String {
		p.Secret = secret.Str
	}
	return p, nil
}

// Normalize validates the payload fields and builds a Signal.
func Normalize(p Payload) (Signal, error) {
	if len(p.raw) == 0 {
		return Signal{}, newError(ErrInvalidPayload, "payload was not decoded")
	}
	if err := validateShape(p.raw); err != nil {
		return Signal{}, newError(ErrInvalidPayload, "%v", err)
	}
	root := gjson.ParseBytes(p.raw)

	symbol := strings.ToUpper(strings.TrimSpace(root.Get("symbol").String()))
	if symbol == "" {
		return Signal{}, newError(ErrInvalidPayload, "symbol is required")
	}

	sideField := root.Get("side")
	side, ok := ParseSide(sideField.String())
	if !ok {
		return Signal{}, newError(ErrInvalidSide, "side=%q", sideField.Raw)
	}

	price, err := parsePrice(root.Get("price"))
	if err != nil {
		return Signal{}, err
	}
	return Signal{Symbol: symbol, Side: side, Price: price}, nil
}

func parsePrice(field gjson.Result) (decimal.Decimal, error) {
	var text string
	switch field.Type {
	case gjson.Number:
		text = field.Raw
	case gjson.String:
		text = strings.TrimSpace(field.Str)
	default:
		return decimal.Zero, newError(ErrInvalidPrice, "price is missing")
	}
	if text == "" {
		return decimal.Zero, newError(ErrInvalidPrice, "price is empty")
	}
	// decimal rejects NaN and Inf spellings, which keeps prices finite.
	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, newError(ErrInvalidPrice, "price=%q", text)
	}
	if !price.IsPositive() {
		return decimal.Zero, newError(ErrInvalidPrice, "price=%s must be > 0", price)
	}
	return price, nil
}
