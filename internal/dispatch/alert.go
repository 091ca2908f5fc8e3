package dispatch

import (
	"fmt"
	"strings"

	"tradegate/internal/gateway/notifier"
	"tradegate/internal/signal"
)

// RenderAlert formats the Telegram message for an accepted signal.
func RenderAlert(acc Accepted, env string, places int32) string {
	icon := "📈"
	if acc.Signal.Side == signal.SideSell {
		icon = "📉"
	}
	msg := notifier.StructuredMessage{
		Icon:  icon,
		Title: "Signal Received",
		Sections: []notifier.MessageSection{
			{
				Title: fmt.Sprintf("%s %s", acc.Signal.Side, acc.Signal.Symbol),
				Lines: []string{
					"Price: " + acc.Signal.Price.String(),
					"Stop: " + acc.Sizing.Stop.StringFixed(places),
					"Take profit: " + acc.Sizing.TakeProfit.StringFixed(places),
					fmt.Sprintf("Qty: %d", acc.Sizing.Qty),
				},
			},
			{
				Title: "Risk",
				Lines: []string{
					"Equity: " + acc.Equity.StringFixed(places),
					"Risk USD: " + acc.Sizing.RiskUSD.StringFixed(places),
					"Stop distance: " + acc.Sizing.StopDistance.StringFixed(places),
				},
			},
		},
		Footer:    fmt.Sprintf("Env: %s | id %s", strings.ToLower(env), acc.TradeID),
		Timestamp: acc.Received,
	}
	return msg.RenderMarkdown()
}
