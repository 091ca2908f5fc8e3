package notifier

import "context"

// TextNotifier delivers one plain or Markdown text message.
// Callers depend on this instead of a concrete transport.
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}
