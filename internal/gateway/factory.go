package gateway

import (
	"fmt"
	"strings"

	"tradegate/internal/config"
	"tradegate/internal/gateway/ledger"
	"tradegate/internal/gateway/notifier"
	"tradegate/internal/logger"
	"tradegate/internal/metrics"
	"tradegate/internal/pkg/circuit"
)

// NewLedgerFromConfig picks the ledger driver named by ledger.driver.
func NewLedgerFromConfig(cfg *config.Config) (ledger.Ledger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Ledger.Driver)) {
	case "", config.LedgerDriverHTTP:
		client, err := ledger.NewClient(cfg.Ledger)
		if err != nil {
			return nil, err
		}
		client.Breaker().SetStateChangeHandler(observeBreaker)
		metrics.SetCircuitState("ledger", int(circuit.StateClosed))
		return client, nil
	case config.LedgerDriverMemory:
		logger.Warnf("[gateway] ledger driver=memory, trades are kept in process only")
		return ledger.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported ledger driver: %s", cfg.Ledger.Driver)
	}
}

// NewNotifierFromConfig returns Telegram when enabled, otherwise nil so the
// dispatcher reports the notify sink as skipped.
func NewNotifierFromConfig(cfg *config.Config) notifier.TextNotifier {
	if cfg == nil || !cfg.Notify.Telegram.Enabled {
		return nil
	}
	return notifier.NewTelegram(cfg.Notify.Telegram)
}

func observeBreaker(name string, from, to circuit.State) {
	logger.Warnf("[circuit] %s state change: %s -> %s", name, from, to)
	metrics.SetCircuitState(name, int(to))
}
