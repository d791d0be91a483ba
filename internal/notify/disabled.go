package notify

import (
	"context"
	"log/slog"
)

// DisabledNotifier stands in when no delivery channel is configured. Alerts
// are logged and dropped.
type DisabledNotifier struct {
	logger *slog.Logger
	reason string
}

func NewDisabledNotifier(logger *slog.Logger, reason string) *DisabledNotifier {
	return &DisabledNotifier{logger: logger, reason: reason}
}

func (n *DisabledNotifier) Name() string { return "disabled" }

func (n *DisabledNotifier) Send(_ context.Context, alert Alert) error {
	n.logger.Warn("alert not delivered: dispatch channel disabled",
		"reason", n.reason,
		"station", alert.StationID,
		"aqi", alert.Value,
		"tier", alert.Tier.Label,
	)
	return nil
}
