// Package notify delivers stock alerts. The default implementation writes
// them to the structured log; a messaging channel can replace it later.
package notify

import (
	"context"

	"atelier/internal/domain/ledger"
	"atelier/pkg/logger"
)

// LogNotifier implements ledger.Notifier by logging alerts.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyAlert logs the alert. Never fails.
func (n *LogNotifier) NotifyAlert(ctx context.Context, a ledger.Alert) error {
	logger.Warn(ctx, "stock alert",
		"type", string(a.Type),
		"productId", a.ProductID.String(),
		"currentStock", a.CurrentStock.String(),
		"threshold", a.Threshold.String(),
	)
	return nil
}

var _ ledger.Notifier = (*LogNotifier)(nil)
