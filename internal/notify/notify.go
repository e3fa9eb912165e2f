// Package notify is the boundary to the notification collaborator.
// Calls are fire-and-forget: failures are logged by the caller and
// never affect engine state.
package notify

import "log/slog"

// Notifier receives tier-change notifications.
type Notifier interface {
	// TierUpgraded is called when a reviewer is promoted. rate is the
	// per-review payout rate the new tier grants.
	TierUpgraded(email, tier string, rate float64) error
}

// LogNotifier writes notifications to the log. Stands in wherever a
// real email/push collaborator is not wired up.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) TierUpgraded(email, tier string, rate float64) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("tier upgrade notification", "email", email, "tier", tier, "rate", rate)
	return nil
}
