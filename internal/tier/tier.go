// Package tier recomputes reviewer quality tiers. The rule is
// re-evaluated fresh on every call rather than tracked as a one-way
// ratchet, so demotions fall out of the same code path as promotions.
package tier

import (
	"context"
	"log/slog"

	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/notify"
	"github.com/wavecrit/wavecrit/internal/store"
)

// Config holds the promotion thresholds and per-tier pay rates.
type Config struct {
	// FastTrackCommendations promotes regardless of volume.
	FastTrackCommendations int

	// MinReviews and MinRating together form the standard promotion
	// path.
	MinReviews int
	MinRating  float64

	// Rates is the per-review payout rate by tier, reported in upgrade
	// notifications.
	Rates map[models.ReviewerTier]float64
}

// Recalculator recomputes a reviewer's tier after review activity.
type Recalculator struct {
	store    store.Store
	notifier notify.Notifier
	cfg      Config
	logger   *slog.Logger
}

// New creates a Recalculator.
func New(s store.Store, n notify.Notifier, cfg Config, logger *slog.Logger) *Recalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recalculator{store: s, notifier: n, cfg: cfg, logger: logger}
}

// qualifies applies the tier rule: commendation fast-track OR the
// volume-plus-rating path.
func (rc *Recalculator) qualifies(r *models.Reviewer) bool {
	if r.Commendations >= rc.cfg.FastTrackCommendations {
		return true
	}
	return r.CompletedReviews >= rc.cfg.MinReviews && r.Rating >= rc.cfg.MinRating
}

// Recompute re-evaluates the reviewer's tier from current stats.
// An upgrade fires one notification (fire-and-forget, failure logged);
// downgrades are silent.
func (rc *Recalculator) Recompute(ctx context.Context, reviewerID string) error {
	r, err := rc.store.GetReviewer(ctx, reviewerID)
	if err != nil {
		return err
	}

	target := models.TierStandard
	if rc.qualifies(r) {
		target = models.TierPro
	}
	if target == r.Tier {
		return nil
	}

	upgraded := target.Weight() > r.Tier.Weight()
	r.Tier = target
	if err := rc.store.UpdateReviewer(ctx, r); err != nil {
		return err
	}

	if upgraded {
		rc.logger.Info("reviewer promoted", "reviewer", r.ID, "tier", target)
		if rc.notifier != nil {
			if err := rc.notifier.TierUpgraded(r.Email, string(target), rc.cfg.Rates[target]); err != nil {
				rc.logger.Error("tier upgrade notification failed", "reviewer", r.ID, "error", err)
			}
		}
	} else {
		rc.logger.Info("reviewer demoted", "reviewer", r.ID, "tier", target)
	}
	return nil
}
