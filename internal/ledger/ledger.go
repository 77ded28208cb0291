// Package ledger maintains the authoritative experience totals per user per
// skill.
//
// The ledger is agnostic to the experience schedule: it applies signed deltas
// to named counters and nothing else. Atomicity with respect to concurrent
// producers comes from the action queue's serialization; each individual
// increment is additionally atomic in the store.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/itt1233/augeo/internal/domain"
	"github.com/itt1233/augeo/internal/metrics"
)

type Ledger struct {
	store domain.SkillStore
}

func New(store domain.SkillStore) *Ledger {
	return &Ledger{store: store}
}

// Apply credits (or debits, for negative deltas) the user's overall counter
// and, when a sub-skill is set, the sub-skill counter with the same delta.
// Applying the negated delta is the exact inverse.
func (l *Ledger) Apply(ctx context.Context, userID uuid.UUID, skill string, delta int64) error {
	if delta == 0 {
		return nil
	}

	if err := l.store.ApplyDelta(ctx, userID, domain.OverallSkill, delta); err != nil {
		return fmt.Errorf("failed to apply overall delta for user %s: %w", userID, err)
	}
	if skill != "" && skill != domain.OverallSkill {
		if err := l.store.ApplyDelta(ctx, userID, skill, delta); err != nil {
			return fmt.Errorf("failed to apply %s delta for user %s: %w", skill, userID, err)
		}
	}

	direction := "credit"
	if delta < 0 {
		direction = "debit"
	}
	metrics.LedgerDeltasTotal.WithLabelValues(direction).Inc()
	return nil
}

// Experience returns the user's total for the given skill, reflecting every
// previously completed Apply.
func (l *Ledger) Experience(ctx context.Context, userID uuid.UUID, skill string) (int64, error) {
	return l.store.GetExperience(ctx, userID, skill)
}

// Total returns the user's overall experience.
func (l *Ledger) Total(ctx context.Context, userID uuid.UUID) (int64, error) {
	return l.store.GetExperience(ctx, userID, domain.OverallSkill)
}
