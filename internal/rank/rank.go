// Package rank derives leaderboard positions from ledger state.
//
// Positions are computed by querying the skill store at call time, so every
// completed ledger apply is reflected immediately. Nothing is cached.
package rank

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/itt1233/augeo/internal/domain"
)

type Service struct {
	store domain.SkillStore
}

func NewService(store domain.SkillStore) *Service {
	return &Service{store: store}
}

// Rank returns the user's 1-based position among all users for the skill,
// ordered by experience descending. Ties break on the user identifier
// ascending so positions are deterministic and total. Users without a skill
// row rank as if they held zero experience.
func (s *Service) Rank(ctx context.Context, skill string, userID uuid.UUID) (int, error) {
	experience, err := s.store.GetExperience(ctx, userID, skill)
	if err != nil {
		return 0, fmt.Errorf("failed to read experience for user %s: %w", userID, err)
	}

	ahead, err := s.store.CountAhead(ctx, skill, experience, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count users ahead of %s: %w", userID, err)
	}
	return ahead + 1, nil
}

// Leaderboard returns the top standings for a skill, at most limit rows.
func (s *Service) Leaderboard(ctx context.Context, skill string, limit int) ([]domain.SkillStanding, error) {
	standings, err := s.store.Leaderboard(ctx, skill, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard for %s: %w", skill, err)
	}
	return standings, nil
}
