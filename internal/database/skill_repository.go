package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itt1233/augeo/internal/domain"
)

// SkillRepo implements domain.SkillStore backed by PostgreSQL.
type SkillRepo struct {
	pool *pgxpool.Pool
}

func NewSkillRepo(pool *pgxpool.Pool) *SkillRepo {
	return &SkillRepo{pool: pool}
}

// ApplyDelta adds delta to the user's counter for the skill as a single
// atomic upsert-increment.
func (r *SkillRepo) ApplyDelta(ctx context.Context, userID uuid.UUID, skill string, delta int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_skills (user_id, skill, experience, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, skill) DO UPDATE SET
			experience = user_skills.experience + EXCLUDED.experience,
			updated_at = NOW()
	`, userID, skill, delta)
	if err != nil {
		return fmt.Errorf("failed to apply skill delta: %w", err)
	}
	return nil
}

// GetExperience returns the user's counter for the skill; a user without a
// row has zero experience.
func (r *SkillRepo) GetExperience(ctx context.Context, userID uuid.UUID, skill string) (int64, error) {
	var experience int64
	err := r.pool.QueryRow(ctx,
		`SELECT experience FROM user_skills WHERE user_id = $1 AND skill = $2`,
		userID, skill).Scan(&experience)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get experience: %w", err)
	}
	return experience, nil
}

// CountAhead counts users ranked ahead of the given experience for a skill.
// Ties are broken by user ID ascending so ranks are total and stable.
func (r *SkillRepo) CountAhead(ctx context.Context, skill string, experience int64, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_skills
		WHERE skill = $1
		  AND (experience > $2 OR (experience = $2 AND user_id < $3))
	`, skill, experience, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users ahead: %w", err)
	}
	return count, nil
}

// Leaderboard returns the top standings for a skill, experience descending
// with ties broken by user ID ascending.
func (r *SkillRepo) Leaderboard(ctx context.Context, skill string, limit int) ([]domain.SkillStanding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.user_id, u.username, u.screen_name, s.experience
		FROM user_skills s
		JOIN users u ON u.id = s.user_id
		WHERE s.skill = $1
		ORDER BY s.experience DESC, s.user_id ASC
		LIMIT $2
	`, skill, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var standings []domain.SkillStanding
	for rows.Next() {
		var s domain.SkillStanding
		if err := rows.Scan(&s.UserID, &s.Username, &s.ScreenName, &s.Experience); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}
