package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itt1233/augeo/internal/domain"
)

// MentionRepo implements domain.MentionRepository backed by PostgreSQL.
type MentionRepo struct {
	pool *pgxpool.Pool
}

func NewMentionRepo(pool *pgxpool.Pool) *MentionRepo {
	return &MentionRepo{pool: pool}
}

func (r *MentionRepo) Upsert(ctx context.Context, mention *domain.Mention) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO mentions (tweet_id, mentionee_screen_name, mentioner_screen_name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tweet_id, mentionee_screen_name) DO UPDATE SET
			mentioner_screen_name = EXCLUDED.mentioner_screen_name
	`, mention.TweetID, mention.MentioneeScreenName, mention.MentionerScreenName, mention.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert mention: %w", err)
	}
	return nil
}

func (r *MentionRepo) Find(ctx context.Context, mentioneeScreenName, tweetID string) (*domain.Mention, error) {
	var m domain.Mention
	err := r.pool.QueryRow(ctx, `
		SELECT tweet_id, mentionee_screen_name, mentioner_screen_name, created_at
		FROM mentions
		WHERE mentionee_screen_name = $1 AND tweet_id = $2
	`, mentioneeScreenName, tweetID).Scan(
		&m.TweetID, &m.MentioneeScreenName, &m.MentionerScreenName, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMentionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find mention: %w", err)
	}
	return &m, nil
}

func (r *MentionRepo) DeleteByTweet(ctx context.Context, tweetID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM mentions WHERE tweet_id = $1`, tweetID); err != nil {
		return fmt.Errorf("failed to delete mentions: %w", err)
	}
	return nil
}
