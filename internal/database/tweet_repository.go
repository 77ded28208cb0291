package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itt1233/augeo/internal/domain"
)

// tweetColumns must match the Scan order in scanTweet.
const tweetColumns = `tweet_id, twitter_id, name, screen_name, text, classification, date, experience, retweet_count, favorite_count, mentions, hashtags, links`

// TweetRepo implements domain.TweetRepository backed by PostgreSQL.
type TweetRepo struct {
	pool *pgxpool.Pool
}

func NewTweetRepo(pool *pgxpool.Pool) *TweetRepo {
	return &TweetRepo{pool: pool}
}

func scanTweet(row pgx.Row) (*domain.Tweet, error) {
	var t domain.Tweet
	err := row.Scan(
		&t.TweetID, &t.TwitterID, &t.Name, &t.ScreenName, &t.Text,
		&t.Classification, &t.Date, &t.Experience, &t.RetweetCount,
		&t.FavoriteCount, &t.Mentions, &t.Hashtags, &t.Links,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TweetRepo) FindTweet(ctx context.Context, tweetID string) (*domain.Tweet, error) {
	tweet, err := scanTweet(r.pool.QueryRow(ctx,
		`SELECT `+tweetColumns+` FROM tweets WHERE tweet_id = $1`, tweetID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTweetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tweet: %w", err)
	}
	return tweet, nil
}

func (r *TweetRepo) UpsertTweet(ctx context.Context, tweet *domain.Tweet) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tweets (`+tweetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tweet_id) DO UPDATE SET
			name = EXCLUDED.name,
			screen_name = EXCLUDED.screen_name,
			text = EXCLUDED.text,
			classification = EXCLUDED.classification,
			experience = EXCLUDED.experience,
			retweet_count = EXCLUDED.retweet_count,
			favorite_count = EXCLUDED.favorite_count,
			mentions = EXCLUDED.mentions,
			hashtags = EXCLUDED.hashtags,
			links = EXCLUDED.links
	`, tweet.TweetID, tweet.TwitterID, tweet.Name, tweet.ScreenName, tweet.Text,
		tweet.Classification, tweet.Date, tweet.Experience, tweet.RetweetCount,
		tweet.FavoriteCount, tweet.Mentions, tweet.Hashtags, tweet.Links)
	if err != nil {
		return fmt.Errorf("failed to upsert tweet: %w", err)
	}
	return nil
}

func (r *TweetRepo) RemoveTweet(ctx context.Context, tweetID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM tweets WHERE tweet_id = $1`, tweetID); err != nil {
		return fmt.Errorf("failed to remove tweet: %w", err)
	}
	return nil
}

func (r *TweetRepo) RemoveTweetsWithMentionee(ctx context.Context, screenName string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM tweets
		WHERE mentions @> jsonb_build_array(jsonb_build_object('screen_name', $1::text))
	`, screenName)
	if err != nil {
		return fmt.Errorf("failed to remove tweets mentioning %s: %w", screenName, err)
	}
	return nil
}

func (r *TweetRepo) IncrementRetweetCount(ctx context.Context, tweetID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tweets SET retweet_count = retweet_count + 1 WHERE tweet_id = $1`, tweetID)
	if err != nil {
		return fmt.Errorf("failed to increment retweet count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTweetNotFound
	}
	return nil
}

func (r *TweetRepo) GetLatestTweetID(ctx context.Context, screenName string) (string, error) {
	var tweetID string
	err := r.pool.QueryRow(ctx, `
		SELECT tweet_id FROM tweets
		WHERE screen_name = $1
		ORDER BY date DESC, tweet_id DESC
		LIMIT 1
	`, screenName).Scan(&tweetID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest tweet ID: %w", err)
	}
	return tweetID, nil
}

func (r *TweetRepo) GetSkillActivity(ctx context.Context, params domain.SkillActivityParams) ([]domain.Tweet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tweetColumns+` FROM tweets
		WHERE screen_name = $1
		  AND ($2 = '' OR classification = $2)
		  AND ($3 = '' OR tweet_id < $3)
		ORDER BY date DESC
		LIMIT $4
	`, params.ScreenName, params.Skill, params.MaxTweetID, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query skill activity: %w", err)
	}
	defer rows.Close()

	var tweets []domain.Tweet
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tweet: %w", err)
		}
		tweets = append(tweets, *t)
	}
	return tweets, rows.Err()
}
