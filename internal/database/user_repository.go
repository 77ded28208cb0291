package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itt1233/augeo/internal/domain"
)

// userColumns must match the Scan order in scanUser.
const userColumns = `id, email, username, name, twitter_id, screen_name, created_at, updated_at`

// UserRepo implements domain.UserRepository backed by PostgreSQL.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Email, &user.Username, &user.Name,
		&user.TwitterID, &user.ScreenName, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepo) GetByTwitterID(ctx context.Context, twitterID string) (*domain.User, error) {
	return r.getBy(ctx, "twitter_id", twitterID)
}

func (r *UserRepo) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	upserted, err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, name, twitter_id, screen_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (twitter_id) DO UPDATE SET
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			name = EXCLUDED.name,
			screen_name = EXCLUDED.screen_name,
			updated_at = NOW()
		RETURNING `+userColumns+`
	`, user.Email, user.Username, user.Name, user.TwitterID, user.ScreenName))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return upserted, nil
}

// FilterTrackedScreenNames returns the subset of the given screen names that
// belong to tracked users, keyed by screen name, in one query.
func (r *UserRepo) FilterTrackedScreenNames(ctx context.Context, screenNames []string) (map[string]domain.User, error) {
	tracked := make(map[string]domain.User)
	if len(screenNames) == 0 {
		return tracked, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE screen_name = ANY($1)`, screenNames)
	if err != nil {
		return nil, fmt.Errorf("failed to filter tracked screen names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		tracked[user.ScreenName] = *user
	}
	return tracked, rows.Err()
}
