package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a tracked account. Experience is accounted against the internal ID;
// the Twitter identifiers key the streaming side.
type User struct {
	ID         uuid.UUID `db:"id"`
	Email      string    `db:"email"`
	Username   string    `db:"username"`
	Name       string    `db:"name"`
	TwitterID  string    `db:"twitter_id"`
	ScreenName string    `db:"screen_name"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
