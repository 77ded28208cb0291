package domain

import (
	"context"

	"github.com/google/uuid"
)

// --- Store interfaces ---

// SkillActivityParams are the explicit parameters of the find-by-skill-window
// read. MaxTweetID bounds the window exclusively; empty means unbounded.
type SkillActivityParams struct {
	ScreenName string
	Skill      string
	MaxTweetID string
	Limit      int
}

// TweetRepository abstracts tweet persistence.
type TweetRepository interface {
	FindTweet(ctx context.Context, tweetID string) (*Tweet, error)
	UpsertTweet(ctx context.Context, tweet *Tweet) error
	RemoveTweet(ctx context.Context, tweetID string) error
	RemoveTweetsWithMentionee(ctx context.Context, screenName string) error
	IncrementRetweetCount(ctx context.Context, tweetID string) error
	GetLatestTweetID(ctx context.Context, screenName string) (string, error)
	GetSkillActivity(ctx context.Context, params SkillActivityParams) ([]Tweet, error)
}

// MentionRepository abstracts mention persistence.
type MentionRepository interface {
	Upsert(ctx context.Context, mention *Mention) error
	Find(ctx context.Context, mentioneeScreenName, tweetID string) (*Mention, error)
	DeleteByTweet(ctx context.Context, tweetID string) error
}

// UserRepository abstracts user persistence.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByTwitterID(ctx context.Context, twitterID string) (*User, error)
	Upsert(ctx context.Context, user *User) (*User, error)
	// FilterTrackedScreenNames returns the subset of the given screen names
	// that belong to tracked users, keyed by screen name.
	FilterTrackedScreenNames(ctx context.Context, screenNames []string) (map[string]User, error)
}

// SkillStore is the persistence contract behind the experience ledger and the
// rank read path. ApplyDelta must be a single atomic increment.
type SkillStore interface {
	ApplyDelta(ctx context.Context, userID uuid.UUID, skill string, delta int64) error
	GetExperience(ctx context.Context, userID uuid.UUID, skill string) (int64, error)
	CountAhead(ctx context.Context, skill string, experience int64, userID uuid.UUID) (int, error)
	Leaderboard(ctx context.Context, skill string, limit int) ([]SkillStanding, error)
}

// --- Streaming interfaces ---

// StreamHandle represents one live underlying connection.
type StreamHandle interface {
	Close() error
}

// StreamSink receives pushed events from a live connection. Implementations
// must not block the adapter's read loop longer than necessary.
type StreamSink interface {
	OnTweet(tweet *RawTweet)
	OnDelete(removal *StatusRemoval)
	OnDisconnect(err error)
}

// StreamAdapter speaks the wire protocol to the platform. The concrete client
// lives outside this module; tests substitute fakes.
type StreamAdapter interface {
	Connect(ctx context.Context, twitterID string, sink StreamSink) (StreamHandle, error)
}

// --- Presentation interfaces ---

// ActivityPublisher pushes successfully applied tweets to live listeners.
type ActivityPublisher interface {
	PublishTweet(tweet *Tweet)
}
