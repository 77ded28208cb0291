package domain

import "time"

// Tweet is the persisted record of an ingested status. Experience holds the
// amount this record contributed to its author's ledger so removal can issue
// the exact inverse; Mentions carries the tracked flag per mentionee so
// mention credits can be reversed too.
type Tweet struct {
	TweetID        string       `db:"tweet_id"`
	TwitterID      string       `db:"twitter_id"`
	Name           string       `db:"name"`
	ScreenName     string       `db:"screen_name"`
	Text           string       `db:"text"`
	Classification string       `db:"classification"`
	Date           time.Time    `db:"date"`
	Experience     int64        `db:"experience"`
	RetweetCount   int          `db:"retweet_count"`
	FavoriteCount  int          `db:"favorite_count"`
	Mentions       []TweetMention
	Hashtags       []string
	Links          []string
}

// TweetMention is a mentionee embedded on the tweet record. Tracked marks
// mentionees that were credited at add time.
type TweetMention struct {
	ScreenName string `json:"screen_name"`
	Tracked    bool   `json:"tracked"`
}

// Mention links a mentioning tweet to a mentioned screen name.
// Unique by (TweetID, MentioneeScreenName).
type Mention struct {
	TweetID             string    `db:"tweet_id"`
	MentioneeScreenName string    `db:"mentionee_screen_name"`
	MentionerScreenName string    `db:"mentioner_screen_name"`
	CreatedAt           time.Time `db:"created_at"`
}
