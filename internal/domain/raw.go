package domain

import "time"

// createdAtLayout is the platform's created_at timestamp format.
const createdAtLayout = time.RubyDate

// Raw wire shapes as delivered by the streaming side. Field names follow the
// platform's JSON so adapters can unmarshal payloads directly.

type RawTweet struct {
	IDStr                string       `json:"id_str"`
	Text                 string       `json:"text"`
	CreatedAt            string       `json:"created_at"`
	RetweetCount         int          `json:"retweet_count"`
	FavoriteCount        int          `json:"favorite_count"`
	InReplyToStatusIDStr string       `json:"in_reply_to_status_id_str"`
	User                 RawUser      `json:"user"`
	Entities             RawEntities  `json:"entities"`
	RetweetedStatus      *RawTweet    `json:"retweeted_status,omitempty"`
}

type RawUser struct {
	IDStr      string `json:"id_str"`
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
}

type RawEntities struct {
	UserMentions []RawUserMention `json:"user_mentions"`
	Hashtags     []RawHashtag     `json:"hashtags"`
	URLs         []RawURL         `json:"urls"`
}

type RawUserMention struct {
	ScreenName string `json:"screen_name"`
	Name       string `json:"name"`
	IDStr      string `json:"id_str"`
}

type RawHashtag struct {
	Text string `json:"text"`
}

type RawURL struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
	DisplayURL  string `json:"display_url"`
}

// Time parses the tweet's created_at timestamp. Returns the zero time when
// the field is absent or malformed.
func (t *RawTweet) Time() time.Time {
	ts, err := time.Parse(createdAtLayout, t.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// StatusRemoval is the deletion notice shape from the stream.
type StatusRemoval struct {
	Status struct {
		IDStr     string `json:"id_str"`
		UserIDStr string `json:"user_id_str"`
	} `json:"status"`
}
