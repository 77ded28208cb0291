package domain

// EventKind is the classified shape of a raw stream event.
type EventKind string

const (
	KindStandard EventKind = "standard"
	KindRetweet  EventKind = "retweet"
	KindMention  EventKind = "mention"
	KindReply    EventKind = "reply"
)

// ClassifiedEvent is the normalized view of a raw tweet produced by the
// classifier. Mentionees lists only tracked screen names. RetweetCount and
// FavoriteCount copy the platform counters at classification time.
type ClassifiedEvent struct {
	Kind             EventKind
	Author           RawUser
	Mentionees       []string
	RetweetedTweetID string
	RetweetCount     int
	FavoriteCount    int
}
