// Package classify normalizes raw stream events into classified events.
//
// Classification is pure and total: it never fails, never touches the store,
// and degrades unrecognized shapes to a standard tweet with no mentionees.
package classify

import "github.com/itt1233/augeo/internal/domain"

// Tracked reports whether a screen name belongs to a tracked user. Callers
// resolve tracking against a pre-fetched set so classification stays pure.
type Tracked func(screenName string) bool

// Classify inspects a raw event and produces its normalized form.
//
// Priority order: a retweeted_status reference wins, then a tracked mention,
// then a reply marker, then standard. The platform's retweet/favorite
// counters are always copied as observed at classification time.
func Classify(raw *domain.RawTweet, tracked Tracked) domain.ClassifiedEvent {
	ev := domain.ClassifiedEvent{
		Kind: domain.KindStandard,
	}
	if raw == nil {
		return ev
	}

	ev.Author = raw.User
	ev.RetweetCount = raw.RetweetCount
	ev.FavoriteCount = raw.FavoriteCount

	if raw.RetweetedStatus != nil && raw.RetweetedStatus.IDStr != "" {
		ev.Kind = domain.KindRetweet
		ev.RetweetedTweetID = raw.RetweetedStatus.IDStr
		return ev
	}

	if tracked != nil {
		seen := make(map[string]struct{})
		for _, m := range raw.Entities.UserMentions {
			if m.ScreenName == "" || !tracked(m.ScreenName) {
				continue
			}
			if _, dup := seen[m.ScreenName]; dup {
				continue
			}
			seen[m.ScreenName] = struct{}{}
			ev.Mentionees = append(ev.Mentionees, m.ScreenName)
		}
		if len(ev.Mentionees) > 0 {
			ev.Kind = domain.KindMention
			return ev
		}
	}

	if raw.InReplyToStatusIDStr != "" {
		ev.Kind = domain.KindReply
	}
	return ev
}
