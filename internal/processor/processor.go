// Package processor orchestrates classify → persist → ledger-apply for
// stream events.
//
// Every Add stamps the computed author credit on the tweet record, so a later
// Remove can issue the exact inverse without recomputing anything. Idempotent
// writes (upserts, deletes) run under a small at-least-once retry policy;
// ledger increments are never retried because a replayed increment is not
// idempotent.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/itt1233/augeo/internal/classify"
	"github.com/itt1233/augeo/internal/domain"
	"github.com/itt1233/augeo/internal/ledger"
	"github.com/itt1233/augeo/internal/metrics"
	"github.com/itt1233/augeo/internal/platform/retry"
)

type Processor struct {
	tweets    domain.TweetRepository
	mentions  domain.MentionRepository
	users     domain.UserRepository
	ledger    *ledger.Ledger
	publisher domain.ActivityPublisher
	policy    retry.Policy
}

func New(tweets domain.TweetRepository, mentions domain.MentionRepository, users domain.UserRepository, l *ledger.Ledger) *Processor {
	return &Processor{
		tweets:   tweets,
		mentions: mentions,
		users:    users,
		ledger:   l,
		policy: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 50 * time.Millisecond,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				metrics.StoreRetriesTotal.Inc()
				slog.Warn("Retrying store write", "attempt", attempt, "backoff", backoff, "error", err)
			},
		},
	}
}

// SetPublisher sets the live activity publisher. Optional; resolves the
// wiring cycle where the feed hub needs the queue running before it exists.
func (p *Processor) SetPublisher(pub domain.ActivityPublisher) {
	p.publisher = pub
}

// Add ingests one raw stream event: classifies it, computes and stamps the
// author's experience credit, attributes retweet and mention credits, and
// persists the record. Re-adding an existing tweet upserts the record and
// applies only the difference against the previously stamped credit, so the
// ledger never double-counts.
func (p *Processor) Add(ctx context.Context, raw *domain.RawTweet) error {
	if raw == nil || raw.IDStr == "" {
		slog.WarnContext(ctx, "Dropping stream event without a tweet ID")
		return nil
	}

	tracked, err := p.trackedParticipants(ctx, raw)
	if err != nil {
		return err
	}

	ev := classify.Classify(raw, func(screenName string) bool {
		_, ok := tracked[screenName]
		return ok
	})

	priorExperience := int64(0)
	firstRecord := false
	existing, err := p.tweets.FindTweet(ctx, raw.IDStr)
	switch {
	case errors.Is(err, domain.ErrTweetNotFound):
		firstRecord = true
	case err != nil:
		metrics.StoreFailuresTotal.WithLabelValues("find_tweet").Inc()
		return fmt.Errorf("failed to look up tweet %s: %w", raw.IDStr, err)
	default:
		priorExperience = existing.Experience
	}

	record := buildRecord(raw, ev)
	if existing != nil {
		// Mention credits were attributed at first record; keep the stamped
		// flags so removal reverses exactly what was applied.
		record.Mentions = existing.Mentions
	}

	if err := p.upsertWithRetry(ctx, record); err != nil {
		return err
	}

	if firstRecord && ev.Kind == domain.KindRetweet {
		p.attributeRetweet(ctx, ev)
	}

	if firstRecord {
		p.attributeMentions(ctx, record, ev, tracked)
	}

	if author, ok := tracked[ev.Author.ScreenName]; ok {
		delta := record.Experience - priorExperience
		if delta != 0 {
			if err := p.ledger.Apply(ctx, author.ID, record.Classification, delta); err != nil {
				metrics.StoreFailuresTotal.WithLabelValues("ledger_apply").Inc()
				return fmt.Errorf("failed to credit author %s: %w", ev.Author.ScreenName, err)
			}
		}
	}

	if p.publisher != nil {
		p.publisher.PublishTweet(record)
	}

	slog.InfoContext(ctx, "Tweet applied",
		"tweet_id", record.TweetID, "kind", ev.Kind, "author", record.ScreenName,
		"experience", record.Experience, "mentionees", len(ev.Mentionees))
	return nil
}

// Remove reverses the stamped author credit and any mention credits, then
// deletes the record and its mention rows. Removing an unknown tweet is a
// no-op, not an error.
func (p *Processor) Remove(ctx context.Context, removal *domain.StatusRemoval) error {
	if removal == nil || removal.Status.IDStr == "" {
		return nil
	}

	record, err := p.tweets.FindTweet(ctx, removal.Status.IDStr)
	if errors.Is(err, domain.ErrTweetNotFound) {
		slog.DebugContext(ctx, "Removal of unknown tweet ignored", "tweet_id", removal.Status.IDStr)
		return nil
	}
	if err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("find_tweet").Inc()
		return fmt.Errorf("failed to look up tweet %s: %w", removal.Status.IDStr, err)
	}

	author, err := p.users.GetByTwitterID(ctx, record.TwitterID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		// Author is no longer tracked; nothing to reverse for them.
	case err != nil:
		metrics.StoreFailuresTotal.WithLabelValues("get_user").Inc()
		return fmt.Errorf("failed to look up author of tweet %s: %w", record.TweetID, err)
	default:
		if record.Experience != 0 {
			if err := p.ledger.Apply(ctx, author.ID, record.Classification, -record.Experience); err != nil {
				metrics.StoreFailuresTotal.WithLabelValues("ledger_apply").Inc()
				return fmt.Errorf("failed to reverse author credit for tweet %s: %w", record.TweetID, err)
			}
		}
	}

	p.reverseMentions(ctx, record)

	if err := p.deleteWithRetry(ctx, record.TweetID); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Tweet removed",
		"tweet_id", record.TweetID, "author", record.ScreenName, "experience", record.Experience)
	return nil
}

// AddMany applies the given events in order. A failed element is logged and
// does not block later elements; the joined failures are returned after the
// last element settles.
func (p *Processor) AddMany(ctx context.Context, raws []*domain.RawTweet) error {
	var errs []error
	for _, raw := range raws {
		if err := p.Add(ctx, raw); err != nil {
			slog.ErrorContext(ctx, "Batch element failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- Internals ---

// trackedParticipants resolves every screen name the event could credit
// (author, mentionees, retweeted author) against the user store in one read.
func (p *Processor) trackedParticipants(ctx context.Context, raw *domain.RawTweet) (map[string]domain.User, error) {
	names := make([]string, 0, len(raw.Entities.UserMentions)+2)
	if raw.User.ScreenName != "" {
		names = append(names, raw.User.ScreenName)
	}
	for _, m := range raw.Entities.UserMentions {
		if m.ScreenName != "" {
			names = append(names, m.ScreenName)
		}
	}
	if raw.RetweetedStatus != nil && raw.RetweetedStatus.User.ScreenName != "" {
		names = append(names, raw.RetweetedStatus.User.ScreenName)
	}

	tracked, err := p.users.FilterTrackedScreenNames(ctx, names)
	if err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("filter_tracked").Inc()
		return nil, fmt.Errorf("failed to resolve tracked participants: %w", err)
	}
	return tracked, nil
}

// attributeRetweet credits the original author and bumps the referenced
// record's retweet count. Both steps are skipped when the referenced tweet
// was never ingested; failures here are logged, not fatal, because the
// retweet record itself has already been persisted.
func (p *Processor) attributeRetweet(ctx context.Context, ev domain.ClassifiedEvent) {
	original, err := p.tweets.FindTweet(ctx, ev.RetweetedTweetID)
	if errors.Is(err, domain.ErrTweetNotFound) {
		slog.DebugContext(ctx, "Retweet references unknown tweet", "tweet_id", ev.RetweetedTweetID)
		return
	}
	if err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("find_tweet").Inc()
		slog.ErrorContext(ctx, "Failed to look up retweeted tweet", "tweet_id", ev.RetweetedTweetID, "error", err)
		return
	}

	if err := retry.DoVoid(ctx, p.policy, nil, func() error {
		return p.tweets.IncrementRetweetCount(ctx, original.TweetID)
	}); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("increment_retweet").Inc()
		slog.ErrorContext(ctx, "Failed to increment retweet count", "tweet_id", original.TweetID, "error", err)
	}

	originalAuthor, err := p.users.GetByTwitterID(ctx, original.TwitterID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return
	}
	if err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("get_user").Inc()
		slog.ErrorContext(ctx, "Failed to look up retweeted author", "twitter_id", original.TwitterID, "error", err)
		return
	}

	if err := p.ledger.Apply(ctx, originalAuthor.ID, original.Classification, domain.RetweetExperience); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("ledger_apply").Inc()
		slog.ErrorContext(ctx, "Failed to credit retweeted author", "user_id", originalAuthor.ID, "error", err)
	}
}

// attributeMentions persists a mention row and credits each distinct tracked
// mentionee.
func (p *Processor) attributeMentions(ctx context.Context, record *domain.Tweet, ev domain.ClassifiedEvent, tracked map[string]domain.User) {
	for _, screenName := range ev.Mentionees {
		mentionee, ok := tracked[screenName]
		if !ok {
			continue
		}

		mention := &domain.Mention{
			TweetID:             record.TweetID,
			MentioneeScreenName: screenName,
			MentionerScreenName: record.ScreenName,
			CreatedAt:           record.Date,
		}
		if err := retry.DoVoid(ctx, p.policy, nil, func() error {
			return p.mentions.Upsert(ctx, mention)
		}); err != nil {
			metrics.StoreFailuresTotal.WithLabelValues("upsert_mention").Inc()
			slog.ErrorContext(ctx, "Failed to persist mention", "tweet_id", record.TweetID, "mentionee", screenName, "error", err)
			continue
		}

		if err := p.ledger.Apply(ctx, mentionee.ID, record.Classification, domain.MentionExperience); err != nil {
			metrics.StoreFailuresTotal.WithLabelValues("ledger_apply").Inc()
			slog.ErrorContext(ctx, "Failed to credit mentionee", "mentionee", screenName, "error", err)
		}
	}
}

// reverseMentions debits every mentionee that was credited at add time, using
// the tracked flags stamped on the record.
func (p *Processor) reverseMentions(ctx context.Context, record *domain.Tweet) {
	names := make([]string, 0, len(record.Mentions))
	for _, m := range record.Mentions {
		if m.Tracked {
			names = append(names, m.ScreenName)
		}
	}
	if len(names) == 0 {
		return
	}

	tracked, err := p.users.FilterTrackedScreenNames(ctx, names)
	if err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("filter_tracked").Inc()
		slog.ErrorContext(ctx, "Failed to resolve mentionees for reversal", "tweet_id", record.TweetID, "error", err)
		return
	}

	for _, screenName := range names {
		mentionee, ok := tracked[screenName]
		if !ok {
			continue
		}
		if err := p.ledger.Apply(ctx, mentionee.ID, record.Classification, -domain.MentionExperience); err != nil {
			metrics.StoreFailuresTotal.WithLabelValues("ledger_apply").Inc()
			slog.ErrorContext(ctx, "Failed to reverse mention credit", "mentionee", screenName, "error", err)
		}
	}
}

func (p *Processor) upsertWithRetry(ctx context.Context, record *domain.Tweet) error {
	if err := retry.DoVoid(ctx, p.policy, nil, func() error {
		return p.tweets.UpsertTweet(ctx, record)
	}); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("upsert_tweet").Inc()
		return fmt.Errorf("failed to upsert tweet %s: %w", record.TweetID, err)
	}
	return nil
}

func (p *Processor) deleteWithRetry(ctx context.Context, tweetID string) error {
	if err := retry.DoVoid(ctx, p.policy, nil, func() error {
		return p.mentions.DeleteByTweet(ctx, tweetID)
	}); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("delete_mentions").Inc()
		return fmt.Errorf("failed to delete mentions of tweet %s: %w", tweetID, err)
	}
	if err := retry.DoVoid(ctx, p.policy, nil, func() error {
		return p.tweets.RemoveTweet(ctx, tweetID)
	}); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("remove_tweet").Inc()
		return fmt.Errorf("failed to remove tweet %s: %w", tweetID, err)
	}
	return nil
}

// buildRecord maps a raw event and its classification onto the persisted
// record, stamping the author's experience credit.
func buildRecord(raw *domain.RawTweet, ev domain.ClassifiedEvent) *domain.Tweet {
	experience := domain.TweetExperience
	if ev.Kind == domain.KindStandard {
		// Engagement accrued before ingestion rewards the author up front.
		experience += int64(ev.RetweetCount)*domain.RetweetExperience +
			int64(ev.FavoriteCount)*domain.FavoriteExperience
	}

	trackedSet := make(map[string]struct{}, len(ev.Mentionees))
	for _, screenName := range ev.Mentionees {
		trackedSet[screenName] = struct{}{}
	}

	record := &domain.Tweet{
		TweetID:       raw.IDStr,
		TwitterID:     raw.User.IDStr,
		Name:          raw.User.Name,
		ScreenName:    raw.User.ScreenName,
		Text:          raw.Text,
		Date:          raw.Time(),
		Experience:    experience,
		RetweetCount:  raw.RetweetCount,
		FavoriteCount: raw.FavoriteCount,
	}

	for _, m := range raw.Entities.UserMentions {
		_, tracked := trackedSet[m.ScreenName]
		record.Mentions = append(record.Mentions, domain.TweetMention{
			ScreenName: m.ScreenName,
			Tracked:    tracked,
		})
	}
	for _, h := range raw.Entities.Hashtags {
		record.Hashtags = append(record.Hashtags, h.Text)
	}
	for _, u := range raw.Entities.URLs {
		record.Links = append(record.Links, u.ExpandedURL)
	}
	return record
}
