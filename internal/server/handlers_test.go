package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/itt1233/augeo/internal/config"
	"github.com/itt1233/augeo/internal/coordination"
	"github.com/itt1233/augeo/internal/domain"
	"github.com/itt1233/augeo/internal/rank"
	"github.com/itt1233/augeo/internal/websocket"
)

// --- Fakes ---

type fakeSkillStore struct {
	experience map[string]int64 // userID|skill
	ahead      int
	standings  []domain.SkillStanding
	err        error
}

func skillKey(userID uuid.UUID, skill string) string {
	return userID.String() + "|" + skill
}

func (f *fakeSkillStore) ApplyDelta(_ context.Context, userID uuid.UUID, skill string, delta int64) error {
	if f.experience == nil {
		f.experience = make(map[string]int64)
	}
	f.experience[skillKey(userID, skill)] += delta
	return f.err
}

func (f *fakeSkillStore) GetExperience(_ context.Context, userID uuid.UUID, skill string) (int64, error) {
	return f.experience[skillKey(userID, skill)], f.err
}

func (f *fakeSkillStore) CountAhead(_ context.Context, _ string, _ int64, _ uuid.UUID) (int, error) {
	return f.ahead, f.err
}

func (f *fakeSkillStore) Leaderboard(_ context.Context, _ string, limit int) ([]domain.SkillStanding, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.standings) {
		return f.standings[:limit], nil
	}
	return f.standings, nil
}

type fakeUsers struct {
	byUsername map[string]*domain.User
	err        error
}

func (f *fakeUsers) GetByEmail(_ context.Context, _ string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.byUsername[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetByTwitterID(_ context.Context, _ string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (f *fakeUsers) Upsert(_ context.Context, user *domain.User) (*domain.User, error) {
	return user, nil
}

func (f *fakeUsers) FilterTrackedScreenNames(_ context.Context, _ []string) (map[string]domain.User, error) {
	return map[string]domain.User{}, nil
}

type fakeTweets struct {
	activity []domain.Tweet
	params   domain.SkillActivityParams
	err      error
}

func (f *fakeTweets) FindTweet(_ context.Context, _ string) (*domain.Tweet, error) {
	return nil, domain.ErrTweetNotFound
}

func (f *fakeTweets) UpsertTweet(_ context.Context, _ *domain.Tweet) error { return nil }

func (f *fakeTweets) RemoveTweet(_ context.Context, _ string) error { return nil }

func (f *fakeTweets) RemoveTweetsWithMentionee(_ context.Context, _ string) error { return nil }

func (f *fakeTweets) IncrementRetweetCount(_ context.Context, _ string) error { return nil }

func (f *fakeTweets) GetLatestTweetID(_ context.Context, _ string) (string, error) { return "", nil }

func (f *fakeTweets) GetSkillActivity(_ context.Context, params domain.SkillActivityParams) ([]domain.Tweet, error) {
	f.params = params
	return f.activity, f.err
}

type fakeHub struct {
	mu           sync.Mutex
	registered   int
	unregistered int
	registerErr  error
}

func (f *fakeHub) Register(conn websocket.Conn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered++
	return nil
}

func (f *fakeHub) Unregister(conn websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregistered++
}

func (f *fakeHub) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered - f.unregistered
}

func (f *fakeHub) counts() (registered, unregistered int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered, f.unregistered
}

type fakeQueue struct {
	actions []domain.Action
	doneErr error
	err     error
}

func (f *fakeQueue) Enqueue(_ context.Context, action domain.Action) error {
	if f.err != nil {
		return f.err
	}
	f.actions = append(f.actions, action)
	if action.Done != nil {
		action.Done(f.doneErr)
	}
	return nil
}

type fakeStreams struct {
	open   map[string]bool
	closed []string
}

func (f *fakeStreams) Close(twitterID string) {
	f.closed = append(f.closed, twitterID)
	delete(f.open, twitterID)
}

func (f *fakeStreams) IsOpen(twitterID string) bool { return f.open[twitterID] }

type fakeLister struct {
	infos []coordination.StreamInfo
	err   error
}

func (f *fakeLister) ListOpen(_ context.Context) ([]coordination.StreamInfo, error) {
	return f.infos, f.err
}

type fakePostgres struct{ pingErr error }

func (f *fakePostgres) Ping(_ context.Context) error { return f.pingErr }

type fakeRedis struct{ pingErr error }

func (f *fakeRedis) Ping(ctx context.Context) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx)
	if f.pingErr != nil {
		cmd.SetErr(f.pingErr)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

// --- Test server wiring ---

type testDeps struct {
	skills   *fakeSkillStore
	users    *fakeUsers
	tweets   *fakeTweets
	hub      *fakeHub
	queue    *fakeQueue
	streams  *fakeStreams
	lister   *fakeLister
	postgres *fakePostgres
	redis    *fakeRedis
}

func newTestDeps() *testDeps {
	return &testDeps{
		skills:   &fakeSkillStore{},
		users:    &fakeUsers{byUsername: make(map[string]*domain.User)},
		tweets:   &fakeTweets{},
		hub:      &fakeHub{},
		queue:    &fakeQueue{},
		streams:  &fakeStreams{open: make(map[string]bool)},
		lister:   &fakeLister{},
		postgres: &fakePostgres{},
		redis:    &fakeRedis{},
	}
}

func newTestServer(t *testing.T, deps *testDeps) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:                    "8080",
		MaxConnections:          100,
		MaxConnectionsPerIP:     10,
		ConnectionRatePerSecond: 1000,
		ConnectionBurst:         1000,
	}

	return NewServer(cfg, Deps{
		Rank:     rank.NewService(deps.skills),
		Tweets:   deps.tweets,
		Users:    deps.users,
		Hub:      deps.hub,
		Queue:    deps.queue,
		Streams:  deps.streams,
		Registry: deps.lister,
		Postgres: deps.postgres,
		Redis:    deps.redis,
	})
}

func newContext(t *testing.T, method, target string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}
