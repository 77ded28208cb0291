package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itt1233/augeo/internal/coordination"
	"github.com/itt1233/augeo/internal/domain"
)

func TestHandleLeaderboard(t *testing.T) {
	deps := newTestDeps()
	deps.skills.standings = []domain.SkillStanding{
		{UserID: uuid.New(), Username: "alice", ScreenName: "alice_tw", Experience: 300},
		{UserID: uuid.New(), Username: "bob", ScreenName: "bob_tw", Experience: 120},
	}
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodGet, "/api/skills/golang/leaderboard")
	c.SetParamNames("skill")
	c.SetParamValues("golang")

	require.NoError(t, srv.handleLeaderboard(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skill":"golang"`)
	assert.Contains(t, rec.Body.String(), `"alice"`)
	assert.Contains(t, rec.Body.String(), `"bob"`)
}

func TestHandleLeaderboard_LimitApplied(t *testing.T) {
	deps := newTestDeps()
	deps.skills.standings = []domain.SkillStanding{
		{Username: "alice", Experience: 300},
		{Username: "bob", Experience: 120},
		{Username: "carol", Experience: 50},
	}
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodGet, "/api/skills/golang/leaderboard?limit=2")
	c.SetParamNames("skill")
	c.SetParamValues("golang")

	require.NoError(t, srv.handleLeaderboard(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bob"`)
	assert.NotContains(t, rec.Body.String(), `"carol"`)
}

func TestHandleLeaderboard_RejectsBadLimit(t *testing.T) {
	srv := newTestServer(t, newTestDeps())

	for _, limit := range []string{"0", "-3", "abc"} {
		c, rec := newContext(t, http.MethodGet, "/api/skills/golang/leaderboard?limit="+limit)
		c.SetParamNames("skill")
		c.SetParamValues("golang")

		require.NoError(t, srv.handleLeaderboard(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHandleLeaderboard_StoreFailure(t *testing.T) {
	deps := newTestDeps()
	deps.skills.err = errors.New("connection refused")
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodGet, "/api/skills/golang/leaderboard")
	c.SetParamNames("skill")
	c.SetParamValues("golang")

	require.NoError(t, srv.handleLeaderboard(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleRank(t *testing.T) {
	deps := newTestDeps()
	userID := uuid.New()
	deps.users.byUsername["alice"] = &domain.User{ID: userID, Username: "alice"}
	deps.skills.experience = map[string]int64{skillKey(userID, "golang"): 150}
	deps.skills.ahead = 4
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodGet, "/api/skills/golang/rank/alice")
	c.SetParamNames("skill", "username")
	c.SetParamValues("golang", "alice")

	require.NoError(t, srv.handleRank(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rank":5`)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}

func TestHandleRank_UnknownUser(t *testing.T) {
	srv := newTestServer(t, newTestDeps())

	c, rec := newContext(t, http.MethodGet, "/api/skills/golang/rank/ghost")
	c.SetParamNames("skill", "username")
	c.SetParamValues("golang", "ghost")

	require.NoError(t, srv.handleRank(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRank_UserLookupFailure(t *testing.T) {
	deps := newTestDeps()
	deps.users.err = errors.New("connection refused")
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodGet, "/api/skills/golang/rank/alice")
	c.SetParamNames("skill", "username")
	c.SetParamValues("golang", "alice")

	require.NoError(t, srv.handleRank(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleActivity(t *testing.T) {
	deps := newTestDeps()
	deps.tweets.activity = []domain.Tweet{
		{TweetID: "100", ScreenName: "alice_tw", Text: "learning #golang"},
	}
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodGet, "/api/users/alice_tw/activity?skill=golang&max_id=200")
	c.SetParamNames("screenName")
	c.SetParamValues("alice_tw")

	require.NoError(t, srv.handleActivity(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"100"`)

	assert.Equal(t, "alice_tw", deps.tweets.params.ScreenName)
	assert.Equal(t, "golang", deps.tweets.params.Skill)
	assert.Equal(t, "200", deps.tweets.params.MaxTweetID)
	assert.Equal(t, defaultActivityLimit, deps.tweets.params.Limit)
}

func TestHandleActivity_ClampsLimit(t *testing.T) {
	deps := newTestDeps()
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodGet, "/api/users/alice_tw/activity?limit=5000")
	c.SetParamNames("screenName")
	c.SetParamValues("alice_tw")

	require.NoError(t, srv.handleActivity(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxListLimit, deps.tweets.params.Limit)
}

func TestHandleListStreams(t *testing.T) {
	deps := newTestDeps()
	deps.lister.infos = []coordination.StreamInfo{
		{TwitterID: "123", InstanceID: "instance-a", OpenedAt: 1000, Heartbeat: 1000},
	}
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodGet, "/api/streams")

	require.NoError(t, srv.handleListStreams(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"123"`)
	assert.Contains(t, rec.Body.String(), `"instance-a"`)
}

func TestHandleOpenStream(t *testing.T) {
	deps := newTestDeps()
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodPost, "/api/streams/123")
	c.SetParamNames("twitterID")
	c.SetParamValues("123")

	require.NoError(t, srv.handleOpenStream(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"open"`)

	require.Len(t, deps.queue.actions, 1)
	action := deps.queue.actions[0]
	assert.Equal(t, domain.ActionOpen, action.Type)
	require.NotNil(t, action.Open)
	assert.Equal(t, "123", action.Open.TwitterID)
}

func TestHandleOpenStream_OpenFails(t *testing.T) {
	deps := newTestDeps()
	deps.queue.doneErr = errors.New("dial timeout")
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodPost, "/api/streams/123")
	c.SetParamNames("twitterID")
	c.SetParamValues("123")

	require.NoError(t, srv.handleOpenStream(c))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleCloseStream(t *testing.T) {
	deps := newTestDeps()
	deps.streams.open["123"] = true
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodDelete, "/api/streams/123")
	c.SetParamNames("twitterID")
	c.SetParamValues("123")

	require.NoError(t, srv.handleCloseStream(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"123"}, deps.streams.closed)
}

func TestHandleCloseStream_NotOpen(t *testing.T) {
	deps := newTestDeps()
	srv := newTestServer(t, deps)

	c, rec := newContext(t, http.MethodDelete, "/api/streams/123")
	c.SetParamNames("twitterID")
	c.SetParamValues("123")

	require.NoError(t, srv.handleCloseStream(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, deps.streams.closed)
}
