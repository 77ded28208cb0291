package server

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/itt1233/augeo/internal/domain"
	apperrors "github.com/itt1233/augeo/internal/errors"
)

const (
	defaultLeaderboardLimit = 10
	defaultActivityLimit    = 20
	maxListLimit            = 100
)

// limitParam parses the optional "limit" query parameter, clamped to
// maxListLimit.
func limitParam(c echo.Context, fallback int) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func (s *Server) handleLeaderboard(c echo.Context) error {
	skill := c.Param("skill")

	limit, err := limitParam(c, defaultLeaderboardLimit)
	if err != nil {
		return apperrors.HandleValidationError(c, err.Error())
	}

	standings, err := s.rank.Leaderboard(c.Request().Context(), skill, limit)
	if err != nil {
		return apperrors.HandleInternalError(c, "failed to load leaderboard", err)
	}

	return c.JSON(200, map[string]any{
		"skill":     skill,
		"standings": standings,
	})
}

func (s *Server) handleRank(c echo.Context) error {
	skill := c.Param("skill")
	username := c.Param("username")
	ctx := c.Request().Context()

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return apperrors.HandleNotFoundError(c, "user not found")
	}
	if err != nil {
		return apperrors.HandleInternalError(c, "failed to load user", err)
	}

	position, err := s.rank.Rank(ctx, skill, user.ID)
	if err != nil {
		return apperrors.HandleInternalError(c, "failed to compute rank", err)
	}

	return c.JSON(200, map[string]any{
		"skill":    skill,
		"username": user.Username,
		"rank":     position,
	})
}

func (s *Server) handleActivity(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := limitParam(c, defaultActivityLimit)
	if err != nil {
		return apperrors.HandleValidationError(c, err.Error())
	}

	params := domain.SkillActivityParams{
		ScreenName: c.Param("screenName"),
		Skill:      c.QueryParam("skill"),
		MaxTweetID: c.QueryParam("max_id"),
		Limit:      limit,
	}

	tweets, err := s.tweets.GetSkillActivity(ctx, params)
	if err != nil {
		return apperrors.HandleInternalError(c, "failed to load activity", err)
	}

	return c.JSON(200, map[string]any{
		"screen_name": params.ScreenName,
		"tweets":      tweets,
	})
}

func (s *Server) handleListStreams(c echo.Context) error {
	streams, err := s.registry.ListOpen(c.Request().Context())
	if err != nil {
		return apperrors.HandleInternalError(c, "failed to list streams", err)
	}
	return c.JSON(200, map[string]any{"streams": streams})
}

func (s *Server) handleOpenStream(c echo.Context) error {
	twitterID := c.Param("twitterID")
	ctx := c.Request().Context()

	// Open runs outside the serialized actor; the queue reports its outcome
	// through the Done callback once the connection attempt settles.
	done := make(chan error, 1)
	action := domain.Action{
		Type: domain.ActionOpen,
		Open: &domain.OpenRequest{TwitterID: twitterID},
		Done: func(err error) { done <- err },
	}

	if err := s.queue.Enqueue(ctx, action); err != nil {
		return apperrors.HandleValidationError(c, err.Error())
	}

	if err := <-done; err != nil {
		streamErr := apperrors.ExternalError("failed to open stream", err).
			WithContext("twitter_id", twitterID)
		return apperrors.HandleError(c, streamErr)
	}

	return c.JSON(200, map[string]string{
		"status":     "open",
		"twitter_id": twitterID,
	})
}

func (s *Server) handleCloseStream(c echo.Context) error {
	twitterID := c.Param("twitterID")

	if !s.streams.IsOpen(twitterID) {
		return apperrors.HandleNotFoundError(c, "stream not open")
	}
	s.streams.Close(twitterID)

	return c.JSON(200, map[string]string{
		"status":     "closed",
		"twitter_id": twitterID,
	})
}
