package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/abhisek/wordmine/internal/gems"
	"github.com/abhisek/wordmine/internal/session"
	"github.com/abhisek/wordmine/internal/spacedrep"
	"github.com/abhisek/wordmine/internal/store"
)

const (
	defaultSessionLimit = 10
	maxListLimit        = 100
	defaultGemLimit     = 50
)

type ingestResponse struct {
	Success   bool                        `json:"success"`
	SessionID string                      `json:"sessionId"`
	Duplicate bool                        `json:"duplicate"`
	Metrics   session.Metrics             `json:"metrics"`
	Skipped   []session.SideEffectFailure `json:"skipped,omitempty"`
}

func (s *Server) handleIngest(c echo.Context) error {
	var sub session.Submission
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body").SetInternal(err)
	}

	res, err := s.collector.Ingest(c.Request().Context(), studentID(c), &sub)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ingestResponse{
		Success:   true,
		SessionID: res.Session.ID,
		Duplicate: res.Duplicate,
		Metrics:   res.Metrics,
		Skipped:   res.Skipped,
	})
}

func (s *Server) handleListSessions(c echo.Context) error {
	limit, err := limitParam(c, defaultSessionLimit)
	if err != nil {
		return err
	}
	sessions, err := s.sessions.List(c.Request().Context(), store.SessionQuery{
		StudentID:    studentID(c),
		AssignmentID: c.QueryParam("assignmentId"),
		Limit:        limit,
	})
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "sessions": sessions})
}

// gemView decorates a ledger record with its display rarity and review
// status.
type gemView struct {
	gems.Record
	Rarity          gems.Rarity            `json:"rarity"`
	ReviewStatus    spacedrep.ReviewStatus `json:"reviewStatus"`
	DaysUntilReview int                    `json:"daysUntilReview"`
}

func viewGems(recs []gems.Record, now time.Time) []gemView {
	return lo.Map(recs, func(r gems.Record, _ int) gemView {
		rs := r.ReviewState()
		return gemView{
			Record:          r,
			Rarity:          gems.RarityForLevel(r.GemLevel),
			ReviewStatus:    rs.Status(now),
			DaysUntilReview: rs.DaysUntilReview(now),
		}
	})
}

func (s *Server) handleGems(c echo.Context) error {
	limit, err := limitParam(c, defaultGemLimit)
	if err != nil {
		return err
	}
	recs, err := s.ledger.Collection(c.Request().Context(), studentID(c), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "gems": viewGems(recs, s.now())})
}

func (s *Server) handleDueReviews(c echo.Context) error {
	limit, err := limitParam(c, 0)
	if err != nil {
		return err
	}
	now := s.now()
	recs, err := s.ledger.DueForReview(c.Request().Context(), studentID(c), now, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "due": viewGems(recs, now)})
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "status": "ok"})
}

// limitParam parses ?limit=, applying def when absent and capping at
// maxListLimit.
func limitParam(c echo.Context, def int) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
	}
	return min(n, maxListLimit), nil
}
