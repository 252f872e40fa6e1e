// Score HTTP handlers.
//
// This file exposes the player-facing endpoints:
//   - POST /score                 (submit a reaction time)
//   - GET  /scores                (public leaderboard, ETag support)
//   - GET  /personal-best/{name}  (best visible score of a player)
//   - GET  /me/scores             (caller's own visible history)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/reaction-leaderboard/internal/http/middleware"
	"github.com/tbourn/reaction-leaderboard/internal/services"
	"github.com/tbourn/reaction-leaderboard/internal/utils"
)

// SubmitScoreRequest is the JSON payload for POST /score. The owner of the
// score is always the authenticated caller.
type SubmitScoreRequest struct {
	// Score is the reaction time in milliseconds.
	Score *float64 `json:"score" example:"231"`
}

// PersonalBestResponse carries a player's best visible score, or null.
type PersonalBestResponse struct {
	PersonalBest *float64 `json:"personalBest" example:"198"`
}

// SubmitScore godoc
// @ID          submitScore
// @Summary     Submit a reaction time
// @Description Records a score for the caller. Suspicious scores are stored for review and hidden from rankings; the response never reveals whether a score was flagged.
// @Tags        Scores
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User identity (demo header)"  example(ann@example.com)
// @Param       Idempotency-Key  header  string  false "Replays the stored score for a retried submission"  example(3f6c2a1e-submit-1)
// @Param       body             body    handlers.SubmitScoreRequest  true  "Score payload"
//
// @Success     200  {object}  services.PublicScore
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid score"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     429  {object}  handlers.ErrorResponse  "Submitted again within the cooldown"
// @Header      429  {string}  Retry-After  "Seconds until the next submission is accepted"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /score [post]
func (h *Handlers) SubmitScore(c *gin.Context) {
	var req SubmitScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body must be {\"score\": <milliseconds>}")
		return
	}
	if req.Score == nil {
		failService(c, services.ErrInvalidScore)
		return
	}

	ctx := c.Request.Context()
	uid := identity(c)
	key, hasKey := middleware.GetIdempotencyKey(c)

	if hasKey && middleware.IsReplay(c) {
		if prev, found := h.board.Replay(ctx, uid, key, h.now()); found {
			c.Header("Idempotent-Replay", "true")
			ok(c, http.StatusOK, prev)
			return
		}
	}

	score, err := h.board.Submit(ctx, uid, *req.Score, h.now())
	if err != nil {
		failService(c, err)
		return
	}
	if hasKey {
		h.board.Remember(ctx, uid, key, score.ID)
	}
	ok(c, http.StatusOK, score)
}

// ListScores godoc
// @ID          listScores
// @Summary     Leaderboard
// @Description Returns the best visible scores, fastest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Scores
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User identity (demo header)"  example(ann@example.com)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"   example(W/\"scores:10:12:1700000000000000000\")
// @Param       limit          query   int     false "Number of entries"            minimum(1) maximum(100) default(10)
//
// @Success     200  {array}   services.RankedScore
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /scores [get]
func (h *Handlers) ListScores(c *gin.Context) {
	ctx := c.Request.Context()
	limit := utils.AtoiDefault(c.Query("limit"), 0)

	// ETag pre-check (best effort).
	if h.stats != nil {
		if count, maxTS, err := h.stats(ctx); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"scores:%d:%d:%d"`, limit, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	top, err := h.board.TopScores(ctx, limit)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, top)
}

// PersonalBest godoc
// @ID          personalBest
// @Summary     Personal best
// @Description Returns the lowest visible score of a player, or null when the player has none.
// @Tags        Scores
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User identity (demo header)"  example(ann@example.com)
// @Param       name       path    string  true  "Player identity"              example(ann@example.com)
//
// @Success     200  {object}  handlers.PersonalBestResponse
// @Failure     400  {object}  handlers.ErrorResponse "Missing name"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /personal-best/{name} [get]
func (h *Handlers) PersonalBest(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}
	pb, err := h.board.PersonalBest(c.Request.Context(), name)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, PersonalBestResponse{PersonalBest: pb})
}

// MyScores godoc
// @ID          myScores
// @Summary     Own history
// @Description Returns the caller's most recent visible scores, newest first.
// @Tags        Scores
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User identity (demo header)"  example(ann@example.com)
// @Param       limit      query   int     false "Number of entries"            minimum(1) maximum(100) default(10)
//
// @Success     200  {array}   services.PublicScore
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /me/scores [get]
func (h *Handlers) MyScores(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 0)
	items, err := h.board.History(c.Request.Context(), identity(c), limit)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

