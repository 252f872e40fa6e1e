// Moderation HTTP handlers (admin only).
//
//   - GET  /admin/flagged-scores       (pending review queue, paginated)
//   - POST /admin/review-score/{id}    (approve or deny)
//   - GET  /admin/scores/{name}        (every score of a player, any state)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/reaction-leaderboard/internal/domain"
)

// ReviewRequest is the JSON payload for POST /admin/review-score/{id}.
type ReviewRequest struct {
	// Action is "approve" or "deny".
	Action string `json:"action" example:"approve"`
}

// ListFlaggedResponse wraps a page of the review queue.
type ListFlaggedResponse struct {
	Scores     []domain.Score `json:"scores"`
	Pagination Pagination     `json:"pagination"`
}

// ListFlagged godoc
// @ID          listFlaggedScores
// @Summary     Review queue
// @Description Returns flagged scores awaiting review, newest first, with their flag reasons.
// @Tags        Admin
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Admin identity (demo header)"  example(root@example.com)
// @Param       page       query   int     false "Page number"                   minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"                minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListFlaggedResponse
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse "admin access required"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /admin/flagged-scores [get]
func (h *Handlers) ListFlagged(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.reviews.ListPending(c.Request.Context(), page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ListFlaggedResponse{
		Scores:     items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// ReviewScore godoc
// @ID          reviewScore
// @Summary     Resolve a flagged score
// @Description Approve makes the score visible and clears its flag; deny keeps it hidden. Repeating the current decision is a no-op.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Admin identity (demo header)"  example(root@example.com)
// @Param       id         path    string  true  "Score ID (UUID)"               format(uuid) example(0190f7a2-5c1e-7b3a-9d4e-2f1a6b8c9d0e)
// @Param       body       body    handlers.ReviewRequest  true  "Decision"
//
// @Success     200  {object}  domain.Score
// @Failure     400  {object}  handlers.ErrorResponse "Invalid action"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse "admin access required"
// @Failure     404  {object}  handlers.ErrorResponse "Score not found"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /admin/review-score/{id} [post]
func (h *Handlers) ReviewScore(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "score id required")
		return
	}

	s, err := h.reviews.Resolve(c.Request.Context(), id, req.Action, identity(c))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// PlayerScores godoc
// @ID          playerScores
// @Summary     Player audit view
// @Description Returns every score of a player including flagged and denied ones, newest first.
// @Tags        Admin
// @Produce     json
//
// @Param       X-User-ID  header  string  false "Admin identity (demo header)"  example(root@example.com)
// @Param       name       path    string  true  "Player identity"               example(ann@example.com)
//
// @Success     200  {array}   domain.Score
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse "admin access required"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /admin/scores/{name} [get]
func (h *Handlers) PlayerScores(c *gin.Context) {
	items, err := h.reviews.ScoresFor(c.Request.Context(), c.Param("name"))
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.Score{}
	}
	ok(c, http.StatusOK, items)
}
