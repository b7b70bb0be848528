// Vote HTTP handlers.
//
// This file exposes the rating endpoint for finished generations:
//   - POST /requests/{id}/votes
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aibalabs/aiba-backend/internal/services"
)

// votesTotal counts accepted votes by direction.
var votesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "request_votes_total",
		Help: "Total number of accepted votes on generation requests.",
	},
	[]string{"direction"},
)

func init() {
	prometheus.MustRegister(votesTotal)
}

// VoteBody is the JSON payload for rating a request.
type VoteBody struct {
	// Value is 1 (like) or -1 (dislike).
	Value int `json:"value" binding:"required"`
}

// VoteResponse returns the request's counters after the vote.
type VoteResponse struct {
	RequestID string `json:"request_id"`
	Likes     int    `json:"likes"`
	Dislikes  int    `json:"dislikes"`
	Score     int    `json:"score"`
}

// Vote records the caller's rating of a finished request. Repeating an
// identical vote is a no-op; flipping swings the score by two.
func (h *Handlers) Vote(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var body VoteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	r, err := h.scoreSvc.Vote(c.Request.Context(), id, userID(c), body.Value)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidVote):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value must be -1 or 1")
		case errors.Is(err, services.ErrRequestNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case errors.Is(err, services.ErrNotVotable):
			fail(c, http.StatusConflict, ErrCodeConflict, "request cannot be voted on")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeVoteFailed, err.Error())
		}
		return
	}

	if body.Value == 1 {
		votesTotal.WithLabelValues("like").Inc()
	} else {
		votesTotal.WithLabelValues("dislike").Inc()
	}

	ok(c, http.StatusOK, VoteResponse{
		RequestID: r.ID,
		Likes:     r.Likes,
		Dislikes:  r.Dislikes,
		Score:     r.Score(),
	})
}
