// Administration and queue HTTP handlers.
//
// This file exposes the dispatcher pause switch and read-only queue state:
//   - GET /admin/paused
//   - PUT /admin/paused
//   - GET /queue
//   - GET /queue/{id}/position
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aibalabs/aiba-backend/internal/queue"
)

// PausedBody is the JSON payload for flipping the dispatcher pause flag.
type PausedBody struct {
	Paused *bool `json:"paused" binding:"required"`
}

// GetPaused reports whether dispatching is currently paused.
func (h *Handlers) GetPaused(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"paused": h.pause.Paused()})
}

// SetPaused flips the dispatcher pause flag. While paused, queued requests
// keep their positions and nothing is sent to the backend.
func (h *Handlers) SetPaused(c *gin.Context) {
	var body PausedBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Paused == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "paused is required")
		return
	}
	h.pause.SetPaused(*body.Paused)
	ok(c, http.StatusOK, gin.H{"paused": h.pause.Paused()})
}

// QueueState returns the current queue depth.
func (h *Handlers) QueueState(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"depth": h.queue.Len(), "paused": h.pause.Paused()})
}

// QueuePosition returns a request's 1-based rank and its display form.
func (h *Handlers) QueuePosition(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	pos := h.queue.Position(id)
	ok(c, http.StatusOK, gin.H{
		"request_id": id,
		"position":   pos,
		"display":    queue.FormatPosition(pos),
	})
}
