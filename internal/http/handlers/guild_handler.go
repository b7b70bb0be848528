// Guild policy HTTP handlers.
//
// This file exposes tenant configuration and usage endpoints:
//   - GET /guilds/{id}/settings
//   - PUT /guilds/{id}/settings/{field}
//   - PUT /guilds/{id}/negative_prompt
//   - GET /guilds/{id}/top
//   - GET /guilds/{id}/usage
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aibalabs/aiba-backend/internal/services"
	"github.com/aibalabs/aiba-backend/internal/utils"
)

// UpdateSettingBody is the JSON payload for changing one policy field.
type UpdateSettingBody struct {
	Value string `json:"value" binding:"required"`
}

// NegativePromptBody is the JSON payload for replacing or extending the
// negative prompt tag list.
type NegativePromptBody struct {
	Tags   string `json:"tags" binding:"required"`
	Append bool   `json:"append"`
}

// GetSettings returns the guild's policy, creating it with defaults on first
// reference.
func (h *Handlers) GetSettings(c *gin.Context) {
	guildID := c.Param("id")
	g, err := h.guildSvc.Get(c.Request.Context(), guildID, c.Query("name"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, g)
}

// UpdateSetting validates and applies a single policy field change.
func (h *Handlers) UpdateSetting(c *gin.Context) {
	guildID := c.Param("id")
	field := c.Param("field")

	var body UpdateSettingBody
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Value) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value is required")
		return
	}

	g, err := h.guildSvc.UpdateSetting(c.Request.Context(), guildID, field, body.Value)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGuildNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "guild not found")
		case errors.Is(err, services.ErrUnknownSetting):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown setting")
		case errors.Is(err, services.ErrInvalidSetting):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid setting value")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSettingFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, g)
}

// SetNegativePrompt replaces or extends the guild's negative prompt tags.
func (h *Handlers) SetNegativePrompt(c *gin.Context) {
	guildID := c.Param("id")

	var body NegativePromptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	g, err := h.guildSvc.SetNegativePrompt(c.Request.Context(), guildID, body.Tags, body.Append)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGuildNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "guild not found")
		case errors.Is(err, services.ErrInvalidSetting):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "tags are required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSettingFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, g)
}

// TopUsers returns the guild's heaviest submitters.
func (h *Handlers) TopUsers(c *gin.Context) {
	guildID := c.Param("id")
	limit := utils.AtoiDefault(c.Query("limit"), 10)

	top, err := h.statsSvc.Top(c.Request.Context(), guildID, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"guild_id": guildID, "top": top})
}

// Usage returns the caller's submission count in a guild.
func (h *Handlers) Usage(c *gin.Context) {
	guildID := c.Param("id")

	stat, err := h.statsSvc.Usage(c.Request.Context(), guildID, userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stat)
}
