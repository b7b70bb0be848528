// Generation request HTTP handlers.
//
// This file exposes REST endpoints for the request lifecycle:
//   - POST /requests              (submit text-to-image)
//   - POST /requests/remix        (submit from someone else's message)
//   - POST /requests/img2img      (open an image-to-image shell)
//   - PUT  /requests/{id}/prompt  (complete an img2img shell)
//   - GET  /requests/{id}         (read one request)
//   - GET  /requests              (history, paginated)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aibalabs/aiba-backend/internal/domain"
	"github.com/aibalabs/aiba-backend/internal/http/middleware"
	"github.com/aibalabs/aiba-backend/internal/repo"
	"github.com/aibalabs/aiba-backend/internal/services"
	"github.com/aibalabs/aiba-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// RequestService defines the request lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type RequestService interface {
	SubmitText(ctx context.Context, in services.Submission) (*services.Submitted, error)
	SubmitRemix(ctx context.Context, in services.Submission) (*services.Submitted, error)
	SubmitImage(ctx context.Context, in services.Submission) (*domain.Request, error)
	CompleteImage(ctx context.Context, requestID string, in services.Submission) (*services.Submitted, error)
	Get(ctx context.Context, id string) (*domain.Request, error)
	Position(requestID string) string
	ListPage(ctx context.Context, guildID, userID string, page, pageSize int) ([]domain.Request, int64, error)
}

// ScoreService defines the vote operation consumed by HTTP handlers.
type ScoreService interface {
	Vote(ctx context.Context, requestID, voterID string, value int) (*domain.Request, error)
}

// GuildService defines tenant policy operations consumed by HTTP handlers.
type GuildService interface {
	Get(ctx context.Context, guildID, name string) (*domain.Guild, error)
	UpdateSetting(ctx context.Context, guildID, field, value string) (*domain.Guild, error)
	SetNegativePrompt(ctx context.Context, guildID, tags string, appendMode bool) (*domain.Guild, error)
}

// StatsService defines usage reporting operations consumed by HTTP handlers.
type StatsService interface {
	Top(ctx context.Context, guildID string, limit int) ([]domain.GuildUserStat, error)
	Usage(ctx context.Context, guildID, userID string) (*domain.GuildUserStat, error)
}

// PauseController is the dispatcher surface exposed to admin endpoints.
type PauseController interface {
	SetPaused(v bool)
	Paused() bool
}

// QueueInfo is the queue surface exposed to read-only endpoints.
type QueueInfo interface {
	Len() int
	Position(requestID string) int
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for requests, votes, guild policy, and
// administration. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	reqSvc   RequestService
	scoreSvc ScoreService
	guildSvc GuildService
	statsSvc StatsService
	pause    PauseController
	queue    QueueInfo
}

// New constructs a Handlers instance bound to the given services.
func New(reqSvc RequestService, scoreSvc ScoreService, guildSvc GuildService, statsSvc StatsService, pause PauseController, q QueueInfo) *Handlers {
	return &Handlers{
		reqSvc:   reqSvc,
		scoreSvc: scoreSvc,
		guildSvc: guildSvc,
		statsSvc: statsSvc,
		pause:    pause,
		queue:    q,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header, and finally
// to "demo-user".
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// SubmitRequestBody is the JSON payload for submitting a generation request.
type SubmitRequestBody struct {
	GuildID   string `json:"guild_id" binding:"required"`
	GuildName string `json:"guild_name"`
	ChannelID string `json:"channel_id"`
	ReplyTo   string `json:"reply_to"`
	Username  string `json:"username"`

	Prompt   string   `json:"prompt"`
	Steps    *int     `json:"steps"`
	CfgScale *float64 `json:"cfg_scale"`

	// Remix only.
	OriginalAuthorID string `json:"original_author_id"`
	// Img2img only.
	SourceImageURL    string   `json:"source_image_url"`
	DenoisingStrength *float64 `json:"denoising_strength"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	Request      *domain.Request `json:"request"`
	Position     string          `json:"position"`
	EphemeralAck bool            `json:"ephemeral_ack"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListRequestsResponse wraps a page of requests and pagination information.
type ListRequestsResponse struct {
	Requests   []domain.Request `json:"requests"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

func (b SubmitRequestBody) submission(c *gin.Context) services.Submission {
	return services.Submission{
		UserID:            userID(c),
		Username:          b.Username,
		GuildID:           b.GuildID,
		GuildName:         b.GuildName,
		ChannelID:         b.ChannelID,
		ReplyTo:           b.ReplyTo,
		Prompt:            b.Prompt,
		Steps:             b.Steps,
		CfgScale:          b.CfgScale,
		DenoisingStrength: b.DenoisingStrength,
		SourceImageURL:    b.SourceImageURL,
		OriginalAuthorID:  b.OriginalAuthorID,
	}
}

// replayIdempotent serves a previously stored submission when the caller
// retries with the same Idempotency-Key. Returns true when the response has
// been written.
func (h *Handlers) replayIdempotent(c *gin.Context, guildID string) bool {
	key, _ := middleware.GetIdempotencyKey(c)
	if key == "" {
		return false
	}
	svc, okSvc := h.reqSvc.(*services.RequestService)
	if !okSvc || svc.DB == nil {
		return false
	}
	ctx := c.Request.Context()
	rec, err := repo.GetIdempotency(ctx, svc.DB, userID(c), guildID, key, time.Now().UTC())
	if err != nil || rec == nil {
		return false
	}
	prev, err := repo.GetRequest(ctx, svc.DB, rec.RequestID)
	if err != nil {
		return false
	}
	c.Header("Idempotency-Replayed", "true")
	ok(c, http.StatusOK, SubmitResponse{Request: prev, Position: h.reqSvc.Position(prev.ID)})
	return true
}

// storeIdempotent records the created request under the caller's
// Idempotency-Key. Best effort.
func (h *Handlers) storeIdempotent(c *gin.Context, guildID, requestID string) {
	key, _ := middleware.GetIdempotencyKey(c)
	if key == "" {
		return
	}
	if svc, okSvc := h.reqSvc.(*services.RequestService); okSvc && svc.DB != nil {
		ttl := 24 * time.Hour
		_, _ = repo.CreateIdempotency(c.Request.Context(), svc.DB, userID(c), guildID, key, requestID, http.StatusCreated, ttl)
	}
}

// failSubmit maps service submission errors onto HTTP responses.
func failSubmit(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyPrompt):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt is required")
	case errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt too long")
	case errors.Is(err, services.ErrRequestNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not the owner of this request")
	case errors.Is(err, services.ErrInvalidState):
		fail(c, http.StatusConflict, ErrCodeConflict, "request is not in a valid state for this operation")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeSubmitFailed, err.Error())
	}
}

//
// Handlers
//

// SubmitText accepts a text-to-image request and returns the queued record
// with its queue position.
func (h *Handlers) SubmitText(c *gin.Context) {
	var body SubmitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if h.replayIdempotent(c, body.GuildID) {
		return
	}

	out, err := h.reqSvc.SubmitText(c.Request.Context(), body.submission(c))
	if err != nil {
		failSubmit(c, err)
		return
	}
	h.storeIdempotent(c, body.GuildID, out.Request.ID)
	ok(c, http.StatusCreated, SubmitResponse{Request: out.Request, Position: out.Position, EphemeralAck: out.EphemeralAck})
}

// SubmitRemix accepts a request whose prompt was lifted from another user's
// message.
func (h *Handlers) SubmitRemix(c *gin.Context) {
	var body SubmitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if h.replayIdempotent(c, body.GuildID) {
		return
	}

	out, err := h.reqSvc.SubmitRemix(c.Request.Context(), body.submission(c))
	if err != nil {
		failSubmit(c, err)
		return
	}
	h.storeIdempotent(c, body.GuildID, out.Request.ID)
	ok(c, http.StatusCreated, SubmitResponse{Request: out.Request, Position: out.Position, EphemeralAck: out.EphemeralAck})
}

// SubmitImage opens an image-to-image request shell that awaits its prompt.
func (h *Handlers) SubmitImage(c *gin.Context) {
	var body SubmitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.SourceImageURL) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "source_image_url is required")
		return
	}

	r, err := h.reqSvc.SubmitImage(c.Request.Context(), body.submission(c))
	if err != nil {
		failSubmit(c, err)
		return
	}
	ok(c, http.StatusCreated, r)
}

// CompleteImage attaches a prompt to an awaiting img2img shell and queues it.
func (h *Handlers) CompleteImage(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var body SubmitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	out, err := h.reqSvc.CompleteImage(c.Request.Context(), id, body.submission(c))
	if err != nil {
		failSubmit(c, err)
		return
	}
	ok(c, http.StatusOK, SubmitResponse{Request: out.Request, Position: out.Position, EphemeralAck: out.EphemeralAck})
}

// GetRequest returns one request by ID.
func (h *Handlers) GetRequest(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	r, err := h.reqSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, r)
}

// ListRequests returns a page of the caller's requests in a guild.
func (h *Handlers) ListRequests(c *gin.Context) {
	guildID := strings.TrimSpace(c.Query("guild_id"))
	if guildID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guild_id query parameter is required")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.reqSvc.ListPage(c.Request.Context(), guildID, userID(c), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListRequestsResponse{
		Requests: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
