// Package services – RequestService
//
// This file implements the RequestService, which owns the submission side of
// the generation lifecycle. It validates prompts, resolves effective
// parameters against guild policy, normalizes the prompt text, persists the
// request record, and places it on the dispatch queue. Service-level errors
// (e.g. ErrEmptyPrompt, ErrInvalidState, ErrForbidden) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/domain"
	"github.com/aibalabs/aiba-backend/internal/policy"
	"github.com/aibalabs/aiba-backend/internal/queue"
	"github.com/aibalabs/aiba-backend/internal/repo"
)

// Submission carries the caller identity and content of a new generation
// request. Steps, CfgScale and DenoisingStrength are optional overrides; nil
// means "use the guild default".
type Submission struct {
	UserID    string
	Username  string
	GuildID   string
	GuildName string
	ChannelID string

	// ReplyTo is the handle the notifier delivers the result to.
	ReplyTo string

	Prompt            string
	Steps             *int
	CfgScale          *float64
	DenoisingStrength *float64

	// SourceImageURL is set for img2img submissions.
	SourceImageURL string
	// OriginalAuthorID is set for remix submissions.
	OriginalAuthorID string
}

// Submitted is the outcome of a successful submission: the persisted record
// plus its human-readable queue position ("1st", "4th").
type Submitted struct {
	Request  *domain.Request
	Position string

	// EphemeralAck is true when the guild hides submission acknowledgements.
	EphemeralAck bool
}

// RequestService implements the use-cases around submitting and reading
// generation requests.
type RequestService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Queue receives accepted requests in dispatch order.
	Queue *queue.Queue

	// MaxPromptLen caps prompts by rune length.
	MaxPromptLen int
}

// NewRequestService constructs a RequestService with a sane prompt cap.
func NewRequestService(db *gorm.DB, q *queue.Queue) *RequestService {
	return &RequestService{DB: db, Queue: q, MaxPromptLen: 1000}
}

// SubmitText accepts a plain text-to-image request: the prompt is validated
// and normalized, parameters are resolved against guild policy, and the
// record is persisted and enqueued.
func (s *RequestService) SubmitText(ctx context.Context, in Submission) (*Submitted, error) {
	return s.submit(ctx, in, domain.KindTxt2Img)
}

// SubmitRemix accepts a request whose prompt was lifted from another user's
// message. The original author is recorded so the result can credit them.
func (s *RequestService) SubmitRemix(ctx context.Context, in Submission) (*Submitted, error) {
	return s.submit(ctx, in, domain.KindArtify)
}

func (s *RequestService) submit(ctx context.Context, in Submission, kind domain.RequestKind) (*Submitted, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptLen > 0 && len([]rune(prompt)) > s.MaxPromptLen {
		return nil, ErrTooLong
	}

	g, err := repo.FindOrCreateGuild(ctx, s.DB, in.GuildID, in.GuildName)
	if err != nil {
		return nil, err
	}

	res := policy.Resolve(g, in.Steps, in.CfgScale)
	cleaned := policy.CleanWeightedTags(prompt)

	r := &domain.Request{
		ID:               uuid.NewString(),
		RequestorID:      in.UserID,
		GuildID:          in.GuildID,
		ChannelID:        in.ChannelID,
		ReplyTo:          in.ReplyTo,
		Kind:             kind,
		Prompt:           policy.SanitizePrompt(prompt, g.QualityTags),
		OriginalPrompt:   cleaned,
		Steps:            res.Steps,
		CfgScale:         res.CfgScale,
		OriginalSteps:    res.OriginalSteps,
		OriginalCfgScale: res.OriginalCfgScale,
		OriginalAuthorID: in.OriginalAuthorID,
		Status:           domain.StatusBuilding,
		CreatedAt:        time.Now().UTC(),
	}
	if err := repo.CreateRequest(ctx, s.DB, r); err != nil {
		return nil, err
	}

	return s.enqueue(ctx, r, in, g)
}

// SubmitImage opens an image-to-image request in two phases: this call
// records the source image and parks the record awaiting its prompt. The
// request is not queued until CompleteImage attaches one.
func (s *RequestService) SubmitImage(ctx context.Context, in Submission) (*domain.Request, error) {
	if strings.TrimSpace(in.SourceImageURL) == "" {
		return nil, ErrInvalidState
	}
	g, err := repo.FindOrCreateGuild(ctx, s.DB, in.GuildID, in.GuildName)
	if err != nil {
		return nil, err
	}

	r := &domain.Request{
		ID:          uuid.NewString(),
		RequestorID: in.UserID,
		GuildID:     in.GuildID,
		ChannelID:   in.ChannelID,
		ReplyTo:     in.ReplyTo,
		Kind:        domain.KindImg2Img,
		// Prompt arrives in the completion phase.
		Prompt:         "",
		OriginalPrompt: "",
		Steps:          g.Steps,
		CfgScale:       g.CfgScale,
		SourceImageURL: in.SourceImageURL,
		Status:         domain.StatusAwaitingPrompt,
		CreatedAt:      time.Now().UTC(),
	}
	if err := repo.CreateRequest(ctx, s.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CompleteImage attaches the prompt and parameters to an awaiting img2img
// request and enqueues it. Only the original requestor may complete it, and
// only while the record is still awaiting a prompt.
func (s *RequestService) CompleteImage(ctx context.Context, requestID string, in Submission) (*Submitted, error) {
	r, err := repo.GetRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if r.RequestorID != in.UserID {
		return nil, ErrForbidden
	}
	if r.Kind != domain.KindImg2Img || r.Status != domain.StatusAwaitingPrompt {
		return nil, ErrInvalidState
	}

	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptLen > 0 && len([]rune(prompt)) > s.MaxPromptLen {
		return nil, ErrTooLong
	}

	g, err := repo.FindOrCreateGuild(ctx, s.DB, r.GuildID, in.GuildName)
	if err != nil {
		return nil, err
	}

	res := policy.Resolve(g, in.Steps, in.CfgScale)
	strength, originalStrength := policy.ResolveDenoising(g, in.DenoisingStrength)
	cleaned := policy.CleanWeightedTags(prompt)

	fields := map[string]any{
		"prompt":                      policy.SanitizePrompt(prompt, g.QualityTags),
		"original_prompt":             cleaned,
		"steps":                       res.Steps,
		"cfg_scale":                   res.CfgScale,
		"original_steps":              res.OriginalSteps,
		"original_cfg_scale":          res.OriginalCfgScale,
		"denoising_strength":          strength,
		"original_denoising_strength": originalStrength,
	}
	if err := repo.UpdateRequest(ctx, s.DB, r.ID, fields); err != nil {
		return nil, err
	}

	r.Prompt = policy.SanitizePrompt(prompt, g.QualityTags)
	r.OriginalPrompt = cleaned
	r.Steps = res.Steps
	r.CfgScale = res.CfgScale
	r.OriginalSteps = res.OriginalSteps
	r.OriginalCfgScale = res.OriginalCfgScale
	r.DenoisingStrength = &strength
	r.OriginalDenoisingStrength = originalStrength

	return s.enqueue(ctx, r, in, g)
}

// enqueue places the persisted record on the dispatch queue, bumps the
// submitter's usage counter, and reports the resulting queue position.
func (s *RequestService) enqueue(ctx context.Context, r *domain.Request, in Submission, g *domain.Guild) (*Submitted, error) {
	replyTo := r.ReplyTo
	if replyTo == "" {
		replyTo = in.ReplyTo
	}
	entry := queue.Entry{
		RequestID:        r.ID,
		GuildID:          r.GuildID,
		RequestorID:      r.RequestorID,
		ChannelID:        r.ChannelID,
		ReplyTo:          replyTo,
		OriginalAuthorID: r.OriginalAuthorID,
	}
	if err := s.Queue.Add(ctx, entry); err != nil {
		return nil, err
	}
	r.Status = domain.StatusQueued

	// Usage counters are best-effort; a failed bump must not fail the submit.
	_ = repo.IncrementUserRequests(ctx, s.DB, r.GuildID, r.RequestorID, in.Username)

	return &Submitted{
		Request:      r,
		Position:     queue.FormatPosition(s.Queue.Position(r.ID)),
		EphemeralAck: !g.VisiblePrompts,
	}, nil
}

// Get returns a single request by ID.
func (s *RequestService) Get(ctx context.Context, id string) (*domain.Request, error) {
	r, err := repo.GetRequest(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	return r, err
}

// Position reports the request's current queue rank as display text.
func (s *RequestService) Position(requestID string) string {
	return queue.FormatPosition(s.Queue.Position(requestID))
}

// ListPage returns a page of a user's requests in a guild (paginated).
// It applies defaults for invalid page/pageSize and returns total count.
func (s *RequestService) ListPage(ctx context.Context, guildID, userID string, page, pageSize int) ([]domain.Request, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountRequests(ctx, s.DB, guildID, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Request{}, 0, nil
	}

	items, err := repo.ListRequestsPage(ctx, s.DB, guildID, userID, offset, pageSize)
	return items, total, err
}
