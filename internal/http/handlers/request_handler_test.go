package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aibalabs/aiba-backend/internal/domain"
	"github.com/aibalabs/aiba-backend/internal/services"
)

func TestSubmitText_BadJSON_Success_Errors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Bad JSON -> 400
	{
		h := newTestHandlers(nil, nil, nil, nil, nil, nil)
		r := gin.New()
		r.POST("/requests", h.SubmitText)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBufferString("{bad"))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("bad json -> %d", w.Code)
		}
	}

	// Success -> 201, submission carries the caller identity
	{
		var got services.Submission
		svc := stubReqSvc{
			submitText: func(ctx context.Context, in services.Submission) (*services.Submitted, error) {
				got = in
				return &services.Submitted{
					Request:      &domain.Request{ID: "r1", Status: domain.StatusQueued},
					Position:     "2nd",
					EphemeralAck: true,
				}, nil
			},
		}
		h := newTestHandlers(svc, nil, nil, nil, nil, nil)
		r := gin.New()
		r.POST("/requests", h.SubmitText)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/requests",
			bytes.NewBufferString(`{"guild_id":"g1","prompt":"a cat","username":"alice"}`))
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("submit -> %d body=%s", w.Code, w.Body.String())
		}
		if got.UserID != "u1" || got.GuildID != "g1" || got.Prompt != "a cat" || got.Username != "alice" {
			t.Fatalf("submission not mapped: %#v", got)
		}

		var out SubmitResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Position != "2nd" || !out.EphemeralAck || out.Request.ID != "r1" {
			t.Fatalf("unexpected response: %#v", out)
		}
	}

	// Service errors map onto status codes
	errCases := []struct {
		err  error
		want int
	}{
		{services.ErrEmptyPrompt, http.StatusBadRequest},
		{services.ErrTooLong, http.StatusBadRequest},
		{services.ErrRequestNotFound, http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrInvalidState, http.StatusConflict},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range errCases {
		svc := stubReqSvc{
			submitText: func(ctx context.Context, in services.Submission) (*services.Submitted, error) {
				return nil, tc.err
			},
		}
		h := newTestHandlers(svc, nil, nil, nil, nil, nil)
		r := gin.New()
		r.POST("/requests", h.SubmitText)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/requests",
			bytes.NewBufferString(`{"guild_id":"g1","prompt":"x"}`))
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%v -> %d; want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestSubmitRemix_CarriesOriginalAuthor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got services.Submission
	svc := stubReqSvc{
		submitRemix: func(ctx context.Context, in services.Submission) (*services.Submitted, error) {
			got = in
			return &services.Submitted{Request: &domain.Request{ID: "r1"}, Position: "1st"}, nil
		},
	}
	h := newTestHandlers(svc, nil, nil, nil, nil, nil)
	r := gin.New()
	r.POST("/requests/remix", h.SubmitRemix)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/remix",
		bytes.NewBufferString(`{"guild_id":"g1","prompt":"a dog","original_author_id":"u-orig"}`))
	req.Header.Set("X-User-ID", "u2")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("remix -> %d body=%s", w.Code, w.Body.String())
	}
	if got.OriginalAuthorID != "u-orig" || got.UserID != "u2" {
		t.Fatalf("remix submission: %#v", got)
	}
}

func TestSubmitImage_RequiresSourceURL(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandlers(nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.POST("/requests/img2img", h.SubmitImage)

	// Missing source_image_url -> 400
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/img2img",
		bytes.NewBufferString(`{"guild_id":"g1"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing source -> %d", w.Code)
	}

	// With it -> 201 and an awaiting shell
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/requests/img2img",
		bytes.NewBufferString(`{"guild_id":"g1","source_image_url":"http://img/cat.png"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("img2img -> %d body=%s", w.Code, w.Body.String())
	}
	var out domain.Request
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Status != domain.StatusAwaitingPrompt {
		t.Fatalf("status = %q", out.Status)
	}
}

func TestCompleteImage_IDValidation_And_Conflict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandlers(nil, nil, nil, nil, nil, nil)
	r := gin.New()
	r.PUT("/requests/:id/prompt", h.CompleteImage)

	// Not a UUID -> 400
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/requests/not-a-uuid/prompt",
		bytes.NewBufferString(`{"guild_id":"g1","prompt":"x"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}

	// Valid id, wrong state -> 409
	svc := stubReqSvc{
		completeImage: func(ctx context.Context, id string, in services.Submission) (*services.Submitted, error) {
			return nil, services.ErrInvalidState
		},
	}
	h = newTestHandlers(svc, nil, nil, nil, nil, nil)
	r = gin.New()
	r.PUT("/requests/:id/prompt", h.CompleteImage)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/requests/"+uuid.NewString()+"/prompt",
		bytes.NewBufferString(`{"guild_id":"g1","prompt":"x"}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("conflict -> %d", w.Code)
	}
}

func TestGetRequest_NotFound_And_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	id := uuid.NewString()
	svc := stubReqSvc{
		get: func(ctx context.Context, got string) (*domain.Request, error) {
			if got != id {
				return nil, services.ErrRequestNotFound
			}
			return &domain.Request{ID: id, Status: domain.StatusFinished}, nil
		},
	}
	h := newTestHandlers(svc, nil, nil, nil, nil, nil)
	r := gin.New()
	r.GET("/requests/:id", h.GetRequest)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d body=%s", w.Code, w.Body.String())
	}
}

func TestListRequests_RequiresGuild_And_Paginates(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := stubReqSvc{
		listPage: func(ctx context.Context, guildID, userID string, page, pageSize int) ([]domain.Request, int64, error) {
			items := []domain.Request{{ID: "a"}, {ID: "b"}}
			return items, 5, nil
		},
	}
	h := newTestHandlers(svc, nil, nil, nil, nil, nil)
	r := gin.New()
	r.GET("/requests", h.ListRequests)

	// Missing guild_id -> 400
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing guild -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests?guild_id=g1&page=1&page_size=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d body=%s", w.Code, w.Body.String())
	}
	var out ListRequestsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Requests) != 2 || out.Pagination.Total != 5 || out.Pagination.TotalPages != 3 || !out.Pagination.HasNext {
		t.Fatalf("pagination: %#v", out.Pagination)
	}
}
