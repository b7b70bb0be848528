package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func adminRouter(pause PauseController, q QueueInfo) *gin.Engine {
	h := newTestHandlers(nil, nil, nil, nil, pause, q)
	r := gin.New()
	r.GET("/admin/paused", h.GetPaused)
	r.PUT("/admin/paused", h.SetPaused)
	r.GET("/queue", h.QueueState)
	r.GET("/queue/:id/position", h.QueuePosition)
	return r
}

func TestPaused_Get_And_Set(t *testing.T) {
	gin.SetMode(gin.TestMode)

	pause := &stubPause{}
	r := adminRouter(pause, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/paused", nil))
	if w.Code != http.StatusOK || w.Body.String() != `{"paused":false}` {
		t.Fatalf("get -> %d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/paused",
		bytes.NewBufferString(`{"paused":true}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("set -> %d body=%s", w.Code, w.Body.String())
	}
	if !pause.Paused() {
		t.Fatal("pause flag not set")
	}

	// Missing field -> 400, flag untouched
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/admin/paused",
		bytes.NewBufferString(`{}`))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing field -> %d", w.Code)
	}
	if !pause.Paused() {
		t.Fatal("pause flag lost on bad request")
	}
}

func TestQueueState_And_Position(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := adminRouter(&stubPause{}, stubQueue{depth: 3, pos: 2})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queue", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("queue -> %d", w.Code)
	}
	var state struct {
		Depth  int  `json:"depth"`
		Paused bool `json:"paused"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("json: %v", err)
	}
	if state.Depth != 3 || state.Paused {
		t.Fatalf("state: %#v", state)
	}

	// Not a UUID -> 400
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queue/nope/position", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}

	id := uuid.NewString()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queue/"+id+"/position", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("position -> %d body=%s", w.Code, w.Body.String())
	}
	var pos struct {
		RequestID string `json:"request_id"`
		Position  int    `json:"position"`
		Display   string `json:"display"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pos); err != nil {
		t.Fatalf("json: %v", err)
	}
	if pos.RequestID != id || pos.Position != 2 || pos.Display != "2nd" {
		t.Fatalf("position: %#v", pos)
	}
}

func TestQueuePosition_NotQueued(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := adminRouter(&stubPause{}, stubQueue{pos: -1})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/queue/"+uuid.NewString()+"/position", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("position -> %d", w.Code)
	}
	var pos struct {
		Display string `json:"display"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pos); err != nil {
		t.Fatalf("json: %v", err)
	}
	if pos.Display != "Queue Error" {
		t.Fatalf("display = %q", pos.Display)
	}
}
