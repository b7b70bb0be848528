package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/domain"
)

func seedFinished(t *testing.T, db *gorm.DB) *domain.Request {
	t.Helper()
	r := &domain.Request{
		ID:             uuid.NewString(),
		RequestorID:    "u1",
		GuildID:        "g1",
		ChannelID:      "c1",
		Kind:           domain.KindTxt2Img,
		Prompt:         "a cat",
		OriginalPrompt: "a cat",
		Steps:          20,
		CfgScale:       7,
		Status:         domain.StatusFinished,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return r
}

func TestVote_InvalidValue(t *testing.T) {
	svc := NewScoreService(newTestDB(t))
	if _, err := svc.Vote(context.Background(), "r1", "v1", 0); !errors.Is(err, ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote, got %v", err)
	}
}

func TestVote_RequestNotFound(t *testing.T) {
	svc := NewScoreService(newTestDB(t))
	if _, err := svc.Vote(context.Background(), uuid.NewString(), "v1", 1); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestVote_NotVotableBeforeFinished(t *testing.T) {
	db := newTestDB(t)
	svc := NewScoreService(db)

	r := seedFinished(t, db)
	if err := db.Model(&domain.Request{}).Where("id = ?", r.ID).
		Update("status", domain.StatusQueued).Error; err != nil {
		t.Fatalf("flip status: %v", err)
	}
	if _, err := svc.Vote(context.Background(), r.ID, "v1", 1); !errors.Is(err, ErrNotVotable) {
		t.Fatalf("expected ErrNotVotable, got %v", err)
	}
}

func TestVote_FirstVoteMovesOneCounter(t *testing.T) {
	db := newTestDB(t)
	svc := NewScoreService(db)
	r := seedFinished(t, db)

	got, err := svc.Vote(context.Background(), r.ID, "v1", 1)
	if err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if got.Likes != 1 || got.Dislikes != 0 || got.Score() != 1 {
		t.Fatalf("counters = %d/%d score=%d", got.Likes, got.Dislikes, got.Score())
	}
}

func TestVote_RepeatIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewScoreService(db)
	r := seedFinished(t, db)
	ctx := context.Background()

	if _, err := svc.Vote(ctx, r.ID, "v1", 1); err != nil {
		t.Fatalf("first: %v", err)
	}
	got, err := svc.Vote(ctx, r.ID, "v1", 1)
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if got.Likes != 1 || got.Dislikes != 0 {
		t.Fatalf("repeat moved counters: %d/%d", got.Likes, got.Dislikes)
	}
}

func TestVote_FlipSwingsScoreByTwo(t *testing.T) {
	db := newTestDB(t)
	svc := NewScoreService(db)
	r := seedFinished(t, db)
	ctx := context.Background()

	if _, err := svc.Vote(ctx, r.ID, "v1", 1); err != nil {
		t.Fatalf("like: %v", err)
	}
	got, err := svc.Vote(ctx, r.ID, "v1", -1)
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if got.Likes != 0 || got.Dislikes != 1 {
		t.Fatalf("counters = %d/%d, want 0/1", got.Likes, got.Dislikes)
	}
	if got.Score() != -1 {
		t.Fatalf("score = %d, want -1 (swing of 2 from +1)", got.Score())
	}

	// Flip back.
	got, err = svc.Vote(ctx, r.ID, "v1", 1)
	if err != nil {
		t.Fatalf("flip back: %v", err)
	}
	if got.Score() != 1 {
		t.Fatalf("score = %d, want 1", got.Score())
	}
}

func TestVote_IndependentVoters(t *testing.T) {
	db := newTestDB(t)
	svc := NewScoreService(db)
	r := seedFinished(t, db)
	ctx := context.Background()

	for _, voter := range []string{"v1", "v2", "v3"} {
		if _, err := svc.Vote(ctx, r.ID, voter, 1); err != nil {
			t.Fatalf("vote %s: %v", voter, err)
		}
	}
	got, err := svc.Vote(ctx, r.ID, "v4", -1)
	if err != nil {
		t.Fatalf("dislike: %v", err)
	}
	if got.Likes != 3 || got.Dislikes != 1 || got.Score() != 2 {
		t.Fatalf("counters = %d/%d score=%d", got.Likes, got.Dislikes, got.Score())
	}
}
