package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/aibalabs/aiba-backend/internal/domain"
)

func TestCreateVote_UniquePerVoter(t *testing.T) {
	db := newRepoDB(t, &domain.Request{}, &domain.Vote{})
	r := seedRequest(t, db, domain.StatusFinished)

	if _, err := CreateVote(context.Background(), db, r.ID, "v1", 1); err != nil {
		t.Fatalf("CreateVote: %v", err)
	}
	if _, err := CreateVote(context.Background(), db, r.ID, "v1", -1); err == nil {
		t.Fatal("expected unique violation for second vote by same voter")
	}
	// A different voter is fine.
	if _, err := CreateVote(context.Background(), db, r.ID, "v2", -1); err != nil {
		t.Fatalf("CreateVote second voter: %v", err)
	}
}

func TestGetVote_AndUpdateValue(t *testing.T) {
	db := newRepoDB(t, &domain.Request{}, &domain.Vote{})
	r := seedRequest(t, db, domain.StatusFinished)

	created, err := CreateVote(context.Background(), db, r.ID, "v1", 1)
	if err != nil {
		t.Fatalf("CreateVote: %v", err)
	}

	got, err := GetVote(context.Background(), db, r.ID, "v1")
	if err != nil || got.ID != created.ID || got.Value != 1 {
		t.Fatalf("GetVote = %+v, %v", got, err)
	}

	if err := UpdateVoteValue(context.Background(), db, created.ID, -1); err != nil {
		t.Fatalf("UpdateVoteValue: %v", err)
	}
	got, err = GetVote(context.Background(), db, r.ID, "v1")
	if err != nil || got.Value != -1 {
		t.Fatalf("after flip: %+v, %v", got, err)
	}

	if _, err := GetVote(context.Background(), db, r.ID, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdjustRequestCounters(t *testing.T) {
	db := newRepoDB(t, &domain.Request{})
	r := seedRequest(t, db, domain.StatusFinished)

	if err := AdjustRequestCounters(context.Background(), db, r.ID, 1, 0); err != nil {
		t.Fatalf("AdjustRequestCounters: %v", err)
	}
	if err := AdjustRequestCounters(context.Background(), db, r.ID, -1, 1); err != nil {
		t.Fatalf("AdjustRequestCounters flip: %v", err)
	}
	got, _ := GetRequest(context.Background(), db, r.ID)
	if got.Likes != 0 || got.Dislikes != 1 {
		t.Fatalf("counters = %d/%d, want 0/1", got.Likes, got.Dislikes)
	}
	if got.Score() != -1 {
		t.Fatalf("score = %d, want -1", got.Score())
	}

	// No-op deltas must not touch the row.
	if err := AdjustRequestCounters(context.Background(), db, r.ID, 0, 0); err != nil {
		t.Fatalf("no-op: %v", err)
	}
}

func TestCountVotes_RebuildsCounters(t *testing.T) {
	db := newRepoDB(t, &domain.Request{}, &domain.Vote{})
	r := seedRequest(t, db, domain.StatusFinished)

	for i, v := range []int{1, 1, -1} {
		if _, err := CreateVote(context.Background(), db, r.ID, string(rune('a'+i)), v); err != nil {
			t.Fatalf("seed vote: %v", err)
		}
	}
	likes, dislikes, err := CountVotes(context.Background(), db, r.ID)
	if err != nil {
		t.Fatalf("CountVotes: %v", err)
	}
	if likes != 2 || dislikes != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", likes, dislikes)
	}
}
