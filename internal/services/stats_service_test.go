package services

import (
	"context"
	"testing"

	"github.com/aibalabs/aiba-backend/internal/repo"
)

func TestStatsTop_DefaultsAndCap(t *testing.T) {
	db := newTestDB(t)
	svc := NewStatsService(db)
	ctx := context.Background()

	for _, user := range []string{"u1", "u2"} {
		if err := repo.IncrementUserRequests(ctx, db, "g1", user, user); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := repo.IncrementUserRequests(ctx, db, "g1", "u2", "u2"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	top, err := svc.Top(ctx, "g1", 0) // default limit
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "u2" {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
}

func TestStatsUsage_ZeroForUnknownUser(t *testing.T) {
	svc := NewStatsService(newTestDB(t))

	stat, err := svc.Usage(context.Background(), "g1", "nobody")
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if stat.Requests != 0 || stat.UserID != "nobody" {
		t.Fatalf("unexpected stat: %+v", stat)
	}
}
