package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/aibalabs/aiba-backend/internal/domain"
)

func TestIncrementUserRequests_InsertThenBump(t *testing.T) {
	db := newRepoDB(t, &domain.GuildUserStat{})

	for i := 0; i < 3; i++ {
		if err := IncrementUserRequests(context.Background(), db, "g1", "u1", "alice"); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}
	stat, err := GetUserStat(context.Background(), db, "g1", "u1")
	if err != nil {
		t.Fatalf("GetUserStat: %v", err)
	}
	if stat.Requests != 3 {
		t.Fatalf("requests = %d, want 3", stat.Requests)
	}
}

func TestIncrementUserRequests_RefreshesUsername(t *testing.T) {
	db := newRepoDB(t, &domain.GuildUserStat{})

	if err := IncrementUserRequests(context.Background(), db, "g1", "u1", "alice"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := IncrementUserRequests(context.Background(), db, "g1", "u1", "alice2"); err != nil {
		t.Fatalf("second: %v", err)
	}
	stat, _ := GetUserStat(context.Background(), db, "g1", "u1")
	if stat.Username != "alice2" {
		t.Fatalf("username = %q, want alice2", stat.Username)
	}
}

func TestTopUsers_OrderAndLimit(t *testing.T) {
	db := newRepoDB(t, &domain.GuildUserStat{})

	seed := map[string]int{"u1": 5, "u2": 9, "u3": 1}
	for user, n := range seed {
		for i := 0; i < n; i++ {
			if err := IncrementUserRequests(context.Background(), db, "g1", user, user); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}
	}
	// Different guild, must be filtered out.
	if err := IncrementUserRequests(context.Background(), db, "g2", "u9", "u9"); err != nil {
		t.Fatalf("seed other guild: %v", err)
	}

	top, err := TopUsers(context.Background(), db, "g1", 2)
	if err != nil {
		t.Fatalf("TopUsers: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "u2" || top[1].UserID != "u1" {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
}

func TestGetUserStat_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.GuildUserStat{})
	if _, err := GetUserStat(context.Background(), db, "g1", "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
