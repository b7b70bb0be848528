// Package services – StatsService
//
// Read-side helpers over the per-guild submission counters: leaderboards and
// single-user usage.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/domain"
	"github.com/aibalabs/aiba-backend/internal/repo"
)

// StatsService reads per-guild user submission counters.
type StatsService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewStatsService constructs a StatsService.
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

// Top returns the guild's heaviest submitters, highest first. limit defaults
// to 10 and is capped at 100.
func (s *StatsService) Top(ctx context.Context, guildID string, limit int) ([]domain.GuildUserStat, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return repo.TopUsers(ctx, s.DB, guildID, limit)
}

// Usage returns one user's counter row. A user who never submitted reads as
// zero requests rather than an error.
func (s *StatsService) Usage(ctx context.Context, guildID, userID string) (*domain.GuildUserStat, error) {
	stat, err := repo.GetUserStat(ctx, s.DB, guildID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return &domain.GuildUserStat{GuildID: guildID, UserID: userID, Requests: 0}, nil
	}
	return stat, err
}
