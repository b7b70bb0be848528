// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for per-guild user
// submission counters.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/domain"
)

// IncrementUserRequests bumps the submission counter for (guildID, userID),
// inserting the row on first submission. Username is refreshed on every call
// so leaderboards show current display names.
func IncrementUserRequests(ctx context.Context, db *gorm.DB, guildID, userID, username string) error {
	res := db.WithContext(ctx).
		Model(&domain.GuildUserStat{}).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Updates(map[string]any{
			"requests": gorm.Expr("requests + 1"),
			"username": username,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	stat := &domain.GuildUserStat{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		UserID:    userID,
		Username:  username,
		Requests:  1,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(stat).Error; err != nil {
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			// Lost the insert race; retry the update once.
			return db.WithContext(ctx).
				Model(&domain.GuildUserStat{}).
				Where("guild_id = ? AND user_id = ?", guildID, userID).
				Updates(map[string]any{
					"requests": gorm.Expr("requests + 1"),
					"username": username,
				}).Error
		}
		return err
	}
	return nil
}

// TopUsers returns the guild's heaviest submitters, highest first.
func TopUsers(ctx context.Context, db *gorm.DB, guildID string, limit int) ([]domain.GuildUserStat, error) {
	var out []domain.GuildUserStat
	err := db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("requests desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetUserStat returns one user's counter row, or ErrNotFound.
func GetUserStat(ctx context.Context, db *gorm.DB, guildID, userID string) (*domain.GuildUserStat, error) {
	var s domain.GuildUserStat
	err := db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
