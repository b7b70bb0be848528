// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Guild
// (tenant policy) model.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/domain"
)

// FindOrCreateGuild fetches the policy row for guildID, inserting one with
// defaults on first reference. The insert tolerates a concurrent creator by
// re-reading on unique violation.
func FindOrCreateGuild(ctx context.Context, db *gorm.DB, guildID, name string) (*domain.Guild, error) {
	var g domain.Guild
	err := db.WithContext(ctx).Where("id = ?", guildID).First(&g).Error
	if err == nil {
		return &g, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := domain.NewGuild(guildID, name)
	if err := db.WithContext(ctx).Create(fresh).Error; err != nil {
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			err = db.WithContext(ctx).Where("id = ?", guildID).First(&g).Error
			return &g, err
		}
		return nil, err
	}
	return fresh, nil
}

// GetGuild fetches a guild policy row, or ErrNotFound if missing.
func GetGuild(ctx context.Context, db *gorm.DB, guildID string) (*domain.Guild, error) {
	var g domain.Guild
	err := db.WithContext(ctx).Where("id = ?", guildID).First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGuildFields persists the given policy columns. It returns ErrNotFound
// when the guild does not exist.
func UpdateGuildFields(ctx context.Context, db *gorm.DB, guildID string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Guild{}).
		Where("id = ?", guildID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
