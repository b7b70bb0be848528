// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Vote model
// and the denormalized like/dislike counters on Request.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/domain"
)

// GetVote returns the voter's current vote on a request, or ErrNotFound.
func GetVote(ctx context.Context, db *gorm.DB, requestID, voterID string) (*domain.Vote, error) {
	var v domain.Vote
	err := db.WithContext(ctx).
		Where("request_id = ? AND voter_id = ?", requestID, voterID).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVote inserts a new vote row for (requestID, voterID).
func CreateVote(ctx context.Context, db *gorm.DB, requestID, voterID string, value int) (*domain.Vote, error) {
	v := &domain.Vote{
		ID:        uuid.NewString(),
		RequestID: requestID,
		VoterID:   voterID,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateVoteValue flips an existing vote to the given value.
func UpdateVoteValue(ctx context.Context, db *gorm.DB, voteID string, value int) error {
	res := db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("id = ?", voteID).
		Update("value", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustRequestCounters applies deltas to the denormalized like/dislike
// counters of a request inside the caller's transaction.
func AdjustRequestCounters(ctx context.Context, db *gorm.DB, requestID string, likesDelta, dislikesDelta int) error {
	updates := map[string]any{}
	if likesDelta != 0 {
		updates["likes"] = gorm.Expr("likes + ?", likesDelta)
	}
	if dislikesDelta != 0 {
		updates["dislikes"] = gorm.Expr("dislikes + ?", dislikesDelta)
	}
	if len(updates) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ?", requestID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountVotes rebuilds the like and dislike totals from the vote rows.
// Used by consistency checks and tests; the hot path reads the counters.
func CountVotes(ctx context.Context, db *gorm.DB, requestID string) (likes, dislikes int64, err error) {
	err = db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("request_id = ? AND value = ?", requestID, 1).
		Count(&likes).Error
	if err != nil {
		return 0, 0, err
	}
	err = db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("request_id = ? AND value = ?", requestID, -1).
		Count(&dislikes).Error
	if err != nil {
		return 0, 0, err
	}
	return likes, dislikes, nil
}
