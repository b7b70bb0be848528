// Package services – ScoreService
//
// This file implements the ScoreService, which governs how users rate
// finished generations (-1 or +1). A voter holds at most one vote per
// request: repeating the same vote is a no-op, flipping it swings the net
// score by two. Counter updates run atomically with the vote row change.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/domain"
	"github.com/aibalabs/aiba-backend/internal/repo"
)

// ScoreService implements the use-cases around rating requests.
type ScoreService struct {
	// DB is the GORM handle used for all vote operations.
	DB *gorm.DB
}

// NewScoreService constructs a ScoreService.
func NewScoreService(db *gorm.DB) *ScoreService {
	return &ScoreService{DB: db}
}

// Vote records value (+1 or -1) for requestID on behalf of voterID and
// returns the request with updated counters.
//
// Semantics:
//   - value must be exactly -1 or 1; otherwise ErrInvalidVote.
//   - requestID must exist; otherwise ErrRequestNotFound.
//   - Only finished requests can be rated; otherwise ErrNotVotable.
//   - Repeating an identical vote changes nothing and is not an error.
//   - Flipping a vote rewrites the existing row and moves both counters,
//     so the net score swings by two.
//
// Concurrency & atomicity:
//   - The vote row change and the counter adjustment run in one
//     transaction; the unique (request_id, voter_id) index arbitrates
//     racing first votes.
func (s *ScoreService) Vote(ctx context.Context, requestID, voterID string, value int) (*domain.Request, error) {
	if value != -1 && value != 1 {
		return nil, ErrInvalidVote
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetRequest(ctx, tx, requestID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if r.Status != domain.StatusFinished {
			return ErrNotVotable
		}

		existing, err := repo.GetVote(ctx, tx, requestID, voterID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			if _, err := repo.CreateVote(ctx, tx, requestID, voterID, value); err != nil {
				return err
			}
			if value == 1 {
				return repo.AdjustRequestCounters(ctx, tx, requestID, 1, 0)
			}
			return repo.AdjustRequestCounters(ctx, tx, requestID, 0, 1)

		case err != nil:
			return err

		case existing.Value == value:
			// Idempotent repeat.
			return nil

		default:
			if err := repo.UpdateVoteValue(ctx, tx, existing.ID, value); err != nil {
				return err
			}
			if value == 1 {
				// dislike -> like
				return repo.AdjustRequestCounters(ctx, tx, requestID, 1, -1)
			}
			// like -> dislike
			return repo.AdjustRequestCounters(ctx, tx, requestID, -1, 1)
		}
	})
	if err != nil {
		return nil, err
	}

	r, err := repo.GetRequest(ctx, s.DB, requestID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	return r, err
}
