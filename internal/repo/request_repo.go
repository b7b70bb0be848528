// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Request
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a request is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/aibalabs/aiba-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateRequest inserts a fully populated Request row. The caller assigns the
// ID (UUID string) and initial Status before calling.
func CreateRequest(ctx context.Context, db *gorm.DB, r *domain.Request) error {
	return db.WithContext(ctx).Create(r).Error
}

// GetRequest fetches a single request by ID, or ErrNotFound if missing.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.Request, error) {
	var r domain.Request
	err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRequestStatus flips the lifecycle state of a request. It returns
// ErrNotFound when the request does not exist.
func UpdateRequestStatus(ctx context.Context, db *gorm.DB, id string, status domain.RequestStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateRequest persists the given columns of a request. Used by the
// two-phase img2img flow to attach the prompt and resolved parameters.
func UpdateRequest(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkFinished records a successful generation: terminal status, wall-clock
// runtime in seconds and the output artifact name.
func MarkFinished(ctx context.Context, db *gorm.DB, id string, runtime float64, outputFile string) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      domain.StatusFinished,
			"runtime":     runtime,
			"output_file": outputFile,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkError records a failed generation as terminal.
func MarkError(ctx context.Context, db *gorm.DB, id string) error {
	return UpdateRequestStatus(ctx, db, id, domain.StatusError)
}

// CountRequests returns the total number of requests submitted by userID in
// guildID. On DB error, it returns the error.
func CountRequests(ctx context.Context, db *gorm.DB, guildID, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("guild_id = ? AND requestor_id = ?", guildID, userID).
		Count(&total).Error
	return total, err
}

// ListRequestsPage returns a paginated slice of a user's requests in a guild,
// ordered by creation time descending. Use CountRequests to obtain the total
// for pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListRequestsPage(ctx context.Context, db *gorm.DB, guildID, userID string, offset, limit int) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).
		Where("guild_id = ? AND requestor_id = ?", guildID, userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RequestStatusWriter adapts the status update function to the narrow
// persistence interface the queue depends on.
type RequestStatusWriter struct {
	DB *gorm.DB
}

// UpdateRequestStatus persists a lifecycle state change for the queue.
func (w RequestStatusWriter) UpdateRequestStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	return UpdateRequestStatus(ctx, w.DB, id, status)
}

// ListPendingRequests returns requests that were queued or already in flight,
// oldest first. Used on startup to rebuild the in-memory queue after a
// restart; in-flight rows were interrupted and go back to the queue too.
func ListPendingRequests(ctx context.Context, db *gorm.DB) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).
		Where("status IN ?",
			[]domain.RequestStatus{domain.StatusQueued, domain.StatusInProgress}).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// ListStaleBuilding returns img2img shells that never received a prompt and
// are older than cutoff, so they can be expired by housekeeping.
func ListStaleBuilding(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).
		Where("status IN ? AND created_at < ?",
			[]domain.RequestStatus{domain.StatusBuilding, domain.StatusAwaitingPrompt}, cutoff).
		Find(&out).Error
	return out, err
}
