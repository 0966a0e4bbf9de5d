// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// RequestRecord model.
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

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erickosgey/safari-planner-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateRequest inserts a new RequestRecord in StatusPending. The record ID
// is a randomly generated UUID and CreatedAt is set to UTC. input is the
// submitted trip request serialized as JSON, stored verbatim for the
// pipeline and for later auditing.
//
// On success, it returns the persisted record. On failure, it returns a DB error.
func CreateRequest(ctx context.Context, db *gorm.DB, email, startDate, endDate, input string) (*domain.RequestRecord, error) {
	now := time.Now().UTC()
	rec := &domain.RequestRecord{
		ID:            uuid.NewString(),
		Email:         email,
		StartDate:     startDate,
		EndDate:       endDate,
		Status:        domain.StatusPending,
		PaymentStatus: "unpaid",
		Currency:      "USD",
		Input:         input,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRequest fetches a single request by its ID. If the record does not
// exist, it returns ErrNotFound. On other DB errors, the raw error is
// returned.
func GetRequest(ctx context.Context, db *gorm.DB, id string) (*domain.RequestRecord, error) {
	var rec domain.RequestRecord
	err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateRequestFields patches only the given columns of a request, leaving
// every other column untouched. Concurrent writers touching disjoint fields
// therefore never clobber each other. If no row matches the ID, it returns
// ErrNotFound.
func UpdateRequestFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.RequestRecord{}).
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

// SearchRequestsByEmail returns all requests submitted by email, ordered by
// creation time descending (most recent first). It returns an empty slice if
// the email has no requests. On DB error, it returns the error.
func SearchRequestsByEmail(ctx context.Context, db *gorm.DB, email string) ([]domain.RequestRecord, error) {
	var out []domain.RequestRecord
	err := db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountRequestsByEmail returns the total number of requests submitted by
// email. On DB error, it returns the error.
func CountRequestsByEmail(ctx context.Context, db *gorm.DB, email string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.RequestRecord{}).
		Where("email = ?", email).
		Count(&total).Error
	return total, err
}
