// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Verification
// model used by the email ownership check on status advancement.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erickosgey/safari-planner-backend/internal/domain"
)

// UpsertVerification stores a fresh verification code for email, replacing
// any previous code. Requesting a new code therefore invalidates the old one.
func UpsertVerification(ctx context.Context, db *gorm.DB, email, code string, expiresAt time.Time) error {
	rec := &domain.Verification{
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "updated_at"}),
		}).
		Create(rec).Error
}

// GetValidVerification returns the current verification row for email if it
// has not expired at now, or ErrNotFound otherwise. Expiry is enforced in the
// query; stale rows stay in place until overwritten by the next upsert.
func GetValidVerification(ctx context.Context, db *gorm.DB, email string, now time.Time) (*domain.Verification, error) {
	var rec domain.Verification
	err := db.WithContext(ctx).
		Where("email = ? AND expires_at > ?", email, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteVerification removes the verification row for email. Expiry is
// enforced logically by GetValidVerification; this is the physical-cleanup
// hook for maintenance jobs. Deleting a missing row is not an error.
func DeleteVerification(ctx context.Context, db *gorm.DB, email string) error {
	return db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&domain.Verification{}).Error
}
