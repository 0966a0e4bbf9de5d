// Package services – VerificationService
//
// This file implements VerificationService, which issues one-time codes used
// to prove ownership of an email address before it can be attached to a
// request. Codes are six digits, generated from crypto/rand, stored one per
// address (a new request replaces the old code), and delivered by the
// configured mailer.
package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/erickosgey/safari-planner-backend/internal/domain"
	"github.com/erickosgey/safari-planner-backend/internal/mailer"
	"github.com/erickosgey/safari-planner-backend/internal/repo"
)

// DefaultVerificationTTL is how long an issued code stays valid.
const DefaultVerificationTTL = 8 * time.Hour

// VerificationService issues and delivers email verification codes.
type VerificationService struct {
	DB   *gorm.DB
	Mail mailer.Mailer

	// TTL overrides DefaultVerificationTTL when positive.
	TTL time.Duration
}

// NewVerificationService constructs a VerificationService with the default TTL.
func NewVerificationService(db *gorm.DB, m mailer.Mailer) *VerificationService {
	return &VerificationService{DB: db, Mail: m, TTL: DefaultVerificationTTL}
}

// Issue generates a fresh code for email, stores it (replacing any previous
// code), and emails it. The code itself is never returned to the caller.
func (s *VerificationService) Issue(ctx context.Context, email string) error {
	tr := otel.Tracer("services/VerificationService")
	ctx, span := tr.Start(ctx, "Issue",
		trace.WithAttributes(attribute.String("request.email", email)),
	)
	defer span.End()

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, domain.ErrMissingEmail)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	expiresAt := time.Now().UTC().Add(ttl)

	if err := repo.UpsertVerification(ctx, s.DB, email, code, expiresAt); err != nil {
		return err
	}
	return s.Mail.SendVerificationCode(ctx, email, code, expiresAt)
}

// generateCode returns a uniformly random six-digit code, zero-padded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
