// Package services – RequestService
//
// This file implements RequestService, the application-level component that
// owns the lifecycle of itinerary requests: accepting submissions, launching
// the generation pipeline, projecting poll responses, advancing the booking
// status, and searching a traveler's history.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include the request identifier where applicable.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/erickosgey/safari-planner-backend/internal/domain"
	"github.com/erickosgey/safari-planner-backend/internal/repo"
)

// statusRank orders lifecycle states for the advance check. A record can only
// move to a strictly later state; failed is unreachable via advance.
var statusRank = map[domain.Status]int{
	domain.StatusPending:           0,
	domain.StatusProcessing:        1,
	domain.StatusPendingAcceptance: 2,
	domain.StatusPendingBooking:    3,
	domain.StatusBookingInProgress: 4,
	domain.StatusPendingPayment:    5,
	domain.StatusComplete:          6,
}

// RequestProjection is the poll/search view of a request. The itinerary is
// attached only once the record reaches a state that exposes it.
type RequestProjection struct {
	RequestID     string          `json:"requestId"`
	Email         string          `json:"email"`
	StartDate     string          `json:"startDate"`
	EndDate       string          `json:"endDate"`
	Status        domain.Status   `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	CostPerPerson decimal.Decimal `json:"costPerPerson"`
	Currency      string          `json:"currency"`
	Itinerary     json.RawMessage `json:"itinerary,omitempty"`
	ErrorMessage  *string         `json:"errorMessage,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// AdvanceInput carries the optional email handover accompanying a
// status-advance call. Email is the new address to attach, Code the
// verification code previously issued to that address.
type AdvanceInput struct {
	Email string
	Code  string
}

// RequestService coordinates request persistence and the generation pipeline.
type RequestService struct {
	DB       *gorm.DB
	Pipeline *GenerationPipeline
}

// NewRequestService constructs a RequestService around db and pipeline.
func NewRequestService(db *gorm.DB, p *GenerationPipeline) *RequestService {
	return &RequestService{DB: db, Pipeline: p}
}

// Submit validates and persists a new trip request, then launches the
// generation pipeline in the background. It returns the pending record
// immediately; clients poll Status for progress.
func (s *RequestService) Submit(ctx context.Context, req domain.TripRequest) (*domain.RequestRecord, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("request.email", req.Email)),
	)
	defer span.End()

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	rec, err := repo.CreateRequest(ctx, s.DB, req.Email,
		req.TravelDates.StartDate, req.TravelDates.EndDate, string(input))
	if err != nil {
		return nil, err
	}

	// The pipeline outlives this HTTP request; give it a fresh root context
	// so client disconnects cannot abort generation midway.
	go s.Pipeline.Run(context.WithoutCancel(ctx), rec.ID)

	return rec, nil
}

// Status returns the poll projection for a request, or ErrRequestNotFound.
func (s *RequestService) Status(ctx context.Context, id string) (*RequestProjection, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Status",
		trace.WithAttributes(attribute.String("request.id", id)),
	)
	defer span.End()

	rec, err := repo.GetRequest(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return project(rec), nil
}

// Advance moves a request into target, enforcing forward-only transitions.
// When in carries a new email it must be backed by a valid verification code.
// The code stays on file until its TTL lapses; expiry is logical, physical
// cleanup is an operator concern. Completing a request marks it paid.
func (s *RequestService) Advance(ctx context.Context, id string, target domain.Status, in AdvanceInput) (*RequestProjection, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Advance",
		trace.WithAttributes(
			attribute.String("request.id", id),
			attribute.String("status.target", string(target)),
		),
	)
	defer span.End()

	rec, err := repo.GetRequest(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	if rec.Status.Terminal() || !target.AdvanceTarget() || statusRank[target] <= statusRank[rec.Status] {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, rec.Status, target)
	}

	fields := map[string]any{"status": target}
	if target == domain.StatusComplete {
		fields["payment_status"] = "paid"
	}

	newEmail := strings.TrimSpace(strings.ToLower(in.Email))
	if newEmail != "" && newEmail != rec.Email {
		ver, err := repo.GetValidVerification(ctx, s.DB, newEmail, time.Now().UTC())
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrVerificationRequired
			}
			return nil, err
		}
		if ver.Code != strings.TrimSpace(in.Code) {
			return nil, ErrCodeMismatch
		}
		fields["email"] = newEmail
	}

	if err := repo.UpdateRequestFields(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	rec, err = repo.GetRequest(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	return project(rec), nil
}

// Search returns all requests for email, newest first, with the total count.
func (s *RequestService) Search(ctx context.Context, email string) ([]RequestProjection, int64, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.String("request.email", email)),
	)
	defer span.End()

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidRequest, domain.ErrMissingEmail)
	}

	recs, err := repo.SearchRequestsByEmail(ctx, s.DB, email)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RequestProjection, 0, len(recs))
	for i := range recs {
		out = append(out, *project(&recs[i]))
	}
	return out, int64(len(out)), nil
}

// StatusCounts exposes per-status request totals for the stats endpoint.
func (s *RequestService) StatusCounts(ctx context.Context) (map[domain.Status]int64, error) {
	return repo.StatusCounts(ctx, s.DB)
}

// project builds the client-facing view of a record.
func project(rec *domain.RequestRecord) *RequestProjection {
	p := &RequestProjection{
		RequestID:     rec.ID,
		Email:         rec.Email,
		StartDate:     rec.StartDate,
		EndDate:       rec.EndDate,
		Status:        rec.Status,
		PaymentStatus: rec.PaymentStatus,
		TotalCost:     rec.TotalCost,
		CostPerPerson: rec.CostPerPerson,
		Currency:      rec.Currency,
		ErrorMessage:  rec.ErrorMessage,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	if rec.Status.IncludesItinerary() && rec.Itinerary != nil {
		p.Itinerary = json.RawMessage(*rec.Itinerary)
	}
	return p
}
