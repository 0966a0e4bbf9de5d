// Itinerary request HTTP handlers.
//
// This file exposes REST endpoints for itinerary request resources:
//   - POST   /requests             (submit, async generation, idempotent retries)
//   - GET    /requests/{id}        (poll status)
//   - PUT    /requests/{id}/status (advance booking status)
//   - GET    /requests?email=...   (search history, ETag support)
//   - GET    /stats                (per-status totals)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/erickosgey/safari-planner-backend/internal/domain"
	"github.com/erickosgey/safari-planner-backend/internal/http/middleware"
	"github.com/erickosgey/safari-planner-backend/internal/repo"
	"github.com/erickosgey/safari-planner-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// RequestService defines itinerary request lifecycle operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RequestService interface {
	// Submit persists a trip request and launches background generation.
	Submit(ctx context.Context, req domain.TripRequest) (*domain.RequestRecord, error)
	// Status returns the poll projection for a request.
	Status(ctx context.Context, id string) (*services.RequestProjection, error)
	// Advance moves a request into a later booking state.
	Advance(ctx context.Context, id string, target domain.Status, in services.AdvanceInput) (*services.RequestProjection, error)
	// Search returns all requests for an email, newest first, with the count.
	Search(ctx context.Context, email string) ([]services.RequestProjection, int64, error)
	// StatusCounts returns per-status request totals.
	StatusCounts(ctx context.Context) (map[domain.Status]int64, error)
}

// VerificationService defines operations to issue email verification codes.
type VerificationService interface {
	// Issue generates, stores, and emails a one-time code for email.
	Issue(ctx context.Context, email string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for requests and verifications. It depends
// on abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	reqSvc RequestService
	verSvc VerificationService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(reqSvc RequestService, verSvc VerificationService) *Handlers {
	return &Handlers{reqSvc: reqSvc, verSvc: verSvc}
}

//
// DTOs
//

// SubmitRequestResponse acknowledges an accepted submission. Clients poll
// GET /requests/{id} with the returned identifier.
type SubmitRequestResponse struct {
	RequestID string        `json:"requestId" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Status    domain.Status `json:"status" example:"pending"`
}

// AdvanceStatusRequest is the JSON payload for advancing a request's status.
// Email and Code are only needed when handing the request over to a new
// address; the code must have been issued to that address beforehand.
type AdvanceStatusRequest struct {
	Status string `json:"status" binding:"required" example:"PENDING_BOOKING"`
	Email  string `json:"email,omitempty" example:"jane@example.com"`
	Code   string `json:"code,omitempty" example:"847291"`
}

// SearchRequestsResponse wraps a traveler's request history.
type SearchRequestsResponse struct {
	Items []services.RequestProjection `json:"items"`
	Count int64                        `json:"count"`
}

// StatsResponse reports per-status request totals.
type StatsResponse struct {
	Total  int64                   `json:"total"`
	Counts map[domain.Status]int64 `json:"counts"`
}

//
// Handlers
//

// SubmitRequest godoc
// @ID          submitRequest
// @Summary     Submit a trip request
// @Description Validates the trip request, stores it, and starts itinerary generation in the background. Supports idempotency via the Idempotency-Key header (same key + email → same request).
// @Tags        Requests
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    domain.TripRequest  true  "Trip request payload"
//
// @Success     202  {object}  handlers.SubmitRequestResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests [post]
func (h *Handlers) SubmitRequest(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && email != "" {
		if svc, okSvc := h.reqSvc.(*services.RequestService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, email, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetRequest(ctx, svc.DB, rec.RequestID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, SubmitRequestResponse{RequestID: prev.ID, Status: prev.Status})
					return
				}
			}
		}
	}

	rec, err := h.reqSvc.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		failServer(c, ErrCodeSubmitFailed, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.reqSvc.(*services.RequestService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, rec.Email, idemKey, rec.ID, http.StatusAccepted, ttl)
		}
	}

	ok(c, http.StatusAccepted, SubmitRequestResponse{RequestID: rec.ID, Status: rec.Status})
}

// GetRequestStatus godoc
// @ID          getRequestStatus
// @Summary     Poll a request
// @Description Returns the current lifecycle state of a request. The generated itinerary is attached once the request reaches a state that exposes it.
// @Tags        Requests
// @Produce     json
//
// @Param       id  path  string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object}  services.RequestProjection
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id} [get]
func (h *Handlers) GetRequestStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	p, err := h.reqSvc.Status(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
			return
		}
		failServer(c, ErrCodeInternal, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// AdvanceStatus godoc
// @ID          advanceStatus
// @Summary     Advance a request's booking status
// @Description Moves a request forward through the booking flow. Attaching a new email requires a verification code issued to that address.
// @Tags        Requests
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Request ID (UUID)"  format(uuid)
// @Param       body  body  handlers.AdvanceStatusRequest  true  "Target status"
//
// @Success     200  {object}  services.RequestProjection
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Verification required or code mismatch"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Invalid transition"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests/{id}/status [put]
func (h *Handlers) AdvanceStatus(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	var req AdvanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}

	target := domain.Status(strings.TrimSpace(req.Status))
	p, err := h.reqSvc.Advance(c.Request.Context(), id, target, services.AdvanceInput{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case errors.Is(err, services.ErrInvalidStatus):
			fail(c, http.StatusConflict, ErrCodeInvalidStatus, err.Error())
		case errors.Is(err, services.ErrVerificationRequired):
			fail(c, http.StatusForbidden, ErrCodeVerificationRequired, "email verification required")
		case errors.Is(err, services.ErrCodeMismatch):
			fail(c, http.StatusForbidden, ErrCodeCodeMismatch, "verification code mismatch")
		default:
			failServer(c, ErrCodeInternal, err)
		}
		return
	}
	ok(c, http.StatusOK, p)
}

// SearchRequests godoc
// @ID          searchRequests
// @Summary     Search requests by email
// @Description Returns all requests submitted by an email address, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Requests
// @Produce     json
//
// @Param       email          query   string  true  "Submitter email"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object}  handlers.SearchRequestsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests [get]
func (h *Handlers) SearchRequests(c *gin.Context) {
	ctx := c.Request.Context()
	email := strings.TrimSpace(strings.ToLower(c.Query("email")))
	if email == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email query parameter required")
		return
	}

	// ETag pre-check (best effort).
	if svc, okSvc := h.reqSvc.(*services.RequestService); okSvc && svc.DB != nil {
		count, maxTS, err := repo.RequestsStats(ctx, svc.DB, email)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"requests:%s:%d:%d"`, email, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, count, err := h.reqSvc.Search(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		failServer(c, ErrCodeSearchFailed, err)
		return
	}
	ok(c, http.StatusOK, SearchRequestsResponse{Items: items, Count: count})
}

// GetStats godoc
// @ID          getStats
// @Summary     Request totals per status
// @Tags        Stats
// @Produce     json
//
// @Success     200  {object}  handlers.StatsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	counts, err := h.reqSvc.StatusCounts(c.Request.Context())
	if err != nil {
		failServer(c, ErrCodeStatsFailed, err)
		return
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	ok(c, http.StatusOK, StatsResponse{Total: total, Counts: counts})
}
