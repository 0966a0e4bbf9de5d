package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erickosgey/safari-planner-backend/internal/domain"
	"github.com/erickosgey/safari-planner-backend/internal/repo"
)

func newRequestService(t *testing.T, inv *fakeInvoker) *RequestService {
	t.Helper()
	db := newServicesDB(t)
	p := &GenerationPipeline{DB: db, Model: inv, Timeout: 5 * time.Second}
	return NewRequestService(db, p)
}

// waitForStatus polls until the record leaves the pipeline-owned states or
// the deadline passes.
func waitForStatus(t *testing.T, svc *RequestService, id string) *RequestProjection {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p, err := svc.Status(context.Background(), id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if p.Status != domain.StatusPending && p.Status != domain.StatusProcessing {
			return p
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("pipeline did not settle in time")
	return nil
}

func TestSubmit_InvalidRequest(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{completion: goodCompletion})

	bad := validTrip()
	bad.Group = domain.Group{}
	_, err := svc.Submit(context.Background(), bad)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSubmit_ReturnsPendingAndGeneratesAsync(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{completion: goodCompletion})

	req := validTrip()
	req.Email = "  Jane@Example.com " // normalized on the way in
	rec, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.ID == "" || rec.Status != domain.StatusPending {
		t.Fatalf("unexpected submit result: %+v", rec)
	}
	if rec.Email != "jane@example.com" {
		t.Fatalf("email not normalized: %q", rec.Email)
	}

	p := waitForStatus(t, svc, rec.ID)
	if p.Status != domain.StatusPendingAcceptance {
		t.Fatalf("status = %s; want %s", p.Status, domain.StatusPendingAcceptance)
	}
	if len(p.Itinerary) == 0 {
		t.Fatal("ready projection must include the itinerary")
	}
}

func TestSubmit_ModelFailureEndsInFailed(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{err: errors.New("model unavailable")})

	rec, err := svc.Submit(context.Background(), validTrip())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	p := waitForStatus(t, svc, rec.ID)
	if p.Status != domain.StatusFailed {
		t.Fatalf("status = %s; want %s", p.Status, domain.StatusFailed)
	}
	if p.ErrorMessage == nil || *p.ErrorMessage == "" {
		t.Fatal("failed projection must carry an error message")
	}
	if len(p.Itinerary) != 0 {
		t.Fatal("failed projection must not include an itinerary")
	}
}

func TestStatus_NotFound(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{})
	_, err := svc.Status(context.Background(), "missing")
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestAdvance_ForwardOnly(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{})
	rec := seedTrip(t, svc.DB, validTrip())
	mustSetStatus(t, svc, rec.ID, domain.StatusPendingBooking)

	// Forward works.
	p, err := svc.Advance(context.Background(), rec.ID, domain.StatusBookingInProgress, AdvanceInput{})
	if err != nil {
		t.Fatalf("Advance forward: %v", err)
	}
	if p.Status != domain.StatusBookingInProgress {
		t.Fatalf("status = %s; want %s", p.Status, domain.StatusBookingInProgress)
	}

	// Backward is rejected.
	if _, err := svc.Advance(context.Background(), rec.ID, domain.StatusPendingBooking, AdvanceInput{}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus for backward move, got %v", err)
	}

	// Pipeline-internal states are never valid targets.
	if _, err := svc.Advance(context.Background(), rec.ID, domain.StatusFailed, AdvanceInput{}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus for failed target, got %v", err)
	}
}

func TestAdvance_CompleteMarksPaidAndLocks(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{})
	rec := seedTrip(t, svc.DB, validTrip())
	mustSetStatus(t, svc, rec.ID, domain.StatusPendingPayment)

	p, err := svc.Advance(context.Background(), rec.ID, domain.StatusComplete, AdvanceInput{})
	if err != nil {
		t.Fatalf("Advance to complete: %v", err)
	}
	if p.Status != domain.StatusComplete || p.PaymentStatus != "paid" {
		t.Fatalf("completion must mark paid: %+v", p)
	}

	// Terminal records cannot move again.
	if _, err := svc.Advance(context.Background(), rec.ID, domain.StatusComplete, AdvanceInput{}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus on terminal record, got %v", err)
	}
}

func TestAdvance_NotFound(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{})
	_, err := svc.Advance(context.Background(), "missing", domain.StatusPendingBooking, AdvanceInput{})
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestAdvance_EmailChangeRequiresVerification(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{})
	rec := seedTrip(t, svc.DB, validTrip())
	mustSetStatus(t, svc, rec.ID, domain.StatusPendingAcceptance)

	in := AdvanceInput{Email: "new@example.com", Code: "123456"}

	// No code on file.
	if _, err := svc.Advance(context.Background(), rec.ID, domain.StatusPendingBooking, in); !errors.Is(err, ErrVerificationRequired) {
		t.Fatalf("expected ErrVerificationRequired, got %v", err)
	}

	// Wrong code.
	now := time.Now().UTC()
	if err := repo.UpsertVerification(context.Background(), svc.DB, "new@example.com", "654321", now.Add(time.Hour)); err != nil {
		t.Fatalf("seed code: %v", err)
	}
	if _, err := svc.Advance(context.Background(), rec.ID, domain.StatusPendingBooking, in); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	// Right code: email changes. The code expires by TTL, it is not deleted
	// on use.
	if err := repo.UpsertVerification(context.Background(), svc.DB, "new@example.com", "123456", now.Add(time.Hour)); err != nil {
		t.Fatalf("seed code: %v", err)
	}
	p, err := svc.Advance(context.Background(), rec.ID, domain.StatusPendingBooking, in)
	if err != nil {
		t.Fatalf("Advance with valid code: %v", err)
	}
	if p.Email != "new@example.com" {
		t.Fatalf("email not updated: %q", p.Email)
	}
	if _, err := repo.GetValidVerification(context.Background(), svc.DB, "new@example.com", now); err != nil {
		t.Fatalf("code should remain until expiry: %v", err)
	}
}

func TestAdvance_SameEmailNeedsNoCode(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{})
	rec := seedTrip(t, svc.DB, validTrip())
	mustSetStatus(t, svc, rec.ID, domain.StatusPendingAcceptance)

	p, err := svc.Advance(context.Background(), rec.ID, domain.StatusPendingBooking, AdvanceInput{Email: "JANE@example.com"})
	if err != nil {
		t.Fatalf("Advance with unchanged email: %v", err)
	}
	if p.Status != domain.StatusPendingBooking {
		t.Fatalf("status = %s", p.Status)
	}
}

func TestSearch_NewestFirstScopedToEmail(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{})
	first := seedTrip(t, svc.DB, validTrip())
	// Space creation times apart so ordering is deterministic.
	if err := repo.UpdateRequestFields(context.Background(), svc.DB, first.ID, map[string]any{
		"created_at": time.Now().UTC().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	second := seedTrip(t, svc.DB, validTrip())

	other := validTrip()
	other.Email = "bob@example.com"
	seedTrip(t, svc.DB, other)

	items, count, err := svc.Search(context.Background(), "Jane@Example.com")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if count != 2 || len(items) != 2 {
		t.Fatalf("count = %d, items = %d; want 2", count, len(items))
	}
	if items[0].RequestID != second.ID || items[1].RequestID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", items[0].RequestID, items[1].RequestID)
	}
}

func TestSearch_EmptyEmailRejected(t *testing.T) {
	svc := newRequestService(t, &fakeInvoker{})
	_, _, err := svc.Search(context.Background(), "   ")
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func mustSetStatus(t *testing.T, svc *RequestService, id string, s domain.Status) {
	t.Helper()
	if err := repo.UpdateRequestFields(context.Background(), svc.DB, id, map[string]any{"status": s}); err != nil {
		t.Fatalf("set status: %v", err)
	}
}
