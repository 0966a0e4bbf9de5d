package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erickosgey/safari-planner-backend/internal/domain"
	"github.com/erickosgey/safari-planner-backend/internal/http/middleware"
	"github.com/erickosgey/safari-planner-backend/internal/repo"
	"github.com/erickosgey/safari-planner-backend/internal/services"
)

// ---------- test DB ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:request_handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- fake services ----------

type fakeReqSvc struct {
	submitFn  func(ctx context.Context, req domain.TripRequest) (*domain.RequestRecord, error)
	statusFn  func(ctx context.Context, id string) (*services.RequestProjection, error)
	advanceFn func(ctx context.Context, id string, target domain.Status, in services.AdvanceInput) (*services.RequestProjection, error)
	searchFn  func(ctx context.Context, email string) ([]services.RequestProjection, int64, error)
	countsFn  func(ctx context.Context) (map[domain.Status]int64, error)
}

func (f *fakeReqSvc) Submit(ctx context.Context, req domain.TripRequest) (*domain.RequestRecord, error) {
	return f.submitFn(ctx, req)
}

func (f *fakeReqSvc) Status(ctx context.Context, id string) (*services.RequestProjection, error) {
	return f.statusFn(ctx, id)
}

func (f *fakeReqSvc) Advance(ctx context.Context, id string, target domain.Status, in services.AdvanceInput) (*services.RequestProjection, error) {
	return f.advanceFn(ctx, id, target, in)
}

func (f *fakeReqSvc) Search(ctx context.Context, email string) ([]services.RequestProjection, int64, error) {
	return f.searchFn(ctx, email)
}

func (f *fakeReqSvc) StatusCounts(ctx context.Context) (map[domain.Status]int64, error) {
	return f.countsFn(ctx)
}

type fakeVerSvcOK struct{}

func (fakeVerSvcOK) Issue(_ context.Context, _ string) error { return nil }

// stubInvoker fails fast so background pipelines settle immediately.
type stubInvoker struct{}

func (stubInvoker) Invoke(_ context.Context, _ string) (string, error) {
	return "", errors.New("stub model")
}

// ---------- helpers ----------

func newRouterWith(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/requests", h.SubmitRequest)
	r.GET("/requests", h.SearchRequests)
	r.GET("/requests/:id", h.GetRequestStatus)
	r.PUT("/requests/:id/status", h.AdvanceStatus)
	r.GET("/stats", h.GetStats)
	return r
}

func validTripBody(t *testing.T, email string) []byte {
	t.Helper()
	req := domain.TripRequest{
		TravelDates: domain.TravelDates{StartDate: "2026-07-10", EndDate: "2026-07-17"},
		Group: domain.Group{
			International: domain.GroupMembers{Adults: 2},
		},
		Interests: []string{"wildlife"},
		Email:     email,
	}
	b, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal trip: %v", err)
	}
	return b
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return e
}

// ---------- SubmitRequest ----------

func TestSubmitRequest_InvalidJSON(t *testing.T) {
	h := New(&fakeReqSvc{}, fakeVerSvcOK{})
	r := newRouterWith(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBufferString("{not json"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if e := decodeErrorBody(t, w); e.Code != ErrCodeBadRequest {
		t.Fatalf("expected code %q, got %q", ErrCodeBadRequest, e.Code)
	}
}

func TestSubmitRequest_ValidationErrorMapsTo400(t *testing.T) {
	svc := &fakeReqSvc{
		submitFn: func(_ context.Context, _ domain.TripRequest) (*domain.RequestRecord, error) {
			return nil, fmt.Errorf("%w: at least one traveler is required", services.ErrInvalidRequest)
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBuffer(validTripBody(t, "jane@example.com")))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSubmitRequest_ServiceErrorMapsTo500(t *testing.T) {
	svc := &fakeReqSvc{
		submitFn: func(_ context.Context, _ domain.TripRequest) (*domain.RequestRecord, error) {
			return nil, errors.New("db down")
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBuffer(validTripBody(t, "jane@example.com")))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if e := decodeErrorBody(t, w); e.Code != ErrCodeSubmitFailed {
		t.Fatalf("expected code %q, got %q", ErrCodeSubmitFailed, e.Code)
	}
}

func TestSubmitRequest_ServerErrorDetailStaysOutOfResponse(t *testing.T) {
	detail := "dial tcp 10.0.0.5:5432: connect: connection refused"
	svc := &fakeReqSvc{
		submitFn: func(_ context.Context, _ domain.TripRequest) (*domain.RequestRecord, error) {
			return nil, errors.New(detail)
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBuffer(validTripBody(t, "jane@example.com")))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	e := decodeErrorBody(t, w)
	if e.Message != "internal server error" {
		t.Fatalf("expected generic message, got %q", e.Message)
	}
	if strings.Contains(w.Body.String(), "10.0.0.5") || strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("driver detail leaked to client: %s", w.Body.String())
	}
}

func TestSubmitRequest_Accepted(t *testing.T) {
	svc := &fakeReqSvc{
		submitFn: func(_ context.Context, _ domain.TripRequest) (*domain.RequestRecord, error) {
			return &domain.RequestRecord{ID: "r-1", Status: domain.StatusPending}, nil
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBuffer(validTripBody(t, "jane@example.com")))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	var resp SubmitRequestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.RequestID != "r-1" || resp.Status != domain.StatusPending {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

// Exercises the real service path: a retried POST with the same
// Idempotency-Key and email replays the original request instead of
// creating a second one.
func TestSubmitRequest_IdempotentReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)

	pipeline := &services.GenerationPipeline{DB: db, Model: stubInvoker{}, Timeout: time.Second}
	reqSvc := services.NewRequestService(db, pipeline)
	h := New(reqSvc, fakeVerSvcOK{})

	r := gin.New()
	// Mount the validator so the handler sees the stashed key, with the same
	// key-only lookup the router wires.
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotencyByKey(ctx, db, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))
	r.POST("/requests", h.SubmitRequest)

	key := uuid.NewString()
	body := validTripBody(t, "jane@example.com")

	// First submission creates the request.
	w1 := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBuffer(body))
	req1.Header.Set(middleware.HeaderIdempotencyKey, key)
	r.ServeHTTP(w1, req1)
	if w1.Code != http.StatusAccepted {
		t.Fatalf("first submit expected 202, got %d (%s)", w1.Code, w1.Body.String())
	}
	var first SubmitRequestResponse
	if err := json.Unmarshal(w1.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode first body: %v", err)
	}

	// Retry with the same key and email replays the original.
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBuffer(body))
	req2.Header.Set(middleware.HeaderIdempotencyKey, key)
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("replay expected 200, got %d (%s)", w2.Code, w2.Body.String())
	}
	if got := w2.Header().Get("Idempotency-Replayed"); got != "true" {
		t.Fatalf("expected Idempotency-Replayed=true, got %q", got)
	}
	var second SubmitRequestResponse
	if err := json.Unmarshal(w2.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode second body: %v", err)
	}
	if second.RequestID != first.RequestID {
		t.Fatalf("replay returned a different request: %q vs %q", second.RequestID, first.RequestID)
	}

	// Exactly one record exists.
	var n int64
	if err := db.Model(&domain.RequestRecord{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 request record, got %d", n)
	}
}

// ---------- GetRequestStatus ----------

func TestGetRequestStatus_BadID(t *testing.T) {
	r := newRouterWith(New(&fakeReqSvc{}, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/requests/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetRequestStatus_NotFound(t *testing.T) {
	svc := &fakeReqSvc{
		statusFn: func(_ context.Context, _ string) (*services.RequestProjection, error) {
			return nil, services.ErrRequestNotFound
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/requests/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if e := decodeErrorBody(t, w); e.Code != ErrCodeNotFound {
		t.Fatalf("expected code %q, got %q", ErrCodeNotFound, e.Code)
	}
}

func TestGetRequestStatus_OK(t *testing.T) {
	id := uuid.NewString()
	svc := &fakeReqSvc{
		statusFn: func(_ context.Context, got string) (*services.RequestProjection, error) {
			if got != id {
				t.Fatalf("service received id %q, want %q", got, id)
			}
			return &services.RequestProjection{RequestID: id, Status: domain.StatusPending}, nil
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/requests/"+id, nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var p services.RequestProjection
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if p.RequestID != id {
		t.Fatalf("unexpected body: %+v", p)
	}
}

// ---------- AdvanceStatus ----------

func putStatus(t *testing.T, r *gin.Engine, id string, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/requests/"+id+"/status", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestAdvanceStatus_BadInputs(t *testing.T) {
	r := newRouterWith(New(&fakeReqSvc{}, fakeVerSvcOK{}))

	// malformed id
	if w := putStatus(t, r, "nope", `{"status":"PENDING_BOOKING"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id expected 400, got %d", w.Code)
	}
	// missing status
	if w := putStatus(t, r, uuid.NewString(), `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing status expected 400, got %d", w.Code)
	}
}

func TestAdvanceStatus_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", services.ErrRequestNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"invalid transition", fmt.Errorf("%w: COMPLETE -> PENDING_BOOKING", services.ErrInvalidStatus), http.StatusConflict, ErrCodeInvalidStatus},
		{"verification required", services.ErrVerificationRequired, http.StatusForbidden, ErrCodeVerificationRequired},
		{"code mismatch", services.ErrCodeMismatch, http.StatusForbidden, ErrCodeCodeMismatch},
		{"internal", errors.New("db down"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeReqSvc{
				advanceFn: func(_ context.Context, _ string, _ domain.Status, _ services.AdvanceInput) (*services.RequestProjection, error) {
					return nil, tc.err
				},
			}
			r := newRouterWith(New(svc, fakeVerSvcOK{}))

			w := putStatus(t, r, uuid.NewString(), `{"status":"PENDING_BOOKING"}`)
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, w.Code)
			}
			if e := decodeErrorBody(t, w); e.Code != tc.wantBody {
				t.Fatalf("expected code %q, got %q", tc.wantBody, e.Code)
			}
		})
	}
}

func TestAdvanceStatus_OK_PassesHandover(t *testing.T) {
	var gotTarget domain.Status
	var gotIn services.AdvanceInput
	svc := &fakeReqSvc{
		advanceFn: func(_ context.Context, _ string, target domain.Status, in services.AdvanceInput) (*services.RequestProjection, error) {
			gotTarget, gotIn = target, in
			return &services.RequestProjection{Status: target}, nil
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := putStatus(t, r, uuid.NewString(), `{"status":"PENDING_BOOKING","email":"new@example.com","code":"123456"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if gotTarget != domain.StatusPendingBooking {
		t.Fatalf("target = %q", gotTarget)
	}
	if gotIn.Email != "new@example.com" || gotIn.Code != "123456" {
		t.Fatalf("handover not forwarded: %+v", gotIn)
	}
}

// ---------- SearchRequests ----------

func TestSearchRequests_MissingEmail(t *testing.T) {
	r := newRouterWith(New(&fakeReqSvc{}, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/requests", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSearchRequests_OK(t *testing.T) {
	svc := &fakeReqSvc{
		searchFn: func(_ context.Context, email string) ([]services.RequestProjection, int64, error) {
			if email != "jane@example.com" {
				t.Fatalf("expected lowercased email, got %q", email)
			}
			return []services.RequestProjection{{RequestID: "r-1"}}, 1, nil
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/requests?email=Jane%40Example.com", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp SearchRequestsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Count != 1 || len(resp.Items) != 1 || resp.Items[0].RequestID != "r-1" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

// Exercises the real service path: a repeat GET with If-None-Match set to the
// previously returned ETag short-circuits to 304.
func TestSearchRequests_ETagNotModified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)

	pipeline := &services.GenerationPipeline{DB: db, Model: stubInvoker{}, Timeout: time.Second}
	reqSvc := services.NewRequestService(db, pipeline)
	h := New(reqSvc, fakeVerSvcOK{})

	if _, err := repo.CreateRequest(context.Background(), db, "jane@example.com", "2026-07-10", "2026-07-17", `{}`); err != nil {
		t.Fatalf("seed request: %v", err)
	}

	r := gin.New()
	r.GET("/requests", h.SearchRequests)

	w1 := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodGet, "/requests?email=jane@example.com", nil)
	r.ServeHTTP(w1, req1)
	if w1.Code != http.StatusOK {
		t.Fatalf("first GET expected 200, got %d", w1.Code)
	}
	etag := w1.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected an ETag header")
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/requests?email=jane@example.com", nil)
	req2.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w2, req2)
	if w2.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w2.Code)
	}
}

// ---------- GetStats ----------

func TestGetStats_OK(t *testing.T) {
	svc := &fakeReqSvc{
		countsFn: func(_ context.Context) (map[domain.Status]int64, error) {
			return map[domain.Status]int64{
				domain.StatusPending:  2,
				domain.StatusComplete: 3,
			}, nil
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Total != 5 {
		t.Fatalf("total = %d, want 5", resp.Total)
	}
	if resp.Counts[domain.StatusComplete] != 3 {
		t.Fatalf("unexpected counts: %+v", resp.Counts)
	}
}

func TestGetStats_Error(t *testing.T) {
	svc := &fakeReqSvc{
		countsFn: func(_ context.Context) (map[domain.Status]int64, error) {
			return nil, errors.New("db down")
		},
	}
	r := newRouterWith(New(svc, fakeVerSvcOK{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if e := decodeErrorBody(t, w); e.Code != ErrCodeStatsFailed {
		t.Fatalf("expected code %q, got %q", ErrCodeStatsFailed, e.Code)
	}
}
