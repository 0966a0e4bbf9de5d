// Package services – GenerationPipeline
//
// This file implements the asynchronous generation pipeline that turns a
// submitted trip request into a stored itinerary. It compiles the prompt,
// invokes the model, extracts and validates the JSON completion, back-fills
// cost totals, normalizes the document against the committed schema, and
// commits the result to the request record.
//
// The pipeline owns the record from the moment it flips it to
// StatusProcessing: whatever happens afterwards, it exits with the record in
// either StatusPendingAcceptance or StatusFailed, never parked in
// StatusProcessing.
//
// Observability: the run is OpenTelemetry-instrumented; spans carry the
// request identifier, and failures are logged with zerolog since there is no
// HTTP request to report them on.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/erickosgey/safari-planner-backend/internal/domain"
	"github.com/erickosgey/safari-planner-backend/internal/itinerary"
	"github.com/erickosgey/safari-planner-backend/internal/llm"
	"github.com/erickosgey/safari-planner-backend/internal/prompt"
	"github.com/erickosgey/safari-planner-backend/internal/repo"
)

// GenerationPipeline drives one request from pending to a terminal-or-ready
// state. It is stateless between runs and safe to share across goroutines.
type GenerationPipeline struct {
	DB    *gorm.DB
	Model llm.Invoker

	// Timeout bounds a whole run, model call included. Zero means no bound.
	Timeout time.Duration
}

// Run executes the pipeline for requestID. It is designed to be launched as
// a goroutine after submission; errors are committed to the record and
// logged, not returned.
func (p *GenerationPipeline) Run(ctx context.Context, requestID string) {
	tr := otel.Tracer("services/GenerationPipeline")
	ctx, span := tr.Start(ctx, "Run",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
	defer span.End()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	rec, err := repo.GetRequest(ctx, p.DB, requestID)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("pipeline: load request")
		return
	}

	var req domain.TripRequest
	if err := json.Unmarshal([]byte(rec.Input), &req); err != nil {
		p.fail(ctx, requestID, fmt.Errorf("decode stored input: %w", err))
		return
	}

	if err := repo.UpdateRequestFields(ctx, p.DB, requestID, map[string]any{
		"status": domain.StatusProcessing,
	}); err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("pipeline: mark processing")
		return
	}

	doc, total, perPerson, err := p.generate(ctx, req)
	if err != nil {
		p.fail(ctx, requestID, err)
		return
	}

	if err := repo.UpdateRequestFields(ctx, p.DB, requestID, map[string]any{
		"status":          domain.StatusPendingAcceptance,
		"itinerary":       doc,
		"total_cost":      total,
		"cost_per_person": perPerson,
	}); err != nil {
		// The itinerary exists but could not be committed; fail the record so
		// the client is not left polling a stuck "processing" state.
		p.fail(ctx, requestID, fmt.Errorf("commit itinerary: %w", err))
		return
	}

	log.Info().Str("request_id", requestID).Msg("pipeline: itinerary ready")
}

// generate produces the normalized itinerary document plus its cost totals.
func (p *GenerationPipeline) generate(ctx context.Context, req domain.TripRequest) (doc string, total, perPerson decimal.Decimal, err error) {
	tr := otel.Tracer("services/GenerationPipeline")
	ctx, span := tr.Start(ctx, "generate")
	defer span.End()

	text, err := prompt.Compile(req)
	if err != nil {
		return "", total, perPerson, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	raw, err := p.Model.Invoke(ctx, text)
	if err != nil {
		return "", total, perPerson, err
	}

	payload, err := llm.Extract(raw)
	if err != nil {
		return "", total, perPerson, err
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return "", total, perPerson, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, ok := m["itinerary"].([]any); !ok {
		return "", total, perPerson, ErrSchemaViolation
	}

	m = itinerary.Normalize(itinerary.EnsureCosts(m, req.TotalTravelers()))

	total, err = costField(m, "totalCost")
	if err != nil {
		return "", total, perPerson, err
	}
	perPerson, err = costField(m, "costPerPerson")
	if err != nil {
		return "", total, perPerson, err
	}

	out, err := json.Marshal(m)
	if err != nil {
		return "", total, perPerson, fmt.Errorf("encode itinerary: %w", err)
	}
	return string(out), total, perPerson, nil
}

// fail commits the failure to the record. It uses a context detached from the
// run deadline so a timed-out run can still write its terminal state.
func (p *GenerationPipeline) fail(ctx context.Context, requestID string, cause error) {
	log.Error().Err(cause).Str("request_id", requestID).Msg("pipeline: generation failed")

	ctx = context.WithoutCancel(ctx)
	err := repo.UpdateRequestFields(ctx, p.DB, requestID, map[string]any{
		"status":        domain.StatusFailed,
		"error_message": cause.Error(),
	})
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("pipeline: record failure state")
	}
}

// costField reads a cost value as an exact decimal. EnsureCosts stores
// computed values as json.Number; model-provided values may also arrive as
// quoted strings, which are tolerated here.
func costField(m map[string]any, key string) (decimal.Decimal, error) {
	var s string
	switch v := m[key].(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	default:
		return decimal.Zero, fmt.Errorf("%w: %s is not numeric", ErrSchemaViolation, key)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrSchemaViolation, key, err)
	}
	return d, nil
}
