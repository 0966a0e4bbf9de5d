// Package domain defines the persistence models and request payloads for the
// safari itinerary planner. These types are mapped with GORM and form the core
// data layer of the application.
package domain

// Status is the lifecycle state of an itinerary request. The pipeline drives
// a record from StatusPending through StatusProcessing to either
// StatusPendingAcceptance (success) or StatusFailed; the remaining states are
// reached only via explicit status-advance calls from the booking flow.
type Status string

const (
	// StatusPending is the initial state set at submission, before the
	// generation pipeline has picked the request up.
	StatusPending Status = "pending"

	// StatusProcessing means the generation pipeline owns the record.
	// A record must never be left in this state when the pipeline exits.
	StatusProcessing Status = "processing"

	// StatusFailed is the terminal failure state. ErrorMessage is set.
	StatusFailed Status = "failed"

	// StatusPendingAcceptance means an itinerary was generated and is
	// waiting for the traveler to accept it.
	StatusPendingAcceptance Status = "PENDING_ACCEPTANCE"

	// StatusPendingBooking means the traveler accepted the itinerary.
	StatusPendingBooking Status = "PENDING_BOOKING"

	// StatusBookingInProgress means an operator is booking lodges/transport.
	StatusBookingInProgress Status = "BOOKING_IN_PROGRESS"

	// StatusPendingPayment means booking succeeded and payment is due.
	StatusPendingPayment Status = "PENDING_PAYMENT"

	// StatusComplete is the terminal success state.
	StatusComplete Status = "COMPLETE"
)

// advanceTargets is the fixed set of states the status-advance endpoint may
// move a record into. The pipeline-internal states (pending, processing,
// failed) are deliberately excluded.
var advanceTargets = map[Status]struct{}{
	StatusPendingAcceptance: {},
	StatusPendingBooking:    {},
	StatusBookingInProgress: {},
	StatusPendingPayment:    {},
	StatusComplete:          {},
}

// Terminal reports whether the pipeline or booking flow will never move the
// record out of s without an external trigger.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// AdvanceTarget reports whether s is a valid target for the status-advance
// operation.
func (s Status) AdvanceTarget() bool {
	_, ok := advanceTargets[s]
	return ok
}

// IncludesItinerary reports whether status-poll responses for a record in
// state s should carry the generated itinerary payload.
func (s Status) IncludesItinerary() bool {
	switch s {
	case StatusPendingAcceptance, StatusPendingBooking, StatusComplete:
		return true
	default:
		return false
	}
}
