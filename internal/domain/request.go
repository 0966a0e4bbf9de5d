package domain

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates in trip requests and
// stored records.
const DateLayout = "2006-01-02"

// TravelDates is the requested calendar window for the trip.
type TravelDates struct {
	StartDate  string `json:"startDate" binding:"required"`
	EndDate    string `json:"endDate" binding:"required"`
	IsFlexible bool   `json:"isFlexible"`
}

// GroupMembers splits a traveler category into adults and children.
type GroupMembers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

// Group splits the party into international and resident travelers; the two
// categories attract different park fees and are priced separately by lodges.
type Group struct {
	International GroupMembers `json:"international"`
	Resident      GroupMembers `json:"resident"`
}

// TripRequest is the payload submitted by a client to request an itinerary.
// It is persisted verbatim (as JSON) on the RequestRecord so the generation
// pipeline can be re-run against the original input.
type TripRequest struct {
	TravelDates     TravelDates `json:"travelDates"`
	Group           Group       `json:"group"`
	Accommodation   string      `json:"accommodation"`
	Interests       []string    `json:"interests"`
	TravelStyle     string      `json:"travelStyle"`
	Email           string      `json:"email"`
	SpecialRequests string      `json:"specialRequests"`
}

// Validation errors returned by TripRequest.Validate.
var (
	ErrMissingDates    = errors.New("missing start date or end date")
	ErrBadDateFormat   = errors.New("dates must use YYYY-MM-DD")
	ErrDateOrder       = errors.New("start date must not be after end date")
	ErrNegativeCount   = errors.New("traveler counts must be non-negative")
	ErrNoTravelers     = errors.New("at least one traveler is required")
	ErrNoInterests     = errors.New("at least one interest is required")
	ErrMissingEmail    = errors.New("email is required")
)

// TotalTravelers returns the party size: the sum of adults and children
// across both traveler categories.
func (r TripRequest) TotalTravelers() int {
	return r.Group.International.Adults + r.Group.International.Children +
		r.Group.Resident.Adults + r.Group.Resident.Children
}

// HasChildren reports whether any category includes children.
func (r TripRequest) HasChildren() bool {
	return r.Group.International.Children > 0 || r.Group.Resident.Children > 0
}

// Dates parses and returns the travel window. It fails if either date is
// absent, malformed, or the window is inverted.
func (r TripRequest) Dates() (start, end time.Time, err error) {
	if strings.TrimSpace(r.TravelDates.StartDate) == "" || strings.TrimSpace(r.TravelDates.EndDate) == "" {
		return start, end, ErrMissingDates
	}
	start, err = time.Parse(DateLayout, r.TravelDates.StartDate)
	if err != nil {
		return start, end, ErrBadDateFormat
	}
	end, err = time.Parse(DateLayout, r.TravelDates.EndDate)
	if err != nil {
		return start, end, ErrBadDateFormat
	}
	if start.After(end) {
		return start, end, ErrDateOrder
	}
	return start, end, nil
}

// Nights returns the number of nights between the start and end dates.
// It returns 0 when the window is invalid; call Validate first.
func (r TripRequest) Nights() int {
	start, end, err := r.Dates()
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Hours() / 24)
}

// Validate checks the request at the boundary so malformed input fails fast
// with a named error instead of propagating absent values downstream.
func (r TripRequest) Validate() error {
	if _, _, err := r.Dates(); err != nil {
		return err
	}
	for _, n := range []int{
		r.Group.International.Adults, r.Group.International.Children,
		r.Group.Resident.Adults, r.Group.Resident.Children,
	} {
		if n < 0 {
			return ErrNegativeCount
		}
	}
	if r.TotalTravelers() == 0 {
		return ErrNoTravelers
	}
	if len(r.Interests) == 0 {
		return ErrNoInterests
	}
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	return nil
}
