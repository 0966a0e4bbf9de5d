package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestRecord is the durable row for one itinerary request, keyed by the
// opaque identifier returned at submission. It is created once in
// StatusPending and mutated in place by the pipeline and the status-advance
// flow; this service never deletes records.
//
// Cost fields use shopspring decimals, which GORM stores as TEXT in SQLite,
// so currency amounts round-trip exactly.
type RequestRecord struct {
	ID            string          `json:"requestId"     gorm:"type:char(36);primaryKey"`
	Email         string          `json:"email"         gorm:"type:varchar(254);not null;index:idx_requests_email"`
	StartDate     string          `json:"startDate"     gorm:"type:varchar(10);not null"`
	EndDate       string          `json:"endDate"       gorm:"type:varchar(10);not null"`
	Status        Status          `json:"status"        gorm:"type:varchar(32);not null;index"`
	PaymentStatus string          `json:"paymentStatus" gorm:"type:varchar(16);not null;default:'unpaid'"`
	TotalCost     decimal.Decimal `json:"totalCost"     gorm:"type:TEXT;not null"`
	CostPerPerson decimal.Decimal `json:"costPerPerson" gorm:"type:TEXT;not null"`
	Currency      string          `json:"currency"      gorm:"type:varchar(3);not null;default:'USD'"`

	// Input is the submitted TripRequest, stored verbatim as JSON.
	Input string `json:"-" gorm:"type:text;not null"`

	// Itinerary is the normalized generated itinerary as JSON; nil until the
	// pipeline completes successfully.
	Itinerary *string `json:"-" gorm:"type:text"`

	// ErrorMessage is set when the pipeline fails; nil otherwise.
	ErrorMessage *string `json:"errorMessage,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for RequestRecord.
func (RequestRecord) TableName() string { return "requests" }

// Verification holds the one-time email verification code, keyed by email.
// Each verification request overwrites the previous row. Expiry is logical:
// lookups filter on ExpiresAt, rows are not physically deleted here.
type Verification struct {
	Email     string    `gorm:"type:varchar(254);primaryKey"`
	Code      string    `gorm:"type:varchar(6);not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name for Verification.
func (Verification) TableName() string { return "verifications" }
