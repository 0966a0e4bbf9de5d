// Package itinerary owns the generated-artifact schema: the typed Itinerary
// shape served to clients, the cost back-fill applied when the model omits
// totals, and the allow-list normalization that strips every key the model
// invented. The pipeline runs EnsureCosts first and Normalize second, so
// computed totals survive the key filter.
package itinerary

import (
	"bytes"
	"encoding/json"
)

// Activity is one scheduled item within a day.
type Activity struct {
	Time        string `json:"time"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// Accommodation is the lodge or camp for a night.
type Accommodation struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

// DayPlan is one day of the generated itinerary.
type DayPlan struct {
	Day           int           `json:"day"`
	Date          string        `json:"date"`
	Activities    []Activity    `json:"activities"`
	Accommodation Accommodation `json:"accommodation"`
	Meals         []string      `json:"meals"`
}

// Itinerary is the committed output schema. An empty day sequence is a valid
// (if degenerate) result, not an error.
type Itinerary struct {
	Summary       string      `json:"summary"`
	Days          []DayPlan   `json:"itinerary"`
	TotalCost     json.Number `json:"totalCost"`
	CostPerPerson json.Number `json:"costPerPerson"`
	Inclusions    []string    `json:"inclusions"`
	Exclusions    []string    `json:"exclusions"`
	Notes         []string    `json:"notes"`
}

// Decode parses a normalized itinerary JSON document into the typed shape.
func Decode(data []byte) (Itinerary, error) {
	var it Itinerary
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	err := dec.Decode(&it)
	return it, err
}
