package itinerary

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// EnsureCosts back-fills totalCost and costPerPerson on a parsed itinerary
// when the model omitted them. Existing model-provided values are never
// overwritten. A totalTravelers below 1 is coerced to 1 so the per-person
// division can never fail.
//
// The back-filled values are json.Number built from exact decimal strings, so
// marshaling the result preserves currency amounts without float drift.
func EnsureCosts(m map[string]any, totalTravelers int) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	if totalTravelers < 1 {
		totalTravelers = 1
	}

	if _, ok := m["totalCost"]; !ok {
		total := decimal.Zero
		if days, ok := m["itinerary"].([]any); ok {
			for _, d := range days {
				day, ok := d.(map[string]any)
				if !ok {
					continue
				}
				total = total.Add(parseAmount(day["totalCost"]))
			}
		}
		m["totalCost"] = json.Number(total.String())
	}

	if _, ok := m["costPerPerson"]; !ok {
		perPerson := parseAmount(m["totalCost"]).
			DivRound(decimal.NewFromInt(int64(totalTravelers)), 2)
		m["costPerPerson"] = json.Number(perPerson.String())
	}

	return m
}

// parseAmount converts the loosely-typed cost values a model may emit
// (numbers, numeric strings, absent) into an exact decimal. Anything
// unparsable counts as zero.
func parseAmount(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case json.Number:
		if d, err := decimal.NewFromString(n.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	}
	return decimal.Zero
}
