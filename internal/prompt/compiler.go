// Package prompt builds the instruction text sent to the generative model.
// Compile is a pure function of the trip request plus the embedded pricing
// rate card and cost policy, so identical requests always produce identical
// prompts.
package prompt

import (
	"fmt"
	"strings"

	"github.com/erickosgey/safari-planner-backend/internal/domain"
	"github.com/erickosgey/safari-planner-backend/internal/pricing"
)

// placeholder value the booking form sends when the traveler left the
// special-requests box untouched.
const noSpecialRequests = "None"

// Compile renders the full model prompt for a trip request. It fails with the
// domain date validation errors when the travel window is absent or invalid;
// all other fields are optional and simply omitted from the preferences
// clause when empty.
func Compile(req domain.TripRequest) (string, error) {
	start, end, err := req.Dates()
	if err != nil {
		return "", err
	}

	travelers := req.TotalTravelers()
	nights := req.Nights()

	var b strings.Builder
	fmt.Fprintf(&b,
		"Create a detailed safari itinerary for %d travelers from %s to %s (%d nights). ",
		travelers, start.Format(domain.DateLayout), end.Format(domain.DateLayout), nights)
	fmt.Fprintf(&b, "The travelers have the following preferences: %s. Only include destinations in Kenya.\n\n",
		preferencesClause(req))

	b.WriteString("Use this seasonal accommodation rate card when estimating costs:\n\n")
	b.WriteString(pricing.PromptTable())

	fmt.Fprintf(&b, `
Rate conversion rules (apply per-person per-night BEFORE multiplying by travelers and nights):
1. A "per person per night" rate is used as-is.
2. A "per double room per night" rate is divided by two to obtain the per-person cost.
3. When a rate is a range, use the LOWER bound.
4. When seasonal date ranges overlap for the travel dates, use the HIGHER applicable rate (conservative estimate).

Cost policy:
- INCLUDED in all totals: accommodation, inter-park transport at a flat USD %s per vehicle per day (one vehicle seats up to %d travelers), shared 4x4 vehicle with driver-guide, game drives, and meals not already covered by the lodging rate.
- EXCLUDED from totals, but itemized under "exclusions": park entry fees, international flights, visas, travel insurance, and personal expenses.
- Apply a %s%% service fee to the subtotal.
`, pricing.VehicleDayRate.StringFixed(0), pricing.VehicleCapacity, pricing.ServiceFeePercent.StringFixed(0))

	b.WriteString(`
Please provide a detailed day-by-day itinerary including:
1. Accommodation recommendations
2. Activities and game drives
3. Meal arrangements
4. Transportation details
5. Estimated costs

Format the response as a JSON object with the following structure:
{
    "summary": "Brief overview of the safari",
    "itinerary": [
        {
            "day": 1,
            "date": "YYYY-MM-DD",
            "activities": [
                {
                    "time": "HH:MM",
                    "description": "Activity description",
                    "location": "Location name"
                }
            ],
            "accommodation": {
                "name": "Lodge/Camp name",
                "type": "Lodge/Camp type",
                "location": "Location"
            },
            "meals": ["Breakfast", "Lunch", "Dinner"],
            "totalCost": 0
        }
    ],
    "totalCost": 0,
    "costPerPerson": 0,
    "inclusions": ["List of what's included"],
    "exclusions": ["List of what's not included"],
    "notes": ["Important notes and recommendations"]
}

Return ONLY the JSON object, with no surrounding prose or explanation.`)

	return b.String(), nil
}

// preferencesClause concatenates the non-empty optional request fields into a
// readable sentence fragment, or a fixed fallback when all are empty.
func preferencesClause(req domain.TripRequest) string {
	var parts []string
	if a := strings.TrimSpace(req.Accommodation); a != "" {
		parts = append(parts, "accommodation type: "+a)
	}
	if len(req.Interests) > 0 {
		parts = append(parts, "interests: "+strings.Join(req.Interests, ", "))
	}
	if s := strings.TrimSpace(req.TravelStyle); s != "" {
		parts = append(parts, "travel style: "+s)
	}
	if sr := strings.TrimSpace(req.SpecialRequests); sr != "" && sr != noSpecialRequests {
		parts = append(parts, "special requests: "+sr)
	}
	if len(parts) == 0 {
		return "no specific preferences"
	}
	return strings.Join(parts, ", ")
}
