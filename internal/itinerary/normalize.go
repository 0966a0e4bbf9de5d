package itinerary

// Allow-lists for each nesting level of the output schema. Keys outside these
// sets are silently dropped; keys inside them are copied through untouched
// when present.
var (
	topLevelKeys = []string{"summary", "itinerary", "totalCost", "costPerPerson", "inclusions", "exclusions", "notes"}
	dayKeys      = []string{"day", "date", "activities", "accommodation", "meals"}
	activityKeys = []string{"time", "description", "location"}
	lodgingKeys  = []string{"name", "type", "location"}
)

// Normalize filters a parsed itinerary down to the committed schema. It is a
// total function over any mapping-shaped input: absent keys are simply
// omitted, unknown keys dropped, and non-mapping entries in list positions
// discarded. Applying it twice yields the same result.
//
// Run AFTER EnsureCosts so computed totals are not filtered out.
func Normalize(m map[string]any) map[string]any {
	out := pick(m, topLevelKeys)

	days, ok := out["itinerary"].([]any)
	if !ok {
		return out
	}
	normDays := make([]any, 0, len(days))
	for _, d := range days {
		day, ok := d.(map[string]any)
		if !ok {
			continue
		}
		nd := pick(day, dayKeys)

		if acts, ok := nd["activities"].([]any); ok {
			normActs := make([]any, 0, len(acts))
			for _, a := range acts {
				if act, ok := a.(map[string]any); ok {
					normActs = append(normActs, pick(act, activityKeys))
				}
			}
			nd["activities"] = normActs
		}

		if acc, ok := nd["accommodation"].(map[string]any); ok {
			nd["accommodation"] = pick(acc, lodgingKeys)
		}

		normDays = append(normDays, nd)
	}
	out["itinerary"] = normDays
	return out
}

// pick copies the allow-listed keys of m into a fresh map.
func pick(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}
