// Package pricing embeds the seasonal accommodation rate card and the cost
// policy used when compiling itinerary prompts. Rates are quoted the way
// lodges publish them (per person, per double room, or as a range), so the
// package also owns the unit conversion into a per-person nightly figure.
package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RateUnit is the unit a lodge quotes its nightly rate in.
type RateUnit int

const (
	// PerPerson rates are used as-is.
	PerPerson RateUnit = iota
	// PerDoubleRoom rates are divided by two to obtain the per-person cost.
	PerDoubleRoom
)

// SeasonalRate is one nightly price band, valid every year between Start and
// End (inclusive, month-day resolution; the band may wrap the new year).
// Low == High for fixed rates; Low < High expresses a published range, in
// which case the LOWER bound is used for estimates.
type SeasonalRate struct {
	Season string // e.g. "high", "low", "shoulder"
	Start  MonthDay
	End    MonthDay
	Unit   RateUnit
	Low    decimal.Decimal
	High   decimal.Decimal
}

// MonthDay is a recurring calendar day.
type MonthDay struct {
	Month time.Month
	Day   int
}

// Property is one lodge or camp in the rate card.
type Property struct {
	Name   string
	Region string
	Type   string // "Lodge" or "Camp"
	Rates  []SeasonalRate
}

// Policy constants for the fixed cost-computation rules embedded in prompts.
var (
	// ServiceFeePercent is the surcharge applied to the trip subtotal.
	ServiceFeePercent = decimal.NewFromInt(10)

	// VehicleDayRate is the flat per-vehicle-per-day transport rate (USD),
	// covering a shared 4x4 with a driver-guide.
	VehicleDayRate = decimal.NewFromInt(250)

	// VehicleCapacity is the number of travelers one vehicle seats.
	VehicleCapacity = 6
)

func usd(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// table is the embedded rate card. Seasons follow the common Kenyan pattern:
// high (peak migration plus the festive window), low (long rains), and
// shoulder for the remainder of the year.
var table = []Property{
	{
		Name: "Mara River Lodge", Region: "masai mara", Type: "Lodge",
		Rates: []SeasonalRate{
			{Season: "high", Start: md(time.July, 1), End: md(time.October, 31), Unit: PerPerson, Low: usd(450), High: usd(450)},
			{Season: "festive", Start: md(time.December, 20), End: md(time.January, 5), Unit: PerPerson, Low: usd(520), High: usd(520)},
			{Season: "low", Start: md(time.April, 1), End: md(time.May, 31), Unit: PerPerson, Low: usd(260), High: usd(260)},
			{Season: "shoulder", Start: md(time.January, 6), End: md(time.March, 31), Unit: PerPerson, Low: usd(340), High: usd(340)},
			{Season: "shoulder", Start: md(time.June, 1), End: md(time.June, 30), Unit: PerPerson, Low: usd(340), High: usd(340)},
			{Season: "shoulder", Start: md(time.November, 1), End: md(time.December, 19), Unit: PerPerson, Low: usd(340), High: usd(340)},
		},
	},
	{
		Name: "Talek Tented Camp", Region: "masai mara", Type: "Camp",
		Rates: []SeasonalRate{
			{Season: "high", Start: md(time.July, 1), End: md(time.October, 31), Unit: PerDoubleRoom, Low: usd(560), High: usd(680)},
			{Season: "low", Start: md(time.April, 1), End: md(time.May, 31), Unit: PerDoubleRoom, Low: usd(320), High: usd(380)},
			{Season: "shoulder", Start: md(time.November, 1), End: md(time.June, 30), Unit: PerDoubleRoom, Low: usd(420), High: usd(480)},
		},
	},
	{
		Name: "Kilimanjaro View Lodge", Region: "amboseli", Type: "Lodge",
		Rates: []SeasonalRate{
			{Season: "high", Start: md(time.June, 15), End: md(time.October, 31), Unit: PerPerson, Low: usd(310), High: usd(390)},
			{Season: "low", Start: md(time.April, 1), End: md(time.May, 31), Unit: PerPerson, Low: usd(180), High: usd(180)},
			{Season: "shoulder", Start: md(time.November, 1), End: md(time.June, 14), Unit: PerPerson, Low: usd(240), High: usd(240)},
		},
	},
	{
		Name: "Amboseli Acacia Camp", Region: "amboseli", Type: "Camp",
		Rates: []SeasonalRate{
			{Season: "high", Start: md(time.June, 15), End: md(time.October, 31), Unit: PerDoubleRoom, Low: usd(440), High: usd(440)},
			{Season: "rest of year", Start: md(time.November, 1), End: md(time.June, 14), Unit: PerDoubleRoom, Low: usd(300), High: usd(300)},
		},
	},
	{
		Name: "Flamingo Hill Lodge", Region: "lake nakuru", Type: "Lodge",
		Rates: []SeasonalRate{
			{Season: "high", Start: md(time.July, 1), End: md(time.October, 31), Unit: PerPerson, Low: usd(280), High: usd(280)},
			{Season: "rest of year", Start: md(time.November, 1), End: md(time.June, 30), Unit: PerPerson, Low: usd(200), High: usd(230)},
		},
	},
	{
		Name: "Samburu Riverside Camp", Region: "samburu", Type: "Camp",
		Rates: []SeasonalRate{
			{Season: "high", Start: md(time.July, 1), End: md(time.October, 31), Unit: PerPerson, Low: usd(330), High: usd(410)},
			{Season: "rest of year", Start: md(time.November, 1), End: md(time.June, 30), Unit: PerPerson, Low: usd(250), High: usd(250)},
		},
	},
	{
		Name: "Tsavo Baobab Lodge", Region: "tsavo east", Type: "Lodge",
		Rates: []SeasonalRate{
			{Season: "high", Start: md(time.July, 1), End: md(time.October, 31), Unit: PerDoubleRoom, Low: usd(380), High: usd(380)},
			{Season: "festive", Start: md(time.December, 20), End: md(time.January, 5), Unit: PerDoubleRoom, Low: usd(420), High: usd(420)},
			{Season: "rest of year", Start: md(time.January, 6), End: md(time.December, 19), Unit: PerDoubleRoom, Low: usd(260), High: usd(300)},
		},
	},
}

func md(m time.Month, d int) MonthDay { return MonthDay{Month: m, Day: d} }

// Table returns the embedded rate card.
func Table() []Property { return table }

// contains reports whether date falls inside the band, honoring bands that
// wrap the new year (e.g. Dec 20 - Jan 5).
func (r SeasonalRate) contains(date time.Time) bool {
	v := int(date.Month())*100 + date.Day()
	s := int(r.Start.Month)*100 + r.Start.Day
	e := int(r.End.Month)*100 + r.End.Day
	if s <= e {
		return v >= s && v <= e
	}
	return v >= s || v <= e
}

// PerPersonNightly converts a quoted rate to a per-person nightly figure:
// range-valued rates use the lower bound, and double-room rates are split
// across two travelers.
func (r SeasonalRate) PerPersonNightly() decimal.Decimal {
	base := r.Low
	if r.Unit == PerDoubleRoom {
		return base.DivRound(decimal.NewFromInt(2), 2)
	}
	return base
}

// NightlyRate returns the per-person nightly rate for p on the given date.
// When several seasonal bands overlap the date, the HIGHER applicable rate
// wins so the estimate stays conservative. If no band covers the date the
// highest rate across all bands is used, for the same reason.
func NightlyRate(p Property, date time.Time) decimal.Decimal {
	best := decimal.Zero
	matched := false
	for _, r := range p.Rates {
		if !r.contains(date) {
			continue
		}
		if v := r.PerPersonNightly(); v.GreaterThan(best) {
			best = v
		}
		matched = true
	}
	if matched {
		return best
	}
	for _, r := range p.Rates {
		if v := r.PerPersonNightly(); v.GreaterThan(best) {
			best = v
		}
	}
	return best
}

var titleCaser = cases.Title(language.English)

// PromptTable renders the rate card as plain text for embedding in the model
// prompt, one line per seasonal band.
func PromptTable() string {
	var b strings.Builder
	region := ""
	for _, p := range table {
		if p.Region != region {
			region = p.Region
			fmt.Fprintf(&b, "%s:\n", titleCaser.String(region))
		}
		for _, r := range p.Rates {
			fmt.Fprintf(&b, "  - %s (%s): %s season %s to %s: %s\n",
				p.Name, p.Type, r.Season,
				r.Start.String(), r.End.String(), r.priceText())
		}
	}
	return b.String()
}

// String renders MonthDay as e.g. "Jul 1".
func (m MonthDay) String() string {
	return fmt.Sprintf("%s %d", m.Month.String()[:3], m.Day)
}

func (r SeasonalRate) priceText() string {
	unit := "per person per night"
	if r.Unit == PerDoubleRoom {
		unit = "per double room per night"
	}
	if r.Low.Equal(r.High) {
		return fmt.Sprintf("USD %s %s", r.Low.StringFixed(0), unit)
	}
	return fmt.Sprintf("USD %s-%s %s", r.Low.StringFixed(0), r.High.StringFixed(0), unit)
}
