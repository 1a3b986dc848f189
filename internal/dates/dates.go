// Package dates produces the built-in UAE seller calendar for a given year:
// public holidays, retail seasons, and approximated Islamic (Hijri) dates.
package dates

import (
	"math"
	"sort"
	"time"

	"souqcal/internal/model"
)

const (
	CategoryHoliday   = "holiday"
	CategorySale      = "sale"
	CategoryReligious = "religious"
)

// hijriAnchorYear is the Gregorian year the lunar anchor dates below refer
// to. Other years shift by roughly -10.875 days per year (the Hijri year is
// about 11 days shorter than the Gregorian one).
const hijriAnchorYear = 2024

const hijriDriftDaysPerYear = -10.875

// lunarAnchor is a Hijri observance anchored to a known 2024 date.
type lunarAnchor struct {
	name     string
	category string
	month    time.Month
	day      int
	desc     string
}

var lunarAnchors = []lunarAnchor{
	{"Ramadan Begins", CategoryReligious, time.March, 11, "Start of the holy month; evening shopping peaks and Ramadan promotions run throughout."},
	{"Eid Al Fitr", CategoryHoliday, time.April, 10, "End of Ramadan. Major gifting season across the UAE."},
	{"Arafat Day", CategoryHoliday, time.June, 15, "Public holiday preceding Eid Al Adha."},
	{"Eid Al Adha", CategoryHoliday, time.June, 16, "Festival of sacrifice; multi-day public holiday."},
	{"Islamic New Year", CategoryHoliday, time.July, 7, "Hijri New Year public holiday."},
	{"Prophet Muhammad's Birthday", CategoryHoliday, time.September, 15, "Mawlid public holiday."},
}

// hijriOverrides pins exact dates for years where the approximation is known
// to be off by a day or two. Keyed by Gregorian year, then observance name.
var hijriOverrides = map[int]map[string]string{
	2025: {
		"Ramadan Begins":              "2025-03-01",
		"Eid Al Fitr":                 "2025-03-30",
		"Arafat Day":                  "2025-06-05",
		"Eid Al Adha":                 "2025-06-06",
		"Islamic New Year":            "2025-06-26",
		"Prophet Muhammad's Birthday": "2025-09-04",
	},
	2026: {
		"Ramadan Begins":              "2026-02-18",
		"Eid Al Fitr":                 "2026-03-20",
		"Arafat Day":                  "2026-05-26",
		"Eid Al Adha":                 "2026-05-27",
		"Islamic New Year":            "2026-06-16",
		"Prophet Muhammad's Birthday": "2026-08-25",
	},
}

// fixedDate is a named date that falls on the same Gregorian day every year.
type fixedDate struct {
	name     string
	category string
	month    time.Month
	day      int
	desc     string
}

var fixedDates = []fixedDate{
	{"New Year's Day", CategoryHoliday, time.January, 1, "Public holiday. New year sale window opens."},
	{"Valentine's Day", CategorySale, time.February, 14, "Gifting spike: flowers, chocolate, jewellery."},
	{"Mother's Day (Arab world)", CategorySale, time.March, 21, "Regional Mother's Day; strong gifting demand."},
	{"Dubai Summer Surprises Begins", CategorySale, time.July, 1, "Approximate start of the DSS summer sale season."},
	{"Back to School Season", CategorySale, time.August, 20, "School supplies and electronics demand ramps up."},
	{"Singles' Day (11.11)", CategorySale, time.November, 11, "One of the biggest online sale days of the year."},
	{"Commemoration Day", CategoryHoliday, time.December, 1, "UAE public holiday honouring fallen servicemen."},
	{"UAE National Day", CategoryHoliday, time.December, 2, "Union Day. Two-day public holiday with nationwide sales."},
	{"UAE National Day Holiday", CategoryHoliday, time.December, 3, "Second day of the National Day holiday."},
	{"12.12 Sale", CategorySale, time.December, 12, "Year-end online mega sale."},
	{"Dubai Shopping Festival Begins", CategorySale, time.December, 15, "Approximate DSF opening; runs into late January."},
}

// ForYear returns the built-in calendar for the given year. The result is
// deterministic and sorted by date; invalid or far-future years simply fall
// back to the linear Hijri approximation.
func ForYear(year int) []model.CalendarEvent {
	events := make([]model.CalendarEvent, 0, len(fixedDates)+len(lunarAnchors)+1)

	for _, f := range fixedDates {
		events = append(events, builtIn(f.name, f.category, f.desc,
			time.Date(year, f.month, f.day, 0, 0, 0, 0, time.UTC)))
	}

	// White Friday (the GCC Black Friday) lands on the last Friday of
	// November.
	events = append(events, builtIn("White Friday", CategorySale,
		"The region's biggest discount event of the year.",
		lastWeekday(year, time.November, time.Friday)))

	for _, a := range lunarAnchors {
		events = append(events, builtIn(a.name, a.category, a.desc, hijriDate(year, a)))
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Name < events[j].Name
	})
	return events
}

func builtIn(name, category, desc string, day time.Time) model.CalendarEvent {
	return model.CalendarEvent{
		Kind:        model.KindBuiltIn,
		Date:        day.Format(model.DateLayout),
		Name:        name,
		Category:    category,
		Description: desc,
	}
}

// hijriDate resolves a lunar observance for a year: exact override when one
// is known, otherwise the anchor date shifted by the annual Hijri drift.
func hijriDate(year int, a lunarAnchor) time.Time {
	if byName, ok := hijriOverrides[year]; ok {
		if exact, ok := byName[a.name]; ok {
			if d, err := time.ParseInLocation(model.DateLayout, exact, time.UTC); err == nil {
				return d
			}
		}
	}

	shift := int(math.Round(float64(year-hijriAnchorYear) * hijriDriftDaysPerYear))
	anchor := time.Date(hijriAnchorYear, a.month, a.day, 0, 0, 0, 0, time.UTC)
	shifted := anchor.AddDate(0, 0, shift)

	// Re-stamp into the requested year; the drift can carry the raw shift
	// into a neighbouring year.
	return time.Date(year, shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
}

func lastWeekday(year int, month time.Month, wd time.Weekday) time.Time {
	// Walk back from the last day of the month.
	d := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
