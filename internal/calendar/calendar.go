// Package calendar merges built-in, user and discovered events into dated
// views and owns the (name, date) dedup rule for discovered events.
package calendar

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"souqcal/internal/dates"
	appLog "souqcal/internal/log"
	"souqcal/internal/model"
)

// ValidateRRule reports whether s parses as an RFC 5545 recurrence rule.
func ValidateRRule(s string) error {
	_, err := rrule.StrToRRule(s)
	return err
}

// Key builds the dedup identity for a (name, calendar day) pair.
func Key(name, date string) string {
	return name + "_" + date
}

// FilterNew returns the candidates whose (name, date) key is not already
// present among existing. This is the only gate through which discovered
// events enter the store: no two stored discovered events share a key.
func FilterNew(existing, candidates []model.CalendarEvent) []model.CalendarEvent {
	seen := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		seen[e.Key()] = struct{}{}
	}

	out := make([]model.CalendarEvent, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Merge returns every event falling within [from, to] (inclusive calendar
// days): built-in entries regenerated per year, user events with recurrences
// expanded, and stored discovered events. The result is sorted by date.
func Merge(from, to time.Time, loc *time.Location, user, discovered []model.CalendarEvent) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, 64)

	for year := from.Year(); year <= to.Year(); year++ {
		for _, e := range dates.ForYear(year) {
			if inRange(e.Date, from, to) {
				out = append(out, e)
			}
		}
	}

	for _, e := range user {
		out = append(out, expandUserEvent(e, from, to, loc)...)
	}

	for _, e := range discovered {
		if inRange(e.Date, from, to) {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// OnDay filters events to a single calendar day.
func OnDay(events []model.CalendarEvent, day time.Time) []model.CalendarEvent {
	want := day.Format(model.DateLayout)
	out := make([]model.CalendarEvent, 0, 4)
	for _, e := range events {
		if e.Date == want {
			out = append(out, e)
		}
	}
	return out
}

// expandUserEvent materializes a user event inside [from, to]. Recurring
// events yield one copy per occurrence with a derived ID so each occurrence
// can be reminded about independently; a bad RRULE degrades to the single
// base date.
func expandUserEvent(e model.CalendarEvent, from, to time.Time, loc *time.Location) []model.CalendarEvent {
	if e.RRule == "" {
		if inRange(e.Date, from, to) {
			return []model.CalendarEvent{e}
		}
		return nil
	}

	start, err := e.Day(loc)
	if err != nil {
		appLog.Warn("user event has unparsable date, skipping", "id", e.ID, "date", e.Date)
		return nil
	}

	r, err := rrule.StrToRRule(e.RRule)
	if err != nil {
		appLog.Error("failed to parse rrule, using base date only", err, "id", e.ID, "rrule", e.RRule)
		if inRange(e.Date, from, to) {
			return []model.CalendarEvent{e}
		}
		return nil
	}
	r.DTStart(start)

	rangeStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	rangeEnd := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, loc)

	occs := r.Between(rangeStart, rangeEnd, true)
	out := make([]model.CalendarEvent, 0, len(occs))
	for _, t := range occs {
		inst := e
		inst.Date = t.Format(model.DateLayout)
		if inst.Date != e.Date && e.ID != "" {
			inst.ID = e.ID + ":" + inst.Date
		}
		out = append(out, inst)
	}
	return out
}

func inRange(date string, from, to time.Time) bool {
	return date >= from.Format(model.DateLayout) && date <= to.Format(model.DateLayout)
}
