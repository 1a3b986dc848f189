package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souqcal/internal/model"
)

func day(s string) time.Time {
	d, _ := time.Parse(model.DateLayout, s)
	return d
}

func TestFilterNewDropsDuplicates(t *testing.T) {
	existing := []model.CalendarEvent{
		{Kind: model.KindDiscovered, Name: "Gitex", Date: "2025-10-13"},
	}
	candidates := []model.CalendarEvent{
		{Kind: model.KindDiscovered, Name: "Gitex", Date: "2025-10-13"},  // dup of stored
		{Kind: model.KindDiscovered, Name: "Gitex", Date: "2025-10-14"},  // same name, new day
		{Kind: model.KindDiscovered, Name: "Beauty Week", Date: "2025-10-13"},
		{Kind: model.KindDiscovered, Name: "Beauty Week", Date: "2025-10-13"}, // dup within batch
	}

	got := FilterNew(existing, candidates)
	require.Len(t, got, 2)
	assert.Equal(t, "Gitex_2025-10-14", got[0].Key())
	assert.Equal(t, "Beauty Week_2025-10-13", got[1].Key())
}

func TestFilterNewIdempotent(t *testing.T) {
	candidates := []model.CalendarEvent{
		{Name: "Ramadan Night Market", Date: "2025-03-10"},
	}
	first := FilterNew(nil, candidates)
	require.Len(t, first, 1)

	// Feeding the store back in, the same candidates add nothing.
	second := FilterNew(first, candidates)
	assert.Empty(t, second)
}

func TestMergeIncludesAllSources(t *testing.T) {
	user := []model.CalendarEvent{
		{ID: "u1", Kind: model.KindUser, Name: "Restock", Date: "2025-12-02"},
	}
	discovered := []model.CalendarEvent{
		{Kind: model.KindDiscovered, Name: "Warehouse Sale", Date: "2025-12-02"},
		{Kind: model.KindDiscovered, Name: "Out of range", Date: "2026-03-01"},
	}

	got := Merge(day("2025-12-01"), day("2025-12-03"), time.UTC, user, discovered)

	byKind := map[model.EventKind]int{}
	for _, e := range got {
		byKind[e.Kind]++
		assert.GreaterOrEqual(t, e.Date, "2025-12-01")
		assert.LessOrEqual(t, e.Date, "2025-12-03")
	}
	// National Day holidays plus Commemoration Day land in this window.
	assert.GreaterOrEqual(t, byKind[model.KindBuiltIn], 3)
	assert.Equal(t, 1, byKind[model.KindUser])
	assert.Equal(t, 1, byKind[model.KindDiscovered])
}

func TestMergeSorted(t *testing.T) {
	got := Merge(day("2025-01-01"), day("2025-12-31"), time.UTC, nil, nil)
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Date, got[i].Date)
	}
}

func TestExpandRecurringUserEvent(t *testing.T) {
	user := []model.CalendarEvent{{
		ID:    "u1",
		Kind:  model.KindUser,
		Name:  "Payday promo",
		Date:  "2025-01-25",
		RRule: "FREQ=MONTHLY;BYMONTHDAY=25",
	}}

	got := Merge(day("2025-01-01"), day("2025-03-31"), time.UTC, user, nil)

	var occ []model.CalendarEvent
	for _, e := range got {
		if e.Name == "Payday promo" {
			occ = append(occ, e)
		}
	}
	require.Len(t, occ, 3)
	assert.Equal(t, "2025-01-25", occ[0].Date)
	assert.Equal(t, "u1", occ[0].ID)
	assert.Equal(t, "2025-02-25", occ[1].Date)
	assert.Equal(t, "u1:2025-02-25", occ[1].ID)
	assert.Equal(t, "2025-03-25", occ[2].Date)
}

func TestBadRRuleFallsBackToBaseDate(t *testing.T) {
	user := []model.CalendarEvent{{
		ID:    "u1",
		Kind:  model.KindUser,
		Name:  "Broken",
		Date:  "2025-06-10",
		RRule: "FREQ=NOT-A-FREQ",
	}}

	got := Merge(day("2025-06-01"), day("2025-06-30"), time.UTC, user, nil)
	found := 0
	for _, e := range got {
		if e.Name == "Broken" {
			found++
		}
	}
	assert.Equal(t, 1, found)
}

func TestOnDay(t *testing.T) {
	events := []model.CalendarEvent{
		{Name: "a", Date: "2025-05-01"},
		{Name: "b", Date: "2025-05-02"},
		{Name: "c", Date: "2025-05-01"},
	}
	got := OnDay(events, day("2025-05-01"))
	require.Len(t, got, 2)
}
