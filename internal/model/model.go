package model

import "time"

// DateLayout is the calendar-day format used everywhere in the API and the
// persisted documents.
const DateLayout = "2006-01-02"

// EventKind distinguishes where a calendar entry came from.
type EventKind string

const (
	// KindBuiltIn entries are regenerated per year by the date provider and
	// never persisted.
	KindBuiltIn EventKind = "built-in"
	// KindUser entries are created and edited through the API.
	KindUser EventKind = "user"
	// KindDiscovered entries are appended by the discovery job.
	KindDiscovered EventKind = "discovered"
)

// CalendarEvent is a single dated entry on the merged calendar.
type CalendarEvent struct {
	ID   string    `json:"id,omitempty"`
	Kind EventKind `json:"kind"`

	// Date is the calendar day in DateLayout. For recurring user events it is
	// the first occurrence; RRule drives the rest.
	Date string `json:"date"`

	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description,omitempty"`

	// Source labels discovered events with the provider that produced them.
	Source string `json:"source,omitempty"`

	// RRule is an optional RFC 5545 recurrence rule (user events only),
	// e.g. "FREQ=MONTHLY;BYMONTHDAY=15".
	RRule string `json:"rrule,omitempty"`
}

// Key is the dedup identity: no two stored discovered events may share it.
func (e CalendarEvent) Key() string {
	return e.Name + "_" + e.Date
}

// StableID identifies an event across ticks for the sent-notification log.
func (e CalendarEvent) StableID() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Key()
}

// Day parses the event date in the given location.
func (e CalendarEvent) Day(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, e.Date, loc)
}

// Settings is the single global settings document. It is overwritten
// wholesale on every save; nothing here is versioned.
type Settings struct {
	WebhookURL string `json:"webhook_url"`

	// AIProvider selects the completion backend: "builtin", "openai" or
	// "openrouter".
	AIProvider string `json:"ai_provider"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	// BaseURL overrides the endpoint for OpenAI-compatible servers.
	BaseURL string `json:"base_url,omitempty"`

	DiscoveryEnabled       bool `json:"discovery_enabled"`
	DiscoveryFrequencyDays int  `json:"discovery_frequency_days"`

	DailyBriefingEnabled bool   `json:"daily_briefing_enabled"`
	DailyBriefingTime    string `json:"daily_briefing_time"` // HH:MM

	RemindersEnabled bool  `json:"reminders_enabled"`
	NotifyDaysBefore []int `json:"notify_days_before"`
}

// DefaultSettings returns the document written on first run.
func DefaultSettings() Settings {
	return Settings{
		AIProvider:             "builtin",
		DiscoveryEnabled:       false,
		DiscoveryFrequencyDays: 7,
		DailyBriefingEnabled:   false,
		DailyBriefingTime:      "09:00",
		RemindersEnabled:       true,
		NotifyDaysBefore:       []int{3},
	}
}

// DiscoveryState tracks the interval gate for the discovery job. It lives in
// its own document so a settings overwrite cannot reset it.
type DiscoveryState struct {
	LastRun time.Time `json:"last_run"`
}

// ChatMessage is one entry of the persisted assistant conversation.
type ChatMessage struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}
