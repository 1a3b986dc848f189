package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"souqcal/internal/ai"
	"souqcal/internal/calendar"
	appLog "souqcal/internal/log"
	"souqcal/internal/model"
	"souqcal/internal/store"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	var settings model.Settings
	if err := s.st.Load(store.DocSettings, &settings, model.DefaultSettings()); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handlePutSettings overwrites the settings document wholesale and re-arms
// the notification schedule from the new briefing time.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload")
		return
	}

	switch settings.AIProvider {
	case "", "builtin", "openai", "openrouter":
	default:
		writeError(w, http.StatusBadRequest, "unknown ai provider")
		return
	}

	if err := s.st.Save(store.DocSettings, settings); err != nil {
		appLog.Error("failed to save settings", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	if err := s.sched.ScheduleNotifications(settings.DailyBriefingTime); err != nil {
		appLog.Error("failed to reschedule notifications", err)
	}

	writeJSON(w, http.StatusOK, settings)
}

// eventsResponse is the JSON shape for /api/events.
type eventsResponse struct {
	Events []model.CalendarEvent `json:"events"`
	From   string                `json:"from"`
	To     string                `json:"to"`
}

// handleEvents returns the merged calendar for a date window.
//
// GET /api/events?from=2025-11-01&to=2025-12-31
// Defaults: from = a week ago, to = 90 days ahead.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.loc)
	from := now.AddDate(0, 0, -7)
	to := now.AddDate(0, 0, 90)

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		d, err := time.ParseInLocation(model.DateLayout, v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		from = d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.ParseInLocation(model.DateLayout, v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		to = d
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}

	user, discovered := s.loadEventDocs()
	merged := calendar.Merge(from, to, s.loc, user, discovered)

	writeJSON(w, http.StatusOK, eventsResponse{
		Events: merged,
		From:   from.Format(model.DateLayout),
		To:     to.Format(model.DateLayout),
	})
}

func (s *Server) loadEventDocs() (user, discovered []model.CalendarEvent) {
	_ = s.st.Load(store.DocUserEvents, &user, []model.CalendarEvent{})
	_ = s.st.Load(store.DocDiscoveredEvents, &discovered, []model.CalendarEvent{})
	return user, discovered
}

func (s *Server) handleListUserEvents(w http.ResponseWriter, _ *http.Request) {
	var events []model.CalendarEvent
	_ = s.st.Load(store.DocUserEvents, &events, []model.CalendarEvent{})
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateUserEvent(w http.ResponseWriter, r *http.Request) {
	var e model.CalendarEvent
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	if msg, ok := validateUserEvent(e); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	e.ID = uuid.NewString()
	e.Kind = model.KindUser
	e.Source = ""

	var events []model.CalendarEvent
	_ = s.st.Load(store.DocUserEvents, &events, []model.CalendarEvent{})
	events = append(events, e)

	if err := s.st.Save(store.DocUserEvents, events); err != nil {
		appLog.Error("failed to save user events", err)
		writeError(w, http.StatusInternalServerError, "failed to save event")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateUserEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var in model.CalendarEvent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}
	if msg, ok := validateUserEvent(in); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var events []model.CalendarEvent
	_ = s.st.Load(store.DocUserEvents, &events, []model.CalendarEvent{})

	for i := range events {
		if events[i].ID != id {
			continue
		}
		in.ID = id
		in.Kind = model.KindUser
		events[i] = in

		if err := s.st.Save(store.DocUserEvents, events); err != nil {
			appLog.Error("failed to save user events", err)
			writeError(w, http.StatusInternalServerError, "failed to save event")
			return
		}
		writeJSON(w, http.StatusOK, in)
		return
	}
	writeError(w, http.StatusNotFound, "event not found")
}

func (s *Server) handleDeleteUserEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var events []model.CalendarEvent
	_ = s.st.Load(store.DocUserEvents, &events, []model.CalendarEvent{})

	kept := events[:0]
	found := false
	for _, e := range events {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	if err := s.st.Save(store.DocUserEvents, kept); err != nil {
		appLog.Error("failed to save user events", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validateUserEvent(e model.CalendarEvent) (string, bool) {
	if e.Name == "" {
		return "event name is required", false
	}
	if _, err := time.Parse(model.DateLayout, e.Date); err != nil {
		return "event date must be YYYY-MM-DD", false
	}
	if e.RRule != "" {
		if err := calendar.ValidateRRule(e.RRule); err != nil {
			return "invalid recurrence rule", false
		}
	}
	return "", true
}

func (s *Server) handleDiscoveredEvents(w http.ResponseWriter, _ *http.Request) {
	var events []model.CalendarEvent
	_ = s.st.Load(store.DocDiscoveredEvents, &events, []model.CalendarEvent{})
	writeJSON(w, http.StatusOK, events)
}

// handleRunDiscovery triggers a discovery run synchronously. The interval
// gate still applies; a gated run is a successful no-op.
func (s *Server) handleRunDiscovery(w http.ResponseWriter, r *http.Request) {
	if err := s.disc.RunDiscovery(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "discovery failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetChat(w http.ResponseWriter, _ *http.Request) {
	var history []model.ChatMessage
	_ = s.st.Load(store.DocChatHistory, &history, []model.ChatMessage{})
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleClearChat(w http.ResponseWriter, _ *http.Request) {
	if err := s.st.Save(store.DocChatHistory, []model.ChatMessage{}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear chat history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatReply struct {
	Reply string `json:"reply"`
}

// handlePostChat forwards one user message to the configured AI provider
// and appends both sides of the exchange to the history document.
func (s *Server) handlePostChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	var settings model.Settings
	_ = s.st.Load(store.DocSettings, &settings, model.DefaultSettings())

	provider, err := ai.New(settings)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ai provider not configured")
		return
	}

	var history []model.ChatMessage
	_ = s.st.Load(store.DocChatHistory, &history, []model.ChatMessage{})

	reply, err := provider.Complete(r.Context(), chatPrompt(history, req.Message), ai.Options{MaxTokens: 1024})
	if err != nil {
		appLog.Error("chat completion failed", err, "provider", provider.Name())
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}

	now := time.Now()
	history = append(history,
		model.ChatMessage{Role: "user", Content: req.Message, At: now},
		model.ChatMessage{Role: "assistant", Content: reply, At: now},
	)
	if err := s.st.Save(store.DocChatHistory, history); err != nil {
		appLog.Error("failed to persist chat history", err)
	}

	writeJSON(w, http.StatusOK, chatReply{Reply: reply})
}

// chatPrompt flattens recent history plus the new message into one prompt.
// Only the last few turns are carried to keep the request small.
func chatPrompt(history []model.ChatMessage, message string) string {
	const maxTurns = 10

	var sb strings.Builder
	sb.WriteString("You are a marketing assistant for a UAE e-commerce seller. Answer concisely and practically.\n\n")

	start := 0
	if len(history) > maxTurns {
		start = len(history) - maxTurns
	}
	for _, m := range history[start:] {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	sb.WriteString("user: ")
	sb.WriteString(message)
	sb.WriteString("\nassistant:")
	return sb.String()
}

// handleExportICS serves the merged calendar window as an iCalendar file.
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(s.loc)
	from := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, s.loc)
	to := time.Date(now.Year(), 12, 31, 0, 0, 0, 0, s.loc)

	user, discovered := s.loadEventDocs()
	merged := calendar.Merge(from, to, s.loc, user, discovered)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//souqcal//calendar//EN")

	stamp := time.Now().UTC()
	for _, e := range merged {
		day, err := e.Day(s.loc)
		if err != nil {
			continue
		}
		ev := cal.AddEvent(e.StableID() + "@souqcal")
		ev.SetSummary(e.Name)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.Category != "" {
			ev.SetProperty(ical.ComponentPropertyCategories, e.Category)
		}
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		ev.SetDtStampTime(stamp)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename=souqcal.ics`)
	if _, err := w.Write([]byte(cal.Serialize())); err != nil {
		appLog.Error("failed to write ICS response", err)
	}
}
