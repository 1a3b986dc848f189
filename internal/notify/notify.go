// Package notify posts messages to a Discord-compatible webhook. Sends are
// fire-and-forget at the call sites: errors are returned, logged by the
// caller, and never retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"souqcal/internal/model"
)

// Discord embed accent colors.
const (
	colorBriefing  = 0x5865F2
	colorReminder  = 0xE67E22
	colorDiscovery = 0x57F287
	colorFailure   = 0xED4245
)

// Message is the webhook payload.
type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// Webhook posts Messages over HTTP.
type Webhook struct {
	client *http.Client
}

func NewWebhook() *Webhook {
	return &Webhook{client: &http.Client{Timeout: 15 * time.Second}}
}

// Send posts msg to url. Discord answers 204 on success; any other non-2xx
// status is an error carrying a body excerpt.
func (w *Webhook) Send(ctx context.Context, url string, msg Message) error {
	if url == "" {
		return fmt.Errorf("webhook url is empty")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(excerpt))
	}
	return nil
}

// BriefingMessage formats the daily briefing: today's events as a bullet
// list plus one marketing tip.
func BriefingMessage(day time.Time, events []model.CalendarEvent, tip string) Message {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString("• **")
		sb.WriteString(e.Name)
		sb.WriteString("**")
		if e.Category != "" {
			sb.WriteString(" (" + e.Category + ")")
		}
		sb.WriteString("\n")
	}

	embed := Embed{
		Title:       "📅 Today on your calendar — " + day.Format("Mon, 2 Jan 2006"),
		Description: sb.String(),
		Color:       colorBriefing,
		Timestamp:   day.Format(time.RFC3339),
	}
	if tip != "" {
		embed.Fields = append(embed.Fields, EmbedField{Name: "💡 Marketing tip", Value: tip})
	}
	return Message{Embeds: []Embed{embed}}
}

// ReminderMessage formats a lead-time reminder for a single event.
func ReminderMessage(e model.CalendarEvent, daysBefore int) Message {
	desc := fmt.Sprintf("**%s** is coming up on %s.", e.Name, e.Date)
	if e.Description != "" {
		desc += "\n" + e.Description
	}
	return Message{Embeds: []Embed{{
		Title:       fmt.Sprintf("⏰ %d day(s) to go", daysBefore),
		Description: desc,
		Color:       colorReminder,
		Footer:      &EmbedFooter{Text: "souqcal reminder"},
	}}}
}

// DiscoverySummaryMessage announces newly discovered events.
func DiscoverySummaryMessage(added []model.CalendarEvent) Message {
	var sb strings.Builder
	for _, e := range added {
		fmt.Fprintf(&sb, "• %s — **%s**", e.Date, e.Name)
		if e.Category != "" {
			sb.WriteString(" (" + e.Category + ")")
		}
		sb.WriteString("\n")
	}
	return Message{Embeds: []Embed{{
		Title:       fmt.Sprintf("🔎 %d new commercial event(s) discovered", len(added)),
		Description: sb.String(),
		Color:       colorDiscovery,
		Footer:      &EmbedFooter{Text: "souqcal discovery"},
	}}}
}

// DiscoveryFailedMessage reports a failed discovery run.
func DiscoveryFailedMessage(err error) Message {
	return Message{Embeds: []Embed{{
		Title:       "⚠️ Event discovery failed",
		Description: err.Error(),
		Color:       colorFailure,
		Footer:      &EmbedFooter{Text: "souqcal discovery"},
	}}}
}
