package sched

import (
	"context"
	"fmt"
	"strings"

	"souqcal/internal/ai"
	"souqcal/internal/calendar"
	appLog "souqcal/internal/log"
	"souqcal/internal/model"
	"souqcal/internal/notify"
	"souqcal/internal/store"
)

// staticMarketingTip is the briefing fallback when no AI provider is
// configured or the call fails.
const staticMarketingTip = "Post about today's events early in the day and pin your best offer — UAE shoppers browse most between 8pm and midnight."

// RunNotifications executes one notification tick: the daily briefing and
// the lead-time reminders. Every external failure degrades that feature for
// this tick only.
func (j *Jobs) RunNotifications(ctx context.Context) error {
	settings := j.loadSettings()
	if !settings.DailyBriefingEnabled && !settings.RemindersEnabled {
		appLog.Debug("notifications disabled, skipping")
		return nil
	}
	if settings.WebhookURL == "" {
		appLog.Debug("no webhook configured, skipping notifications")
		return nil
	}

	var user, discovered []model.CalendarEvent
	_ = j.store.Load(store.DocUserEvents, &user, []model.CalendarEvent{})
	_ = j.store.Load(store.DocDiscoveredEvents, &discovered, []model.CalendarEvent{})

	today := j.today()
	horizon := today.AddDate(0, 0, maxLead(settings.NotifyDaysBefore))
	merged := calendar.Merge(today, horizon, j.loc, user, discovered)

	if settings.DailyBriefingEnabled {
		j.sendBriefing(ctx, settings, calendar.OnDay(merged, today))
	}

	if settings.RemindersEnabled {
		j.sendReminders(ctx, settings, merged)
	}
	return nil
}

// sendBriefing posts one combined message for today's events, with an
// AI-generated tip when a provider is available.
func (j *Jobs) sendBriefing(ctx context.Context, settings model.Settings, todays []model.CalendarEvent) {
	if len(todays) == 0 {
		appLog.Debug("no events today, briefing skipped")
		return
	}

	tip := j.marketingTip(ctx, settings, todays)
	msg := notify.BriefingMessage(j.today(), todays, tip)
	if err := j.sender.Send(ctx, settings.WebhookURL, msg); err != nil {
		appLog.Error("failed to send daily briefing", err)
		return
	}
	appLog.Info("daily briefing sent", "events", len(todays))
}

// sendReminders posts at most one reminder per event and lead time, tracked
// in the sent-notification log.
func (j *Jobs) sendReminders(ctx context.Context, settings model.Settings, merged []model.CalendarEvent) {
	var sent []string
	_ = j.store.Load(store.DocSentNotifications, &sent, []string{})

	sentSet := make(map[string]struct{}, len(sent))
	for _, id := range sent {
		sentSet[id] = struct{}{}
	}

	today := j.today()
	dispatched := 0
	for _, lead := range settings.NotifyDaysBefore {
		if lead <= 0 {
			continue
		}
		target := today.AddDate(0, 0, lead)
		for _, e := range calendar.OnDay(merged, target) {
			key := fmt.Sprintf("%s_%dd", e.StableID(), lead)
			if _, done := sentSet[key]; done {
				continue
			}
			if err := j.sender.Send(ctx, settings.WebhookURL, notify.ReminderMessage(e, lead)); err != nil {
				appLog.Error("failed to send reminder", err, "event", e.Name, "lead_days", lead)
				continue
			}
			sentSet[key] = struct{}{}
			sent = append(sent, key)
			dispatched++
		}
	}

	if dispatched > 0 {
		if err := j.store.Save(store.DocSentNotifications, sent); err != nil {
			appLog.Error("failed to persist sent-notification log", err)
		}
		appLog.Info("reminders sent", "count", dispatched)
	}
}

// marketingTip asks the provider for one actionable tip, falling back to the
// static one on any failure.
func (j *Jobs) marketingTip(ctx context.Context, settings model.Settings, todays []model.CalendarEvent) string {
	provider, err := j.newProvider(settings)
	if err != nil {
		return staticMarketingTip
	}

	names := make([]string, 0, len(todays))
	for _, e := range todays {
		names = append(names, e.Name)
	}
	prompt := fmt.Sprintf(`Today's UAE calendar events: %s.
Give one concrete, actionable marketing tip for a small UAE e-commerce seller tied to these events. Two sentences maximum, no preamble.`,
		strings.Join(names, ", "))

	tip, err := provider.Complete(ctx, prompt, ai.Options{MaxTokens: 200})
	if err != nil {
		appLog.Warn("marketing tip unavailable, using fallback", "reason", err)
		return staticMarketingTip
	}
	tip = strings.TrimSpace(tip)
	if tip == "" {
		return staticMarketingTip
	}
	return tip
}

func maxLead(leads []int) int {
	max := 0
	for _, l := range leads {
		if l > max {
			max = l
		}
	}
	return max
}
