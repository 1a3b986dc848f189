package sched

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"souqcal/internal/ai"
	"souqcal/internal/calendar"
	appLog "souqcal/internal/log"
	"souqcal/internal/model"
	"souqcal/internal/notify"
	"souqcal/internal/store"
)

// discoveredItem is the shape the discovery prompt asks the model for.
type discoveredItem struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// RunDiscovery executes one discovery tick. Disabled discovery, missing
// credentials and a still-closed interval gate are all silent no-ops. The
// last-run timestamp advances only on success, so a failing run is retried
// at the next tick.
func (j *Jobs) RunDiscovery(ctx context.Context) error {
	settings := j.loadSettings()
	if !settings.DiscoveryEnabled {
		appLog.Debug("discovery disabled, skipping")
		return nil
	}

	provider, err := j.newProvider(settings)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			appLog.Info("discovery skipped: ai provider not configured", "provider", settings.AIProvider)
			return nil
		}
		appLog.Info("discovery skipped: bad provider selection", "provider", settings.AIProvider, "reason", err)
		return nil
	}

	var state model.DiscoveryState
	_ = j.store.Load(store.DocDiscoveryState, &state, model.DiscoveryState{})

	now := j.now().In(j.loc)
	freq := settings.DiscoveryFrequencyDays
	if freq <= 0 {
		freq = 7
	}
	if !state.LastRun.IsZero() && now.Sub(state.LastRun) < time.Duration(freq)*24*time.Hour {
		appLog.Debug("discovery interval gate closed",
			"last_run", state.LastRun.Format(time.RFC3339), "frequency_days", freq)
		return nil
	}

	added, err := j.discover(ctx, provider, now)
	if err != nil {
		appLog.Error("discovery failed", err, "provider", provider.Name())
		if settings.WebhookURL != "" {
			if serr := j.sender.Send(ctx, settings.WebhookURL, notify.DiscoveryFailedMessage(err)); serr != nil {
				appLog.Error("failed to send discovery failure notice", serr)
			}
		}
		return err
	}

	if len(added) > 0 && settings.WebhookURL != "" {
		if serr := j.sender.Send(ctx, settings.WebhookURL, notify.DiscoverySummaryMessage(added)); serr != nil {
			appLog.Error("failed to send discovery summary", serr)
		}
	}

	// Advance the gate whether or not anything new was found.
	if err := j.store.Save(store.DocDiscoveryState, model.DiscoveryState{LastRun: now}); err != nil {
		appLog.Error("failed to persist discovery state", err)
	}

	appLog.Info("discovery completed", "added", len(added), "month", now.Format("2006-01"))
	return nil
}

// discover calls the provider for the current month, dedups against the
// stored list, and persists whatever is genuinely new.
func (j *Jobs) discover(ctx context.Context, provider ai.Provider, now time.Time) ([]model.CalendarEvent, error) {
	raw, err := provider.Complete(ctx, discoveryPrompt(now), ai.Options{JSONMode: true, MaxTokens: 2048})
	if err != nil {
		return nil, err
	}

	var items []discoveredItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("discovery response is not an event array: %w", err)
	}

	candidates := make([]model.CalendarEvent, 0, len(items))
	for _, it := range items {
		date, ok := normalizeDate(it.Date)
		if !ok || it.Name == "" {
			appLog.Debug("dropping malformed discovered item", "name", it.Name, "date", it.Date)
			continue
		}
		candidates = append(candidates, model.CalendarEvent{
			Kind:     model.KindDiscovered,
			Date:     date,
			Name:     it.Name,
			Category: it.Category,
			Source:   provider.Name(),
		})
	}

	var existing []model.CalendarEvent
	_ = j.store.Load(store.DocDiscoveredEvents, &existing, []model.CalendarEvent{})

	added := calendar.FilterNew(existing, candidates)
	if len(added) == 0 {
		return nil, nil
	}

	if err := j.store.Save(store.DocDiscoveredEvents, append(existing, added...)); err != nil {
		return nil, fmt.Errorf("persisting discovered events: %w", err)
	}
	return added, nil
}

// normalizeDate turns whatever date string the model produced into the
// canonical calendar-day format.
func normalizeDate(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t.Format(model.DateLayout), true
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", false
	}
	return t.Format(model.DateLayout), true
}

func discoveryPrompt(now time.Time) string {
	return fmt.Sprintf(`You are a UAE e-commerce market analyst. List the commercial events, shopping festivals, sales seasons, expos and awareness days relevant to online sellers in the UAE during %s %d.

Respond with a JSON array only, no prose. Each element must be an object:
{"date": "YYYY-MM-DD", "name": "event name", "category": "sale|expo|holiday|awareness"}

Only include events inside that month. Use dates within %d.`,
		now.Month().String(), now.Year(), now.Year())
}
