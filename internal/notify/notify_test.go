package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souqcal/internal/model"
)

func TestSendPostsPayload(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	msg := Message{Embeds: []Embed{{Title: "hello", Color: colorBriefing}}}
	err := NewWebhook().Send(context.Background(), srv.URL, msg)
	require.NoError(t, err)
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "hello", got.Embeds[0].Title)
}

func TestSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid webhook token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewWebhook().Send(context.Background(), srv.URL, Message{Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSendEmptyURL(t *testing.T) {
	err := NewWebhook().Send(context.Background(), "", Message{Content: "x"})
	assert.Error(t, err)
}

func TestBriefingMessage(t *testing.T) {
	day := time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC)
	events := []model.CalendarEvent{
		{Name: "UAE National Day", Category: "holiday", Date: "2025-12-02"},
		{Name: "Flash Sale", Date: "2025-12-02"},
	}

	msg := BriefingMessage(day, events, "Schedule your campaign emails the night before.")
	require.Len(t, msg.Embeds, 1)
	e := msg.Embeds[0]
	assert.Contains(t, e.Description, "UAE National Day")
	assert.Contains(t, e.Description, "Flash Sale")
	require.Len(t, e.Fields, 1)
	assert.Contains(t, e.Fields[0].Value, "campaign")
}

func TestReminderMessage(t *testing.T) {
	msg := ReminderMessage(model.CalendarEvent{Name: "White Friday", Date: "2025-11-28"}, 3)
	require.Len(t, msg.Embeds, 1)
	assert.Contains(t, msg.Embeds[0].Title, "3")
	assert.Contains(t, msg.Embeds[0].Description, "White Friday")
}

func TestDiscoveryMessages(t *testing.T) {
	added := []model.CalendarEvent{{Name: "Gitex", Date: "2025-10-13", Category: "expo"}}
	msg := DiscoverySummaryMessage(added)
	require.Len(t, msg.Embeds, 1)
	assert.Contains(t, msg.Embeds[0].Title, "1 new")
	assert.Contains(t, msg.Embeds[0].Description, "Gitex")

	fail := DiscoveryFailedMessage(assert.AnError)
	require.Len(t, fail.Embeds, 1)
	assert.Equal(t, colorFailure, fail.Embeds[0].Color)
}
