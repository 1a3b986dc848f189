package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"souqcal/internal/ai"
	"souqcal/internal/model"
	"souqcal/internal/notify"
	"souqcal/internal/store"
)

type fakeProvider struct {
	response string
	err      error
	calls    int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(_ context.Context, _ string, _ ai.Options) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

type fakeSender struct {
	urls []string
	msgs []notify.Message
}

func (s *fakeSender) Send(_ context.Context, url string, msg notify.Message) error {
	s.urls = append(s.urls, url)
	s.msgs = append(s.msgs, msg)
	return nil
}

var testNow = time.Date(2025, 11, 10, 10, 0, 0, 0, time.UTC)

func newTestJobs(t *testing.T, provider *fakeProvider, providerErr error, sender *fakeSender) (*Jobs, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	factory := func(model.Settings) (ai.Provider, error) {
		if providerErr != nil {
			return nil, providerErr
		}
		return provider, nil
	}

	jobs := NewJobs(st, sender, factory, time.UTC)
	jobs.now = func() time.Time { return testNow }
	return jobs, st
}

func saveSettings(t *testing.T, st *store.Store, mod func(*model.Settings)) model.Settings {
	t.Helper()
	s := model.DefaultSettings()
	s.WebhookURL = "https://discord.test/hook"
	if mod != nil {
		mod(&s)
	}
	require.NoError(t, st.Save(store.DocSettings, s))
	return s
}

func TestDiscoveryAddsEventsAndSendsSummary(t *testing.T) {
	provider := &fakeProvider{response: `[
		{"date":"2025-11-11","name":"Singles Day Flash Deals","category":"sale"},
		{"date":"Nov 28, 2025","name":"White Friday Weekend","category":"sale"},
		{"date":"","name":"broken"}
	]`}
	sender := &fakeSender{}
	jobs, st := newTestJobs(t, provider, nil, sender)
	saveSettings(t, st, func(s *model.Settings) { s.DiscoveryEnabled = true })

	require.NoError(t, jobs.RunDiscovery(context.Background()))
	assert.Equal(t, 1, provider.calls)

	var stored []model.CalendarEvent
	require.NoError(t, st.Load(store.DocDiscoveredEvents, &stored, []model.CalendarEvent{}))
	require.Len(t, stored, 2)
	assert.Equal(t, "2025-11-28", stored[1].Date) // dateparse-normalized
	assert.Equal(t, model.KindDiscovered, stored[0].Kind)
	assert.Equal(t, "fake", stored[0].Source)

	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0].Embeds[0].Title, "2 new")

	var state model.DiscoveryState
	require.NoError(t, st.Load(store.DocDiscoveryState, &state, model.DiscoveryState{}))
	assert.True(t, state.LastRun.Equal(testNow))
}

func TestDiscoveryDedupAcrossRuns(t *testing.T) {
	provider := &fakeProvider{response: `[{"date":"2025-11-11","name":"Singles Day Flash Deals","category":"sale"}]`}
	sender := &fakeSender{}
	jobs, st := newTestJobs(t, provider, nil, sender)
	saveSettings(t, st, func(s *model.Settings) { s.DiscoveryEnabled = true })

	require.NoError(t, jobs.RunDiscovery(context.Background()))
	require.Len(t, sender.msgs, 1)

	// Reopen the gate and run again with identical provider output.
	require.NoError(t, st.Save(store.DocDiscoveryState, model.DiscoveryState{LastRun: testNow.AddDate(0, 0, -30)}))
	require.NoError(t, jobs.RunDiscovery(context.Background()))

	var stored []model.CalendarEvent
	require.NoError(t, st.Load(store.DocDiscoveredEvents, &stored, []model.CalendarEvent{}))
	assert.Len(t, stored, 1)
	// No new events, no second summary.
	assert.Len(t, sender.msgs, 1)
}

func TestDiscoveryIntervalGate(t *testing.T) {
	provider := &fakeProvider{response: `[]`}
	jobs, st := newTestJobs(t, provider, nil, &fakeSender{})
	saveSettings(t, st, func(s *model.Settings) {
		s.DiscoveryEnabled = true
		s.DiscoveryFrequencyDays = 7
	})
	require.NoError(t, st.Save(store.DocDiscoveryState, model.DiscoveryState{LastRun: testNow.AddDate(0, 0, -1)}))

	require.NoError(t, jobs.RunDiscovery(context.Background()))
	assert.Equal(t, 0, provider.calls)

	// Gate opens once the configured interval has elapsed.
	require.NoError(t, st.Save(store.DocDiscoveryState, model.DiscoveryState{LastRun: testNow.AddDate(0, 0, -8)}))
	require.NoError(t, jobs.RunDiscovery(context.Background()))
	assert.Equal(t, 1, provider.calls)
}

func TestDiscoverySkipsWhenDisabledOrUnconfigured(t *testing.T) {
	provider := &fakeProvider{response: `[]`}
	jobs, st := newTestJobs(t, provider, nil, &fakeSender{})
	saveSettings(t, st, nil) // discovery disabled by default
	require.NoError(t, jobs.RunDiscovery(context.Background()))
	assert.Equal(t, 0, provider.calls)

	jobs2, st2 := newTestJobs(t, nil, ai.ErrNotConfigured, &fakeSender{})
	saveSettings(t, st2, func(s *model.Settings) { s.DiscoveryEnabled = true })
	assert.NoError(t, jobs2.RunDiscovery(context.Background()))
}

func TestDiscoveryFailureDoesNotAdvanceGate(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream 500")}
	sender := &fakeSender{}
	jobs, st := newTestJobs(t, provider, nil, sender)
	saveSettings(t, st, func(s *model.Settings) { s.DiscoveryEnabled = true })

	err := jobs.RunDiscovery(context.Background())
	require.Error(t, err)

	// Failure notice went out, but last_run stayed untouched so the next
	// tick retries.
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0].Embeds[0].Title, "failed")

	var state model.DiscoveryState
	require.NoError(t, st.Load(store.DocDiscoveryState, &state, model.DiscoveryState{}))
	assert.True(t, state.LastRun.IsZero())

	require.Error(t, jobs.RunDiscovery(context.Background()))
	assert.Equal(t, 2, provider.calls)
}

func TestRemindersFireExactlyOnce(t *testing.T) {
	sender := &fakeSender{}
	jobs, st := newTestJobs(t, nil, ai.ErrNotConfigured, sender)
	saveSettings(t, st, func(s *model.Settings) {
		s.DailyBriefingEnabled = false
		s.RemindersEnabled = true
		s.NotifyDaysBefore = []int{3}
	})

	target := testNow.AddDate(0, 0, 3).Format(model.DateLayout)
	require.NoError(t, st.Save(store.DocUserEvents, []model.CalendarEvent{
		{ID: "u1", Kind: model.KindUser, Name: "Restock deadline", Date: target},
	}))

	require.NoError(t, jobs.RunNotifications(context.Background()))
	require.NoError(t, jobs.RunNotifications(context.Background()))

	count := 0
	for _, m := range sender.msgs {
		if len(m.Embeds) > 0 && m.Embeds[0].Footer != nil && m.Embeds[0].Footer.Text == "souqcal reminder" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	var sent []string
	require.NoError(t, st.Load(store.DocSentNotifications, &sent, []string{}))
	assert.Equal(t, []string{"u1_3d"}, sent)
}

func TestBriefingUsesStaticTipOnProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("quota")}
	sender := &fakeSender{}
	jobs, st := newTestJobs(t, provider, nil, sender)
	saveSettings(t, st, func(s *model.Settings) {
		s.DailyBriefingEnabled = true
		s.RemindersEnabled = false
	})

	today := testNow.Format(model.DateLayout)
	require.NoError(t, st.Save(store.DocUserEvents, []model.CalendarEvent{
		{ID: "u1", Kind: model.KindUser, Name: "Launch day", Date: today},
	}))

	require.NoError(t, jobs.RunNotifications(context.Background()))
	require.Len(t, sender.msgs, 1)
	fields := sender.msgs[0].Embeds[0].Fields
	require.Len(t, fields, 1)
	assert.Equal(t, staticMarketingTip, fields[0].Value)
}

func TestNotificationsSkipWithoutWebhook(t *testing.T) {
	sender := &fakeSender{}
	jobs, st := newTestJobs(t, nil, ai.ErrNotConfigured, sender)
	saveSettings(t, st, func(s *model.Settings) {
		s.WebhookURL = ""
		s.DailyBriefingEnabled = true
	})

	require.NoError(t, jobs.RunNotifications(context.Background()))
	assert.Empty(t, sender.msgs)
}

func TestParseClock(t *testing.T) {
	h, m, err := parseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"", "9", "25:00", "10:60", "aa:bb"} {
		_, _, err := parseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestScheduleNotificationsFallsBackOnBadClock(t *testing.T) {
	jobs, _ := newTestJobs(t, nil, ai.ErrNotConfigured, &fakeSender{})
	s := New(jobs, time.UTC)
	defer s.Stop()

	require.NoError(t, s.ScheduleNotifications("not-a-time"))
	first := s.notifyID
	assert.NotZero(t, first)

	// A valid reschedule replaces the entry.
	require.NoError(t, s.ScheduleNotifications("18:45"))
	assert.NotEqual(t, first, s.notifyID)
}
