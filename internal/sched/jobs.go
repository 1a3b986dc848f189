package sched

import (
	"context"
	"time"

	"souqcal/internal/ai"
	"souqcal/internal/model"
	"souqcal/internal/notify"
	"souqcal/internal/store"
)

// ProviderFactory builds an AI provider from the current settings, so a job
// always runs with the freshest credentials.
type ProviderFactory func(model.Settings) (ai.Provider, error)

// Sender posts webhook messages. Satisfied by *notify.Webhook.
type Sender interface {
	Send(ctx context.Context, url string, msg notify.Message) error
}

// Jobs holds the shared dependencies of both scheduled jobs. The clock is
// injectable for tests.
type Jobs struct {
	store       *store.Store
	sender      Sender
	newProvider ProviderFactory
	loc         *time.Location
	now         func() time.Time
}

func NewJobs(st *store.Store, sender Sender, factory ProviderFactory, loc *time.Location) *Jobs {
	return &Jobs{
		store:       st,
		sender:      sender,
		newProvider: factory,
		loc:         loc,
		now:         time.Now,
	}
}

func (j *Jobs) loadSettings() model.Settings {
	var s model.Settings
	_ = j.store.Load(store.DocSettings, &s, model.DefaultSettings())
	return s
}

func (j *Jobs) today() time.Time {
	n := j.now().In(j.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, j.loc)
}
