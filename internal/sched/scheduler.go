// Package sched runs the two background jobs: commercial event discovery and
// notification dispatch. Both are cron-driven, tolerate every upstream
// failure, and never take the process down.
package sched

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "souqcal/internal/log"
)

// Discovery fires daily at a fixed local time; the settings-driven interval
// gate inside the job decides whether a tick does real work.
const discoveryCronSpec = "0 8 * * *"

// defaultBriefingClock is used when daily_briefing_time cannot be parsed.
const defaultBriefingClock = "09:00"

// Scheduler owns the cron instance and the two job entries. The notification
// entry is replaced whenever settings are saved.
type Scheduler struct {
	cron *cron.Cron
	jobs *Jobs

	mu       sync.Mutex
	notifyID cron.EntryID
}

// New builds a Scheduler in the given location. Jobs are registered by
// Start and ScheduleNotifications.
func New(jobs *Jobs, loc *time.Location) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		jobs: jobs,
	}
}

// Start registers the discovery entry and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(discoveryCronSpec, func() {
		if err := s.jobs.RunDiscovery(context.Background()); err != nil {
			appLog.Error("discovery run failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("adding discovery entry: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// ScheduleNotifications (re)schedules the daily notification job at the
// given HH:MM clock time. An unparsable clock falls back to 09:00 rather
// than leaving the job unscheduled.
func (s *Scheduler) ScheduleNotifications(clock string) error {
	hour, minute, err := parseClock(clock)
	if err != nil {
		appLog.Warn("invalid daily briefing time, using default", "value", clock, "default", defaultBriefingClock)
		hour, minute, _ = parseClock(defaultBriefingClock)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.notifyID != 0 {
		s.cron.Remove(s.notifyID)
	}

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	id, err := s.cron.AddFunc(spec, func() {
		if err := s.jobs.RunNotifications(context.Background()); err != nil {
			appLog.Error("notification run failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("adding notification entry: %w", err)
	}
	s.notifyID = id

	appLog.Info("notification job scheduled", "cron", spec)
	return nil
}

// parseClock extracts hour and minute from an HH:MM string.
func parseClock(clock string) (int, int, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q: must be HH:MM", clock)
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("invalid time %q: must be HH:MM", clock)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q: hour 0-23, minute 0-59", clock)
	}
	return hour, minute, nil
}
