// Package cron turns refresh interval settings into run schedules. A
// setting is either a positive number of seconds ("60") or a standard
// five-field cron expression ("*/5 * * * *").
package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// DefaultInterval matches the one-minute granularity of the tariff schedules.
const DefaultInterval = 60 * time.Second

// Schedule yields the next activation time after a given instant.
type Schedule interface {
	Next(after time.Time) time.Time
}

// Every runs at a fixed interval from the previous run.
type Every time.Duration

func (e Every) Next(after time.Time) time.Time {
	return after.Add(time.Duration(e))
}

// Parse reads an interval setting. Integer seconds take precedence over
// cron syntax.
func Parse(setting string) (Schedule, error) {
	setting = strings.TrimSpace(setting)
	if setting == "" {
		return Every(DefaultInterval), nil
	}
	if v, err := strconv.Atoi(setting); err == nil {
		if v <= 0 {
			return nil, fmt.Errorf("interval must be positive, got %d", v)
		}
		return Every(time.Duration(v) * time.Second), nil
	}
	sched, err := robfig.ParseStandard(setting)
	if err != nil {
		return nil, fmt.Errorf("parse interval %q: %w", setting, err)
	}
	return sched, nil
}

// MustParse is Parse that falls back to DefaultInterval on a bad setting.
func MustParse(setting string) Schedule {
	s, err := Parse(setting)
	if err != nil {
		return Every(DefaultInterval)
	}
	return s
}
